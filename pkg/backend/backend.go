package backend

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tendant/rbac-console/pkg/role"
	"github.com/tendant/rbac-console/pkg/store"
	"github.com/tendant/rbac-console/pkg/user"
)

// Backend holds the two collections the console manages.
type Backend struct {
	Roles store.Repository[role.Role]
	Users store.Repository[user.User]

	// relations serializes the writes whose role reference checks read the other collection.
	relations *sync.Mutex
}

// NewInMemory returns a Backend that keeps everything in memory.
func NewInMemory() Backend {
	return Backend{
		Roles:     store.NewInMemoryRepository[role.Role]("roles"),
		Users:     store.NewInMemoryRepository[user.User]("users"),
		relations: &sync.Mutex{},
	}
}

// NewFile returns a Backend persisting roles.json and users.json under dataDir.
func NewFile(dataDir string) (Backend, error) {
	roles, err := store.NewFileRepository[role.Role](dataDir, "roles")
	if err != nil {
		return Backend{}, err
	}
	users, err := store.NewFileRepository[user.User](dataDir, "users")
	if err != nil {
		return Backend{}, err
	}
	return Backend{Roles: roles, Users: users, relations: &sync.Mutex{}}, nil
}

// NewPostgres returns a Backend on PostgreSQL, creating its tables if needed.
func NewPostgres(ctx context.Context, db store.DBTX) (Backend, error) {
	roles := store.NewPostgresRepository[role.Role](db, "roles")
	if err := roles.Migrate(ctx); err != nil {
		return Backend{}, err
	}
	users := store.NewPostgresRepository[user.User](db, "users")
	if err := users.Migrate(ctx); err != nil {
		return Backend{}, err
	}
	return Backend{Roles: roles, Users: users, relations: &sync.Mutex{}}, nil
}

// Routes mounts /roles and /users on r behind OpenAPI request validation.
// Users must reference an existing role; roles in use cannot be deleted.
// The checks and the writes they guard run under one lock, within this process.
func (b Backend) Routes(ctx context.Context, r chi.Router, logger *slog.Logger) error {
	doc, err := LoadSpec(ctx)
	if err != nil {
		return err
	}
	validator, err := RequestValidator(doc)
	if err != nil {
		return err
	}

	if b.relations == nil {
		b.relations = &sync.Mutex{}
	}
	r.Group(func(r chi.Router) {
		r.Use(validator)
		r.Route("/roles", NewHandle("roles", b.Roles, logger).WithHooks(Hooks[role.Role]{
			BeforeDelete: b.ensureRoleUnassigned,
			AfterUpdate:  b.relabelUsers,
			Lock:         b.relations,
		}).Routes)
		r.Route("/users", NewHandle("users", b.Users, logger).WithHooks(Hooks[user.User]{
			Prepare: b.ResolveUserRole,
			Lock:    b.relations,
		}).Routes)
	})
	return nil
}

// Handler returns a standalone router serving the backend.
func (b Backend) Handler(ctx context.Context, logger *slog.Logger) (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if err := b.Routes(ctx, r, logger); err != nil {
		return nil, err
	}
	return r, nil
}
