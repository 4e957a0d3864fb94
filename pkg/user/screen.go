package user

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tendant/rbac-console/pkg/errors"
	"github.com/tendant/rbac-console/pkg/role"
	"github.com/tendant/rbac-console/pkg/screen"
)

// RoleLister is the read-only role lookup the screen depends on.
type RoleLister interface {
	List(ctx context.Context) ([]role.Role, error)
}

// RoleOption is one entry of the role select.
type RoleOption struct {
	ID   int
	Name string
}

// Screen is the User table screen.
type Screen struct {
	*screen.Screen[User]
	roleLister RoleLister
	logger     *slog.Logger

	mu       sync.Mutex
	mounted  bool
	roles    []RoleOption
	rolesErr error
}

// NewScreen mounts a User screen. Nothing is fetched until Load.
func NewScreen(users screen.Client[User], roles RoleLister, logger *slog.Logger) *Screen {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Screen{
		roleLister: roles,
		logger:     logger.With("resource", "users"),
		roles:      []RoleOption{},
	}
	s.Screen = screen.New(screen.Config[User]{
		Resource: "users",
		Client:   users,
		Blank:    Blank,
		Check:    s.checkRole,
		Logger:   logger,
	})
	return s
}

// Load fetches users and roles in parallel, once per mount. Each fetch fails on its own:
// a failed role fetch leaves no role options but still shows users. The first error is returned.
func (s *Screen) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.mounted {
		s.mu.Unlock()
		return errors.New(errors.ErrCodeInvalidState, "users already loaded")
	}
	s.mounted = true
	s.mu.Unlock()

	var g errgroup.Group
	g.Go(func() error {
		return s.Screen.Load(ctx)
	})
	g.Go(func() error {
		roles, err := s.roleLister.List(ctx)
		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.logger.Error("Failed to load role options", "error", err)
			s.rolesErr = err
			return err
		}
		for _, r := range roles {
			s.roles = append(s.roles, RoleOption{ID: r.ID, Name: r.Name})
		}
		return nil
	})
	return g.Wait()
}

// RoleOptions returns the roles captured at mount.
func (s *Screen) RoleOptions() []RoleOption {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.roles)
}

// RolesError returns the error of the role fetch, if it failed.
func (s *Screen) RolesError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rolesErr
}

// OpenEdit opens the edit dialog for id. A record that only names its role
// gets the matching role id filled in on the draft.
func (s *Screen) OpenEdit(id int) error {
	if err := s.Screen.OpenEdit(id); err != nil {
		return err
	}
	return s.EditDraft(func(_ screen.DialogMode, d User) User {
		if d.RoleID != 0 {
			return d
		}
		if opt, ok := s.lookup(d); ok {
			d.RoleID = opt.ID
		}
		return d
	})
}

// SetName sets the draft name. Only allowed while adding.
func (s *Screen) SetName(name string) error {
	var rejected bool
	err := s.EditDraft(func(mode screen.DialogMode, d User) User {
		if mode != screen.DialogAdd {
			rejected = true
			return d
		}
		d.Name = name
		return d
	})
	if err != nil {
		return err
	}
	if rejected {
		return errors.New(errors.ErrCodeInvalidState, "user name cannot be changed after creation")
	}
	return nil
}

// SetRole points the draft at the role with id. An id missing from the role
// options clears the role name, so submitting fails validation.
func (s *Screen) SetRole(id int) error {
	return s.EditDraft(func(_ screen.DialogMode, d User) User {
		d.RoleID, d.Role = id, ""
		if opt, ok := s.lookup(User{RoleID: id}); ok {
			d.Role = opt.Name
		}
		return d
	})
}

// SetStatus selects the draft's status.
func (s *Screen) SetStatus(status Status) error {
	return s.EditDraft(func(_ screen.DialogMode, d User) User {
		d.Status = status
		return d
	})
}

// RoleName is the current name of u's role, or the stored name when the
// role is not among the options.
func (s *Screen) RoleName(u User) string {
	if opt, ok := s.lookup(u); ok {
		return opt.Name
	}
	return u.Role
}

// Orphans returns the loaded users whose role reference does not resolve.
// Nothing is reported when the role fetch failed.
func (s *Screen) Orphans() []User {
	if s.RolesError() != nil {
		return nil
	}
	var orphans []User
	for _, u := range s.Records() {
		if _, ok := s.lookup(u); !ok {
			orphans = append(orphans, u)
		}
	}
	return orphans
}

// lookup resolves u's role by id, or by name for records without one.
// Duplicate names resolve to the lowest id, as the backend does.
func (s *Screen) lookup(u User) (RoleOption, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var match RoleOption
	found := false
	for _, opt := range s.roles {
		if u.RoleID != 0 {
			if opt.ID == u.RoleID {
				return opt, true
			}
			continue
		}
		if u.Role != "" && opt.Name == u.Role && (!found || opt.ID < match.ID) {
			match, found = opt, true
		}
	}
	return match, found
}

func (s *Screen) checkRole(_ screen.DialogMode, draft User) error {
	opt, ok := s.lookup(draft)
	if !ok || draft.RoleID != opt.ID {
		return errors.ValidationFailed(map[string]interface{}{
			"Role": fmt.Sprintf("unknown role %d", draft.RoleID),
		})
	}
	return nil
}
