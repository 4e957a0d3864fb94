package backend

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/rbac-console/pkg/errors"
	"github.com/tendant/rbac-console/pkg/store"
)

// Hooks tie a collection to the records of other collections.
type Hooks[T any] struct {
	// Prepare normalizes or rejects a record before it is created or updated.
	Prepare func(ctx context.Context, record T) (T, error)
	// BeforeDelete can refuse a delete.
	BeforeDelete func(ctx context.Context, id int) error
	// AfterUpdate runs once an update is stored. Its error is logged, not returned.
	AfterUpdate func(ctx context.Context, record T) error
	// Lock, when set, is held from Prepare or BeforeDelete until the write is stored.
	Lock sync.Locker
}

// Handle serves one collection from a repository.
type Handle[T store.Record[T]] struct {
	collection string
	repo       store.Repository[T]
	hooks      Hooks[T]
	logger     *slog.Logger
}

func NewHandle[T store.Record[T]](collection string, repo store.Repository[T], logger *slog.Logger) *Handle[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handle[T]{
		collection: collection,
		repo:       repo,
		logger:     logger.With("collection", collection),
	}
}

// WithHooks sets the relation hooks of the collection.
func (h *Handle[T]) WithHooks(hooks Hooks[T]) *Handle[T] {
	h.hooks = hooks
	return h
}

// Routes mounts the collection routes relative to /{collection}.
func (h *Handle[T]) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// List handles GET /{collection}
func (h *Handle[T]) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.repo.List(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list records", err)
		return
	}
	render.JSON(w, r, records)
}

// Get handles GET /{collection}/{id}
func (h *Handle[T]) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	record, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to get record", err)
		return
	}
	render.JSON(w, r, record)
}

// Create handles POST /{collection}
func (h *Handle[T]) Create(w http.ResponseWriter, r *http.Request) {
	var record T
	if err := render.DecodeJSON(r.Body, &record); err != nil {
		renderError(w, r, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid request body"))
		return
	}
	unlock := h.lock()
	defer unlock()
	record, err := h.prepare(r.Context(), record)
	if err != nil {
		h.fail(w, r, "Rejected record", err)
		return
	}
	created, err := h.repo.Create(r.Context(), record)
	if err != nil {
		h.fail(w, r, "Failed to create record", err)
		return
	}
	h.logger.Info("Created record", "id", created.RecordID())
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, created)
}

// Update handles PUT /{collection}/{id}
func (h *Handle[T]) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	var record T
	if err := render.DecodeJSON(r.Body, &record); err != nil {
		renderError(w, r, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid request body"))
		return
	}
	unlock := h.lock()
	defer unlock()
	record, err = h.prepare(r.Context(), record)
	if err != nil {
		h.fail(w, r, "Rejected record", err)
		return
	}
	updated, err := h.repo.Update(r.Context(), id, record)
	if err != nil {
		h.fail(w, r, "Failed to update record", err)
		return
	}
	h.logger.Info("Updated record", "id", id)
	if h.hooks.AfterUpdate != nil {
		if err := h.hooks.AfterUpdate(r.Context(), updated); err != nil {
			h.logger.Error("Failed to update related records", "id", id, "error", err)
		}
	}
	render.JSON(w, r, updated)
}

// Delete handles DELETE /{collection}/{id}
func (h *Handle[T]) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	unlock := h.lock()
	defer unlock()
	if h.hooks.BeforeDelete != nil {
		if err := h.hooks.BeforeDelete(r.Context(), id); err != nil {
			h.fail(w, r, "Refused delete", err)
			return
		}
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to delete record", err)
		return
	}
	h.logger.Info("Deleted record", "id", id)
	render.JSON(w, r, map[string]interface{}{})
}

func (h *Handle[T]) lock() (unlock func()) {
	if h.hooks.Lock == nil {
		return func() {}
	}
	h.hooks.Lock.Lock()
	return h.hooks.Lock.Unlock
}

func (h *Handle[T]) prepare(ctx context.Context, record T) (T, error) {
	if h.hooks.Prepare == nil {
		return record, nil
	}
	return h.hooks.Prepare(ctx, record)
}

func (h *Handle[T]) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.GetCode(err) == errors.ErrCodeInternal {
		h.logger.Error(msg, "error", err)
	} else {
		h.logger.Debug(msg, "error", err)
	}
	renderError(w, r, err)
}

func pathID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.InvalidInput("id", raw+" is not an integer")
	}
	return id, nil
}
