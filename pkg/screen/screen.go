package screen

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/copier"
	"github.com/tendant/rbac-console/pkg/errors"
)

// Record is implemented by the value types a Screen manages.
type Record[T any] interface {
	RecordID() int
	WithID(id int) T
}

// Client is the backend collection a Screen reads and writes.
// *resource.Client[T] satisfies it.
type Client[T any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, record T) error
	Update(ctx context.Context, id int, record T) error
	Delete(ctx context.Context, id int) error
}

// Config wires a Screen to its backend and record shape.
type Config[T any] struct {
	// Resource names the collection in logs and errors, e.g. "roles".
	Resource string
	Client   Client[T]
	// Blank returns the draft opened by OpenAdd.
	Blank func() T
	// Check runs after struct tag validation on every submit. Optional.
	Check func(mode DialogMode, draft T) error
	Logger *slog.Logger
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Screen is one mounted table screen.
type Screen[T Record[T]] struct {
	resource string
	client   Client[T]
	blank    func() T
	check    func(DialogMode, T) error
	logger   *slog.Logger

	mu         sync.Mutex
	state      LoadState
	loadErr    error
	records    []T
	dialog     DialogMode
	draft      T
	generation uint64
	pending    map[pendingKey]struct{}
}

// New mounts a screen. Nothing is fetched until Load.
func New[T Record[T]](cfg Config[T]) *Screen[T] {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	blank := cfg.Blank
	if blank == nil {
		blank = func() T {
			var zero T
			return zero
		}
	}
	return &Screen[T]{
		resource: cfg.Resource,
		client:   cfg.Client,
		blank:    blank,
		check:    cfg.Check,
		logger:   logger.With("resource", cfg.Resource),
		records:  []T{},
		pending:  make(map[pendingKey]struct{}),
	}
}

// Load fetches the collection. It may run once per screen; later calls return ErrCodeInvalidState.
// On failure the collection stays empty and the error is logged and returned.
func (s *Screen[T]) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		return errors.Newf(errors.ErrCodeInvalidState, "%s already %s", s.resource, state)
	}
	s.state = StateLoading
	s.mu.Unlock()

	records, err := s.client.List(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.logger.Error("Failed to load records", "error", err)
		s.state = StateFailed
		s.loadErr = err
		s.records = []T{}
		return err
	}
	if records == nil {
		records = []T{}
	}
	s.records = records
	s.state = StateLoaded
	s.logger.Debug("Loaded records", "count", len(records))
	return nil
}

// OpenAdd opens the add dialog on a blank draft.
func (s *Screen[T]) OpenAdd() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialog = DialogAdd
	s.draft = s.blank()
	s.generation++
}

// OpenEdit opens the edit dialog on a deep copy of the record with id.
func (s *Screen[T]) OpenEdit(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return errors.NotFound(s.resource, strconv.Itoa(id))
	}
	draft, err := deepCopy(s.records[idx])
	if err != nil {
		return errors.InternalWrap(err, fmt.Sprintf("copy %s %d", s.resource, id))
	}
	s.dialog = DialogEdit
	s.draft = draft
	s.generation++
	return nil
}

// Cancel discards the draft and closes whichever dialog is open.
func (s *Screen[T]) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeDialog()
}

// EditDraft applies fn to the open draft.
func (s *Screen[T]) EditDraft(fn func(mode DialogMode, draft T) T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dialog == DialogClosed {
		return errors.New(errors.ErrCodeInvalidState, "no dialog is open")
	}
	s.draft = fn(s.dialog, s.draft)
	return nil
}

// SubmitAdd validates the add draft, assigns the next id and creates the record.
// The record is appended only after the backend accepts it. An invalid draft sends nothing.
func (s *Screen[T]) SubmitAdd(ctx context.Context) (T, error) {
	var zero T

	s.mu.Lock()
	if s.dialog != DialogAdd {
		s.mu.Unlock()
		return zero, errors.New(errors.ErrCodeInvalidState, "add dialog is not open")
	}
	if err := s.validateDraft(DialogAdd, s.draft); err != nil {
		s.mu.Unlock()
		return zero, err
	}
	record, err := deepCopy(s.draft)
	if err != nil {
		s.mu.Unlock()
		return zero, errors.InternalWrap(err, "copy draft")
	}
	record = record.WithID(nextID(s.records))
	key := pendingKey{ActionCreate, record.RecordID()}
	if err := s.begin(key); err != nil {
		s.mu.Unlock()
		return zero, err
	}
	gen := s.generation
	s.mu.Unlock()

	err = s.client.Create(ctx, record)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, key)
	if err != nil {
		s.logger.Error("Failed to create record", "id", key.id, "error", err)
		return zero, err
	}
	s.records = append(s.records, record)
	if s.generation == gen {
		s.closeDialog()
	}
	return record, nil
}

// SubmitEdit validates the edit draft and updates the record with the draft's id.
// The row is replaced only after the backend accepts the update.
func (s *Screen[T]) SubmitEdit(ctx context.Context) (T, error) {
	var zero T

	s.mu.Lock()
	if s.dialog != DialogEdit {
		s.mu.Unlock()
		return zero, errors.New(errors.ErrCodeInvalidState, "edit dialog is not open")
	}
	if err := s.validateDraft(DialogEdit, s.draft); err != nil {
		s.mu.Unlock()
		return zero, err
	}
	record, err := deepCopy(s.draft)
	if err != nil {
		s.mu.Unlock()
		return zero, errors.InternalWrap(err, "copy draft")
	}
	key := pendingKey{ActionUpdate, record.RecordID()}
	if err := s.begin(key); err != nil {
		s.mu.Unlock()
		return zero, err
	}
	gen := s.generation
	s.mu.Unlock()

	err = s.client.Update(ctx, key.id, record)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, key)
	if err != nil {
		s.logger.Error("Failed to update record", "id", key.id, "error", err)
		return zero, err
	}
	if idx := s.indexOf(key.id); idx >= 0 {
		s.records[idx] = record
	}
	if s.generation == gen {
		s.closeDialog()
	}
	return record, nil
}

// DeleteRecord deletes id on the backend and then drops it from the collection.
func (s *Screen[T]) DeleteRecord(ctx context.Context, id int) error {
	key := pendingKey{ActionDelete, id}

	s.mu.Lock()
	if err := s.begin(key); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	err := s.client.Delete(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, key)
	if err != nil {
		s.logger.Error("Failed to delete record", "id", id, "error", err)
		return err
	}
	if idx := s.indexOf(id); idx >= 0 {
		s.records = append(s.records[:idx], s.records[idx+1:]...)
	}
	return nil
}

// State returns the load state and, when Failed, the load error.
func (s *Screen[T]) State() (LoadState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.loadErr
}

// Records returns a deep copy of the collection in table order.
func (s *Screen[T]) Records() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, 0, len(s.records))
	for _, r := range s.records {
		c, err := deepCopy(r)
		if err != nil {
			s.logger.Warn("Failed to copy record", "id", r.RecordID(), "error", err)
			c = r
		}
		out = append(out, c)
	}
	return out
}

// Dialog returns the open dialog and a copy of its draft.
func (s *Screen[T]) Dialog() (DialogMode, T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dialog == DialogClosed {
		var zero T
		return DialogClosed, zero
	}
	draft, err := deepCopy(s.draft)
	if err != nil {
		s.logger.Warn("Failed to copy draft", "error", err)
		draft = s.draft
	}
	return s.dialog, draft
}

// InFlight reports whether action on id is waiting for the backend.
func (s *Screen[T]) InFlight(action Action, id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[pendingKey{action, id}]
	return ok
}

func (s *Screen[T]) begin(key pendingKey) error {
	if _, ok := s.pending[key]; ok {
		return errors.Newf(errors.ErrCodeConflict, "%s %d: %s already in progress", s.resource, key.id, key.action).
			WithDetail("action", string(key.action)).
			WithDetail("id", key.id)
	}
	s.pending[key] = struct{}{}
	return nil
}

func (s *Screen[T]) closeDialog() {
	var zero T
	s.dialog = DialogClosed
	s.draft = zero
	s.generation++
}

func (s *Screen[T]) indexOf(id int) int {
	for i, r := range s.records {
		if r.RecordID() == id {
			return i
		}
	}
	return -1
}

func (s *Screen[T]) validateDraft(mode DialogMode, draft T) error {
	if err := validate.Struct(draft); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			details := make(map[string]interface{}, len(fieldErrs))
			for _, fe := range fieldErrs {
				details[fe.Field()] = fe.Tag()
			}
			return errors.ValidationFailed(details)
		}
		return errors.InternalWrap(err, "validate draft")
	}
	if s.check != nil {
		return s.check(mode, draft)
	}
	return nil
}

// nextID is one more than the largest id in records, or 1 for an empty collection.
func nextID[T Record[T]](records []T) int {
	if len(records) == 0 {
		return 1
	}
	highest := records[0].RecordID()
	for _, r := range records[1:] {
		if id := r.RecordID(); id > highest {
			highest = id
		}
	}
	return highest + 1
}

func deepCopy[T any](src T) (T, error) {
	var dst T
	err := copier.CopyWithOption(&dst, &src, copier.Option{DeepCopy: true})
	return dst, err
}
