package store

import (
	"context"
	"slices"
	"sync"
)

// InMemoryRepository implements Repository in process memory
type InMemoryRepository[T Record[T]] struct {
	collection string
	mu         sync.RWMutex
	records    []T
}

// NewInMemoryRepository creates an empty in-memory collection
func NewInMemoryRepository[T Record[T]](collection string) *InMemoryRepository[T] {
	return &InMemoryRepository[T]{
		collection: collection,
		records:    []T{},
	}
}

func (r *InMemoryRepository[T]) List(ctx context.Context) ([]T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.records), nil
}

func (r *InMemoryRepository[T]) Get(ctx context.Context, id int) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var zero T
	idx := indexOf(r.records, id)
	if idx < 0 {
		return zero, notFound(r.collection, id)
	}
	return r.records[idx], nil
}

func (r *InMemoryRepository[T]) Create(ctx context.Context, record T) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	records, record, err := insert(r.collection, r.records, record)
	if err != nil {
		return zero, err
	}
	r.records = records
	return record, nil
}

func (r *InMemoryRepository[T]) Update(ctx context.Context, id int, record T) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	idx := indexOf(r.records, id)
	if idx < 0 {
		return zero, notFound(r.collection, id)
	}
	record = record.WithID(id)
	r.records[idx] = record
	return record, nil
}

func (r *InMemoryRepository[T]) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := indexOf(r.records, id)
	if idx < 0 {
		return notFound(r.collection, id)
	}
	r.records = slices.Delete(r.records, idx, idx+1)
	return nil
}

func indexOf[T Record[T]](records []T, id int) int {
	return slices.IndexFunc(records, func(r T) bool { return r.RecordID() == id })
}

// insert appends record, assigning the next id when it has none.
func insert[T Record[T]](collection string, records []T, record T) ([]T, T, error) {
	if record.RecordID() == 0 {
		record = record.WithID(nextID(records))
	} else if indexOf(records, record.RecordID()) >= 0 {
		var zero T
		return records, zero, alreadyExists(collection, record.RecordID())
	}
	return append(records, record), record, nil
}
