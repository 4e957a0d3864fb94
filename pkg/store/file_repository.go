package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// FileRepository implements Repository using a JSON file per collection
type FileRepository[T Record[T]] struct {
	collection string
	path       string
	mutex      sync.RWMutex
	records    []T
}

// NewFileRepository opens <dataDir>/<collection>.json, creating dataDir if needed
func NewFileRepository[T Record[T]](dataDir, collection string) (*FileRepository[T], error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &FileRepository[T]{
		collection: collection,
		path:       filepath.Join(dataDir, collection+".json"),
		records:    []T{},
	}

	if err := repo.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	return repo, nil
}

func (r *FileRepository[T]) List(ctx context.Context) ([]T, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return slices.Clone(r.records), nil
}

func (r *FileRepository[T]) Get(ctx context.Context, id int) (T, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var zero T
	idx := indexOf(r.records, id)
	if idx < 0 {
		return zero, notFound(r.collection, id)
	}
	return r.records[idx], nil
}

func (r *FileRepository[T]) Create(ctx context.Context, record T) (T, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var zero T
	records, record, err := insert(r.collection, r.records, record)
	if err != nil {
		return zero, err
	}
	if err := r.save(records); err != nil {
		return zero, err
	}
	r.records = records
	return record, nil
}

func (r *FileRepository[T]) Update(ctx context.Context, id int, record T) (T, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var zero T
	idx := indexOf(r.records, id)
	if idx < 0 {
		return zero, notFound(r.collection, id)
	}
	record = record.WithID(id)
	records := slices.Clone(r.records)
	records[idx] = record
	if err := r.save(records); err != nil {
		return zero, err
	}
	r.records = records
	return record, nil
}

func (r *FileRepository[T]) Delete(ctx context.Context, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	idx := indexOf(r.records, id)
	if idx < 0 {
		return notFound(r.collection, id)
	}
	records := slices.Delete(slices.Clone(r.records), idx, idx+1)
	if err := r.save(records); err != nil {
		return err
	}
	r.records = records
	return nil
}

// load reads the collection file; a missing or empty file is an empty collection
func (r *FileRepository[T]) load() error {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	if records != nil {
		r.records = records
	}
	return nil
}

// save writes records to the collection file atomically
func (r *FileRepository[T]) save(records []T) error {
	jsonData, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	tempFile := r.path + ".tmp"
	if err := os.WriteFile(tempFile, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempFile, r.path); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
