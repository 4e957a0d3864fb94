package store

import (
	"context"
	"strconv"

	"github.com/tendant/rbac-console/pkg/errors"
)

// Record is a value stored under an integer id.
type Record[T any] interface {
	RecordID() int
	WithID(id int) T
}

// Repository stores one collection of records.
type Repository[T Record[T]] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id int) (T, error)
	Create(ctx context.Context, record T) (T, error)
	Update(ctx context.Context, id int, record T) (T, error)
	Delete(ctx context.Context, id int) error
}

// Seed creates records that are not stored yet. Records whose id already exists are skipped.
func Seed[T Record[T]](ctx context.Context, repo Repository[T], records []T) (int, error) {
	created := 0
	for _, rec := range records {
		if _, err := repo.Create(ctx, rec); err != nil {
			if errors.IsCode(err, errors.ErrCodeAlreadyExists) {
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}

func notFound(collection string, id int) *errors.Error {
	return errors.NotFound(collection, strconv.Itoa(id))
}

func alreadyExists(collection string, id int) *errors.Error {
	return errors.AlreadyExists(collection, strconv.Itoa(id))
}

func nextID[T Record[T]](records []T) int {
	highest := 0
	for _, r := range records {
		if id := r.RecordID(); id > highest {
			highest = id
		}
	}
	return highest + 1
}
