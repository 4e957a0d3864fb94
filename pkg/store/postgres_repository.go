package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tendant/rbac-console/pkg/errors"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const uniqueViolation = "23505"

// PostgresRepository implements Repository with one table per collection
type PostgresRepository[T Record[T]] struct {
	db         DBTX
	collection string
	table      string
}

// NewPostgresRepository stores collection in a table of the same name
func NewPostgresRepository[T Record[T]](db DBTX, collection string) *PostgresRepository[T] {
	return &PostgresRepository[T]{
		db:         db,
		collection: collection,
		table:      pgx.Identifier{collection}.Sanitize(),
	}
}

// Migrate creates the collection table if it does not exist
func (r *PostgresRepository[T]) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	seq  BIGSERIAL,
	id   INTEGER PRIMARY KEY,
	data JSONB NOT NULL
)`, r.table)
	if _, err := r.db.Exec(ctx, query); err != nil {
		return errors.InternalWrap(err, "create table "+r.collection)
	}
	return nil
}

func (r *PostgresRepository[T]) List(ctx context.Context) ([]T, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(`SELECT data FROM %s ORDER BY seq`, r.table))
	if err != nil {
		return nil, errors.InternalWrap(err, "list "+r.collection)
	}
	defer rows.Close()

	records := []T{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, errors.InternalWrap(err, "scan "+r.collection)
		}
		var rec T
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, errors.InternalWrap(err, "decode "+r.collection)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.InternalWrap(err, "list "+r.collection)
	}
	return records, nil
}

func (r *PostgresRepository[T]) Get(ctx context.Context, id int) (T, error) {
	var zero T
	var data []byte
	err := r.db.QueryRow(ctx, fmt.Sprintf(`SELECT data FROM %s WHERE id = $1`, r.table), id).Scan(&data)
	if err == pgx.ErrNoRows {
		return zero, notFound(r.collection, id)
	}
	if err != nil {
		return zero, errors.InternalWrap(err, "get "+r.collection)
	}

	var rec T
	if err := json.Unmarshal(data, &rec); err != nil {
		return zero, errors.InternalWrap(err, "decode "+r.collection)
	}
	return rec, nil
}

func (r *PostgresRepository[T]) Create(ctx context.Context, record T) (T, error) {
	var zero T
	if record.RecordID() == 0 {
		var next int
		err := r.db.QueryRow(ctx, fmt.Sprintf(`SELECT COALESCE(MAX(id), 0) + 1 FROM %s`, r.table)).Scan(&next)
		if err != nil {
			return zero, errors.InternalWrap(err, "next id for "+r.collection)
		}
		record = record.WithID(next)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return zero, errors.InternalWrap(err, "encode "+r.collection)
	}

	_, err = r.db.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (id, data) VALUES ($1, $2)`, r.table), record.RecordID(), data)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return zero, alreadyExists(r.collection, record.RecordID())
		}
		return zero, errors.InternalWrap(err, "create "+r.collection)
	}
	return record, nil
}

func (r *PostgresRepository[T]) Update(ctx context.Context, id int, record T) (T, error) {
	var zero T
	record = record.WithID(id)
	data, err := json.Marshal(record)
	if err != nil {
		return zero, errors.InternalWrap(err, "encode "+r.collection)
	}

	tag, err := r.db.Exec(ctx, fmt.Sprintf(`UPDATE %s SET data = $2 WHERE id = $1`, r.table), id, data)
	if err != nil {
		return zero, errors.InternalWrap(err, "update "+r.collection)
	}
	if tag.RowsAffected() == 0 {
		return zero, notFound(r.collection, id)
	}
	return record, nil
}

func (r *PostgresRepository[T]) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table), id)
	if err != nil {
		return errors.InternalWrap(err, "delete "+r.collection)
	}
	if tag.RowsAffected() == 0 {
		return notFound(r.collection, id)
	}
	return nil
}
