// Package store persists the records served by the development backend.
//
// Repository[T] is implemented three ways:
//
//   - InMemoryRepository: process memory, lost on restart
//   - FileRepository: one JSON array per collection under a data directory, written
//     to a temp file and renamed
//   - PostgresRepository: one table per collection, each record stored as JSONB under
//     its integer id
//
// All three keep insertion order for List. Create with an id already in use fails with
// ErrCodeAlreadyExists; Create with id 0 assigns the next id. Get, Update and Delete of
// a missing id fail with ErrCodeNotFound. Update stores the record under the given id
// regardless of the id in the body.
package store
