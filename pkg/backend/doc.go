// Package backend is the development REST backend the console talks to.
//
// It serves /roles and /users with the conventional list/get/create/update/delete routes
// and the response codes of a json-server: 200 for reads, updates and deletes, 201 for
// creates. Request bodies and path parameters are checked against the embedded OpenAPI
// document before they reach a handler; violations are answered with 400.
//
// Records are kept in any store.Repository, so the same routes run on memory, a data
// directory or PostgreSQL. A db.json-shaped seed file can populate empty collections.
package backend
