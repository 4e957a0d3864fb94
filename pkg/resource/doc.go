// Package resource is a typed client for conventional REST resource endpoints.
//
// A Client[T] talks to one collection on the backend:
//
//	GET    /{resource}       -> []T
//	POST   /{resource}       <- T (client-assigned id included)
//	PUT    /{resource}/{id}  <- T
//	DELETE /{resource}/{id}
//
// Create and update responses are not consumed. Every failure is returned as a structured
// error from pkg/errors: network failures and unexpected statuses are ErrCodeTransport,
// 404 is ErrCodeNotFound, 400/422 is ErrCodeValidationFailed and 409 is ErrCodeConflict.
// Requests are never retried.
//
//	roles := resource.NewClient[role.Role]("http://localhost:3001", "roles")
//	list, err := roles.List(ctx)
package resource
