package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// place does not exist.
// Handlers map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails a business rule
// (e.g. a blank name, or a supplied slug that normalizes to nothing).
// Handlers map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrStoreFailure marks any persistence-layer failure during a write:
// constraint violations, lost connections, failed commits. The underlying
// error stays in the chain so its message reaches the caller.
// Handlers map this to HTTP 500.
var ErrStoreFailure = errors.New("store failure")

// ErrDuplicateSlug is returned by the repo when an insert or update collides
// with the unique slug constraint. The service reports it as ErrStoreFailure.
var ErrDuplicateSlug = errors.New("slug already exists")
