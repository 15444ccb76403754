package storage

import "errors"

// ErrNotFound is returned when no record exists for the given key.
var ErrNotFound = errors.New("storage: record not found")

// ErrAlreadyExists is returned by conditional writes when a record
// already exists for the key. The failed writer receives the existing
// record alongside this error.
var ErrAlreadyExists = errors.New("storage: record already exists")
