package league

import "errors"

var (
	// ErrNotFound indicates no record matched the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a record with the same natural key exists.
	ErrAlreadyExists = errors.New("record already exists")
)
