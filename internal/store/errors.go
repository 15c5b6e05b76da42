package store

import "errors"

var (
	// ErrRecordNotFound indicates no row matched the record_id.
	ErrRecordNotFound = errors.New("record not found")
	// ErrNoFilter indicates a filtered scan was attempted with no predicates.
	ErrNoFilter = errors.New("at least one filter field is required")
)
