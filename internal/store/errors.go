package store

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when registering an email that is taken.
	ErrDuplicateEmail = errors.New("email already registered")
)
