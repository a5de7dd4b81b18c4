package repository

import "errors"

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned when a statement is not in a status
	// the requested change may start from.
	ErrInvalidTransition = errors.New("invalid status transition")
)
