package repository

import "errors"

// Storage-level sentinel errors. Implementations map driver errors onto
// these so the service layer never has to know which database is behind
// the interface.
var (
	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry means an insert or update violated a unique constraint.
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
)

// Per-resource aliases, so call sites read naturally.
var (
	ErrUserNotFound    = ErrNotFound
	ErrRoomNotFound    = ErrNotFound
	ErrMemberNotFound  = ErrNotFound
	ErrMessageNotFound = ErrNotFound
)
