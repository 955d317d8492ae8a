package database

import "errors"

// Sentinel errors returned by Store implementations. Callers match them
// with errors.Is; wrapped messages carry the record family and key.
var (
	// ErrNotFound is returned by operations that require an existing
	// record, such as a status update on an unknown user.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned by plain inserts when the primary key or
	// a unique index already holds the record.
	ErrDuplicate = errors.New("duplicate record")

	// ErrInvalidTransition is returned when a message status update
	// would move the status backwards. Transitions are forward-only:
	// received -> active -> deleted.
	ErrInvalidTransition = errors.New("invalid status transition")
)
