package store

import "errors"

// The store's full error taxonomy.  Every failure is a local caller
// error — nothing here is transient or retryable.
var (
	// ErrNotFound is returned when an operation references an unknown
	// record id or roster member.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateID is returned by Create when the id already exists.
	ErrDuplicateID = errors.New("record id already exists")

	// ErrInvalidTransition is returned when a status change is not
	// declared in the workflow transition graph.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrValidation is returned when input fails a kind-specific rule,
	// e.g. an empty suspension reason.
	ErrValidation = errors.New("validation failed")

	// ErrVersionConflict is returned when an update carries an
	// ExpectedVersion that no longer matches the stored record.
	ErrVersionConflict = errors.New("record version conflict")
)
