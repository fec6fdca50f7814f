package domain

import "errors"

// Sentinel errors shared across layers. Services classify every downstream
// failure into one of these before it reaches the delivery layer.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a caller contract violation. Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUsernameTaken indicates the normalized username is already reserved
	// by another subject.
	ErrUsernameTaken = errors.New("username taken")

	// ErrStoreUnavailable indicates a profile/reservation store call failed.
	// The effect of any in-flight write is unknown; the request must fail.
	ErrStoreUnavailable = errors.New("store unavailable")
)
