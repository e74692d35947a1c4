package lifecycle

import "errors"

var (
	// ErrInvalidTransition is returned when a status transition is not allowed
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidState is returned when a status is not a known lifecycle status
	ErrInvalidState = errors.New("invalid status")
)
