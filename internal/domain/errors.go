package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy surfaced to callers. Every kind is recoverable; handlers
// translate each into distinct user-facing text.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict means a concurrent write won the race or the exclusion
	// scope could not be acquired in time; the caller should re-read and
	// may retry with a higher amount.
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
)

// ValidationError carries enough detail for the caller to act. RequiredMin
// is set when a bid was rejected as too low.
type ValidationError struct {
	Msg         string
	RequiredMin float64
}

func (e *ValidationError) Error() string {
	if e.RequiredMin > 0 {
		return fmt.Sprintf("%s (minimum bid is %.2f)", e.Msg, e.RequiredMin)
	}
	return e.Msg
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
