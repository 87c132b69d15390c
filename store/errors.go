package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no item exists for the (owner, item id) pair.
	ErrNotFound = errors.New("lakitu: item not found")

	// ErrValidation is returned when caller input cannot be stored.
	// The concrete error is a *ValidationError carrying a client-safe message.
	ErrValidation = errors.New("lakitu: invalid input")

	// ErrUnavailable is returned when the backing store cannot be reached
	// or does not answer before the operation timeout.
	// The concrete error is an *UnavailableError wrapping the cause.
	ErrUnavailable = errors.New("lakitu: item store unavailable")
)

// ValidationError reports input that was rejected before any write.
type ValidationError struct {
	// Field is the offending input field (e.g. "value").
	Field string

	// Message is safe to return to clients.
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("lakitu: invalid %s: %s", e.Field, e.Message)
}

// Is reports ErrValidation as matching.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// UnavailableError wraps a transient infrastructure failure.
type UnavailableError struct {
	// Op is the store operation that failed (e.g. "list").
	Op string

	// Err is the underlying cause. It is never shown to clients.
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("lakitu: %s: item store unavailable: %v", e.Op, e.Err)
}

// Is reports ErrUnavailable as matching.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

func unavailable(op string, err error) error {
	return &UnavailableError{Op: op, Err: err}
}
