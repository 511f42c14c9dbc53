package vex

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientFunds means the required margin exceeds the available
	// balance. Never retried.
	ErrInsufficientFunds = errors.New("insufficient balance")

	// ErrNoPrice means no mark price could be resolved for the symbol.
	ErrNoPrice = errors.New("no price available")

	// ErrNotFound means no open trade matched the close request.
	ErrNotFound = errors.New("no matching open trade")
)

// ValidationError reports malformed or out-of-range caller input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

func validationErr(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
