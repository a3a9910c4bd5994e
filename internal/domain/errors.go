package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by repositories, services and the HTTP layer.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidState    = errors.New("invalid state")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
)

// TransitionError explains why a manual transition was refused.
// Kind is ErrInvalidState or ErrConflict.
type TransitionError struct {
	Kind     error
	Action   string
	Current  string
	Required string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("Cannot %s. Current state: %s. Required: %s", e.Action, e.Current, e.Required)
}

func (e *TransitionError) Unwrap() error {
	return e.Kind
}

// InvalidArgumentf returns an error wrapping ErrInvalidArgument with the formatted message.
func InvalidArgumentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
