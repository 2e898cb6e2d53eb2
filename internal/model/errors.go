package model

import (
	"errors"
	"fmt"
)

// Base error kinds. Services attach one of these to every rejection so
// callers can branch with errors.Is without parsing messages.
var (
	ErrValidation    = errors.New("validation failed")
	ErrConflict      = errors.New("scheduling conflict")
	ErrLimitExceeded = errors.New("cancellation limit exceeded")
	ErrNotFound      = errors.New("not found")
	ErrStateInvalid  = errors.New("invalid state transition")
	ErrDuplicate     = errors.New("already exists")
)

// Error is a domain error carrying its kind and a human-readable message.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

func (e *Error) Is(target error) bool {
	return errors.Is(e.Kind, target) || (e.Err != nil && errors.Is(e.Err, target))
}

// NewError creates a domain error of the given kind.
func NewError(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a kind and message to an underlying error.
func WrapError(kind error, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}
