package service

import (
	"errors"
	"fmt"

	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
)

// Error kinds. Handlers map them to HTTP statuses.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("not allowed")
	ErrValidation       = errors.New("invalid request")
	ErrConflict         = errors.New("conflict")
	ErrInvalidState     = errors.New("invalid state")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// Error carries a user-facing message for one of the kinds above.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func notFound(what string) error {
	return newError(ErrNotFound, "%s not found", what)
}

func forbidden(format string, args ...interface{}) error {
	return newError(ErrForbidden, format, args...)
}

func invalid(format string, args ...interface{}) error {
	return newError(ErrValidation, format, args...)
}

func badState(format string, args ...interface{}) error {
	return newError(ErrInvalidState, format, args...)
}

// lookup converts repository.ErrNotFound into a typed not-found error.
func lookup(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(what)
	}
	return err
}
