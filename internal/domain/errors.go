package domain

import (
	"errors"
	"fmt"
)

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

// AuthorizationError covers wrong role, foreign bookings, and conductors
// scanning tickets for buses they are not assigned to.
type AuthorizationError struct {
	Msg string
	Err error
}

func (e AuthorizationError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "not authorized"
}

func (e AuthorizationError) Unwrap() error { return e.Err }

// IntegrityError flags tampered or malformed ticket tokens and identifier
// mismatches between a token and the stored booking.
type IntegrityError struct {
	Msg string
	Err error
}

func (e IntegrityError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "integrity check failed"
}

func (e IntegrityError) Unwrap() error { return e.Err }

// StateError rejects transitions the booking or trip state machine does not
// allow (double verification, canceled trips, exhausted reschedules).
type StateError struct {
	Msg string
	Err error
}

func (e StateError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "invalid state transition"
}

func (e StateError) Unwrap() error { return e.Err }

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsAuthorization(err error) bool {
	var target AuthorizationError
	return errors.As(err, &target)
}

func IsIntegrity(err error) bool {
	var target IntegrityError
	return errors.As(err, &target)
}

func IsState(err error) bool {
	var target StateError
	return errors.As(err, &target)
}

func IsInternal(err error) bool {
	var target InternalError
	return errors.As(err, &target)
}
