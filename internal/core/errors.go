package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrInvalidAmount    = errors.New("invalid amount")
	ErrNegativeAmount   = errors.New("amount must not be negative")
	ErrInvalidEnum      = errors.New("invalid value")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyDescription = errors.New("empty description")
	ErrTooLong          = errors.New("value too long")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidCurrency  = errors.New("invalid currency")
	ErrInvalidColor     = errors.New("invalid color")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrWeakPassword     = errors.New("password too short")
	ErrMissingReference = errors.New("missing reference")
	ErrSameAccount      = errors.New("source and destination accounts must differ")
)

// ValidationError reports which field failed validation. It unwraps to the
// sentinel describing the failure.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
