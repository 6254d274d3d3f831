package core

import "github.com/pkg/errors"

// FieldError points a validation failure at one field of an inbound payload.
type FieldError struct {
	Field string
	Error string
}

// ValidationError rejects an inbound payload; handlers render it as a bad
// request rather than a server fault.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown signals an unrecoverable fault; the API process stops rather than
// keep serving requests against it.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
