// Package apperr defines the error kinds services return to the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

// NotFoundError means the requested record is absent or hidden by the default filters
type NotFoundError struct {
	Resource string
	ID       any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %v not found", e.Resource, e.ID)
}

// ValidationError means the request broke a constraint or a business rule
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NotFound builds a NotFoundError
func NotFound(resource string, id any) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// Validation builds a ValidationError with a formatted message
func Validation(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// WrapValidation builds a ValidationError carrying the underlying cause
func WrapValidation(err error, message string) error {
	return &ValidationError{Message: message, Err: err}
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
