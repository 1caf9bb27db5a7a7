// Package domain defines core types, interfaces, and errors for the catalog viewer.
package domain

import "fmt"

// NotFoundError indicates a source or resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AccessDeniedError indicates missing or invalid credentials.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ValidationError indicates invalid input, such as a filter range with min > max.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// MissingColumnError indicates that a requested column is not present in the
// loaded catalog.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("column %q is not present in the catalog", e.Column)
}

// PersistenceError indicates that notes could not be written to storage. The
// in-memory state is still valid when this is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist notes (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrMissingColumn creates a MissingColumnError for the given column.
func ErrMissingColumn(column string) *MissingColumnError {
	return &MissingColumnError{Column: column}
}
