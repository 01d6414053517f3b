package core

import "github.com/pkg/errors"

// ErrForbidden is returned when the acting identity may not access a resource.
var ErrForbidden = &ForbiddenError{Message: "permission denied"}

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

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

// ConflictError is returned when a write would break a uniqueness rule.
type ConflictError struct {
	Err    error
	Fields []FieldError
}

func NewConflictError(err error, flds ...FieldError) error {
	return &ConflictError{err, flds}
}

func (err ConflictError) Error() string {
	if err.Err == nil {
		return "conflict"
	}
	return err.Err.Error()
}

// NotFoundError is returned by lookups that miss.
type NotFoundError struct {
	Resource string
}

func NewNotFoundError(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

func (err NotFoundError) Error() string {
	return err.Resource + " not found"
}

// InvalidStateError is returned when stored data is inconsistent with the requested transition.
type InvalidStateError struct {
	Message string
}

func NewInvalidStateError(msg string) *InvalidStateError {
	return &InvalidStateError{Message: msg}
}

func (err InvalidStateError) Error() string {
	return err.Message
}

type ForbiddenError struct {
	Message string
}

func (err ForbiddenError) Error() string {
	return err.Message
}

// StorageError wraps blob storage failures.
type StorageError struct {
	Op  string
	Err error
}

func NewStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

func (err StorageError) Error() string {
	return "storage " + err.Op + ": " + err.Err.Error()
}

func (err StorageError) Unwrap() error { return err.Err }

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

// IsNotFound reports whether the root cause of err is a NotFoundError.
func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}
