package core

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the engine. Their messages are matched by MapError,
// so keep them in sync with the patterns in error_messages.go.
var (
	ErrUnknownField     = errors.New("unknown field")
	ErrReadOnlyField    = errors.New("read-only field")
	ErrDuplicateElement = errors.New("duplicate element")
	ErrElementNotFound  = errors.New("element not found")
	ErrSessionNotFound  = errors.New("grid session not found")
	ErrNoBackend        = errors.New("no backend configured")
	ErrNoViewer         = errors.New("no viewer connected")
)

// FieldError reports a failed field access.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err, e.Field)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// DuplicateError reports an insertion of a dbId that is already loaded.
type DuplicateError struct {
	DbID int64
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate element: dbId %d is already loaded", e.DbID)
}

func (e *DuplicateError) Unwrap() error {
	return ErrDuplicateElement
}
