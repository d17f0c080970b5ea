package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// ValidationError rejects an ingest payload before it reaches the store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid payload: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// StorageError is any failure of the backing database.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NotificationError is a failed outbound dispatch. It never rolls back a
// store write.
type NotificationError struct {
	StatusCode int
	Err        error
}

func (e *NotificationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("notification rejected with status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("notification failed: %v", e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }
