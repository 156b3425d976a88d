package store

import (
	"errors"
	"fmt"
)

var (
	// ErrUninitialized is returned when the store has not finished opening.
	ErrUninitialized = errors.New("store not initialized")
	// ErrNotFound is returned when an operation addresses a missing record.
	ErrNotFound = errors.New("not found")
	// ErrOperationFailed matches any *OpError.
	ErrOperationFailed = errors.New("store operation failed")
)

// OpError wraps a failure of the underlying database engine.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func (e *OpError) Is(target error) bool { return target == ErrOperationFailed }
