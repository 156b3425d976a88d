package taskstore

import (
	"errors"
	"fmt"
)

// ErrValidation matches any *ValidationError.
var ErrValidation = errors.New("validation rejected")

// ValidationError reports input the store refused before touching any record.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
