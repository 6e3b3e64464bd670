package errors

import (
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound         = fmt.Errorf("not found")
	ErrDuplicateName    = fmt.Errorf("duplicate name")
	ErrCategoryNotFound = fmt.Errorf("category not found")
	ErrInvalidInput     = fmt.Errorf("invalid input")
	ErrMalformedRequest = fmt.Errorf("malformed request")
)

// ValidationError reports rejected input field by field. It wraps
// ErrInvalidInput.
type ValidationError struct {
	Details map[string]string
}

// NewValidationError returns an empty ValidationError ready to collect fields.
func NewValidationError() *ValidationError {
	return &ValidationError{Details: map[string]string{}}
}

// Add records msg for field, replacing an earlier message for the same field.
func (v *ValidationError) Add(field, msg string) {
	v.Details[field] = msg
}

// Has reports whether field already failed.
func (v *ValidationError) Has(field string) bool {
	_, ok := v.Details[field]
	return ok
}

// Empty reports whether no field failed.
func (v *ValidationError) Empty() bool {
	return len(v.Details) == 0
}

// OrNil returns v when a field failed and nil otherwise.
func (v *ValidationError) OrNil() error {
	if v.Empty() {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	fields := make([]string, 0, len(v.Details))
	for field, msg := range v.Details {
		fields = append(fields, field+": "+msg)
	}
	sort.Strings(fields)
	return fmt.Sprintf("%v: %s", ErrInvalidInput, strings.Join(fields, "; "))
}

func (v *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
