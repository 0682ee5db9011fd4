package domain

import "fmt"

// ValidationError carries field-scoped messages back to the submitting
// form, rather than a single opaque error.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %d field(s)", len(e.Fields))
}

// NewValidationError builds a single-field validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// ErrInsufficientFunds is returned when a transaction source cannot cover
// amount plus fee and tax.
var ErrInsufficientFunds = fmt.Errorf("insufficient funds in source")
