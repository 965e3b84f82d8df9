package types

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the registration handshake and discovery transport.
var (
	ErrCodeNotFound         = errors.New("registration code not found")
	ErrCodeExpired          = errors.New("registration code expired")
	ErrCodeAlreadyUsed      = errors.New("registration code already used")
	ErrTransportUnavailable = errors.New("discovery transport unavailable")
	ErrFetchFailed          = errors.New("status fetch failed")
)

// ValidationError reports missing or empty required operator input.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field(s): %s", strings.Join(e.Fields, ", "))
}

// NewValidationError builds a ValidationError naming the offending fields.
func NewValidationError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}
