package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrPaymentDeclined is returned when the payment gateway refuses a charge.
var ErrPaymentDeclined = errors.New("payment declined")

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string            `json:"field"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Details: map[string]string{field: message},
	}
}

// InvalidAddressError is raised when a shipping address cannot be used for
// tax classification. It is always detected before any amounts are computed.
type InvalidAddressError struct {
	ValidationError
}

// NewInvalidAddressError builds an InvalidAddressError for an address field.
func NewInvalidAddressError(field, message string) *InvalidAddressError {
	return &InvalidAddressError{ValidationError: *NewValidationError("shipping_address."+field, message)}
}

// PersistenceError wraps a storage failure during checkout. Callers must not
// retry automatically; the buyer resubmits.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError wraps err as a PersistenceError for the named operation.
func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

// IsValidation reports whether err is (or wraps) a validation failure,
// including invalid addresses.
func IsValidation(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	var ae *InvalidAddressError
	return errors.As(err, &ae)
}

// AsValidation extracts the validation details from err.
func AsValidation(err error) (*ValidationError, bool) {
	var ae *InvalidAddressError
	if errors.As(err, &ae) {
		return &ae.ValidationError, true
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// IsPersistence reports whether err is (or wraps) a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
