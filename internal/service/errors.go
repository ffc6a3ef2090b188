package service

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports missing or malformed caller input. Fields lists
// the offending field names so clients can distinguish "bad input" from
// "already exists".
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
}

// NewValidationError creates a validation error listing the offending fields
func NewValidationError(message string, fields ...string) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

// ConflictError reports a uniqueness violation on shipmentId or
// transactionHash
type ConflictError struct {
	Field string
	Value string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("duplicate %s: %s", e.Field, e.Value)
}

// NotFoundError reports that no shipment matches the given identifier
type NotFoundError struct {
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("shipment not found: %s", e.Identifier)
}

// TransientExternalError wraps a ledger or network hiccup. Batch
// reconciliation treats these as per-item failures, logged and skipped.
type TransientExternalError struct {
	Cause error
}

func (e *TransientExternalError) Error() string {
	return fmt.Sprintf("transient external failure: %v", e.Cause)
}

func (e *TransientExternalError) Unwrap() error {
	return e.Cause
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsConflict reports whether err is a ConflictError
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
