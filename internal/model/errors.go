package model

import (
	"fmt"
	"strings"
)

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned before any mutation when input is malformed.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

// NewValidationError returns a ValidationError for one field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// Add appends a field error.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NotFoundError is returned when a referenced record does not exist.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// CapacityExceededError is returned by approvals in strict capacity mode when
// no unit of the item is available.
type CapacityExceededError struct {
	ItemID    int64
	Available int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("item %d has no available units (available: %d)", e.ItemID, e.Available)
}

// DeliveryError reports that a notification could not be handed to or sent by
// the mail transport. It never reverts the mutation that triggered it.
type DeliveryError struct {
	To  string
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivering mail to %s: %v", e.To, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
