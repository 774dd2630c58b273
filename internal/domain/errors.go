package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error categories. Every error produced by the ledger, the reconciler and the
// stores wraps exactly one of these so the transport layer can map it.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrState         = errors.New("invalid state")
	ErrConflict      = errors.New("conflict")
)

var (
	ErrRecipientNotFound = fmt.Errorf("recipient %w", ErrNotFound)
	ErrUserNotFound      = fmt.Errorf("user %w", ErrNotFound)
	ErrItemNotFound      = fmt.Errorf("item %w", ErrNotFound)
	ErrWishlistNotFound  = fmt.Errorf("wishlist %w", ErrNotFound)
	ErrDonationNotFound  = fmt.Errorf("donation %w", ErrNotFound)

	ErrItemNotActive     = fmt.Errorf("item does not accept donations: %w", ErrState)
	ErrIllegalTransition = fmt.Errorf("illegal status transition: %w", ErrState)
)

// ErrInvalidAmount is returned when a donation amount is not strictly positive.
var ErrInvalidAmount = NewValidationError("amount", "must be greater than 0")

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field)
	}
	return fmt.Sprintf("validation: %d errors (%s)", len(e.Errors), strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Is matches a target's first field error. An empty target message matches
// any error on that field; otherwise the message must match too, so a
// precision error on amount is not ErrInvalidAmount.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok || len(t.Errors) == 0 || len(e.Errors) == 0 {
		return false
	}
	want := t.Errors[0]
	for _, fe := range e.Errors {
		if fe.Field == want.Field && (want.Message == "" || fe.Message == want.Message) {
			return true
		}
	}
	return false
}

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// Validator accumulates field errors and yields nil when there are none.
type Validator struct {
	errs []FieldError
}

// Add records a field error.
func (v *Validator) Add(field, message string) {
	v.errs = append(v.errs, FieldError{Field: field, Message: message})
}

// Check records a field error when ok is false.
func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.Add(field, message)
	}
}

// Err returns the accumulated ValidationError or nil.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errs}
}
