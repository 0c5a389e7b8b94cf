package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a booking, hold or ground does not exist.
	ErrNotFound = errors.New("not found")
	// ErrExpiredHold is returned for holds past their expiry; callers treat the hold as absent.
	ErrExpiredHold = errors.New("hold expired")
	// ErrAlreadyConfirmed is returned by a second pending->confirmed transition.
	ErrAlreadyConfirmed = errors.New("already confirmed")
	// ErrSlotTaken is the storage-level uniqueness violation on an active slot.
	ErrSlotTaken = errors.New("slot already taken")
	// ErrRateNotConfigured means an hour of a range falls in no rate range.
	ErrRateNotConfigured = errors.New("no rate range covers hour")
	// ErrForbidden is returned when the actor may not perform a transition.
	ErrForbidden = errors.New("not allowed for this actor")
)

// ValidationError is malformed input. Never retried automatically.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConflictError means the requested slot is occupied.
type ConflictError struct {
	ConflictingRange TimeRange
	Message          string
}

func (e *ConflictError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("that time was just taken (%s)", e.ConflictingRange)
}

// PaymentMismatchError means a payment landed for a slot that was lost.
type PaymentMismatchError struct {
	BookingID string
}

func (e *PaymentMismatchError) Error() string {
	return fmt.Sprintf("payment received for booking %s after its slot was lost", e.BookingID)
}

// TransitionError is an illegal lifecycle transition.
type TransitionError struct {
	From BookingStatus
	To   BookingStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move booking from %s to %s", e.From, e.To)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}
