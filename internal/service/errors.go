package service

import (
	"errors"
	"fmt"
)

// Validation errors returned before anything is sent to the backend.
var (
	ErrNoItems             = errors.New("at least one item with a known service, garment and quantity is required")
	ErrInvalidQuantity     = errors.New("quantity must be > 0")
	ErrInvalidSpeed        = errors.New("speed must be 0, 1, 2 or 3")
	ErrInvalidPackage      = errors.New("package must be executive or economy")
	ErrInvalidDiscount     = errors.New("discount must be between 0 and 100")
	ErrInstallmentRequired = errors.New("installment is required")
	ErrInvalidInstallment  = errors.New("installment must be full, half or nil")
	ErrDueDateRequired     = errors.New("due_date is required for general speed")
	ErrInvalidDueDate      = errors.New("due_date must be a date (YYYY-MM-DD)")
	ErrFactoryRequired     = errors.New("factory_id is required")
	ErrOrderCodes          = errors.New("at least one unique order code is required")
	ErrNotStatusAction     = errors.New("action must be washed, ironed or packed")
)

// ErrInFlight is returned when the same action on the same orders is already
// being submitted.
var ErrInFlight = errors.New("request already in progress")

// ErrSuperseded is returned by a fetch that completed after a newer fetch of
// the same kind was started. Its result must be ignored.
var ErrSuperseded = errors.New("superseded by a newer request")

// FieldError ties a validation error to the form field that caused it.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

func fieldErr(field string, err error) error {
	return &FieldError{Field: field, Err: err}
}
