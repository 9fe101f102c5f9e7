// Package apperror defines the error taxonomy shared by every layer.
//
// Services return these errors; handlers translate them into HTTP status
// codes. Callers check the category with errors.Is against the sentinels and
// pull the donor-facing message out with errors.As(*AppError).
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("Validation Error")
	ErrPayment     = errors.New("payment failed")
	ErrComputation = errors.New("computation error")
	ErrStorage     = errors.New("storage error")
)

type AppError struct {
	Err     error  // sentinel category
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying error, logged but never shown to donors
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the sentinel and the cause, so errors.Is matches either.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// PaymentFailed reports a processor rejection. message is safe to show the
// donor; cause keeps the processor's detail for logs.
func PaymentFailed(message string, cause error) *AppError {
	return &AppError{
		Err:     ErrPayment,
		Message: message,
		Cause:   cause,
	}
}

// ComputationFailed marks a violated data invariant (a programming error,
// not something the donor can fix).
func ComputationFailed(message string) *AppError {
	return &AppError{
		Err:     ErrComputation,
		Message: message,
	}
}

// StorageFailed reports a persistence failure that happened after the card
// was already charged.
func StorageFailed(message string, cause error) *AppError {
	return &AppError{
		Err:     ErrStorage,
		Message: message,
		Cause:   cause,
	}
}

// Errors collects field-level validation failures.
// It matches ErrValidation through errors.Is.
type Errors []*AppError

func (es Errors) Error() string {
	if len(es) == 0 {
		return "no errors"
	}
	if len(es) == 1 {
		return es[0].Message
	}
	return fmt.Sprintf("%s (and %d more errors)", es[0].Message, len(es)-1)
}

func (es Errors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}

// Messages returns every message in order, for rendering a form error list.
func Messages(err error) []string {
	var es Errors
	if errors.As(err, &es) {
		msgs := make([]string, 0, len(es))
		for _, e := range es {
			msgs = append(msgs, e.Message)
		}
		return msgs
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return []string{appErr.Message}
	}
	return nil
}
