package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsIs(t *testing.T) {
	cause := errors.New("card_declined")

	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("donation", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("amount", "amount is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "PaymentFailed wraps ErrPayment",
			err:       PaymentFailed("could not charge", cause),
			target:    ErrPayment,
			wantMatch: true,
		},
		{
			name:      "PaymentFailed exposes its cause",
			err:       PaymentFailed("could not charge", cause),
			target:    cause,
			wantMatch: true,
		},
		{
			name:      "ComputationFailed wraps ErrComputation",
			err:       ComputationFailed("bad amount"),
			target:    ErrComputation,
			wantMatch: true,
		},
		{
			name:      "StorageFailed wraps ErrStorage",
			err:       StorageFailed("db down", cause),
			target:    ErrStorage,
			wantMatch: true,
		},
		{
			name:      "StorageFailed does NOT match ErrPayment",
			err:       StorageFailed("db down", cause),
			target:    ErrPayment,
			wantMatch: false,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("donation", "abc123"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "wrapped PaymentFailed still matches",
			err:       fmt.Errorf("charging: %w", PaymentFailed("could not charge", nil)),
			target:    ErrPayment,
			wantMatch: true,
		},
		{
			name:      "Errors collection matches ErrValidation",
			err:       Errors{ValidationFailed("amount", "amount is required")},
			target:    ErrValidation,
			wantMatch: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("donation", "abc123"),
			wantMessage: "donation not found with id abc123",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("package", "package is required"),
			wantMessage: "package is required",
		},
		{
			name:        "PaymentFailed hides the cause",
			err:         PaymentFailed("could not charge", errors.New("secret detail")),
			wantMessage: "could not charge",
		},
		{
			name:        "single Errors uses its message",
			err:         Errors{ValidationFailed("amount", "amount is required")},
			wantMessage: "amount is required",
		},
		{
			name: "several Errors summarizes",
			err: Errors{
				ValidationFailed("amount", "amount is required"),
				ValidationFailed("package", "package is required"),
			},
			wantMessage: "amount is required (and 1 more errors)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestErrorsAsFieldError(t *testing.T) {
	err := fmt.Errorf("validating: %w", Errors{
		ValidationFailed("email", "email is invalid"),
	})

	var appErr *AppError
	if assert.True(t, errors.As(err, &appErr)) {
		assert.Equal(t, "email", appErr.Field)
	}
}

func TestMessages(t *testing.T) {
	err := Errors{
		ValidationFailed("amount", "amount is required"),
		ValidationFailed("package", "package is required"),
	}
	assert.Equal(t, []string{"amount is required", "package is required"}, Messages(err))
	assert.Equal(t, []string{"could not charge"}, Messages(PaymentFailed("could not charge", nil)))
	assert.Nil(t, Messages(errors.New("plain")))
}
