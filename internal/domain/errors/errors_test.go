package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestSentinelErrorsSurviveWrapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"not found", ErrNotFound},
		{"insufficient stock", ErrInsufficientStock},
		{"invalid quantity", ErrInvalidQuantity},
		{"invalid order", ErrInvalidOrder},
		{"empty order", ErrEmptyOrder},
		{"unsupported method", ErrUnsupportedPaymentMethod},
		{"method mismatch", ErrPaymentMethodMismatch},
		{"amount mismatch", ErrAmountMismatch},
		{"not pending", ErrOrderNotPending},
		{"invalid transition", ErrInvalidTransition},
		{"invalid signature", ErrInvalidSignature},
		{"malformed event", ErrMalformedEvent},
		{"poll timeout", ErrPollTimeout},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("context: %w", tc.err)
			if !stdErrors.Is(wrapped, tc.err) {
				t.Fatalf("expected wrapped error to match %v", tc.err)
			}
		})
	}
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	if stdErrors.Is(ErrNotFound, ErrInsufficientStock) {
		t.Fatal("not found must not match insufficient stock")
	}
	if stdErrors.Is(ErrOrderNotPending, ErrInvalidTransition) {
		t.Fatal("not pending must not match invalid transition")
	}
}
