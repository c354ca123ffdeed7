package errors

import "errors"

var (
	ErrNotFound                 = errors.New("not found")
	ErrInsufficientStock        = errors.New("insufficient stock")
	ErrInvalidQuantity          = errors.New("invalid quantity")
	ErrInvalidOrder             = errors.New("invalid order")
	ErrEmptyOrder               = errors.New("order has no items")
	ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")
	ErrPaymentMethodMismatch    = errors.New("payment method does not match order")
	ErrAmountMismatch           = errors.New("amount does not match order total")
	ErrOrderNotPending          = errors.New("order is not pending")
	ErrInvalidTransition        = errors.New("invalid order transition")
	ErrInvalidSignature         = errors.New("invalid webhook signature")
	ErrMalformedEvent           = errors.New("malformed payment event")
	ErrPollTimeout              = errors.New("payment poll timed out")
)
