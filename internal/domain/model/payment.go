package model

import "github.com/shopspring/decimal"

// PaymentMethod selects the provider variant used to settle an order.
type PaymentMethod string

const (
	PaymentMethodHostedCheckout PaymentMethod = "hosted-checkout"
	PaymentMethodEmbeddedCard   PaymentMethod = "embedded-card"
	PaymentMethodCrypto         PaymentMethod = "crypto"
)

// PaymentMethods lists every supported method.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{PaymentMethodHostedCheckout, PaymentMethodEmbeddedCard, PaymentMethodCrypto}
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodHostedCheckout, PaymentMethodEmbeddedCard, PaymentMethodCrypto:
		return true
	}
	return false
}

// Outcome is the canonical result a provider event or poll maps to.
type Outcome string

const (
	OutcomeConfirmed Outcome = "CONFIRMED"
	OutcomeFailed    Outcome = "FAILED"
	OutcomePending   Outcome = "PENDING"
	OutcomeUnknown   Outcome = "UNKNOWN"
)

// Terminal reports whether the outcome moves an order out of PENDING.
func (o Outcome) Terminal() bool {
	return o == OutcomeConfirmed || o == OutcomeFailed
}

// PaymentEvent is a provider notification parsed at the boundary.
type PaymentEvent struct {
	Method        PaymentMethod
	EventID       string
	EventType     string
	ChargeCode    string
	OrderID       string
	TransactionID string
	Outcome       Outcome
}

// IdempotencyKey identifies the delivery for log correlation.
func (e PaymentEvent) IdempotencyKey() string {
	return e.ChargeCode + ":" + e.EventType
}

// PaymentIntent is the provider handle returned to the client.
type PaymentIntent struct {
	Method       PaymentMethod
	OrderID      string
	Reference    string
	CheckoutURL  string
	ClientSecret string
}

// PaymentOutcome is the result of capturing or verifying a charge.
type PaymentOutcome struct {
	Outcome        Outcome
	TransactionID  string
	OrderID        string
	ProviderStatus string
	// Amount is the charged amount in major units as reported by the provider.
	Amount decimal.Decimal
}

// ApplyResult describes what applying a payment event did.
type ApplyResult string

const (
	ApplyResultApplied       ApplyResult = "applied"
	ApplyResultDuplicate     ApplyResult = "duplicate"
	ApplyResultIgnored       ApplyResult = "ignored"
	ApplyResultOrderNotFound ApplyResult = "order_not_found"
)

// IntentInput asks for a provider checkout handle for an existing order.
type IntentInput struct {
	UserID  int64
	OrderID string
	Method  PaymentMethod
	// Amount is what the client believes it is paying. Optional.
	Amount *decimal.Decimal
}

// CaptureResult is the settled state a client-driven poll reached. Order is
// the stored order after the outcome was applied and is nil when the charge
// maps to no known order.
type CaptureResult struct {
	Outcome *PaymentOutcome
	Result  ApplyResult
	Order   *Order
}
