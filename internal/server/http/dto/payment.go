package dto

import "github.com/shopspring/decimal"

// IntentRequest describes POST /api/payments/intent.
type IntentRequest struct {
	OrderID       string           `json:"orderId" binding:"required"`
	PaymentMethod string           `json:"paymentMethod" binding:"required"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
}

// IntentResponse hands the provider checkout handle to the client.
type IntentResponse struct {
	Method       string `json:"method"`
	OrderID      string `json:"orderId"`
	Reference    string `json:"reference"`
	CheckoutURL  string `json:"checkoutUrl,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`
}

// CaptureRequest describes POST /api/payments/capture.
type CaptureRequest struct {
	PaymentMethod string `json:"paymentMethod" binding:"required"`
	ChargeCode    string `json:"chargeCode" binding:"required"`
}

// CaptureResponse reports the settled state of a charge.
type CaptureResponse struct {
	Success       bool   `json:"success"`
	Status        string `json:"status"`
	TransactionID string `json:"transactionId,omitempty"`
}

// WebhookResponse acknowledges a provider delivery.
type WebhookResponse struct {
	Received bool   `json:"received"`
	Result   string `json:"result"`
}
