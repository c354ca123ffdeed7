package gateway

import (
	"context"
	"net/http"

	"github.com/polkiloo/storefront/internal/domain/model"
)

// Gateway hides one payment provider variant behind a common capability set.
type Gateway interface {
	Method() model.PaymentMethod
	// CreateIntent opens a provider-side payment for the order total. The
	// order id travels in provider metadata so webhooks can recover it.
	CreateIntent(ctx context.Context, order *model.Order) (*model.PaymentIntent, error)
	// CaptureOrVerify captures an authorised payment or reads its current state.
	CaptureOrVerify(ctx context.Context, reference string) (*model.PaymentOutcome, error)
	// Cancel closes an unpaid provider-side payment so it can no longer be
	// paid. It fails when the provider already took the money.
	Cancel(ctx context.Context, reference string) error
	// VerifyWebhookSignature checks the provider signature over the raw body.
	VerifyWebhookSignature(header http.Header, body []byte) bool
	// ParseWebhook maps a verified body to the canonical event.
	ParseWebhook(body []byte) (*model.PaymentEvent, error)
}

// Registry resolves the gateway serving a payment method.
type Registry interface {
	Gateway(method model.PaymentMethod) (Gateway, error)
}
