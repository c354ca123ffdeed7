package stripe

import (
	"context"
	"log/slog"
	"net/http"

	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"

	"github.com/polkiloo/storefront/internal/domain/model"
)

func intentOutcome(p *stripego.PaymentIntent) model.Outcome {
	switch p.Status {
	case stripego.PaymentIntentStatusSucceeded:
		return model.OutcomeConfirmed
	case stripego.PaymentIntentStatusCanceled:
		return model.OutcomeFailed
	case stripego.PaymentIntentStatusRequiresPaymentMethod:
		if p.LastPaymentError != nil {
			return model.OutcomeFailed
		}
	}
	return model.OutcomePending
}

func intentTransactionID(p *stripego.PaymentIntent) string {
	if p.LatestCharge != nil && p.LatestCharge.ID != "" {
		return p.LatestCharge.ID
	}
	return p.ID
}

func intentAmount(p *stripego.PaymentIntent) int64 {
	if p.AmountReceived > 0 {
		return p.AmountReceived
	}
	return p.Amount
}

// CardGateway is the embedded-card variant: the client confirms a manual
// capture PaymentIntent with its client secret and the server captures it.
type CardGateway struct {
	intents  paymentintent.Client
	cfg      Config
	verifier webhookVerifier
}

// NewCardGateway creates the embedded-card gateway.
func NewCardGateway(cfg Config, logger *slog.Logger) (*CardGateway, error) {
	backend, err := newBackend(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &CardGateway{
		intents:  paymentintent.Client{B: backend, Key: cfg.SecretKey},
		cfg:      cfg,
		verifier: webhookVerifier{secret: cfg.WebhookSecret, tolerance: DefaultTolerance},
	}, nil
}

func (g *CardGateway) Method() model.PaymentMethod {
	return model.PaymentMethodEmbeddedCard
}

// CreateIntent creates a manual capture PaymentIntent for the order total.
func (g *CardGateway) CreateIntent(ctx context.Context, order *model.Order) (*model.PaymentIntent, error) {
	params := &stripego.PaymentIntentParams{
		Amount:        stripego.Int64(model.Cents(order.Total)),
		Currency:      stripego.String(g.cfg.Currency),
		CaptureMethod: stripego.String(string(stripego.PaymentIntentCaptureMethodManual)),
		AutomaticPaymentMethods: &stripego.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripego.Bool(true),
		},
		Metadata: map[string]string{"orderId": order.ID},
	}
	params.Context = ctx
	params.SetIdempotencyKey("intent-" + order.ID)

	intent, err := g.intents.New(params)
	if err != nil {
		return nil, providerError(err)
	}
	return &model.PaymentIntent{
		Method:       model.PaymentMethodEmbeddedCard,
		OrderID:      order.ID,
		Reference:    intent.ID,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// CaptureOrVerify captures an authorised intent, otherwise reports its state.
func (g *CardGateway) CaptureOrVerify(ctx context.Context, reference string) (*model.PaymentOutcome, error) {
	params := &stripego.PaymentIntentParams{}
	params.Context = ctx
	intent, err := g.intents.Get(reference, params)
	if err != nil {
		return nil, providerError(err)
	}
	if intent.Status == stripego.PaymentIntentStatusRequiresCapture {
		capture := &stripego.PaymentIntentCaptureParams{}
		capture.Context = ctx
		if intent, err = g.intents.Capture(reference, capture); err != nil {
			return nil, providerError(err)
		}
	}

	return &model.PaymentOutcome{
		Outcome:        intentOutcome(intent),
		TransactionID:  intentTransactionID(intent),
		OrderID:        intent.Metadata["orderId"],
		ProviderStatus: string(intent.Status),
		Amount:         model.FromCents(intentAmount(intent)),
	}, nil
}

// Cancel voids the intent, releasing any authorisation. Stripe refuses once
// the intent has succeeded.
func (g *CardGateway) Cancel(ctx context.Context, reference string) error {
	params := &stripego.PaymentIntentCancelParams{
		CancellationReason: stripego.String(string(stripego.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx
	if _, err := g.intents.Cancel(reference, params); err != nil {
		return providerError(err)
	}
	return nil
}

func (g *CardGateway) VerifyWebhookSignature(header http.Header, body []byte) bool {
	return g.verifier.verify(header, body)
}

// ParseWebhook maps payment_intent.* events.
func (g *CardGateway) ParseWebhook(body []byte) (*model.PaymentEvent, error) {
	var intent stripego.PaymentIntent
	ev, err := decodeEvent(body, &intent)
	if err != nil {
		return nil, err
	}

	outcome := model.OutcomeUnknown
	switch ev.Type {
	case "payment_intent.succeeded":
		outcome = model.OutcomeConfirmed
	case "payment_intent.payment_failed", "payment_intent.canceled":
		outcome = model.OutcomeFailed
	case "payment_intent.processing", "payment_intent.amount_capturable_updated", "payment_intent.created":
		outcome = model.OutcomePending
	}

	return &model.PaymentEvent{
		Method:        model.PaymentMethodEmbeddedCard,
		EventID:       ev.ID,
		EventType:     string(ev.Type),
		ChargeCode:    intent.ID,
		OrderID:       intent.Metadata["orderId"],
		TransactionID: intentTransactionID(&intent),
		Outcome:       outcome,
	}, nil
}
