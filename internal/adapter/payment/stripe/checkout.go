package stripe

import (
	"context"
	"log/slog"
	"net/http"

	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"

	"github.com/polkiloo/storefront/internal/domain/model"
)

func sessionOrderID(s *stripego.CheckoutSession) string {
	if id := s.Metadata["orderId"]; id != "" {
		return id
	}
	return s.ClientReferenceID
}

func sessionTransactionID(s *stripego.CheckoutSession) string {
	if s.PaymentIntent != nil && s.PaymentIntent.ID != "" {
		return s.PaymentIntent.ID
	}
	return s.ID
}

func sessionPaid(s *stripego.CheckoutSession) bool {
	return s.PaymentStatus == stripego.CheckoutSessionPaymentStatusPaid ||
		s.PaymentStatus == stripego.CheckoutSessionPaymentStatusNoPaymentRequired
}

// CheckoutGateway is the hosted-checkout variant: the customer is redirected
// to a Stripe Checkout Session.
type CheckoutGateway struct {
	sessions session.Client
	cfg      Config
	verifier webhookVerifier
}

// NewCheckoutGateway creates the hosted-checkout gateway.
func NewCheckoutGateway(cfg Config, logger *slog.Logger) (*CheckoutGateway, error) {
	backend, err := newBackend(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &CheckoutGateway{
		sessions: session.Client{B: backend, Key: cfg.SecretKey},
		cfg:      cfg,
		verifier: webhookVerifier{secret: cfg.WebhookSecret, tolerance: DefaultTolerance},
	}, nil
}

func (g *CheckoutGateway) Method() model.PaymentMethod {
	return model.PaymentMethodHostedCheckout
}

// CreateIntent opens a Checkout Session charging the order total as a single line.
func (g *CheckoutGateway) CreateIntent(ctx context.Context, order *model.Order) (*model.PaymentIntent, error) {
	params := &stripego.CheckoutSessionParams{
		Mode:              stripego.String(string(stripego.CheckoutSessionModePayment)),
		SuccessURL:        stripego.String(g.cfg.SuccessURL),
		CancelURL:         stripego.String(g.cfg.CancelURL),
		ClientReferenceID: stripego.String(order.ID),
		Metadata:          map[string]string{"orderId": order.ID},
		PaymentIntentData: &stripego.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{"orderId": order.ID},
		},
		LineItems: []*stripego.CheckoutSessionLineItemParams{{
			Quantity: stripego.Int64(1),
			PriceData: &stripego.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripego.String(g.cfg.Currency),
				UnitAmount: stripego.Int64(model.Cents(order.Total)),
				ProductData: &stripego.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripego.String("Order " + order.ID),
				},
			},
		}},
	}
	params.Context = ctx
	params.SetIdempotencyKey("checkout-" + order.ID)

	s, err := g.sessions.New(params)
	if err != nil {
		return nil, providerError(err)
	}
	return &model.PaymentIntent{
		Method:      model.PaymentMethodHostedCheckout,
		OrderID:     order.ID,
		Reference:   s.ID,
		CheckoutURL: s.URL,
	}, nil
}

// CaptureOrVerify reads the session. Checkout captures on completion, so
// there is nothing to capture here.
func (g *CheckoutGateway) CaptureOrVerify(ctx context.Context, reference string) (*model.PaymentOutcome, error) {
	params := &stripego.CheckoutSessionParams{}
	params.Context = ctx
	s, err := g.sessions.Get(reference, params)
	if err != nil {
		return nil, providerError(err)
	}

	outcome := model.OutcomePending
	switch {
	case sessionPaid(s):
		outcome = model.OutcomeConfirmed
	case s.Status == stripego.CheckoutSessionStatusExpired:
		outcome = model.OutcomeFailed
	}
	return &model.PaymentOutcome{
		Outcome:        outcome,
		TransactionID:  sessionTransactionID(s),
		OrderID:        sessionOrderID(s),
		ProviderStatus: string(s.Status) + "/" + string(s.PaymentStatus),
		Amount:         model.FromCents(s.AmountTotal),
	}, nil
}

// Cancel expires an open session. Stripe rejects the call once the session
// is complete.
func (g *CheckoutGateway) Cancel(ctx context.Context, reference string) error {
	params := &stripego.CheckoutSessionExpireParams{}
	params.Context = ctx
	if _, err := g.sessions.Expire(reference, params); err != nil {
		return providerError(err)
	}
	return nil
}

func (g *CheckoutGateway) VerifyWebhookSignature(header http.Header, body []byte) bool {
	return g.verifier.verify(header, body)
}

// ParseWebhook maps checkout.session.* events.
func (g *CheckoutGateway) ParseWebhook(body []byte) (*model.PaymentEvent, error) {
	var s stripego.CheckoutSession
	ev, err := decodeEvent(body, &s)
	if err != nil {
		return nil, err
	}

	outcome := model.OutcomeUnknown
	switch ev.Type {
	case "checkout.session.completed":
		outcome = model.OutcomePending
		if sessionPaid(&s) {
			outcome = model.OutcomeConfirmed
		}
	case "checkout.session.async_payment_succeeded":
		outcome = model.OutcomeConfirmed
	case "checkout.session.async_payment_failed", "checkout.session.expired":
		outcome = model.OutcomeFailed
	}

	return &model.PaymentEvent{
		Method:        model.PaymentMethodHostedCheckout,
		EventID:       ev.ID,
		EventType:     string(ev.Type),
		ChargeCode:    s.ID,
		OrderID:       sessionOrderID(&s),
		TransactionID: sessionTransactionID(&s),
		Outcome:       outcome,
	}, nil
}
