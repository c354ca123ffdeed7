package test

import (
	"context"
	"net/http"
	"sync"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/gateway"
	"github.com/polkiloo/storefront/internal/domain/model"
)

// GatewayStub is a controllable payment gateway.
type GatewayStub struct {
	MethodValue model.PaymentMethod
	IntentFn    func(context.Context, *model.Order) (*model.PaymentIntent, error)
	CaptureFn   func(context.Context, string) (*model.PaymentOutcome, error)
	CancelFn    func(context.Context, string) error
	VerifyFn    func(http.Header, []byte) bool
	ParseFn     func([]byte) (*model.PaymentEvent, error)

	mu        sync.Mutex
	captures  int
	cancelled []string
}

// Method returns the configured method.
func (g *GatewayStub) Method() model.PaymentMethod { return g.MethodValue }

// CreateIntent delegates to IntentFn or returns a reference derived from the order id.
func (g *GatewayStub) CreateIntent(ctx context.Context, order *model.Order) (*model.PaymentIntent, error) {
	if g.IntentFn != nil {
		return g.IntentFn(ctx, order)
	}
	return &model.PaymentIntent{
		Method:      g.MethodValue,
		OrderID:     order.ID,
		Reference:   "ref-" + order.ID,
		CheckoutURL: "https://pay.example/" + order.ID,
	}, nil
}

// CaptureOrVerify delegates to CaptureFn or reports a pending charge.
func (g *GatewayStub) CaptureOrVerify(ctx context.Context, reference string) (*model.PaymentOutcome, error) {
	g.mu.Lock()
	g.captures++
	g.mu.Unlock()
	if g.CaptureFn != nil {
		return g.CaptureFn(ctx, reference)
	}
	return &model.PaymentOutcome{Outcome: model.OutcomePending}, nil
}

// Captures returns how many times CaptureOrVerify was called.
func (g *GatewayStub) Captures() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.captures
}

// Cancel records the reference and delegates to CancelFn.
func (g *GatewayStub) Cancel(ctx context.Context, reference string) error {
	g.mu.Lock()
	g.cancelled = append(g.cancelled, reference)
	g.mu.Unlock()
	if g.CancelFn != nil {
		return g.CancelFn(ctx, reference)
	}
	return nil
}

// Cancelled returns the references Cancel was called with.
func (g *GatewayStub) Cancelled() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.cancelled...)
}

// VerifyWebhookSignature accepts every body unless VerifyFn is set.
func (g *GatewayStub) VerifyWebhookSignature(header http.Header, body []byte) bool {
	if g.VerifyFn != nil {
		return g.VerifyFn(header, body)
	}
	return true
}

// ParseWebhook delegates to ParseFn.
func (g *GatewayStub) ParseWebhook(body []byte) (*model.PaymentEvent, error) {
	if g.ParseFn != nil {
		return g.ParseFn(body)
	}
	return nil, domainErrors.ErrMalformedEvent
}

// RegistryStub resolves gateways from a map.
type RegistryStub map[model.PaymentMethod]gateway.Gateway

// NewRegistryStub registers gateways under their own method.
func NewRegistryStub(gateways ...*GatewayStub) RegistryStub {
	r := make(RegistryStub, len(gateways))
	for _, g := range gateways {
		r[g.MethodValue] = g
	}
	return r
}

// Gateway returns the registered gateway or ErrUnsupportedPaymentMethod.
func (r RegistryStub) Gateway(method model.PaymentMethod) (gateway.Gateway, error) {
	if g, ok := r[method]; ok {
		return g, nil
	}
	return nil, domainErrors.ErrUnsupportedPaymentMethod
}

// NotifierStub records confirmed orders.
type NotifierStub struct {
	Err error

	mu     sync.Mutex
	orders []string
}

// OrderConfirmed records the order id and returns Err.
func (n *NotifierStub) OrderConfirmed(ctx context.Context, order *model.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, order.ID)
	return n.Err
}

// Orders returns ids of orders the notifier was called for.
func (n *NotifierStub) Orders() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.orders...)
}
