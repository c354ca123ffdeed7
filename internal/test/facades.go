package test

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/storefront/internal/domain/model"
)

// OrderFacadeStub provides controllable behaviour for order endpoints.
type OrderFacadeStub struct {
	PlaceFn  func(context.Context, model.PlaceOrderInput) (*model.Order, error)
	OrderFn  func(context.Context, int64, string) (*model.Order, error)
	OrdersFn func(context.Context, int64) ([]model.Order, error)
}

// PlaceOrder delegates to PlaceFn or echoes the input as a pending order.
func (s OrderFacadeStub) PlaceOrder(ctx context.Context, in model.PlaceOrderInput) (*model.Order, error) {
	if s.PlaceFn != nil {
		return s.PlaceFn(ctx, in)
	}
	return &model.Order{
		ID:            "order-1",
		UserID:        in.UserID,
		Items:         in.Items,
		PaymentMethod: in.Method,
		PaymentStatus: model.PaymentStatusPending,
		Status:        model.OrderStatusPending,
		Shipping:      in.Shipping,
		Total:         decimal.Zero,
		CreatedAt:     time.Unix(0, 0).UTC(),
	}, nil
}

// Order returns a pending order owned by userID unless OrderFn is set.
func (s OrderFacadeStub) Order(ctx context.Context, userID int64, orderID string) (*model.Order, error) {
	if s.OrderFn != nil {
		return s.OrderFn(ctx, userID, orderID)
	}
	return &model.Order{ID: orderID, UserID: userID, Status: model.OrderStatusPending, PaymentStatus: model.PaymentStatusPending}, nil
}

// Orders returns predefined orders for given user.
func (s OrderFacadeStub) Orders(ctx context.Context, userID int64) ([]model.Order, error) {
	if s.OrdersFn != nil {
		return s.OrdersFn(ctx, userID)
	}
	return []model.Order{{ID: "order-1", UserID: userID, Status: model.OrderStatusPending}}, nil
}

// PaymentFacadeStub simulates intent creation, capture and webhooks.
type PaymentFacadeStub struct {
	IntentFn  func(context.Context, model.IntentInput) (*model.PaymentIntent, error)
	CaptureFn func(context.Context, model.PaymentMethod, string) (*model.CaptureResult, error)
	WebhookFn func(context.Context, model.PaymentMethod, http.Header, []byte) (model.ApplyResult, error)
}

// CreatePaymentIntent delegates to IntentFn or returns a hosted checkout handle.
func (s PaymentFacadeStub) CreatePaymentIntent(ctx context.Context, in model.IntentInput) (*model.PaymentIntent, error) {
	if s.IntentFn != nil {
		return s.IntentFn(ctx, in)
	}
	return &model.PaymentIntent{Method: in.Method, OrderID: in.OrderID, Reference: "ref-" + in.OrderID, CheckoutURL: "https://pay.example/" + in.OrderID}, nil
}

// Capture delegates to CaptureFn or reports a charge that paid its order.
func (s PaymentFacadeStub) Capture(ctx context.Context, method model.PaymentMethod, reference string) (*model.CaptureResult, error) {
	if s.CaptureFn != nil {
		return s.CaptureFn(ctx, method, reference)
	}
	tx := "tx-" + reference
	return &model.CaptureResult{
		Outcome: &model.PaymentOutcome{Outcome: model.OutcomeConfirmed, TransactionID: tx},
		Result:  model.ApplyResultApplied,
		Order:   &model.Order{ID: "order-" + reference, Status: model.OrderStatusPaid, TransactionID: &tx},
	}, nil
}

// HandleWebhook delegates to WebhookFn or acknowledges the delivery.
func (s PaymentFacadeStub) HandleWebhook(ctx context.Context, method model.PaymentMethod, header http.Header, body []byte) (model.ApplyResult, error) {
	if s.WebhookFn != nil {
		return s.WebhookFn(ctx, method, header, body)
	}
	return model.ApplyResultApplied, nil
}

// ProductFacadeStub exposes stock lookups.
type ProductFacadeStub struct {
	StockFn func(context.Context, string) (*model.Product, error)
}

// ProductStock delegates to StockFn or reports ten units.
func (s ProductFacadeStub) ProductStock(ctx context.Context, productID string) (*model.Product, error) {
	if s.StockFn != nil {
		return s.StockFn(ctx, productID)
	}
	return &model.Product{ID: productID, Stock: 10}, nil
}

// StorefrontFacadeStub aggregates facade dependencies for HTTP layer tests.
type StorefrontFacadeStub struct {
	TokenParserStub
	OrderFacadeStub
	PaymentFacadeStub
	ProductFacadeStub
	HealthErr error
}

// HealthCheck returns HealthErr.
func (s StorefrontFacadeStub) HealthCheck(context.Context) error {
	return s.HealthErr
}

// SweepFacadeStub mimics sweeper interactions with the storefront facade.
type SweepFacadeStub struct {
	Batches  [][]model.Order
	StaleFn  func(context.Context, int) ([]model.Order, error)
	ExpireFn func(context.Context, *model.Order) (model.ApplyResult, error)
	Expired  []string

	mu         sync.Mutex
	staleCalls int32
}

// Lock exposes internal mutex for external synchronization.
func (s *SweepFacadeStub) Lock() { s.mu.Lock() }

// Unlock releases previously acquired lock.
func (s *SweepFacadeStub) Unlock() { s.mu.Unlock() }

// StalePendingOrders returns batches from configured queue.
func (s *SweepFacadeStub) StalePendingOrders(ctx context.Context, limit int) ([]model.Order, error) {
	if s.StaleFn != nil {
		return s.StaleFn(ctx, limit)
	}
	call := atomic.AddInt32(&s.staleCalls, 1)
	if int(call) <= len(s.Batches) {
		return s.Batches[call-1], nil
	}
	return nil, nil
}

// ExpireOrder records the order id and reports it applied.
func (s *SweepFacadeStub) ExpireOrder(ctx context.Context, order *model.Order) (model.ApplyResult, error) {
	if s.ExpireFn != nil {
		return s.ExpireFn(ctx, order)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Expired = append(s.Expired, order.ID)
	return model.ApplyResultApplied, nil
}

// ExpiredIDs returns a copy of the recorded order ids.
func (s *SweepFacadeStub) ExpiredIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Expired...)
}
