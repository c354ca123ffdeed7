package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace/noop"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/metrics"
	"github.com/polkiloo/storefront/internal/storage/memory"
	testhelpers "github.com/polkiloo/storefront/internal/test"
	"github.com/polkiloo/storefront/internal/usecase"
	"github.com/polkiloo/storefront/internal/worker"
)

type facadeFixture struct {
	facade     *StorefrontFacade
	store      *memory.Storage
	gateway    *testhelpers.GatewayStub
	notifier   *testhelpers.NotifierStub
	settlement *usecase.SettlementUseCase
	reconciler *worker.Reconciler
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newFacadeFixture(t *testing.T, ttl time.Duration) *facadeFixture {
	t.Helper()
	logger := discardLogger()
	tracer := noop.NewTracerProvider().Tracer("test")
	m := metrics.New()

	store := memory.New(map[string]int{"sku-1": 5})
	gw := &testhelpers.GatewayStub{MethodValue: model.PaymentMethodHostedCheckout}
	registry := testhelpers.NewRegistryStub(gw)
	notifier := &testhelpers.NotifierStub{}

	inventory := usecase.NewInventoryUseCase(store.Inventory(), m, logger)
	settlement := usecase.NewSettlementUseCase(store.Orders(), registry, notifier, time.Second, m, tracer, logger)
	orders := usecase.NewOrderUseCase(store.Orders(), inventory, registry, settlement, decimal.Zero, tracer, logger)
	checkout := usecase.NewCheckoutUseCase(store.Orders(), registry, logger)
	reconciler := worker.NewReconciler(registry, settlement, 3, time.Millisecond, m, logger)

	tokens := testhelpers.StrategyStub{ParseFn: func(string) (int64, error) { return 99, nil }}
	facade := NewStorefrontFacade(tokens, orders, checkout, inventory, settlement, reconciler, store, ttl)

	t.Cleanup(func() {
		reconciler.Stop()
		settlement.Wait()
	})
	return &facadeFixture{
		facade:     facade,
		store:      store,
		gateway:    gw,
		notifier:   notifier,
		settlement: settlement,
		reconciler: reconciler,
	}
}

func (f *facadeFixture) place(t *testing.T, quantity int) *model.Order {
	t.Helper()
	order, err := f.facade.PlaceOrder(context.Background(), model.PlaceOrderInput{
		UserID: 7,
		Method: model.PaymentMethodHostedCheckout,
		Items:  []model.OrderItem{{ProductID: "sku-1", Quantity: quantity, UnitPrice: decimal.RequireFromString("10.00")}},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	return order
}

func (f *facadeFixture) stock(t *testing.T) int {
	t.Helper()
	p, err := f.facade.ProductStock(context.Background(), "sku-1")
	if err != nil {
		t.Fatalf("stock: %v", err)
	}
	return p.Stock
}

func TestStorefrontFacadeParseToken(t *testing.T) {
	f := newFacadeFixture(t, 0)
	id, err := f.facade.ParseToken("anything")
	if err != nil || id != 99 {
		t.Fatalf("unexpected parse result %d %v", id, err)
	}
}

func TestStorefrontFacadeOrderFlow(t *testing.T) {
	f := newFacadeFixture(t, 0)
	ctx := context.Background()

	order := f.place(t, 2)
	if got := f.stock(t); got != 3 {
		t.Fatalf("expected stock 3 after reservation, got %d", got)
	}

	fetched, err := f.facade.Order(ctx, 7, order.ID)
	if err != nil || fetched.ID != order.ID {
		t.Fatalf("order lookup failed: %v", err)
	}
	if _, err := f.facade.Order(ctx, 8, order.ID); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found for another customer, got %v", err)
	}

	list, err := f.facade.Orders(ctx, 7)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one order, got %d (%v)", len(list), err)
	}

	intent, err := f.facade.CreatePaymentIntent(ctx, model.IntentInput{UserID: 7, OrderID: order.ID, Method: model.PaymentMethodHostedCheckout})
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if intent.Reference != "ref-"+order.ID {
		t.Fatalf("unexpected reference %q", intent.Reference)
	}
}

func TestStorefrontFacadeCaptureSettlesOrder(t *testing.T) {
	f := newFacadeFixture(t, 0)
	order := f.place(t, 1)
	f.gateway.CaptureFn = func(_ context.Context, ref string) (*model.PaymentOutcome, error) {
		return &model.PaymentOutcome{Outcome: model.OutcomeConfirmed, OrderID: order.ID, TransactionID: "ch_1"}, nil
	}

	res, err := f.facade.Capture(context.Background(), model.PaymentMethodHostedCheckout, "cs_1")
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if res.Outcome.Outcome != model.OutcomeConfirmed || res.Result != model.ApplyResultApplied {
		t.Fatalf("unexpected capture result %+v", res)
	}
	if res.Order == nil || res.Order.Status != model.OrderStatusPaid {
		t.Fatalf("expected paid order in capture result, got %+v", res.Order)
	}

	stored, err := f.facade.Order(context.Background(), 7, order.ID)
	if err != nil {
		t.Fatalf("order lookup: %v", err)
	}
	if stored.Status != model.OrderStatusPaid || stored.TransactionID == nil || *stored.TransactionID != "ch_1" {
		t.Fatalf("expected paid order with transaction, got %+v", stored)
	}
	f.settlement.Wait()
	if got := f.notifier.Orders(); len(got) != 1 || got[0] != order.ID {
		t.Fatalf("expected one confirmation for %s, got %v", order.ID, got)
	}
}

func TestStorefrontFacadeCaptureTimeout(t *testing.T) {
	f := newFacadeFixture(t, 0)

	res, err := f.facade.Capture(context.Background(), model.PaymentMethodHostedCheckout, "cs_1")
	if !errors.Is(err, domainErrors.ErrPollTimeout) {
		t.Fatalf("expected poll timeout, got %v", err)
	}
	if res == nil || res.Outcome == nil || res.Outcome.Outcome != model.OutcomePending || res.Order != nil {
		t.Fatalf("expected last pending outcome without order, got %+v", res)
	}
	if got := f.gateway.Captures(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestStorefrontFacadeCaptureReportsCancelledOrder(t *testing.T) {
	f := newFacadeFixture(t, 0)
	ctx := context.Background()
	order := f.place(t, 1)

	if _, err := f.settlement.Apply(ctx, model.PaymentEvent{
		Method:    model.PaymentMethodHostedCheckout,
		EventType: "checkout.session.expired",
		OrderID:   order.ID,
		Outcome:   model.OutcomeFailed,
	}); err != nil {
		t.Fatalf("apply failure: %v", err)
	}
	f.gateway.CaptureFn = func(context.Context, string) (*model.PaymentOutcome, error) {
		return &model.PaymentOutcome{Outcome: model.OutcomeConfirmed, OrderID: order.ID, TransactionID: "ch_late"}, nil
	}

	res, err := f.facade.Capture(ctx, model.PaymentMethodHostedCheckout, "cs_1")
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if res.Result != model.ApplyResultDuplicate {
		t.Fatalf("expected duplicate, got %s", res.Result)
	}
	if res.Order == nil || res.Order.Status != model.OrderStatusCancelled {
		t.Fatalf("expected the cancelled order, got %+v", res.Order)
	}
	if got := f.stock(t); got != 5 {
		t.Fatalf("late confirmation must not touch stock, got %d", got)
	}
}

func TestStorefrontFacadeCaptureWithoutOrder(t *testing.T) {
	f := newFacadeFixture(t, 0)
	f.gateway.CaptureFn = func(context.Context, string) (*model.PaymentOutcome, error) {
		return &model.PaymentOutcome{Outcome: model.OutcomeConfirmed, OrderID: "unknown-order", TransactionID: "ch_1"}, nil
	}

	res, err := f.facade.Capture(context.Background(), model.PaymentMethodHostedCheckout, "cs_1")
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if res.Result != model.ApplyResultOrderNotFound || res.Order != nil {
		t.Fatalf("expected order_not_found without order, got %+v", res)
	}
}

func TestStorefrontFacadeExpireStaleOrders(t *testing.T) {
	f := newFacadeFixture(t, time.Hour)
	order := f.place(t, 2)

	stale, err := f.facade.StalePendingOrders(context.Background(), 10)
	if err != nil {
		t.Fatalf("stale orders: %v", err)
	}
	if len(stale) != 0 {
		t.Fatalf("fresh order must not be stale, got %d", len(stale))
	}

	f.facade.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	stale, err = f.facade.StalePendingOrders(context.Background(), 10)
	if err != nil || len(stale) != 1 {
		t.Fatalf("expected one stale order, got %d (%v)", len(stale), err)
	}

	result, err := f.facade.ExpireOrder(context.Background(), &stale[0])
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if result != model.ApplyResultApplied {
		t.Fatalf("expected applied, got %s", result)
	}
	stored, _ := f.facade.Order(context.Background(), 7, order.ID)
	if stored.Status != model.OrderStatusCancelled {
		t.Fatalf("expected cancelled order, got %s", stored.Status)
	}
	if got := f.stock(t); got != 5 {
		t.Fatalf("expected stock restored to 5, got %d", got)
	}
}

func TestStorefrontFacadeWebhook(t *testing.T) {
	f := newFacadeFixture(t, 0)
	order := f.place(t, 1)

	f.gateway.VerifyFn = func(_ http.Header, body []byte) bool { return string(body) == "signed" }
	f.gateway.ParseFn = func([]byte) (*model.PaymentEvent, error) {
		return &model.PaymentEvent{
			Method:    model.PaymentMethodHostedCheckout,
			EventID:   "evt_1",
			EventType: "checkout.session.completed",
			OrderID:   order.ID,
			Outcome:   model.OutcomeConfirmed,
		}, nil
	}

	if _, err := f.facade.HandleWebhook(context.Background(), model.PaymentMethodHostedCheckout, http.Header{}, []byte("forged")); !errors.Is(err, domainErrors.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature, got %v", err)
	}
	stored, _ := f.facade.Order(context.Background(), 7, order.ID)
	if stored.Status != model.OrderStatusPending {
		t.Fatalf("rejected webhook must not change the order, got %s", stored.Status)
	}

	result, err := f.facade.HandleWebhook(context.Background(), model.PaymentMethodHostedCheckout, http.Header{}, []byte("signed"))
	if err != nil || result != model.ApplyResultApplied {
		t.Fatalf("expected applied, got %s (%v)", result, err)
	}
	result, err = f.facade.HandleWebhook(context.Background(), model.PaymentMethodHostedCheckout, http.Header{}, []byte("signed"))
	if err != nil || result != model.ApplyResultDuplicate {
		t.Fatalf("expected duplicate on redelivery, got %s (%v)", result, err)
	}
}

func TestStorefrontFacadeHealth(t *testing.T) {
	f := newFacadeFixture(t, 0)
	if err := f.facade.HealthCheck(context.Background()); err != nil {
		t.Fatalf("memory storage must be healthy: %v", err)
	}
}

type pollerStub struct {
	result worker.PollResult
}

func (p pollerStub) Poll(context.Context, model.PaymentMethod, string) <-chan worker.PollResult {
	ch := make(chan worker.PollResult, 1)
	ch <- p.result
	return ch
}

func TestStorefrontFacadeCapturePassesPollError(t *testing.T) {
	boom := errors.New("provider down")
	facade := NewStorefrontFacade(testhelpers.StrategyStub{}, nil, nil, nil, nil, pollerStub{result: worker.PollResult{Err: boom}}, nil, 0)
	if _, err := facade.Capture(context.Background(), model.PaymentMethodCrypto, "x"); !errors.Is(err, boom) {
		t.Fatalf("expected poll error, got %v", err)
	}
}
