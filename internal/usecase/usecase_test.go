package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/domain/repository"
	"github.com/polkiloo/storefront/internal/metrics"
	"github.com/polkiloo/storefront/internal/storage/memory"
	"github.com/polkiloo/storefront/internal/test"
)

type fixture struct {
	store      *memory.Storage
	gateways   map[model.PaymentMethod]*test.GatewayStub
	notifier   *test.NotifierStub
	inventory  *InventoryUseCase
	orders     *OrderUseCase
	checkout   *CheckoutUseCase
	settlement *SettlementUseCase
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newFixture(t *testing.T, seed map[string]int) *fixture {
	t.Helper()
	return newFixtureWithOrders(t, seed, nil)
}

func newFixtureWithOrders(t *testing.T, seed map[string]int, orders repository.OrderRepository) *fixture {
	t.Helper()
	store := memory.New(seed)
	if orders == nil {
		orders = store.Orders()
	}
	logger := discardLogger()
	tracer := noop.NewTracerProvider().Tracer("test")
	m := metrics.New()

	gateways := make(map[model.PaymentMethod]*test.GatewayStub)
	stubs := make([]*test.GatewayStub, 0, len(model.PaymentMethods()))
	for _, method := range model.PaymentMethods() {
		g := &test.GatewayStub{MethodValue: method}
		gateways[method] = g
		stubs = append(stubs, g)
	}
	registry := test.NewRegistryStub(stubs...)
	notifier := &test.NotifierStub{}

	inventory := NewInventoryUseCase(store.Inventory(), m, logger)
	settlement := NewSettlementUseCase(orders, registry, notifier, time.Second, m, tracer, logger)
	f := &fixture{
		store:      store,
		gateways:   gateways,
		notifier:   notifier,
		inventory:  inventory,
		orders:     NewOrderUseCase(orders, inventory, registry, settlement, decimal.Zero, tracer, logger),
		checkout:   NewCheckoutUseCase(orders, registry, logger),
		settlement: settlement,
	}
	t.Cleanup(settlement.Wait)
	return f
}

func (f *fixture) stock(t *testing.T, productID string) int {
	t.Helper()
	p, err := f.inventory.Stock(context.Background(), productID)
	if err != nil {
		t.Fatalf("stock %s: %v", productID, err)
	}
	return p.Stock
}

func (f *fixture) place(t *testing.T, method model.PaymentMethod, items ...model.OrderItem) *model.Order {
	t.Helper()
	order, err := f.orders.Place(context.Background(), model.PlaceOrderInput{UserID: 1, Method: method, Items: items})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	return order
}

func (f *fixture) order(t *testing.T, id string) *model.Order {
	t.Helper()
	order, err := f.orders.Get(context.Background(), 1, id)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	return order
}

func line(productID string, quantity int, price string) model.OrderItem {
	return model.OrderItem{ProductID: productID, Quantity: quantity, UnitPrice: decimal.RequireFromString(price)}
}

func event(orderID string, outcome model.Outcome) model.PaymentEvent {
	return model.PaymentEvent{
		Method:     model.PaymentMethodCrypto,
		EventType:  "charge:test",
		ChargeCode: "CHG-" + orderID,
		OrderID:    orderID,
		Outcome:    outcome,
	}
}
