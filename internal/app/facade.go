package app

import (
	"context"
	"net/http"
	"time"

	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/usecase"
	"github.com/polkiloo/storefront/internal/worker"
)

type TokenParser interface {
	ParseToken(token string) (int64, error)
}

type Poller interface {
	Poll(ctx context.Context, method model.PaymentMethod, reference string) <-chan worker.PollResult
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// StorefrontFacade is the single entry point used by HTTP handlers and the sweeper.
type StorefrontFacade struct {
	tokens         TokenParser
	orders         *usecase.OrderUseCase
	checkout       *usecase.CheckoutUseCase
	inventory      *usecase.InventoryUseCase
	settlement     *usecase.SettlementUseCase
	poller         Poller
	health         HealthChecker
	reservationTTL time.Duration
	now            func() time.Time
}

func NewStorefrontFacade(
	tokens TokenParser,
	orders *usecase.OrderUseCase,
	checkout *usecase.CheckoutUseCase,
	inventory *usecase.InventoryUseCase,
	settlement *usecase.SettlementUseCase,
	poller Poller,
	health HealthChecker,
	reservationTTL time.Duration,
) *StorefrontFacade {
	return &StorefrontFacade{
		tokens:         tokens,
		orders:         orders,
		checkout:       checkout,
		inventory:      inventory,
		settlement:     settlement,
		poller:         poller,
		health:         health,
		reservationTTL: reservationTTL,
		now:            time.Now,
	}
}

func (f *StorefrontFacade) ParseToken(token string) (int64, error) {
	return f.tokens.ParseToken(token)
}

func (f *StorefrontFacade) PlaceOrder(ctx context.Context, in model.PlaceOrderInput) (*model.Order, error) {
	return f.orders.Place(ctx, in)
}

func (f *StorefrontFacade) Order(ctx context.Context, userID int64, orderID string) (*model.Order, error) {
	return f.orders.Get(ctx, userID, orderID)
}

func (f *StorefrontFacade) Orders(ctx context.Context, userID int64) ([]model.Order, error) {
	return f.orders.ListByUser(ctx, userID)
}

func (f *StorefrontFacade) CreatePaymentIntent(ctx context.Context, in model.IntentInput) (*model.PaymentIntent, error) {
	return f.checkout.CreateIntent(ctx, in)
}

// Capture waits for the reconciler and reports the order state the charge
// settled to. On ErrPollTimeout the last seen outcome is returned together
// with the error.
func (f *StorefrontFacade) Capture(ctx context.Context, method model.PaymentMethod, reference string) (*model.CaptureResult, error) {
	res := <-f.poller.Poll(ctx, method, reference)
	return &model.CaptureResult{Outcome: res.Outcome, Result: res.Result, Order: res.Order}, res.Err
}

func (f *StorefrontFacade) HandleWebhook(ctx context.Context, method model.PaymentMethod, header http.Header, body []byte) (model.ApplyResult, error) {
	return f.settlement.HandleWebhook(ctx, method, header, body)
}

func (f *StorefrontFacade) ProductStock(ctx context.Context, productID string) (*model.Product, error) {
	return f.inventory.Stock(ctx, productID)
}

func (f *StorefrontFacade) HealthCheck(ctx context.Context) error {
	return f.health.HealthCheck(ctx)
}

// StalePendingOrders returns PENDING orders older than the reservation TTL.
func (f *StorefrontFacade) StalePendingOrders(ctx context.Context, limit int) ([]model.Order, error) {
	return f.orders.StalePending(ctx, f.now().Add(-f.reservationTTL), limit)
}

func (f *StorefrontFacade) ExpireOrder(ctx context.Context, order *model.Order) (model.ApplyResult, error) {
	return f.settlement.Expire(ctx, order)
}
