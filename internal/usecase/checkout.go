package usecase

import (
	"context"
	"log/slog"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/gateway"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/domain/repository"
)

// CheckoutUseCase opens provider payments for pending orders.
type CheckoutUseCase struct {
	orders   repository.OrderRepository
	gateways gateway.Registry
	logger   *slog.Logger
}

// NewCheckoutUseCase constructs CheckoutUseCase.
func NewCheckoutUseCase(orders repository.OrderRepository, gateways gateway.Registry, logger *slog.Logger) *CheckoutUseCase {
	return &CheckoutUseCase{orders: orders, gateways: gateways, logger: logger}
}

// CreateIntent opens a payment for the order total and remembers the provider
// reference on the order.
func (u *CheckoutUseCase) CreateIntent(ctx context.Context, in model.IntentInput) (*model.PaymentIntent, error) {
	order, err := u.orders.GetByID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != in.UserID {
		return nil, domainErrors.ErrNotFound
	}
	if order.Status != model.OrderStatusPending {
		return nil, domainErrors.ErrOrderNotPending
	}
	if in.Method != "" && in.Method != order.PaymentMethod {
		return nil, domainErrors.ErrPaymentMethodMismatch
	}
	if in.Amount != nil && !in.Amount.Equal(order.Total) {
		return nil, domainErrors.ErrAmountMismatch
	}

	gw, err := u.gateways.Gateway(order.PaymentMethod)
	if err != nil {
		return nil, err
	}
	intent, err := gw.CreateIntent(ctx, order)
	if err != nil {
		return nil, err
	}
	if err := u.orders.AttachPaymentReference(ctx, order.ID, intent.Reference); err != nil {
		return nil, err
	}

	u.logger.Info("payment intent created",
		slog.String("order_id", order.ID),
		slog.String("method", string(order.PaymentMethod)),
		slog.String("reference", intent.Reference))
	return intent, nil
}
