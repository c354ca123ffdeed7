package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/gateway"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/domain/repository"
)

// OrderUseCase encapsulates order placement and lookup.
type OrderUseCase struct {
	orders     repository.OrderRepository
	inventory  *InventoryUseCase
	gateways   gateway.Registry
	settlement *SettlementUseCase
	taxRate    decimal.Decimal
	tracer     trace.Tracer
	logger     *slog.Logger
	now        func() time.Time
}

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(
	orders repository.OrderRepository,
	inventory *InventoryUseCase,
	gateways gateway.Registry,
	settlement *SettlementUseCase,
	taxRate decimal.Decimal,
	tracer trace.Tracer,
	logger *slog.Logger,
) *OrderUseCase {
	return &OrderUseCase{
		orders:     orders,
		inventory:  inventory,
		gateways:   gateways,
		settlement: settlement,
		taxRate:    taxRate,
		tracer:     tracer,
		logger:     logger,
		now:        time.Now,
	}
}

// Place validates the order, reserves stock and persists it as PENDING.
// Nothing stays reserved when an error is returned.
func (u *OrderUseCase) Place(ctx context.Context, in model.PlaceOrderInput) (*model.Order, error) {
	ctx, span := u.tracer.Start(ctx, "order.place", trace.WithAttributes(
		attribute.String("payment.method", string(in.Method)),
		attribute.Int("order.items", len(in.Items)),
	))
	defer span.End()

	order, err := model.NewOrder(model.NewOrderParams{
		UserID:    in.UserID,
		Method:    in.Method,
		Items:     in.Items,
		Shipping:  in.Shipping,
		TaxRate:   u.taxRate,
		CreatedAt: u.now(),
	})
	if err != nil {
		return nil, err
	}
	gw, err := u.gateways.Gateway(order.PaymentMethod)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("order.id", order.ID))

	if err := u.inventory.ReserveItems(ctx, order.Items); err != nil {
		return nil, err
	}
	if err := u.orders.Create(ctx, order); err != nil {
		u.inventory.ReleaseItems(context.WithoutCancel(ctx), order.Items)
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist order")
		return nil, err
	}

	u.logger.Info("order placed",
		slog.String("order_id", order.ID),
		slog.Int64("user_id", order.UserID),
		slog.String("total", order.Total.StringFixed(2)))

	if in.TransactionID == "" {
		return order, nil
	}
	return u.verifyInline(ctx, gw, order, in.TransactionID)
}

// verifyInline runs once the order is persisted, so it never fails Place:
// storage or provider trouble leaves the order PENDING for a webhook or the
// expiry sweeper to settle.
func (u *OrderUseCase) verifyInline(ctx context.Context, gw gateway.Gateway, order *model.Order, reference string) (*model.Order, error) {
	logger := u.logger.With(slog.String("order_id", order.ID), slog.String("reference", reference))

	if err := u.orders.AttachPaymentReference(ctx, order.ID, reference); err != nil {
		logger.Error("attach inline payment reference failed", slog.String("error", err.Error()))
	} else {
		order.PaymentReference = reference
	}

	outcome, err := gw.CaptureOrVerify(ctx, reference)
	if err != nil {
		logger.Warn("inline payment verification failed", slog.String("error", err.Error()))
		return order, nil
	}
	switch {
	case outcome.Outcome != model.OutcomeConfirmed:
		logger.Info("inline payment not confirmed", slog.String("provider_status", outcome.ProviderStatus))
		return order, nil
	case outcome.OrderID != "" && outcome.OrderID != order.ID:
		logger.Warn("inline payment belongs to another order", slog.String("payment_order_id", outcome.OrderID))
		return order, nil
	case !outcome.Amount.Equal(order.Total):
		logger.Warn("inline payment amount mismatch",
			slog.String("paid", outcome.Amount.StringFixed(2)),
			slog.String("total", order.Total.StringFixed(2)))
		return order, nil
	}

	transactionID := outcome.TransactionID
	if transactionID == "" {
		transactionID = reference
	}
	_, settled, err := u.settlement.Settle(ctx, model.PaymentEvent{
		Method:        order.PaymentMethod,
		EventType:     "inline.verified",
		ChargeCode:    reference,
		OrderID:       order.ID,
		TransactionID: transactionID,
		Outcome:       model.OutcomeConfirmed,
	})
	if err != nil || settled == nil {
		return order, nil
	}
	return settled, nil
}

// Get returns an order owned by userID.
func (u *OrderUseCase) Get(ctx context.Context, userID int64, orderID string) (*model.Order, error) {
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domainErrors.ErrNotFound
	}
	return order, nil
}

// ListByUser returns user orders, newest first.
func (u *OrderUseCase) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return u.orders.ListByUser(ctx, userID)
}

// StalePending returns PENDING orders created before cutoff.
func (u *OrderUseCase) StalePending(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	return u.orders.SelectStalePending(ctx, cutoff, limit)
}
