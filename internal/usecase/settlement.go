package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/gateway"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/domain/repository"
	"github.com/polkiloo/storefront/internal/metrics"
)

// Notifier receives best-effort confirmation requests for paid orders.
type Notifier interface {
	OrderConfirmed(ctx context.Context, order *model.Order) error
}

// SettlementUseCase applies payment outcomes to orders. Webhooks, client polls
// and the expiry sweeper all go through Apply.
type SettlementUseCase struct {
	orders        repository.OrderRepository
	gateways      gateway.Registry
	notifier      Notifier
	notifyTimeout time.Duration
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	logger        *slog.Logger

	notifications sync.WaitGroup
}

// NewSettlementUseCase constructs SettlementUseCase.
func NewSettlementUseCase(
	orders repository.OrderRepository,
	gateways gateway.Registry,
	notifier Notifier,
	notifyTimeout time.Duration,
	m *metrics.Metrics,
	tracer trace.Tracer,
	logger *slog.Logger,
) *SettlementUseCase {
	if notifyTimeout <= 0 {
		notifyTimeout = 5 * time.Second
	}
	return &SettlementUseCase{
		orders:        orders,
		gateways:      gateways,
		notifier:      notifier,
		notifyTimeout: notifyTimeout,
		metrics:       m,
		tracer:        tracer,
		logger:        logger,
	}
}

// HandleWebhook verifies, parses and applies a provider callback. The body
// must be exactly the bytes received.
func (u *SettlementUseCase) HandleWebhook(ctx context.Context, method model.PaymentMethod, header http.Header, body []byte) (model.ApplyResult, error) {
	gw, err := u.gateways.Gateway(method)
	if err != nil {
		return "", err
	}
	if !gw.VerifyWebhookSignature(header, body) {
		u.logger.Warn("webhook signature rejected", slog.String("method", string(method)))
		u.metrics.WebhookReceived(string(method), "invalid_signature")
		return "", domainErrors.ErrInvalidSignature
	}

	event, err := gw.ParseWebhook(body)
	if err != nil {
		u.logger.Warn("webhook body rejected", slog.String("method", string(method)), slog.String("error", err.Error()))
		u.metrics.WebhookReceived(string(method), "malformed")
		return "", err
	}

	result, err := u.Apply(ctx, *event)
	if err != nil {
		u.metrics.WebhookReceived(string(method), "error")
		return "", err
	}
	u.metrics.WebhookReceived(string(method), string(result))
	return result, nil
}

// Apply transitions the order referenced by event. Non-terminal outcomes and
// events for unknown or already settled orders are acknowledged without
// changes. Only storage failures are returned as errors.
func (u *SettlementUseCase) Apply(ctx context.Context, event model.PaymentEvent) (model.ApplyResult, error) {
	result, _, err := u.Settle(ctx, event)
	return result, err
}

// Settle is Apply that also returns the stored order as the event left it.
// The order is nil for order_not_found and for non-terminal outcomes.
func (u *SettlementUseCase) Settle(ctx context.Context, event model.PaymentEvent) (model.ApplyResult, *model.Order, error) {
	ctx, span := u.tracer.Start(ctx, "settlement.apply", trace.WithAttributes(
		attribute.String("order.id", event.OrderID),
		attribute.String("payment.method", string(event.Method)),
		attribute.String("payment.event", event.EventType),
		attribute.String("payment.outcome", string(event.Outcome)),
	))
	defer span.End()

	logger := u.logger.With(
		slog.String("order_id", event.OrderID),
		slog.String("event_type", event.EventType),
		slog.String("idempotency_key", event.IdempotencyKey()),
	)

	result, order, err := u.apply(ctx, event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "settle order")
		logger.Error("apply payment event failed", slog.String("error", err.Error()))
		u.metrics.SettlementApplied(string(event.Outcome), "error")
		return "", nil, err
	}
	span.SetAttributes(attribute.String("settlement.result", string(result)))
	u.metrics.SettlementApplied(string(event.Outcome), string(result))

	switch result {
	case model.ApplyResultIgnored:
		if order != nil {
			logger.Warn("payment event method does not match order",
				slog.String("event_method", string(event.Method)),
				slog.String("order_method", string(order.PaymentMethod)))
			break
		}
		logger.Info("payment event ignored", slog.String("outcome", string(event.Outcome)))
	case model.ApplyResultOrderNotFound:
		logger.Warn("payment event for unknown order")
	case model.ApplyResultDuplicate:
		logger.Info("duplicate payment event", slog.String("status", string(order.Status)))
	case model.ApplyResultApplied:
		logger.Info("order settled", slog.String("status", string(order.Status)))
		if order.Status == model.OrderStatusPaid {
			u.notify(ctx, order)
		}
	}
	return result, order, nil
}

// apply returns ignored together with the order when the event came from
// another provider than the one the order was placed with.
func (u *SettlementUseCase) apply(ctx context.Context, event model.PaymentEvent) (model.ApplyResult, *model.Order, error) {
	if !event.Outcome.Terminal() {
		return model.ApplyResultIgnored, nil, nil
	}
	if event.OrderID == "" {
		return model.ApplyResultOrderNotFound, nil, nil
	}

	current, err := u.orders.GetByID(ctx, event.OrderID)
	switch {
	case errors.Is(err, domainErrors.ErrNotFound):
		return model.ApplyResultOrderNotFound, nil, nil
	case err != nil:
		return "", nil, err
	}
	if event.Method != current.PaymentMethod {
		return model.ApplyResultIgnored, current, nil
	}

	order, err := u.orders.Settle(ctx, event.OrderID, event.Outcome, event.TransactionID)
	switch {
	case errors.Is(err, domainErrors.ErrNotFound):
		return model.ApplyResultOrderNotFound, nil, nil
	case errors.Is(err, domainErrors.ErrOrderNotPending) && order != nil:
		return model.ApplyResultDuplicate, order, nil
	case err != nil:
		return "", nil, err
	}
	return model.ApplyResultApplied, order, nil
}

// Expire settles an order whose reservation outlived its TTL. The provider is
// asked once first so a paid order without a delivered webhook still becomes
// PAID. A charge still open at the provider is cancelled there before the
// order is; when the provider refuses or errors the order is left PENDING
// for the next run.
func (u *SettlementUseCase) Expire(ctx context.Context, order *model.Order) (model.ApplyResult, error) {
	if order.PaymentReference != "" {
		gw, err := u.gateways.Gateway(order.PaymentMethod)
		if err != nil {
			return "", err
		}
		outcome, err := gw.CaptureOrVerify(ctx, order.PaymentReference)
		switch {
		case err == nil && outcome.Outcome.Terminal():
			return u.Apply(ctx, model.PaymentEvent{
				Method:        order.PaymentMethod,
				EventType:     "reconcile.expiry",
				ChargeCode:    order.PaymentReference,
				OrderID:       order.ID,
				TransactionID: outcome.TransactionID,
				Outcome:       outcome.Outcome,
			})
		case err != nil && !errors.Is(err, domainErrors.ErrNotFound):
			return "", err
		case err == nil:
			if err := gw.Cancel(ctx, order.PaymentReference); err != nil && !errors.Is(err, domainErrors.ErrNotFound) {
				u.logger.Warn("provider refused to cancel expired payment",
					slog.String("order_id", order.ID),
					slog.String("reference", order.PaymentReference),
					slog.String("error", err.Error()))
				return "", fmt.Errorf("cancel provider payment %s: %w", order.PaymentReference, err)
			}
		}
	}

	return u.Apply(ctx, model.PaymentEvent{
		Method:     order.PaymentMethod,
		EventType:  "reservation.expired",
		ChargeCode: order.PaymentReference,
		OrderID:    order.ID,
		Outcome:    model.OutcomeFailed,
	})
}

func (u *SettlementUseCase) notify(ctx context.Context, order *model.Order) {
	if u.notifier == nil {
		return
	}
	u.notifications.Add(1)
	go func() {
		defer u.notifications.Done()

		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.notifyTimeout)
		defer cancel()
		if err := u.notifier.OrderConfirmed(notifyCtx, order); err != nil {
			u.logger.Error("order confirmation dispatch failed",
				slog.String("order_id", order.ID),
				slog.String("error", err.Error()))
			u.metrics.NotificationResult("failed")
			return
		}
		u.metrics.NotificationResult("sent")
	}()
}

// Wait blocks until in-flight confirmation requests finish.
func (u *SettlementUseCase) Wait() {
	u.notifications.Wait()
}
