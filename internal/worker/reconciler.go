package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/polkiloo/storefront/internal/adapter/payment/apiclient"
	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/gateway"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/metrics"
)

// Settler applies terminal payment outcomes and reports the resulting order.
type Settler interface {
	Settle(ctx context.Context, event model.PaymentEvent) (model.ApplyResult, *model.Order, error)
}

// PollResult is delivered once per Poll call. Result and Order are set once a
// terminal outcome went through the settler; Order is nil when the charge
// maps to no known order.
type PollResult struct {
	Outcome *model.PaymentOutcome
	Result  model.ApplyResult
	Order   *model.Order
	Err     error
}

// Reconciler polls providers for the final state of a charge when no webhook
// has arrived yet. Concurrent polls of one reference share a single loop.
type Reconciler struct {
	gateways    gateway.Registry
	settler     Settler
	maxAttempts int
	interval    time.Duration
	metrics     *metrics.Metrics
	logger      *slog.Logger

	group  singleflight.Group
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewReconciler constructs Reconciler.
func NewReconciler(gateways gateway.Registry, settler Settler, maxAttempts int, interval time.Duration, m *metrics.Metrics, logger *slog.Logger) *Reconciler {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	base, cancel := context.WithCancel(context.Background())
	return &Reconciler{
		gateways:    gateways,
		settler:     settler,
		maxAttempts: maxAttempts,
		interval:    interval,
		metrics:     m,
		logger:      logger,
		base:        base,
		cancel:      cancel,
	}
}

// Poll starts or joins the poll loop for reference. The loop keeps running for
// other callers when ctx is cancelled; the returned channel then yields
// ctx.Err(). Attempts exhausted without a terminal outcome yield
// ErrPollTimeout and the order is left untouched.
func (r *Reconciler) Poll(ctx context.Context, method model.PaymentMethod, reference string) <-chan PollResult {
	out := make(chan PollResult, 1)

	r.mu.Lock()
	if r.base.Err() != nil {
		r.mu.Unlock()
		out <- PollResult{Err: r.base.Err()}
		close(out)
		return out
	}
	r.wg.Add(1)
	r.mu.Unlock()

	shared := r.group.DoChan(string(method)+":"+reference, func() (any, error) {
		return r.poll(r.base, method, reference)
	})

	go func() {
		defer r.wg.Done()
		defer close(out)
		select {
		case <-ctx.Done():
			out <- PollResult{Err: ctx.Err()}
		case <-r.base.Done():
			out <- PollResult{Err: r.base.Err()}
		case res := <-shared:
			pr, _ := res.Val.(PollResult)
			pr.Err = res.Err
			out <- pr
		}
	}()
	return out
}

// Stop cancels running loops and waits for pending callers to be answered.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	r.cancel()
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Reconciler) poll(ctx context.Context, method model.PaymentMethod, reference string) (PollResult, error) {
	gw, err := r.gateways.Gateway(method)
	if err != nil {
		return PollResult{}, err
	}
	logger := r.logger.With(slog.String("method", string(method)), slog.String("reference", reference))

	var last *model.PaymentOutcome
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		wait := r.interval

		outcome, err := gw.CaptureOrVerify(ctx, reference)
		var tooMany apiclient.TooManyRequestsError
		switch {
		case err == nil:
			last = outcome
			r.metrics.PollAttempt(string(method), string(outcome.Outcome))
			if outcome.Outcome.Terminal() {
				return r.settle(ctx, method, reference, outcome)
			}
		case errors.As(err, &tooMany):
			r.metrics.PollAttempt(string(method), "rate_limited")
			logger.Warn("provider rate limited", slog.Duration("retry_after", tooMany.RetryAfter))
			if tooMany.RetryAfter > wait {
				wait = tooMany.RetryAfter
			}
		case errors.Is(err, domainErrors.ErrNotFound):
			r.metrics.PollAttempt(string(method), "not_found")
			return PollResult{}, err
		case ctx.Err() != nil:
			return PollResult{}, ctx.Err()
		default:
			r.metrics.PollAttempt(string(method), "error")
			logger.Warn("provider poll failed", slog.Int("attempt", attempt), slog.String("error", err.Error()))
		}

		if attempt == r.maxAttempts {
			break
		}
		if err := sleep(ctx, wait); err != nil {
			return PollResult{}, err
		}
	}

	logger.Info("payment still pending after polling", slog.Int("attempts", r.maxAttempts))
	return PollResult{Outcome: last}, fmt.Errorf("%w after %d attempts", domainErrors.ErrPollTimeout, r.maxAttempts)
}

func (r *Reconciler) settle(ctx context.Context, method model.PaymentMethod, reference string, outcome *model.PaymentOutcome) (PollResult, error) {
	result, order, err := r.settler.Settle(ctx, model.PaymentEvent{
		Method:        method,
		EventType:     "reconcile.poll",
		ChargeCode:    reference,
		OrderID:       outcome.OrderID,
		TransactionID: outcome.TransactionID,
		Outcome:       outcome.Outcome,
	})
	if err != nil {
		return PollResult{Outcome: outcome}, err
	}
	if result == model.ApplyResultOrderNotFound {
		r.logger.Warn("polled charge matches no order",
			slog.String("method", string(method)),
			slog.String("reference", reference),
			slog.String("outcome", string(outcome.Outcome)),
			slog.String("order_id", outcome.OrderID))
	}
	return PollResult{Outcome: outcome, Result: result, Order: order}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
