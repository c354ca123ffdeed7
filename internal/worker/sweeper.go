package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/metrics"
)

// SweepFacade exposes the subset of application functionality required by the sweeper.
type SweepFacade interface {
	StalePendingOrders(ctx context.Context, limit int) ([]model.Order, error)
	ExpireOrder(ctx context.Context, order *model.Order) (model.ApplyResult, error)
}

// StaleOrderSweeper settles PENDING orders whose reservation outlived its TTL.
type StaleOrderSweeper struct {
	facade    SweepFacade
	interval  time.Duration
	batchSize int
	workers   int
	metrics   *metrics.Metrics
	logger    *slog.Logger

	jobs   chan model.Order
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewStaleOrderSweeper constructs the sweeper worker pool.
func NewStaleOrderSweeper(facade SweepFacade, interval time.Duration, batchSize, workers int, m *metrics.Metrics, logger *slog.Logger) *StaleOrderSweeper {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &StaleOrderSweeper{
		facade:    facade,
		interval:  interval,
		batchSize: batchSize,
		workers:   workers,
		metrics:   m,
		logger:    logger,
	}
}

// Start launches background sweeping. Calling Start on a running sweeper is a no-op.
func (s *StaleOrderSweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.jobs = make(chan model.Order, s.batchSize*s.workers)

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(runCtx, s.jobs)
	}

	s.wg.Add(1)
	go s.dispatch(runCtx, s.jobs)
}

// Stop waits for all workers to finish.
func (s *StaleOrderSweeper) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *StaleOrderSweeper) dispatch(ctx context.Context, jobs chan<- model.Order) {
	defer s.wg.Done()
	defer close(jobs)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fetchAndDispatch(ctx, jobs)
		}
	}
}

func (s *StaleOrderSweeper) fetchAndDispatch(ctx context.Context, jobs chan<- model.Order) {
	orders, err := s.facade.StalePendingOrders(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("fetch stale orders failed", slog.String("error", err.Error()))
		return
	}
	for _, order := range orders {
		select {
		case <-ctx.Done():
			return
		case jobs <- order:
		}
	}
}

func (s *StaleOrderSweeper) worker(ctx context.Context, jobs <-chan model.Order) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case order, ok := <-jobs:
			if !ok {
				return
			}
			s.handleOrder(ctx, &order)
		}
	}
}

func (s *StaleOrderSweeper) handleOrder(ctx context.Context, order *model.Order) {
	result, err := s.facade.ExpireOrder(ctx, order)
	if err != nil {
		s.metrics.SweepResult("error")
		s.logger.Error("expire order failed", slog.String("order_id", order.ID), slog.String("error", err.Error()))
		return
	}
	s.metrics.SweepResult(string(result))
	s.logger.Info("stale order handled", slog.String("order_id", order.ID), slog.String("result", string(result)))
}
