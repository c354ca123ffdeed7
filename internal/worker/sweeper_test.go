package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/metrics"
	testhelpers "github.com/polkiloo/storefront/internal/test"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.After(timeout)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for condition")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestNewStaleOrderSweeperDefaults(t *testing.T) {
	sweeper := NewStaleOrderSweeper(&testhelpers.SweepFacadeStub{}, time.Second, 0, 0, nil, discardLogger())
	if sweeper.batchSize != 1 {
		t.Fatalf("expected batch size default to 1, got %d", sweeper.batchSize)
	}
	if sweeper.workers != 1 {
		t.Fatalf("expected workers default to 1, got %d", sweeper.workers)
	}
}

func TestStaleOrderSweeperExpiresOrders(t *testing.T) {
	facade := &testhelpers.SweepFacadeStub{Batches: [][]model.Order{{{ID: "a"}, {ID: "b"}}, {{ID: "c"}}}}
	m := metrics.New()
	sweeper := NewStaleOrderSweeper(facade, 5*time.Millisecond, 2, 2, m, discardLogger())

	sweeper.Start(context.Background())
	waitFor(t, time.Second, func() bool { return len(facade.ExpiredIDs()) == 3 })
	sweeper.Stop()

	seen := map[string]bool{}
	for _, id := range facade.ExpiredIDs() {
		seen[id] = true
	}
	if !seen["a"] || !seen["b"] || !seen["c"] {
		t.Fatalf("expected all orders expired, got %v", facade.ExpiredIDs())
	}

	const want = `
		# HELP storefront_expired_reservations_total Stale pending orders handled by the sweeper by result.
		# TYPE storefront_expired_reservations_total counter
		storefront_expired_reservations_total{result="applied"} 3
	`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(want), "storefront_expired_reservations_total"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}

func TestStaleOrderSweeperSurvivesErrors(t *testing.T) {
	var fetches int32
	facade := &testhelpers.SweepFacadeStub{
		StaleFn: func(context.Context, int) ([]model.Order, error) {
			if atomic.AddInt32(&fetches, 1) == 1 {
				return nil, errors.New("db down")
			}
			return []model.Order{{ID: "x"}}, nil
		},
		ExpireFn: func(context.Context, *model.Order) (model.ApplyResult, error) {
			return "", errors.New("provider down")
		},
	}
	sweeper := NewStaleOrderSweeper(facade, 5*time.Millisecond, 1, 1, nil, discardLogger())

	sweeper.Start(context.Background())
	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&fetches) >= 3 })
	sweeper.Stop()
}

func TestStaleOrderSweeperStopIsIdempotent(t *testing.T) {
	sweeper := NewStaleOrderSweeper(&testhelpers.SweepFacadeStub{}, time.Millisecond, 1, 1, nil, discardLogger())
	sweeper.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	sweeper.Start(ctx)
	sweeper.Start(ctx)
	cancel()
	sweeper.Stop()
	sweeper.Stop()
}
