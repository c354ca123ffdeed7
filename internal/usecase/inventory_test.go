package usecase

import (
	"context"
	"errors"
	"testing"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/test"
)

func TestReserveItemsCompensatesPartialFailure(t *testing.T) {
	f := newFixture(t, map[string]int{"a": 5, "b": 1})

	err := f.inventory.ReserveItems(context.Background(), []model.OrderItem{
		line("a", 2, "1.00"),
		line("b", 3, "1.00"),
	})
	if !errors.Is(err, domainErrors.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if got := f.stock(t, "a"); got != 5 {
		t.Fatalf("expected reserved stock of a to be released, got %d", got)
	}
	if got := f.stock(t, "b"); got != 1 {
		t.Fatalf("expected stock of b untouched, got %d", got)
	}
}

func TestReserveItemsReleasesOnlyReservedItems(t *testing.T) {
	boom := errors.New("storage down")
	repo := &test.InventoryRepositoryStub{
		ReserveFn: func(ctx context.Context, productID string, quantity int) error {
			if productID == "c" {
				return boom
			}
			return nil
		},
		ReleaseFn: func(context.Context, string, int) error { return errors.New("release failed") },
	}
	inventory := NewInventoryUseCase(repo, nil, discardLogger())

	err := inventory.ReserveItems(context.Background(), []model.OrderItem{
		line("a", 1, "1.00"),
		line("b", 2, "1.00"),
		line("c", 3, "1.00"),
		line("d", 4, "1.00"),
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected reserve error, got %v", err)
	}
	if len(repo.Released) != 2 || repo.Released[0].ProductID != "a" || repo.Released[1].ProductID != "b" {
		t.Fatalf("expected release of a and b only, got %+v", repo.Released)
	}
}

func TestReserveItemsSuccess(t *testing.T) {
	f := newFixture(t, map[string]int{"a": 5, "b": 5})

	if err := f.inventory.ReserveItems(context.Background(), []model.OrderItem{line("a", 2, "1"), line("b", 5, "1")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.stock(t, "a") != 3 || f.stock(t, "b") != 0 {
		t.Fatalf("unexpected stock a=%d b=%d", f.stock(t, "a"), f.stock(t, "b"))
	}
}
