package usecase

import (
	"context"
	"errors"
	"log/slog"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/domain/repository"
	"github.com/polkiloo/storefront/internal/metrics"
)

// InventoryUseCase reserves and releases stock for order items.
type InventoryUseCase struct {
	inventory repository.InventoryRepository
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewInventoryUseCase constructs InventoryUseCase.
func NewInventoryUseCase(inventory repository.InventoryRepository, m *metrics.Metrics, logger *slog.Logger) *InventoryUseCase {
	return &InventoryUseCase{inventory: inventory, metrics: m, logger: logger}
}

// ReserveItems reserves stock for every item in order. Items live in independent
// rows, so when one reservation fails the ones already taken are released
// before the error is returned. This is compensation, not a transaction: a
// reader may briefly observe the partial reservation.
func (u *InventoryUseCase) ReserveItems(ctx context.Context, items []model.OrderItem) error {
	reserved := make([]model.OrderItem, 0, len(items))
	for _, item := range items {
		if err := u.inventory.Reserve(ctx, item.ProductID, item.Quantity); err != nil {
			u.ReleaseItems(context.WithoutCancel(ctx), reserved)
			if errors.Is(err, domainErrors.ErrInsufficientStock) {
				u.metrics.ReservationResult("insufficient_stock")
			} else {
				u.metrics.ReservationResult("error")
			}
			return err
		}
		reserved = append(reserved, item)
	}
	u.metrics.ReservationResult("reserved")
	return nil
}

// ReleaseItems returns stock for items. Failures are logged and skipped.
func (u *InventoryUseCase) ReleaseItems(ctx context.Context, items []model.OrderItem) {
	for _, item := range items {
		if err := u.inventory.Release(ctx, item.ProductID, item.Quantity); err != nil {
			u.logger.Error("release stock failed",
				slog.String("product_id", item.ProductID),
				slog.Int("quantity", item.Quantity),
				slog.String("error", err.Error()))
		}
	}
}

// Stock returns the current stock level of a product.
func (u *InventoryUseCase) Stock(ctx context.Context, productID string) (*model.Product, error) {
	return u.inventory.Stock(ctx, productID)
}
