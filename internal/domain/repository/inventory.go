package repository

import (
	"context"

	"github.com/polkiloo/storefront/internal/domain/model"
)

// InventoryRepository is the stock ledger. Every call is a single atomic update.
type InventoryRepository interface {
	// Reserve decrements stock by quantity only if enough is available.
	Reserve(ctx context.Context, productID string, quantity int) error
	// Release increments stock by quantity.
	Release(ctx context.Context, productID string, quantity int) error
	Stock(ctx context.Context, productID string) (*model.Product, error)
}
