package repository

import "context"

// Factory abstracts creation of repositories from a storage backend.
type Factory interface {
	Inventory() InventoryRepository
	Orders() OrderRepository
	HealthCheck(ctx context.Context) error
	Close()
}
