package test

import (
	"context"
	"time"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
)

// InventoryRepositoryStub allows injecting stock failures.
type InventoryRepositoryStub struct {
	ReserveFn func(context.Context, string, int) error
	ReleaseFn func(context.Context, string, int) error
	StockFn   func(context.Context, string) (*model.Product, error)
	Released  []model.OrderItem
}

// Reserve delegates to ReserveFn.
func (s *InventoryRepositoryStub) Reserve(ctx context.Context, productID string, quantity int) error {
	if s.ReserveFn != nil {
		return s.ReserveFn(ctx, productID, quantity)
	}
	return nil
}

// Release records the release and delegates to ReleaseFn.
func (s *InventoryRepositoryStub) Release(ctx context.Context, productID string, quantity int) error {
	s.Released = append(s.Released, model.OrderItem{ProductID: productID, Quantity: quantity})
	if s.ReleaseFn != nil {
		return s.ReleaseFn(ctx, productID, quantity)
	}
	return nil
}

// Stock delegates to StockFn or reports not found.
func (s *InventoryRepositoryStub) Stock(ctx context.Context, productID string) (*model.Product, error) {
	if s.StockFn != nil {
		return s.StockFn(ctx, productID)
	}
	return nil, domainErrors.ErrNotFound
}

// OrderRepositoryStub allows injecting order storage behaviour.
type OrderRepositoryStub struct {
	CreateFn func(context.Context, *model.Order) error
	GetFn    func(context.Context, string) (*model.Order, error)
	ListFn   func(context.Context, int64) ([]model.Order, error)
	AttachFn func(context.Context, string, string) error
	SettleFn func(context.Context, string, model.Outcome, string) (*model.Order, error)
	StaleFn  func(context.Context, time.Time, int) ([]model.Order, error)
}

// Create delegates to CreateFn.
func (s *OrderRepositoryStub) Create(ctx context.Context, order *model.Order) error {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, order)
	}
	return nil
}

// GetByID delegates to GetFn or reports not found.
func (s *OrderRepositoryStub) GetByID(ctx context.Context, id string) (*model.Order, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, id)
	}
	return nil, domainErrors.ErrNotFound
}

// ListByUser delegates to ListFn.
func (s *OrderRepositoryStub) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	if s.ListFn != nil {
		return s.ListFn(ctx, userID)
	}
	return nil, nil
}

// AttachPaymentReference delegates to AttachFn.
func (s *OrderRepositoryStub) AttachPaymentReference(ctx context.Context, orderID, reference string) error {
	if s.AttachFn != nil {
		return s.AttachFn(ctx, orderID, reference)
	}
	return nil
}

// Settle delegates to SettleFn or reports not found.
func (s *OrderRepositoryStub) Settle(ctx context.Context, orderID string, outcome model.Outcome, transactionID string) (*model.Order, error) {
	if s.SettleFn != nil {
		return s.SettleFn(ctx, orderID, outcome, transactionID)
	}
	return nil, domainErrors.ErrNotFound
}

// SelectStalePending delegates to StaleFn.
func (s *OrderRepositoryStub) SelectStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]model.Order, error) {
	if s.StaleFn != nil {
		return s.StaleFn(ctx, createdBefore, limit)
	}
	return nil, nil
}
