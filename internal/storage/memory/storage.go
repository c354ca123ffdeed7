// Package memory provides a process local storage backend used when no
// database is configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/domain/repository"
)

// Storage keeps products and orders behind a single mutex so that settling an
// order and releasing its stock happen as one step.
type Storage struct {
	mu       sync.Mutex
	products map[string]int
	orders   map[string]*model.Order
	now      func() time.Time
}

type inventoryRepository struct {
	storage *Storage
}

type orderRepository struct {
	storage *Storage
}

// New creates an empty storage with the given initial stock levels.
func New(seed map[string]int) *Storage {
	s := &Storage{
		products: make(map[string]int, len(seed)),
		orders:   make(map[string]*model.Order),
		now:      time.Now,
	}
	for id, stock := range seed {
		s.products[id] = stock
	}
	return s
}

func (s *Storage) Inventory() repository.InventoryRepository {
	return &inventoryRepository{storage: s}
}

func (s *Storage) Orders() repository.OrderRepository {
	return &orderRepository{storage: s}
}

// HealthCheck always succeeds.
func (s *Storage) HealthCheck(context.Context) error { return nil }

// Close is a no-op.
func (s *Storage) Close() {}

// SetStock overrides the stock level of a product.
func (s *Storage) SetStock(productID string, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[productID] = stock
}

func (r *inventoryRepository) Reserve(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return domainErrors.ErrInvalidQuantity
	}
	s := r.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	stock, ok := s.products[productID]
	if !ok || stock < quantity {
		return fmt.Errorf("product %s: %w", productID, domainErrors.ErrInsufficientStock)
	}
	s.products[productID] = stock - quantity
	return nil
}

func (r *inventoryRepository) Release(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return domainErrors.ErrInvalidQuantity
	}
	s := r.storage
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releaseLocked(productID, quantity)
}

func (r *inventoryRepository) Stock(ctx context.Context, productID string) (*model.Product, error) {
	s := r.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	stock, ok := s.products[productID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return &model.Product{ID: productID, Stock: stock}, nil
}

func (s *Storage) releaseLocked(productID string, quantity int) error {
	stock, ok := s.products[productID]
	if !ok {
		return fmt.Errorf("product %s: %w", productID, domainErrors.ErrNotFound)
	}
	s.products[productID] = stock + quantity
	return nil
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	s := r.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.ID]; exists {
		return fmt.Errorf("order %s already stored", order.ID)
	}
	s.orders[order.ID] = order.Clone()
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	s := r.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	s := r.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []model.Order
	for _, order := range s.orders {
		if order.UserID == userID {
			result = append(result, *order.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *orderRepository) AttachPaymentReference(ctx context.Context, orderID, reference string) error {
	s := r.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if order.Status.Terminal() {
		return domainErrors.ErrOrderNotPending
	}
	order.PaymentReference = reference
	order.UpdatedAt = s.now().UTC()
	return nil
}

func (r *orderRepository) Settle(ctx context.Context, orderID string, outcome model.Outcome, transactionID string) (*model.Order, error) {
	s := r.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}

	updated := order.Clone()
	if err := updated.Settle(outcome, transactionID); err != nil {
		return order.Clone(), err
	}
	updated.UpdatedAt = s.now().UTC()

	if outcome == model.OutcomeFailed {
		for _, item := range updated.Items {
			// unknown products have nothing to restore
			_ = s.releaseLocked(item.ProductID, item.Quantity)
		}
	}
	s.orders[orderID] = updated
	return updated.Clone(), nil
}

func (r *orderRepository) SelectStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]model.Order, error) {
	s := r.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []model.Order
	for _, order := range s.orders {
		if order.Status == model.OrderStatusPending && order.CreatedAt.Before(createdBefore) {
			result = append(result, *order.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
