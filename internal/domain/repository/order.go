package repository

import (
	"context"
	"time"

	"github.com/polkiloo/storefront/internal/domain/model"
)

// OrderRepository persists orders and owns their state machine transitions.
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id string) (*model.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Order, error)
	AttachPaymentReference(ctx context.Context, orderID, reference string) error
	// Settle locks the order, applies the outcome and, for a failure, releases
	// the stock of every item in the same atomic unit. A terminal order yields
	// ErrOrderNotPending together with its current state.
	Settle(ctx context.Context, orderID string, outcome model.Outcome, transactionID string) (*model.Order, error)
	SelectStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]model.Order, error)
}
