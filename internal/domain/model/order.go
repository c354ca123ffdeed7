package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
)

// OrderStatus represents the settlement state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Terminal reports whether no further transition is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusPaid || s == OrderStatusCancelled
}

// PaymentStatus mirrors the provider side of the order.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Shipping holds the delivery destination captured at checkout.
type Shipping struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// OrderItem is a line of an order. UnitPrice is a snapshot taken at order time.
type OrderItem struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
	Size      string
	Color     string
}

// LineTotal returns unit price multiplied by quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is the aggregate settled by payment events.
type Order struct {
	ID               string
	UserID           int64
	Items            []OrderItem
	Subtotal         decimal.Decimal
	Tax              decimal.Decimal
	Total            decimal.Decimal
	PaymentMethod    PaymentMethod
	PaymentReference string
	TransactionID    *string
	PaymentStatus    PaymentStatus
	Status           OrderStatus
	Shipping         Shipping
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PlaceOrderInput describes an order submitted by a customer.
type PlaceOrderInput struct {
	UserID   int64
	Method   PaymentMethod
	Items    []OrderItem
	Shipping Shipping
	// TransactionID is a payment obtained before the order was placed. It is
	// verified with the provider before the order is marked paid.
	TransactionID string
}

// NewOrderParams carries everything needed to build a fresh order.
type NewOrderParams struct {
	UserID    int64
	Method    PaymentMethod
	Items     []OrderItem
	Shipping  Shipping
	TaxRate   decimal.Decimal
	CreatedAt time.Time
}

// NewOrder validates items and computes subtotal, tax and total once.
// Tax is rounded half away from zero to whole cents.
func NewOrder(p NewOrderParams) (*Order, error) {
	if !p.Method.Valid() {
		return nil, fmt.Errorf("%w: %q", domainErrors.ErrUnsupportedPaymentMethod, p.Method)
	}
	if len(p.Items) == 0 {
		return nil, domainErrors.ErrEmptyOrder
	}
	if p.TaxRate.IsNegative() {
		return nil, fmt.Errorf("%w: negative tax rate", domainErrors.ErrInvalidOrder)
	}

	items := make([]OrderItem, len(p.Items))
	subtotal := decimal.Zero
	for i, item := range p.Items {
		switch {
		case item.ProductID == "":
			return nil, fmt.Errorf("%w: item %d has no product", domainErrors.ErrInvalidOrder, i)
		case item.Quantity <= 0:
			return nil, fmt.Errorf("%w: item %d", domainErrors.ErrInvalidQuantity, i)
		case item.UnitPrice.IsNegative(), !item.UnitPrice.Equal(item.UnitPrice.Round(2)):
			return nil, fmt.Errorf("%w: item %d has invalid price %s", domainErrors.ErrInvalidOrder, i, item.UnitPrice)
		}
		items[i] = item
		subtotal = subtotal.Add(item.LineTotal())
	}

	tax := subtotal.Mul(p.TaxRate).Round(2)
	createdAt := p.CreatedAt.UTC()

	return &Order{
		ID:            uuid.NewString(),
		UserID:        p.UserID,
		Items:         items,
		Subtotal:      subtotal,
		Tax:           tax,
		Total:         subtotal.Add(tax),
		PaymentMethod: p.Method,
		PaymentStatus: PaymentStatusPending,
		Status:        OrderStatusPending,
		Shipping:      p.Shipping,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}, nil
}

// Settle applies a terminal payment outcome. Terminal orders are left untouched
// and ErrOrderNotPending is returned so callers can treat the event as a duplicate.
func (o *Order) Settle(outcome Outcome, transactionID string) error {
	if o.Status.Terminal() {
		return domainErrors.ErrOrderNotPending
	}

	switch outcome {
	case OutcomeConfirmed:
		o.Status = OrderStatusPaid
		o.PaymentStatus = PaymentStatusCompleted
		if transactionID != "" {
			tx := transactionID
			o.TransactionID = &tx
		}
	case OutcomeFailed:
		o.Status = OrderStatusCancelled
		o.PaymentStatus = PaymentStatusFailed
	default:
		return fmt.Errorf("%w: %s", domainErrors.ErrInvalidTransition, outcome)
	}
	return nil
}

// Clone returns a deep copy safe to hand out from in-memory stores.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	cp := *o
	cp.Items = append([]OrderItem(nil), o.Items...)
	if o.TransactionID != nil {
		tx := *o.TransactionID
		cp.TransactionID = &tx
	}
	return &cp
}
