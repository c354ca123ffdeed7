package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItemRequest is one line of an order submission.
type OrderItemRequest struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
}

// ShippingRequest carries the delivery address.
type ShippingRequest struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// CreateOrderRequest describes POST /api/orders.
type CreateOrderRequest struct {
	Items         []OrderItemRequest `json:"items" binding:"required"`
	PaymentMethod string             `json:"paymentMethod" binding:"required"`
	Shipping      ShippingRequest    `json:"shipping"`
	TransactionID string             `json:"transactionId,omitempty"`
}

// OrderItemResponse mirrors a stored order line.
type OrderItemResponse struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

// OrderResponse is the public view of an order.
type OrderResponse struct {
	ID               string              `json:"id"`
	Status           string              `json:"status"`
	PaymentStatus    string              `json:"paymentStatus"`
	PaymentMethod    string              `json:"paymentMethod"`
	PaymentReference string              `json:"paymentReference,omitempty"`
	TransactionID    *string             `json:"transactionId,omitempty"`
	Items            []OrderItemResponse `json:"items"`
	Subtotal         string              `json:"subtotal"`
	Tax              string              `json:"tax"`
	Total            string              `json:"total"`
	Shipping         ShippingResponse    `json:"shipping"`
	CreatedAt        time.Time           `json:"createdAt"`
}

// ShippingResponse echoes the delivery address.
type ShippingResponse struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}
