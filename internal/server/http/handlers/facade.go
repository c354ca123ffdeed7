package handlers

import (
	"context"
	"net/http"

	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/server/http/middleware"
)

// OrderFacade encapsulates order operations exposed via HTTP.
type OrderFacade interface {
	PlaceOrder(ctx context.Context, in model.PlaceOrderInput) (*model.Order, error)
	Order(ctx context.Context, userID int64, orderID string) (*model.Order, error)
	Orders(ctx context.Context, userID int64) ([]model.Order, error)
}

// PaymentFacade covers intent creation, capture polling and provider webhooks.
type PaymentFacade interface {
	CreatePaymentIntent(ctx context.Context, in model.IntentInput) (*model.PaymentIntent, error)
	Capture(ctx context.Context, method model.PaymentMethod, reference string) (*model.CaptureResult, error)
	HandleWebhook(ctx context.Context, method model.PaymentMethod, header http.Header, body []byte) (model.ApplyResult, error)
}

// ProductFacade exposes the stock face of products.
type ProductFacade interface {
	ProductStock(ctx context.Context, productID string) (*model.Product, error)
}

type HealthFacade interface {
	HealthCheck(ctx context.Context) error
}

// StorefrontFacade aggregates the full set of operations used across handlers.
type StorefrontFacade interface {
	middleware.TokenParser
	OrderFacade
	PaymentFacade
	ProductFacade
	HealthFacade
}
