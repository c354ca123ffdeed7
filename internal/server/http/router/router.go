package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/polkiloo/storefront/internal/metrics"
	"github.com/polkiloo/storefront/internal/server/http/handlers"
	"github.com/polkiloo/storefront/internal/server/http/middleware"
)

const (
	maxRequestBody = 1 << 20
	maxWebhookBody = 512 << 10
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.StorefrontFacade, m *metrics.Metrics, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.Metrics(m))

	orderHandler := handlers.NewOrderHandler(facade)
	paymentHandler := handlers.NewPaymentHandler(facade)
	webhookHandler := handlers.NewWebhookHandler(facade)
	productHandler := handlers.NewProductHandler(facade)

	engine.GET("/healthz", handlers.Health(facade))
	engine.GET("/metrics", gin.WrapH(m.Handler()))

	// Webhooks stay outside the compressed group: the signature covers the
	// body exactly as the provider sent it.
	engine.POST("/api/webhooks/:method", middleware.LimitBody(maxWebhookBody), webhookHandler.Receive)

	api := engine.Group("/api")
	api.Use(middleware.DecompressRequest(maxRequestBody))
	api.Use(middleware.LimitBody(maxRequestBody))
	api.Use(gzip.Gzip(gzip.DefaultCompression))

	api.GET("/products/:id/stock", productHandler.Stock)

	customer := api.Group("")
	customer.Use(middleware.AuthRequired(facade))
	customer.POST("/orders", orderHandler.Create)
	customer.GET("/orders", orderHandler.List)
	customer.GET("/orders/:id", orderHandler.Get)
	customer.POST("/payments/intent", paymentHandler.Intent)
	customer.POST("/payments/capture", paymentHandler.Capture)

	return engine
}
