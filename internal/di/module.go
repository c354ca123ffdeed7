package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/storefront/internal/adapter/notification"
	"github.com/polkiloo/storefront/internal/adapter/payment"
	"github.com/polkiloo/storefront/internal/app"
	"github.com/polkiloo/storefront/internal/config"
	"github.com/polkiloo/storefront/internal/logger"
	"github.com/polkiloo/storefront/internal/metrics"
	"github.com/polkiloo/storefront/internal/pkg/auth"
	"github.com/polkiloo/storefront/internal/server/http/router"
	"github.com/polkiloo/storefront/internal/storage"
	"github.com/polkiloo/storefront/internal/tracing"
	"github.com/polkiloo/storefront/internal/usecase"
)

// Module assembles the service graph. Extra options are appended last so
// callers can replace any provided value.
func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		metrics.Module,
		tracing.Module,
		auth.Module,
		storage.Module,
		payment.Module,
		// registered before app so its OnStop runs after settlement drains
		notification.Module,
		usecase.Module,
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
