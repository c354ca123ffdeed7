package usecase

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/polkiloo/storefront/internal/config"
	"github.com/polkiloo/storefront/internal/domain/gateway"
	"github.com/polkiloo/storefront/internal/domain/repository"
	"github.com/polkiloo/storefront/internal/metrics"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	NewInventoryUseCase,
	NewCheckoutUseCase,
	newOrderUseCase,
	newSettlementUseCase,
)

type orderParams struct {
	fx.In

	Orders     repository.OrderRepository
	Inventory  *InventoryUseCase
	Gateways   gateway.Registry
	Settlement *SettlementUseCase
	Config     *config.Config
	Tracer     trace.Tracer
	Logger     *slog.Logger
}

func newOrderUseCase(p orderParams) *OrderUseCase {
	return NewOrderUseCase(p.Orders, p.Inventory, p.Gateways, p.Settlement, p.Config.TaxRate, p.Tracer, p.Logger)
}

type settlementParams struct {
	fx.In

	Orders   repository.OrderRepository
	Gateways gateway.Registry
	Notifier Notifier `optional:"true"`
	Config   *config.Config
	Metrics  *metrics.Metrics
	Tracer   trace.Tracer
	Logger   *slog.Logger
}

func newSettlementUseCase(p settlementParams) *SettlementUseCase {
	return NewSettlementUseCase(p.Orders, p.Gateways, p.Notifier, p.Config.NotifyTimeout, p.Metrics, p.Tracer, p.Logger)
}
