package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/storefront/internal/config"
	"github.com/polkiloo/storefront/internal/domain/gateway"
	"github.com/polkiloo/storefront/internal/domain/repository"
	"github.com/polkiloo/storefront/internal/metrics"
	pkgAuth "github.com/polkiloo/storefront/internal/pkg/auth"
	"github.com/polkiloo/storefront/internal/server/http/handlers"
	"github.com/polkiloo/storefront/internal/usecase"
	"github.com/polkiloo/storefront/internal/worker"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		newStorefrontFacade,
		func(f *StorefrontFacade) handlers.StorefrontFacade { return f },
		newHTTPServer,
		newReconciler,
		newSweeper,
	),
	fx.Invoke(registerLifecycle),
)

type facadeParams struct {
	fx.In

	Tokens     pkgAuth.Strategy
	Orders     *usecase.OrderUseCase
	Checkout   *usecase.CheckoutUseCase
	Inventory  *usecase.InventoryUseCase
	Settlement *usecase.SettlementUseCase
	Reconciler *worker.Reconciler
	Storage    repository.Factory
	Config     *config.Config
}

func newStorefrontFacade(p facadeParams) *StorefrontFacade {
	return NewStorefrontFacade(p.Tokens, p.Orders, p.Checkout, p.Inventory, p.Settlement, p.Reconciler, p.Storage, p.Config.ReservationTTL)
}

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:    p.Config.RunAddress,
		Handler: p.Router,
	}
}

type reconcilerParams struct {
	fx.In

	Gateways   gateway.Registry
	Settlement *usecase.SettlementUseCase
	Config     *config.Config
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

func newReconciler(p reconcilerParams) *worker.Reconciler {
	return worker.NewReconciler(
		p.Gateways,
		p.Settlement,
		p.Config.PollMaxAttempts,
		p.Config.PollInterval,
		p.Metrics,
		p.Logger,
	)
}

type sweeperParams struct {
	fx.In

	Facade  *StorefrontFacade
	Config  *config.Config
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

func newSweeper(p sweeperParams) *worker.StaleOrderSweeper {
	return worker.NewStaleOrderSweeper(
		p.Facade,
		p.Config.SweepInterval,
		p.Config.SweepBatchSize,
		p.Config.WorkerPoolSize,
		p.Metrics,
		p.Logger,
	)
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Sweeper    *worker.StaleOrderSweeper
	Reconciler *worker.Reconciler
	Settlement *usecase.SettlementUseCase
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting storefront", slog.String("addr", p.Server.Addr))
			if p.Config.SweeperEnabled() {
				// The start context ends once OnStart returns.
				p.Sweeper.Start(context.WithoutCancel(ctx))
			} else {
				p.Logger.Info("reservation sweeper disabled")
			}
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Sweeper.Stop()
			p.Reconciler.Stop()

			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			err := p.Server.Shutdown(shutdownCtx)
			p.Settlement.Wait()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			p.Logger.Info("storefront stopped")
			return nil
		},
	})
}
