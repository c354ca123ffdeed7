package notification

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/storefront/internal/config"
	"github.com/polkiloo/storefront/internal/usecase"
)

// Module provides the confirmation notifier.
var Module = fx.Options(
	fx.Provide(newNotifier),
	fx.Invoke(registerLifecycle),
)

type closingNotifier interface {
	usecase.Notifier
	Close() error
}

type notifierParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

type notifierResult struct {
	fx.Out

	Notifier usecase.Notifier
	Closer   closingNotifier
}

func newNotifier(p notifierParams) notifierResult {
	var n closingNotifier
	if len(p.Config.KafkaBrokers) == 0 {
		p.Logger.Warn("KAFKA_BROKERS is empty, order confirmations are only logged")
		n = NewLogNotifier(p.Logger)
	} else {
		n = NewKafkaNotifier(p.Config.KafkaBrokers, p.Config.NotifyTopic, p.Logger)
	}
	return notifierResult{Notifier: n, Closer: n}
}

func registerLifecycle(lc fx.Lifecycle, n closingNotifier) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return n.Close()
		},
	})
}
