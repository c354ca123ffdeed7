package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/fx"
)

// stopTimeout bounds draining of in-flight captures and notifications.
const stopTimeout = 30 * time.Second

type application interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Done() <-chan os.Signal
}

var _ application = (*fx.App)(nil)

// run starts app, blocks until ctx ends or the app asks to shut down, and
// returns the process exit code.
func run(ctx context.Context, app application) int {
	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start storefront: %v\n", err)
		return 1
	}

	select {
	case <-ctx.Done():
	case <-app.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to stop storefront: %v\n", err)
		return 1
	}
	return 0
}
