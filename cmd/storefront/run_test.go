package main

import (
	"context"
	"errors"
	"os"
	"testing"
)

type appStub struct {
	startErr error
	stopErr  error
	done     chan os.Signal
	stopped  bool
}

func (a *appStub) Start(context.Context) error { return a.startErr }

func (a *appStub) Stop(context.Context) error {
	a.stopped = true
	return a.stopErr
}

func (a *appStub) Done() <-chan os.Signal { return a.done }

func TestRunExitCodes(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name        string
		app         *appStub
		code        int
		wantStopped bool
	}{
		{name: "start failure", app: &appStub{startErr: errors.New("bind")}, code: 1},
		{name: "clean stop", app: &appStub{}, code: 0, wantStopped: true},
		{name: "stop failure", app: &appStub{stopErr: errors.New("timeout")}, code: 1, wantStopped: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(cancelled, tt.app); got != tt.code {
				t.Fatalf("expected exit code %d, got %d", tt.code, got)
			}
			if tt.app.stopped != tt.wantStopped {
				t.Fatalf("expected stopped=%v", tt.wantStopped)
			}
		})
	}
}

func TestRunStopsWhenAppIsDone(t *testing.T) {
	app := &appStub{done: make(chan os.Signal, 1)}
	app.done <- os.Interrupt
	if got := run(context.Background(), app); got != 0 {
		t.Fatalf("expected exit code 0, got %d", got)
	}
	if !app.stopped {
		t.Fatal("expected app to be stopped")
	}
}
