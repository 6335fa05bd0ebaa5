package main

import (
	"context"
	"os/signal"
)

// notifyContext cancels on any of shutdownSignals. watch and serve run until
// then; one-shot commands abort their current render.
func notifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, shutdownSignals...)
}
