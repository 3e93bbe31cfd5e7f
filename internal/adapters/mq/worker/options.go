package worker

import (
	"context"

	"github.com/okian/hotboard/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithFailureHook registers a callback run after an event could not be
// recorded, e.g. to forget its id so a retry is not treated as a duplicate.
func WithFailureHook(fn func(ctx context.Context, e Event, err error)) Option {
	return func(w *InMemoryWorker) {
		w.onFailure = fn
	}
}
