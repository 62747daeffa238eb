package worker

import (
	"github.com/okian/trackrank/pkg/logger"
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

// WithDone registers a callback run after each job, whatever its outcome.
// The service uses it to release the job's coalescing slot.
func WithDone(fn func(mappackID string)) Option {
	return func(w *InMemoryWorker) {
		w.onDone = fn
	}
}

// WithActivity shares a busy-worker counter between the workers of a pool.
func WithActivity(a *Activity) Option {
	return func(w *InMemoryWorker) {
		w.activity = a
	}
}
