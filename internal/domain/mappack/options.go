package mappack

import (
	"time"

	"github.com/okian/trackrank/internal/domain/keys"
	"github.com/okian/trackrank/pkg/logger"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithConcurrency bounds how many maps load at once during an update.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithTTL sets the expiry policy of ephemeral mappacks.
func WithTTL(p keys.TTLPolicy) Option {
	return func(e *Engine) {
		e.ttl = p
	}
}

// WithClock overrides the time source stamped on computed standings.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}
