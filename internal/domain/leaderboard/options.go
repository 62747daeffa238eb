package leaderboard

import (
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

// WithNamer sets the key namer used to address scopes.
func WithNamer(n keys.Namer) Option {
	return func(e *Engine) {
		e.keys = n
	}
}
