package service

import (
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/okian/trackrank/internal/adapters/records"
	"github.com/okian/trackrank/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the records store. It is required.
func WithStore(store *records.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithRedisClient backs rank caches and mappacks with Redis. Without it
// ranks are cached in process and mappacks are unavailable.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(s *Service) {
		s.redis = client
	}
}

// WithKeyPrefix sets the prefix of every cache key.
func WithKeyPrefix(prefix string) Option {
	return func(s *Service) {
		if prefix != "" {
			s.keyPrefix = prefix
		}
	}
}

// WithWorkerCount sets the number of mappack workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending mappack jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the number of tracked pending mappack ids.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMappackTTL sets the expiry of ephemeral mappacks.
func WithMappackTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.mappackTTL = ttl
		}
	}
}

// WithRefreshInterval sets how often every registered mappack is queued
// for a recompute. Zero disables the schedule.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.refreshInterval = d
		}
	}
}

// WithMappackConcurrency bounds the maps loaded at once per recompute.
func WithMappackConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.mappackConcurrency = n
		}
	}
}

// WithMapCache sizes the in-process cache of map and event lookups.
func WithMapCache(capacity int, ttl time.Duration) Option {
	return func(s *Service) {
		if capacity > 0 {
			s.mapCacheCapacity = capacity
		}
		if ttl > 0 {
			s.mapCacheTTL = ttl
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
