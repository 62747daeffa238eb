// Package service wires the ranking engines, stores and background workers
// behind the operations the HTTP API exposes.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/okian/trackrank/internal/adapters/mq/queue"
	"github.com/okian/trackrank/internal/adapters/mq/worker"
	"github.com/okian/trackrank/internal/adapters/rankcache"
	"github.com/okian/trackrank/internal/adapters/records"
	"github.com/okian/trackrank/internal/adapters/snapshot"
	"github.com/okian/trackrank/internal/domain/dedupe"
	"github.com/okian/trackrank/internal/domain/keys"
	"github.com/okian/trackrank/internal/domain/leaderboard"
	"github.com/okian/trackrank/internal/domain/mappack"
	"github.com/okian/trackrank/pkg/logger"
	"github.com/okian/trackrank/pkg/metrics"
)

// Service implements the API dependencies of trackrank.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    *records.Store
	lookup   *records.Lookup
	redis    redis.UniversalClient
	board    *leaderboard.Engine
	mappacks *mappack.Engine

	// Async mappack recompute
	deduper   dedupe.Deduper
	queue     queue.Queue
	pool      *worker.Pool
	scheduler *worker.Scheduler

	// Configuration
	keyPrefix          string
	workerCount        int
	queueSize          int
	dedupeSize         int
	mappackTTL         time.Duration
	refreshInterval    time.Duration
	mappackConcurrency int
	mapCacheCapacity   int
	mapCacheTTL        time.Duration

	// State
	started bool
	cancel  context.CancelFunc
	now     func() time.Time

	logger logger.Logger
}

// New constructs a Service. A records store is required.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		keyPrefix:          "v3",
		workerCount:        runtime.NumCPU(),
		queueSize:          1000,
		dedupeSize:         10_000,
		mappackTTL:         7 * 24 * time.Hour,
		refreshInterval:    10 * time.Minute,
		mappackConcurrency: 4,
		mapCacheCapacity:   10_000,
		mapCacheTTL:        5 * time.Minute,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		return nil, ErrNoStore
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	namer := keys.NewNamer(s.keyPrefix)
	s.lookup = records.NewLookup(s.store, s.mapCacheCapacity, s.mapCacheTTL)

	var cache leaderboard.Cache = rankcache.NewMemoryCache()
	if s.redis != nil {
		cache = rankcache.NewRedisCache(s.redis)
	}
	s.board = leaderboard.New(cache, s.store,
		leaderboard.WithNamer(namer),
		leaderboard.WithLogger(s.logger.Named("leaderboard")))

	if s.redis != nil {
		s.mappacks = mappack.New(snapshot.NewRedisStore(s.redis, namer), s.lookup, s.store, s.board,
			mappack.WithTTL(keys.TTLPolicy{Ephemeral: s.mappackTTL}),
			mappack.WithConcurrency(s.mappackConcurrency),
			mappack.WithLogger(s.logger.Named("mappack")))
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s, nil
}

// Start launches the mappack workers and the refresh schedule.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s,
		worker.WithDone(func(id string) { s.deduper.Unrecord(runCtx, id) }))
	s.pool.Start(runCtx)

	if s.mappacks != nil {
		s.scheduler = worker.NewScheduler(s.refreshInterval, s.refreshMappacks, s.logger.Named("scheduler"))
		s.scheduler.Start(runCtx)
	}

	s.started = true
	s.logger.Info(ctx, "trackrank service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Bool("mappacks", s.mappacks != nil),
		logger.Duration("refresh", s.refreshInterval))
	return nil
}

// Stop drains the workers and stops the schedule.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	scheduler, pool, cancel := s.scheduler, s.pool, s.cancel
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping trackrank service...")
	// The scheduler enqueues through the service, so it stops outside the lock.
	if scheduler != nil {
		scheduler.Stop()
	}
	err := pool.Shutdown(ctx)
	cancel()

	s.logger.Info(ctx, "trackrank service stopped")
	return err
}

// Health pings the records store and, when configured, Redis.
func (s *Service) Health(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("records store: %w", err)
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	backend := "memory"
	if s.redis != nil {
		backend = "redis"
	}
	stats := map[string]interface{}{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueSize":     s.queueSize,
		"dedupeSize":    s.dedupeSize,
		"cacheBackend":  backend,
		"storeDriver":   s.store.Dialect().Name,
		"mappacks":      s.mappacks != nil,
		"pendingIDs":    s.deduper.Size(),
		"lookupEntries": s.lookup.Size(),
	}

	if s.started {
		stats["queueLength"] = s.queue.Len()
		stats["busyWorkers"] = s.pool.Busy()
		stats["jobsProcessed"] = s.pool.Processed()
		stats["jobsFailed"] = s.pool.Failed()
		metrics.UpdateWorkerCount(s.pool.Size())
	}
	return stats
}
