// Package leaderboard keeps one ranked cache per scope in step with the
// records store and answers rank queries against it.
package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/trackrank/internal/domain/keys"
	"github.com/okian/trackrank/internal/domain/model"
	"github.com/okian/trackrank/internal/domain/window"
	"github.com/okian/trackrank/pkg/logger"
	"github.com/okian/trackrank/pkg/metrics"
)

// Cache is an ordered store holding one sorted set of player -> time per key.
// Ranks are 0-based in the given ordering.
type Cache interface {
	Add(ctx context.Context, key string, member int64, score int32) error
	// Replace swaps the content of key for entries in one atomic step.
	Replace(ctx context.Context, key string, entries []model.Best) error
	Delete(ctx context.Context, key string) error
	Count(ctx context.Context, key string) (int64, error)
	FirstWithScore(ctx context.Context, key string, score int32, order model.Ordering) (int64, bool, error)
	RankOf(ctx context.Context, key string, member int64, order model.Ordering) (int64, bool, error)
	// Range returns the members ranked [start, stop).
	Range(ctx context.Context, key string, start, stop int64, order model.Ordering) ([]int64, error)
}

// Source is the authoritative records store.
type Source interface {
	// CurrentBests returns every player's best time in the scope.
	CurrentBests(ctx context.Context, scope model.Scope) ([]model.Best, error)
	// CountPlayers returns the number of players with a record in the scope.
	CountPlayers(ctx context.Context, scope model.Scope) (int64, error)
}

// Engine resolves ranks against the cache and rebuilds it from the source.
type Engine struct {
	cache  Cache
	source Source
	keys   keys.Namer
	logger logger.Logger
}

// New creates an Engine.
func New(cache Cache, source Source, opts ...Option) *Engine {
	e := &Engine{
		cache:  cache,
		source: source,
		keys:   keys.NewNamer("v3"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("leaderboard")
	}
	return e
}

// Key returns the cache key of scope.
func (e *Engine) Key(scope model.Scope) string {
	return e.keys.Leaderboard(scope)
}

// Rebuild replaces the cache of scope with the best times held by the source
// and returns the number of entries written.
func (e *Engine) Rebuild(ctx context.Context, scope model.Scope) (int, error) {
	start := time.Now()

	bests, err := e.source.CurrentBests(ctx, scope)
	if err != nil {
		metrics.RecordErrorByComponent("leaderboard", "source")
		return 0, fmt.Errorf("rebuild %s: %w", scope, err)
	}
	if err := e.cache.Replace(ctx, e.Key(scope), bests); err != nil {
		metrics.RecordErrorByComponent("leaderboard", "cache")
		return 0, fmt.Errorf("rebuild %s: %w", scope, err)
	}

	took := time.Since(start)
	metrics.RecordRebuild(took, len(bests))
	e.logger.Debug(ctx, "scope rebuilt",
		logger.String("scope", scope.String()),
		logger.Int("entries", len(bests)),
		logger.Duration("took", took))
	return len(bests), nil
}

// ResolveRank returns the 1-based rank of time t in scope. Players sharing a
// time share its rank. A miss triggers one rebuild; a second miss returns an
// *InvariantError.
func (e *Engine) ResolveRank(ctx context.Context, scope model.Scope, t int32) (int, error) {
	rank, ok, err := e.lookup(ctx, scope, t)
	if err != nil {
		return 0, err
	}
	if ok {
		metrics.RecordRankResolve(metrics.ResolveHit)
		return rank, nil
	}

	if _, err := e.Rebuild(ctx, scope); err != nil {
		return 0, err
	}
	rank, ok, err = e.lookup(ctx, scope, t)
	if err != nil {
		return 0, err
	}
	if ok {
		metrics.RecordRankResolve(metrics.ResolveRebuild)
		return rank, nil
	}

	metrics.RecordRankResolve(metrics.ResolveInvariant)
	metrics.RecordErrorByComponent("leaderboard", "invariant")
	ierr := &InvariantError{Scope: scope, Time: t}
	e.logger.Error(ctx, "rank invariant violated",
		logger.String("scope", scope.String()),
		logger.Int64("time", int64(t)),
		logger.Error(ierr))
	return 0, ierr
}

func (e *Engine) lookup(ctx context.Context, scope model.Scope, t int32) (int, bool, error) {
	key := e.Key(scope)
	member, ok, err := e.cache.FirstWithScore(ctx, key, t, scope.Order)
	if err != nil || !ok {
		return 0, false, wrapCache(scope, err)
	}
	rank, ok, err := e.cache.RankOf(ctx, key, member, scope.Order)
	if err != nil || !ok {
		return 0, false, wrapCache(scope, err)
	}
	return int(rank) + 1, true, nil
}

func wrapCache(scope model.Scope, err error) error {
	if err == nil {
		return nil
	}
	metrics.RecordErrorByComponent("leaderboard", "cache")
	return fmt.Errorf("rank cache %s: %w", scope, err)
}

// CountOrRebuild returns the number of ranked players in scope, rebuilding
// the cache first when its size disagrees with the source.
func (e *Engine) CountOrRebuild(ctx context.Context, scope model.Scope) (int64, error) {
	cached, err := e.cache.Count(ctx, e.Key(scope))
	if err != nil {
		return 0, wrapCache(scope, err)
	}
	want, err := e.source.CountPlayers(ctx, scope)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", scope, err)
	}
	if cached == want {
		return cached, nil
	}

	e.logger.Info(ctx, "rank cache size diverged",
		logger.String("scope", scope.String()),
		logger.Int64("cached", cached),
		logger.Int64("source", want))
	n, err := e.Rebuild(ctx, scope)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

// PlayerRank returns the 0-based cache rank of player, or nil when absent.
func (e *Engine) PlayerRank(ctx context.Context, scope model.Scope, player int64) (*int, error) {
	rank, ok, err := e.cache.RankOf(ctx, e.Key(scope), player, scope.Order)
	if err != nil {
		return nil, wrapCache(scope, err)
	}
	if !ok {
		return nil, nil
	}
	r := int(rank)
	return &r, nil
}

// Members returns the players ranked within r.
func (e *Engine) Members(ctx context.Context, scope model.Scope, r window.Range) ([]int64, error) {
	if r.Count <= 0 {
		return nil, nil
	}
	ids, err := e.cache.Range(ctx, e.Key(scope), int64(r.Offset), int64(r.End()), scope.Order)
	if err != nil {
		return nil, wrapCache(scope, err)
	}
	return ids, nil
}

// Record stores a player's best time in the cache. When the write fails the
// scope is rebuilt from the source, which already holds the time.
func (e *Engine) Record(ctx context.Context, scope model.Scope, player int64, best int32) error {
	err := e.cache.Add(ctx, e.Key(scope), player, best)
	if err == nil {
		return nil
	}
	e.logger.Warn(ctx, "rank cache write failed, rebuilding",
		logger.String("scope", scope.String()),
		logger.Int64("player_id", player),
		logger.Error(err))
	_, err = e.Rebuild(ctx, scope)
	return err
}
