// Package mappack scores players across the maps of a mappack and keeps the
// result in the snapshot store.
package mappack

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/trackrank/internal/domain/keys"
	"github.com/okian/trackrank/internal/domain/model"
	"github.com/okian/trackrank/internal/domain/scoring"
	"github.com/okian/trackrank/pkg/logger"
	"github.com/okian/trackrank/pkg/metrics"
)

// Update results reported to metrics.
const (
	resultScored  = "scored"
	resultExpired = "expired"
	resultFailed  = "failed"
)

const (
	defaultConcurrency = 4
	defaultTTL         = 7 * 24 * time.Hour
)

// Store keeps mappack registrations and computed standings.
type Store interface {
	MapUIDs(ctx context.Context, id string) ([]string, error)
	Participants(ctx context.Context, id string) ([]int64, error)
	Deregister(ctx context.Context, id string) error
	IsPermanent(ctx context.Context, id string) (bool, error)
	Register(ctx context.Context, id string, uids []string, participants []int64, ttl time.Duration) error
	Persist(ctx context.Context, id string) error
	Registered(ctx context.Context) ([]string, error)
	// Save writes standings with ttl on every key; zero persists them.
	Save(ctx context.Context, scores model.MappackScores, ttl time.Duration) error
	Load(ctx context.Context, id string) (model.MappackScores, bool, error)
}

// Maps resolves a map by UID.
type Maps interface {
	HaveMap(ctx context.Context, uid string) (model.Map, error)
}

// Records reads global records and players.
type Records interface {
	PlayerBests(ctx context.Context, scope model.Scope, ids []int64) ([]model.PlayerRecord, error)
	Players(ctx context.Context, ids []int64) ([]model.Player, error)
}

// Ranker resolves the rank of a time in a scope.
type Ranker interface {
	ResolveRank(ctx context.Context, scope model.Scope, t int32) (int, error)
}

// Engine recomputes and reads mappack standings.
type Engine struct {
	store       Store
	maps        Maps
	records     Records
	ranker      Ranker
	concurrency int
	ttl         keys.TTLPolicy
	now         func() time.Time
	logger      logger.Logger
}

// New creates an Engine.
func New(store Store, maps Maps, records Records, ranker Ranker, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		maps:        maps,
		records:     records,
		ranker:      ranker,
		concurrency: defaultConcurrency,
		ttl:         keys.TTLPolicy{Ephemeral: defaultTTL},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("mappack")
	}
	return e
}

// Update recomputes the standings of mappack id and stores them. A mappack
// without maps is expired or unknown: it is dropped from the registry and
// Update returns ok == false with a nil error. Any failure while loading maps
// aborts before anything is written.
func (e *Engine) Update(ctx context.Context, id string) (scores model.MappackScores, ok bool, err error) {
	start := time.Now()
	defer func() {
		switch {
		case err != nil:
			metrics.RecordMappackUpdate(resultFailed, time.Since(start), -1)
			metrics.RecordErrorByComponent("mappack", "update")
		case !ok:
			metrics.RecordMappackUpdate(resultExpired, time.Since(start), -1)
		default:
			metrics.RecordMappackUpdate(resultScored, time.Since(start), len(scores.Scores))
		}
	}()

	uids, err := e.store.MapUIDs(ctx, id)
	if err != nil {
		return model.MappackScores{}, false, err
	}
	if len(uids) == 0 {
		e.logger.Info(ctx, "mappack expired, deregistering", logger.String("mappack", id))
		if err := e.store.Deregister(ctx, id); err != nil {
			return model.MappackScores{}, false, fmt.Errorf("deregister mappack %s: %w", id, err)
		}
		return model.MappackScores{}, false, nil
	}

	maps, entries, err := e.load(ctx, uids)
	if err != nil {
		return model.MappackScores{}, false, fmt.Errorf("update mappack %s: %w", id, err)
	}
	participants, err := e.participants(ctx, id)
	if err != nil {
		return model.MappackScores{}, false, fmt.Errorf("update mappack %s: %w", id, err)
	}

	res := scoring.Compute(entries, participants)
	for i := range maps {
		maps[i].LastRank = res.LastRanks[i]
	}
	scores = model.MappackScores{
		ID:         id,
		Maps:       maps,
		Scores:     res.Scores,
		ComputedAt: e.now().UTC().Truncate(time.Second),
	}

	permanent, err := e.store.IsPermanent(ctx, id)
	if err != nil {
		return model.MappackScores{}, false, fmt.Errorf("update mappack %s: %w", id, err)
	}
	if err := e.store.Save(ctx, scores, e.ttl.Expiry(permanent)); err != nil {
		return model.MappackScores{}, false, err
	}

	e.logger.Debug(ctx, "mappack updated",
		logger.String("mappack", id),
		logger.Int("maps", len(maps)),
		logger.Int("players", len(scores.Scores)),
		logger.Bool("permanent", permanent),
		logger.Duration("took", time.Since(start)))
	return scores, true, nil
}

// load resolves every map and its ranked global records, concurrently.
func (e *Engine) load(ctx context.Context, uids []string) ([]model.MappackMap, [][]scoring.Entry, error) {
	maps := make([]model.MappackMap, len(uids))
	entries := make([][]scoring.Entry, len(uids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, uid := range uids {
		g.Go(func() error {
			m, err := e.maps.HaveMap(gctx, uid)
			if err != nil {
				return err
			}
			maps[i] = model.MappackMap{UID: uid, Name: m.Name}

			// Mappacks rank on global records only.
			scope := model.MapScope(m)
			rows, err := e.records.PlayerBests(gctx, scope, nil)
			if err != nil {
				return fmt.Errorf("map %s: %w", uid, err)
			}
			list := make([]scoring.Entry, 0, len(rows))
			for _, r := range rows {
				rank, err := e.ranker.ResolveRank(gctx, scope, r.Time)
				if err != nil {
					return fmt.Errorf("map %s: %w", uid, err)
				}
				list = append(list, scoring.Entry{PlayerID: r.PlayerID, Login: r.Login, Name: r.Name, Rank: rank})
			}
			entries[i] = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return maps, entries, nil
}

func (e *Engine) participants(ctx context.Context, id string) ([]scoring.Participant, error) {
	ids, err := e.store.Participants(ctx, id)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	players, err := e.records.Players(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]scoring.Participant, 0, len(players))
	for _, p := range players {
		out = append(out, scoring.Participant{PlayerID: p.ID, Login: p.Login, Name: p.Name})
	}
	return out, nil
}

// Snapshot returns the last stored standings of mappack id with player and
// map names filled in.
func (e *Engine) Snapshot(ctx context.Context, id string) (model.MappackScores, error) {
	scores, ok, err := e.store.Load(ctx, id)
	if err != nil {
		return model.MappackScores{}, err
	}
	if !ok {
		return model.MappackScores{}, fmt.Errorf("%w: %s", ErrUnknownMappack, id)
	}

	ids := make([]int64, len(scores.Scores))
	for i, s := range scores.Scores {
		ids[i] = s.PlayerID
	}
	players, err := e.records.Players(ctx, ids)
	if err != nil {
		return model.MappackScores{}, fmt.Errorf("mappack %s players: %w", id, err)
	}
	byID := make(map[int64]model.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}
	for i := range scores.Scores {
		p := byID[scores.Scores[i].PlayerID]
		scores.Scores[i].Login = p.Login
		scores.Scores[i].Name = p.Name
	}

	for i := range scores.Maps {
		m, err := e.maps.HaveMap(ctx, scores.Maps[i].UID)
		if err != nil {
			e.logger.Warn(ctx, "mappack map lookup failed",
				logger.String("mappack", id),
				logger.String("map_uid", scores.Maps[i].UID),
				logger.Error(err))
			continue
		}
		scores.Maps[i].Name = m.Name
	}
	return scores, nil
}

// Register creates or extends a mappack. Ephemeral mappacks expire after the
// configured TTL unless recomputed.
func (e *Engine) Register(ctx context.Context, id string, uids []string, permanent bool, participants []int64) error {
	if strings.TrimSpace(id) == "" || len(uids) == 0 {
		return fmt.Errorf("%w: id and at least one map are required", ErrInvalidMappack)
	}
	if err := e.store.Register(ctx, id, uids, participants, e.ttl.Expiry(permanent)); err != nil {
		return err
	}
	e.logger.Info(ctx, "mappack registered",
		logger.String("mappack", id),
		logger.Int("maps", len(uids)),
		logger.Int("participants", len(participants)),
		logger.Bool("permanent", permanent))
	return nil
}

// Persist makes a mappack permanent.
func (e *Engine) Persist(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidMappack)
	}
	return e.store.Persist(ctx, id)
}

// Registered lists the registered mappack ids.
func (e *Engine) Registered(ctx context.Context) ([]string, error) {
	return e.store.Registered(ctx)
}
