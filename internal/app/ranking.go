package service

import (
	"context"
	"fmt"

	"github.com/okian/trackrank/internal/domain/finish"
	"github.com/okian/trackrank/internal/domain/model"
	"github.com/okian/trackrank/internal/domain/window"
	"github.com/okian/trackrank/pkg/logger"
	"github.com/okian/trackrank/pkg/metrics"
)

// Finish results reported to metrics.
const (
	finishImproved = "improved"
	finishKept     = "kept"
	finishInvalid  = "invalid"
)

// EventInput names an event edition a request is scoped to.
type EventInput struct {
	Handle    string
	EditionID int64
}

// FinishInput is a run as submitted by a game client.
type FinishInput struct {
	MapUID       string
	Time         int32
	RespawnCount int32
	Flags        uint32
	Cps          []int32
}

// scope resolves the map and, when ev is set, the event edition.
func (s *Service) scope(ctx context.Context, mapUID string, ev *EventInput) (model.Map, model.Scope, error) {
	m, err := s.lookup.HaveMap(ctx, mapUID)
	if err != nil {
		return model.Map{}, model.Scope{}, err
	}
	if ev == nil {
		return m, model.MapScope(m), nil
	}
	_, edition, err := s.lookup.HaveEventEdition(ctx, ev.Handle, ev.EditionID)
	if err != nil {
		return model.Map{}, model.Scope{}, err
	}
	ref := edition.Ref()
	return m, model.EventScope(m, &ref), nil
}

// ResolveRank returns the rank time t would have on a map.
func (s *Service) ResolveRank(ctx context.Context, mapUID string, t int32, ev *EventInput) (int, error) {
	_, scope, err := s.scope(ctx, mapUID, ev)
	if err != nil {
		return 0, err
	}
	return s.board.ResolveRank(ctx, scope, t)
}

// DisplayRanges returns the rank ranges an overview shows to login.
func (s *Service) DisplayRanges(ctx context.Context, mapUID, login string, ev *EventInput) ([]window.Range, error) {
	_, scope, err := s.scope(ctx, mapUID, ev)
	if err != nil {
		return nil, err
	}
	player, err := s.lookup.HavePlayer(ctx, login)
	if err != nil {
		return nil, err
	}
	return s.displayRanges(ctx, scope, player.ID)
}

func (s *Service) displayRanges(ctx context.Context, scope model.Scope, player int64) ([]window.Range, error) {
	n, err := s.board.CountOrRebuild(ctx, scope)
	if err != nil {
		return nil, err
	}
	rank, err := s.board.PlayerRank(ctx, scope, player)
	if err != nil {
		return nil, err
	}
	return window.Select(rank, int(n)), nil
}

// Overview returns the leaderboard rows shown to login: the top of the
// board and the neighbourhood of the player.
func (s *Service) Overview(ctx context.Context, mapUID, login string, ev *EventInput) ([]model.RankedRecord, error) {
	_, scope, err := s.scope(ctx, mapUID, ev)
	if err != nil {
		return nil, err
	}
	player, err := s.lookup.HavePlayer(ctx, login)
	if err != nil {
		return nil, err
	}
	ranges, err := s.displayRanges(ctx, scope, player.ID)
	if err != nil {
		return nil, err
	}

	var out []model.RankedRecord
	for _, r := range ranges {
		ids, err := s.board.Members(ctx, scope, r)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			continue
		}
		rows, err := s.store.PlayerBests(ctx, scope, ids)
		if err != nil {
			return nil, fmt.Errorf("overview %s: %w", scope, err)
		}
		for _, row := range rows {
			rank, err := s.board.ResolveRank(ctx, scope, row.Time)
			if err != nil {
				return nil, err
			}
			out = append(out, model.RankedRecord{
				Rank:     rank,
				PlayerID: row.PlayerID,
				Login:    row.Login,
				Name:     row.Name,
				Time:     row.Time,
			})
		}
	}
	return out, nil
}

// Finished records a run by login and returns the player's standing.
func (s *Service) Finished(ctx context.Context, login string, in FinishInput, ev *EventInput) (model.FinishResult, error) {
	m, scope, err := s.scope(ctx, in.MapUID, ev)
	if err != nil {
		return model.FinishResult{}, err
	}
	player, err := s.lookup.HavePlayer(ctx, login)
	if err != nil {
		return model.FinishResult{}, err
	}

	f := model.Finish{
		PlayerID:     player.ID,
		MapID:        scope.MapID,
		Time:         in.Time,
		RespawnCount: in.RespawnCount,
		Flags:        in.Flags,
		Cps:          in.Cps,
		Date:         s.now().UTC(),
		Event:        scope.Event,
	}
	if err := finish.Validate(f, m); err != nil {
		metrics.RecordFinish(finishInvalid)
		return model.FinishResult{}, err
	}

	old, hasOld, err := s.store.CurrentBest(ctx, scope, player.ID)
	if err != nil {
		return model.FinishResult{}, err
	}
	recordID, err := s.store.InsertFinish(ctx, f)
	if err != nil {
		return model.FinishResult{}, err
	}

	improved := !hasOld || scope.Order.Better(in.Time, old)
	best := in.Time
	if !hasOld {
		old = in.Time
	} else {
		best = scope.Order.Best(old, in.Time)
	}

	if err := s.board.Record(ctx, scope, player.ID, best); err != nil {
		return model.FinishResult{}, err
	}
	if scope.Event != nil {
		// Event runs also count on the map's global board.
		if err := s.recordGlobal(ctx, m, player.ID); err != nil {
			return model.FinishResult{}, err
		}
	}
	rank, err := s.board.ResolveRank(ctx, scope, best)
	if err != nil {
		return model.FinishResult{}, err
	}

	result := finishKept
	if improved {
		result = finishImproved
	}
	metrics.RecordFinish(result)
	s.logger.Debug(ctx, "finish recorded",
		logger.String("login", login),
		logger.String("scope", scope.String()),
		logger.Int64("record_id", recordID),
		logger.Int64("time", int64(in.Time)),
		logger.Bool("improved", improved),
		logger.Int("rank", rank))

	return model.FinishResult{
		RecordID:    recordID,
		HasImproved: improved,
		Login:       player.Login,
		OldTime:     old,
		NewTime:     in.Time,
		CurrentRank: rank,
		Reversed:    scope.Order.Reversed(),
	}, nil
}

func (s *Service) recordGlobal(ctx context.Context, m model.Map, player int64) error {
	global := model.MapScope(m)
	best, ok, err := s.store.CurrentBest(ctx, global, player)
	if err != nil || !ok {
		return err
	}
	return s.board.Record(ctx, global, player, best)
}
