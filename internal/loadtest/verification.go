package loadtest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/okian/trackrank/internal/domain/types"
	"github.com/okian/trackrank/pkg/logger"
)

// ErrMismatch reports served data that disagrees with the submitted runs.
var ErrMismatch = errors.New("served ranks disagree with submitted finishes")

type sample struct {
	mapUID string
	login  string
	time   int32
}

// samples picks up to n players per map, best first.
func samples(want expected, n int) []sample {
	var out []sample
	for mapUID, bests := range want {
		rows := make([]sample, 0, len(bests))
		for login, t := range bests {
			rows = append(rows, sample{mapUID: mapUID, login: login, time: t})
		}
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].time != rows[j].time {
				return rows[i].time < rows[j].time
			}
			return rows[i].login < rows[j].login
		})
		if len(rows) > n {
			rows = rows[:n]
		}
		out = append(out, rows...)
	}
	return out
}

// verifyRanks asks the service for the rank of sampled bests and compares
// them with the ranks the submitted runs imply.
func verifyRanks(ctx context.Context, client *HTTPClient, config *Config, want expected, stats *Stats) error {
	picked := samples(want, config.Samples)
	logger.Get().Info(ctx, "verifying ranks", logger.Int("samples", len(picked)))

	var mismatches atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.Workers)
	for _, s := range picked {
		g.Go(func() error {
			q := url.Values{"map_uid": {s.mapUID}, "time": {fmt.Sprint(s.time)}}
			var resp types.RankResponse
			if _, err := client.do(gctx, http.MethodGet, "/rank?"+q.Encode(), nil, &resp); err != nil {
				return err
			}
			if exp := want.rank(s.mapUID, s.time); resp.Rank != exp {
				mismatches.Add(1)
				logger.Get().Warn(gctx, "rank mismatch",
					logger.String("map_uid", s.mapUID),
					logger.String("login", s.login),
					logger.Int("served", resp.Rank),
					logger.Int("expected", exp))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("rank lookup: %w", err)
	}

	stats.RanksChecked = len(picked)
	stats.RankMismatches = int(mismatches.Load())
	if stats.RankMismatches > 0 {
		return fmt.Errorf("%w: %d of %d ranks", ErrMismatch, stats.RankMismatches, stats.RanksChecked)
	}
	return nil
}

// verifyOverviews checks that every map's overview for its worst player holds
// that player and is ordered by time.
func verifyOverviews(ctx context.Context, client *HTTPClient, want expected, stats *Stats) error {
	for mapUID, bests := range want {
		var login string
		var worst int32
		for l, t := range bests {
			if t > worst || (t == worst && l < login) {
				login, worst = l, t
			}
		}

		q := url.Values{"map_uid": {mapUID}, "login": {login}}
		var resp types.OverviewResponse
		if _, err := client.do(ctx, http.MethodGet, "/overview?"+q.Encode(), nil, &resp); err != nil {
			return fmt.Errorf("overview of %s: %w", mapUID, err)
		}

		found := false
		for i, row := range resp.Response {
			if row.Login == login {
				found = row.Time == worst
			}
			if i > 0 && row.Rank < resp.Response[i-1].Rank {
				return fmt.Errorf("%w: overview of %s not ordered at row %d", ErrMismatch, mapUID, i)
			}
		}
		if !found {
			return fmt.Errorf("%w: overview of %s misses %s", ErrMismatch, mapUID, login)
		}
		stats.OverviewsChecked++
	}
	return nil
}

// verifyMappack registers a mappack over the seeded maps, scores it inline
// and checks that everyone with a record is ranked.
func verifyMappack(ctx context.Context, client *HTTPClient, config *Config, f *fixture, want expected, stats *Stats) error {
	id := config.Mappack
	reg := map[string]any{"id": id, "map_uids": f.maps}
	if _, err := client.do(ctx, http.MethodPost, "/mappack", reg, nil); err != nil {
		return fmt.Errorf("register mappack: %w", err)
	}
	if _, err := client.do(ctx, http.MethodPost, "/mappack/"+url.PathEscape(id)+"/update?sync=1", nil, nil); err != nil {
		return fmt.Errorf("update mappack: %w", err)
	}

	var pack types.MappackResponse
	if _, err := client.do(ctx, http.MethodGet, "/mappack/"+url.PathEscape(id), nil, &pack); err != nil {
		return fmt.Errorf("read mappack: %w", err)
	}

	stats.MappackPlayers = len(pack.Scores)
	if exp := len(want.players()); len(pack.Scores) != exp {
		return fmt.Errorf("%w: mappack ranks %d players, expected %d", ErrMismatch, len(pack.Scores), exp)
	}
	for i := 1; i < len(pack.Scores); i++ {
		if pack.Scores[i].Rank < pack.Scores[i-1].Rank {
			return fmt.Errorf("%w: mappack not ordered at row %d", ErrMismatch, i)
		}
	}
	return nil
}
