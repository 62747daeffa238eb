package loadtest

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/trackrank/internal/domain/model"
	"github.com/okian/trackrank/pkg/logger"
)

// Generated run times, in milliseconds.
const (
	minRunTime   = 30_000
	runTimeRange = 20_000
	cpsPerMap    = 3
)

// Seeder registers the players and maps a run drives on.
type Seeder interface {
	AddPlayer(ctx context.Context, login, name string) (model.Player, error)
	AddMap(ctx context.Context, m model.Map) (model.Map, error)
}

// fixture is the seeded world of one run.
type fixture struct {
	logins []string
	maps   []string
}

// seed creates players and maps under a run-unique prefix so repeated runs
// against one store do not collide.
func seed(ctx context.Context, s Seeder, config *Config, stats *Stats) (*fixture, error) {
	run := uuid.NewString()[:8]
	logger.Get().Info(ctx, "seeding records store",
		logger.String("run", run),
		logger.Int("players", config.Players),
		logger.Int("maps", config.Maps))

	f := &fixture{
		logins: make([]string, config.Players),
		maps:   make([]string, config.Maps),
	}
	for i := range f.logins {
		login := fmt.Sprintf("load-%s-p%d", run, i)
		if _, err := s.AddPlayer(ctx, login, fmt.Sprintf("Load %d", i)); err != nil {
			return nil, fmt.Errorf("seed player %s: %w", login, err)
		}
		f.logins[i] = login
	}
	cps := int32(cpsPerMap)
	for i := range f.maps {
		uid := fmt.Sprintf("load-%s-m%d", run, i)
		if _, err := s.AddMap(ctx, model.Map{UID: uid, Name: fmt.Sprintf("Load map %d", i), CpsNumber: &cps}); err != nil {
			return nil, fmt.Errorf("seed map %s: %w", uid, err)
		}
		f.maps[i] = uid
	}

	stats.PlayersSeeded = len(f.logins)
	stats.MapsSeeded = len(f.maps)
	return f, nil
}

// expected tracks the best time of every player on every map.
type expected map[string]map[string]int32

func (e expected) add(f Finish) {
	bests, ok := e[f.MapUID]
	if !ok {
		bests = make(map[string]int32)
		e[f.MapUID] = bests
	}
	if old, ok := bests[f.Login]; !ok || f.Time < old {
		bests[f.Login] = f.Time
	}
}

// rank is one plus the number of strictly better bests on the map.
func (e expected) rank(mapUID string, t int32) int {
	rank := 1
	for _, best := range e[mapUID] {
		if best < t {
			rank++
		}
	}
	return rank
}

// players returns the logins holding a record on any map.
func (e expected) players() map[string]struct{} {
	out := make(map[string]struct{})
	for _, bests := range e {
		for login := range bests {
			out[login] = struct{}{}
		}
	}
	return out
}

// generateFinishes draws random runs over the fixture and the bests they
// should leave behind.
func generateFinishes(ctx context.Context, f *fixture, config *Config, stats *Stats) ([]Finish, expected) {
	rng := rand.New(rand.NewPCG(config.Seed, uint64(len(f.logins))))
	finishes := make([]Finish, config.Finishes)
	want := make(expected)

	for i := range finishes {
		t := int32(minRunTime + rng.IntN(runTimeRange))
		finishes[i] = Finish{
			Login:  f.logins[rng.IntN(len(f.logins))],
			MapUID: f.maps[rng.IntN(len(f.maps))],
			Time:   t,
			Cps:    splitTime(rng, t, cpsPerMap+1),
		}
		want.add(finishes[i])
	}

	stats.FinishesGenerated = len(finishes)
	logger.Get().Info(ctx, "generated finishes", logger.Int("count", len(finishes)))
	return finishes, want
}

// splitTime cuts t into n positive checkpoint times that add up to t.
func splitTime(rng *rand.Rand, t int32, n int) []int32 {
	cps := make([]int32, n)
	rest := t
	for i := 0; i < n-1; i++ {
		share := rest / int32(n-i)
		cp := share/2 + int32(rng.IntN(int(share)))
		cps[i] = cp
		rest -= cp
	}
	cps[n-1] = rest
	return cps
}
