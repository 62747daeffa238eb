package leaderboard_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/trackrank/internal/adapters/rankcache"
	"github.com/okian/trackrank/internal/domain/keys"
	"github.com/okian/trackrank/internal/domain/leaderboard"
	"github.com/okian/trackrank/internal/domain/model"
	"github.com/okian/trackrank/internal/domain/window"
	"github.com/okian/trackrank/pkg/logger"
)

// fakeSource holds best times per scope and counts full reads.
type fakeSource struct {
	mu    sync.Mutex
	bests map[string]map[int64]int32
	reads int
	err   error
}

func newFakeSource() *fakeSource {
	return &fakeSource{bests: map[string]map[int64]int32{}}
}

func (s *fakeSource) set(scope model.Scope, player int64, t int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.bests[scope.String()]
	if !ok {
		m = map[int64]int32{}
		s.bests[scope.String()] = m
	}
	m[player] = t
}

func (s *fakeSource) CurrentBests(_ context.Context, scope model.Scope) ([]model.Best, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.reads++
	out := make([]model.Best, 0, len(s.bests[scope.String()]))
	for p, t := range s.bests[scope.String()] {
		out = append(out, model.Best{PlayerID: p, Time: t})
	}
	return out, nil
}

func (s *fakeSource) CountPlayers(_ context.Context, scope model.Scope) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.bests[scope.String()])), nil
}

// flakyCache fails every Add.
type flakyCache struct {
	*rankcache.MemoryCache
}

func (flakyCache) Add(context.Context, string, int64, int32) error {
	return errors.New("connection reset")
}

func seed(src *fakeSource, scope model.Scope) {
	src.set(scope, 1, 100)
	src.set(scope, 2, 200)
	src.set(scope, 3, 200)
	src.set(scope, 4, 300)
}

func TestResolveRank(t *testing.T) {
	Convey("Given an engine over a cold cache", t, func() {
		So(logger.InitWithWriter(io.Discard), ShouldBeNil)
		ctx := context.Background()
		cache := rankcache.NewMemoryCache()
		src := newFakeSource()
		engine := leaderboard.New(cache, src, leaderboard.WithNamer(keys.NewNamer("test")))

		Convey("Ascending scopes rank lower times first", func() {
			scope := model.MapScope(model.Map{ID: 1})
			seed(src, scope)

			want := map[int32]int{100: 1, 200: 2, 300: 4}
			for tm, rank := range want {
				got, err := engine.ResolveRank(ctx, scope, tm)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, rank)
			}
			So(src.reads, ShouldEqual, 1)
		})

		Convey("Descending scopes rank higher times first", func() {
			scope := model.MapScope(model.Map{ID: 2, Reversed: true})
			seed(src, scope)

			want := map[int32]int{300: 1, 200: 2, 100: 4}
			for tm, rank := range want {
				got, err := engine.ResolveRank(ctx, scope, tm)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, rank)
			}
		})

		Convey("Ranks never decrease as times get worse", func() {
			scope := model.MapScope(model.Map{ID: 3})
			for p := int64(1); p <= 40; p++ {
				src.set(scope, p, int32(1000+(p*37)%17*10))
			}
			prev := 0
			for tm := int32(1000); tm <= 1160; tm += 10 {
				got, err := engine.ResolveRank(ctx, scope, tm)
				So(err, ShouldBeNil)
				So(got, ShouldBeGreaterThanOrEqualTo, prev)
				prev = got
			}
		})

		Convey("Tied players share the rank of their time", func() {
			scope := model.MapScope(model.Map{ID: 4})
			seed(src, scope)
			key := engine.Key(scope)

			_, err := engine.Rebuild(ctx, scope)
			So(err, ShouldBeNil)

			r2, _, _ := cache.RankOf(ctx, key, 2, scope.Order)
			r3, _, _ := cache.RankOf(ctx, key, 3, scope.Order)
			rank, err := engine.ResolveRank(ctx, scope, 200)
			So(err, ShouldBeNil)
			So(rank, ShouldEqual, int(min(r2, r3))+1)
		})

		Convey("Rebuild is idempotent", func() {
			scope := model.MapScope(model.Map{ID: 5})
			seed(src, scope)

			n1, err := engine.Rebuild(ctx, scope)
			So(err, ShouldBeNil)
			first, _ := engine.Members(ctx, scope, window.Range{Offset: 0, Count: 10})

			n2, err := engine.Rebuild(ctx, scope)
			So(err, ShouldBeNil)
			second, _ := engine.Members(ctx, scope, window.Range{Offset: 0, Count: 10})

			So(n2, ShouldEqual, n1)
			So(second, ShouldResemble, first)
		})

		Convey("A cleared key heals on the next resolve", func() {
			scope := model.MapScope(model.Map{ID: 6})
			seed(src, scope)
			_, err := engine.ResolveRank(ctx, scope, 100)
			So(err, ShouldBeNil)

			So(cache.Delete(ctx, engine.Key(scope)), ShouldBeNil)
			rank, err := engine.ResolveRank(ctx, scope, 300)
			So(err, ShouldBeNil)
			So(rank, ShouldEqual, 4)
			So(src.reads, ShouldEqual, 2)
		})

		Convey("A time nobody holds is an invariant violation", func() {
			scope := model.MapScope(model.Map{ID: 7})
			seed(src, scope)

			_, err := engine.ResolveRank(ctx, scope, 150)
			So(errors.Is(err, leaderboard.ErrInvariantViolation), ShouldBeTrue)

			var ierr *leaderboard.InvariantError
			So(errors.As(err, &ierr), ShouldBeTrue)
			So(ierr.Time, ShouldEqual, 150)
			So(ierr.Scope.MapID, ShouldEqual, 7)
		})

		Convey("Source failures propagate", func() {
			scope := model.MapScope(model.Map{ID: 8})
			src.err = errors.New("db down")

			_, err := engine.ResolveRank(ctx, scope, 100)
			So(err, ShouldNotBeNil)
			So(errors.Is(err, leaderboard.ErrInvariantViolation), ShouldBeFalse)
		})

		Convey("Event scopes rank apart from the map", func() {
			m := model.Map{ID: 9}
			global := model.MapScope(m)
			event := model.EventScope(m, &model.EventRef{EventID: 1, EditionID: 1})
			seed(src, global)
			src.set(event, 4, 300)

			rank, err := engine.ResolveRank(ctx, event, 300)
			So(err, ShouldBeNil)
			So(rank, ShouldEqual, 1)
			So(engine.Key(event), ShouldNotEqual, engine.Key(global))
		})
	})
}

func TestCountOrRebuild(t *testing.T) {
	Convey("Given a cache that drifted from the source", t, func() {
		So(logger.InitWithWriter(io.Discard), ShouldBeNil)
		ctx := context.Background()
		cache := rankcache.NewMemoryCache()
		src := newFakeSource()
		engine := leaderboard.New(cache, src)
		scope := model.MapScope(model.Map{ID: 1})
		seed(src, scope)

		So(cache.Add(ctx, engine.Key(scope), 99, 50), ShouldBeNil)

		Convey("CountOrRebuild repairs it", func() {
			n, err := engine.CountOrRebuild(ctx, scope)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 4)

			rank, err := engine.PlayerRank(ctx, scope, 99)
			So(err, ShouldBeNil)
			So(rank, ShouldBeNil)

			rank, err = engine.PlayerRank(ctx, scope, 4)
			So(err, ShouldBeNil)
			So(*rank, ShouldEqual, 3)
		})

		Convey("A matching size is served from the cache", func() {
			_, err := engine.Rebuild(ctx, scope)
			So(err, ShouldBeNil)
			reads := src.reads

			n, err := engine.CountOrRebuild(ctx, scope)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 4)
			So(src.reads, ShouldEqual, reads)
		})
	})
}

func TestRecord(t *testing.T) {
	Convey("Given an engine", t, func() {
		So(logger.InitWithWriter(io.Discard), ShouldBeNil)
		ctx := context.Background()
		src := newFakeSource()
		scope := model.MapScope(model.Map{ID: 1})

		Convey("Record writes the best time", func() {
			cache := rankcache.NewMemoryCache()
			engine := leaderboard.New(cache, src)
			So(engine.Record(ctx, scope, 5, 42), ShouldBeNil)

			ids, err := engine.Members(ctx, scope, window.Range{Offset: 0, Count: 1})
			So(err, ShouldBeNil)
			So(ids, ShouldResemble, []int64{5})
		})

		Convey("A failed write falls back to a rebuild", func() {
			cache := flakyCache{rankcache.NewMemoryCache()}
			engine := leaderboard.New(cache, src)
			src.set(scope, 5, 42)

			So(engine.Record(ctx, scope, 5, 42), ShouldBeNil)
			So(src.reads, ShouldEqual, 1)

			rank, err := engine.PlayerRank(ctx, scope, 5)
			So(err, ShouldBeNil)
			So(*rank, ShouldEqual, 0)
		})

		Convey("Empty ranges read nothing", func() {
			engine := leaderboard.New(rankcache.NewMemoryCache(), src)
			ids, err := engine.Members(ctx, scope, window.Range{})
			So(err, ShouldBeNil)
			So(ids, ShouldBeEmpty)
		})
	})
}
