package loadtest

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/trackrank/internal/adapters/http/api"
	"github.com/okian/trackrank/internal/adapters/records"
	service "github.com/okian/trackrank/internal/app"
	"github.com/okian/trackrank/pkg/logger"
)

func startService(t *testing.T) (*httptest.Server, *records.Store) {
	t.Helper()
	ctx := context.Background()

	store, err := records.OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(ctx); err != nil {
		t.Fatal(err)
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc, err := service.New(
		service.WithStore(store),
		service.WithRedisClient(client),
		service.WithWorkerCount(2),
		service.WithRefreshInterval(0),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = svc.Stop(ctx) })

	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(ctx, mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, store
}

func TestRun(t *testing.T) {
	_ = logger.InitWithWriter(io.Discard)

	Convey("Given a running service", t, func() {
		srv, store := startService(t)
		out := filepath.Join(t.TempDir(), "out", "finishes.json")
		config := &Config{
			BaseURL:    srv.URL,
			Players:    12,
			Maps:       3,
			Finishes:   300,
			Workers:    4,
			Samples:    12,
			Timeout:    5 * time.Second,
			Mappack:    "load-pack",
			OutputFile: out,
			Seed:       42,
		}

		Convey("A load run passes every check", func() {
			stats, err := Run(context.Background(), config, store)
			So(err, ShouldBeNil)
			So(stats.PlayersSeeded, ShouldEqual, 12)
			So(stats.FinishesSubmitted, ShouldEqual, 300)
			So(stats.FinishesFailed, ShouldEqual, 0)
			So(stats.FinishesImproved, ShouldBeGreaterThan, 0)
			So(stats.RanksChecked, ShouldBeGreaterThan, 0)
			So(stats.RankMismatches, ShouldEqual, 0)
			So(stats.OverviewsChecked, ShouldEqual, 3)
			So(stats.MappackPlayers, ShouldEqual, 12)

			_, statErr := os.Stat(out)
			So(statErr, ShouldBeNil)
		})

		Convey("Two runs on one store do not collide", func() {
			config.Mappack = ""
			_, err := Run(context.Background(), config, store)
			So(err, ShouldBeNil)
			_, err = Run(context.Background(), config, store)
			So(err, ShouldBeNil)
		})

		Convey("An empty run is rejected", func() {
			config.Finishes = 0
			_, err := Run(context.Background(), config, store)
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})
	})

	Convey("Given no service", t, func() {
		config := &Config{BaseURL: "http://127.0.0.1:1", Players: 1, Maps: 1, Finishes: 1, Workers: 1, Timeout: time.Second}

		Convey("The health check fails the run", func() {
			_, err := Run(context.Background(), config, nil)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "health check")
		})
	})
}

func TestGenerator(t *testing.T) {
	Convey("Given a random source", t, func() {
		rng := rand.New(rand.NewPCG(1, 2))

		Convey("Checkpoint splits are positive and add up to the run", func() {
			for i := 0; i < 500; i++ {
				total := int32(minRunTime + rng.IntN(runTimeRange))
				cps := splitTime(rng, total, cpsPerMap+1)
				So(cps, ShouldHaveLength, cpsPerMap+1)
				var sum int32
				for _, cp := range cps {
					So(cp, ShouldBeGreaterThan, 0)
					sum += cp
				}
				So(sum, ShouldEqual, total)
			}
		})
	})

	Convey("Given expected bests", t, func() {
		want := make(expected)
		want.add(Finish{Login: "a", MapUID: "m", Time: 100})
		want.add(Finish{Login: "b", MapUID: "m", Time: 120})
		want.add(Finish{Login: "c", MapUID: "m", Time: 120})
		want.add(Finish{Login: "a", MapUID: "m", Time: 150})
		want.add(Finish{Login: "d", MapUID: "n", Time: 90})

		Convey("Slower runs keep the best", func() {
			So(want["m"]["a"], ShouldEqual, 100)
		})

		Convey("Ties share a rank", func() {
			So(want.rank("m", 100), ShouldEqual, 1)
			So(want.rank("m", 120), ShouldEqual, 2)
			So(want.rank("n", 90), ShouldEqual, 1)
		})

		Convey("Players span maps", func() {
			So(want.players(), ShouldHaveLength, 4)
			So(samples(want, 2), ShouldHaveLength, 3)
		})

		Convey("A login always lands on the same submitter", func() {
			So(worker("a", 4), ShouldEqual, worker("a", 4))
			So(worker("a", 1), ShouldEqual, 0)
		})
	})
}
