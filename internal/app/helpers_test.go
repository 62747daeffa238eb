package service_test

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/okian/trackrank/internal/adapters/records"
	service "github.com/okian/trackrank/internal/app"
	"github.com/okian/trackrank/internal/domain/model"
	"github.com/okian/trackrank/pkg/logger"
)

func init() {
	if err := logger.InitWithWriter(io.Discard); err != nil {
		panic(err)
	}
}

type env struct {
	svc   *service.Service
	store *records.Store
	mr    *miniredis.Miniredis
}

func newEnv(t *testing.T, withRedis bool, opts ...service.Option) *env {
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

	e := &env{store: store}
	opts = append([]service.Option{
		service.WithStore(store),
		service.WithWorkerCount(2),
		service.WithRefreshInterval(0),
	}, opts...)
	if withRedis {
		e.mr = miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: e.mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		opts = append(opts, service.WithRedisClient(client))
	}

	e.svc, err = service.New(opts...)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func (e *env) player(t *testing.T, login string) model.Player {
	t.Helper()
	p, err := e.store.AddPlayer(context.Background(), login, "Name "+login)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func (e *env) addMap(t *testing.T, m model.Map) model.Map {
	t.Helper()
	m, err := e.store.AddMap(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// finished submits a single-segment run and fails the test on error.
func (e *env) finished(t *testing.T, login, uid string, tm int32) model.FinishResult {
	t.Helper()
	in := service.FinishInput{MapUID: uid, Time: tm, Cps: []int32{tm}}
	res, err := e.svc.Finished(context.Background(), login, in, nil)
	if err != nil {
		t.Fatalf("finish %s on %s: %v", login, uid, err)
	}
	return res
}

// populate adds n players p1..pn finishing uid with times 1010, 1020...
func (e *env) populate(t *testing.T, uid string, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		login := fmt.Sprintf("p%d", i)
		e.player(t, login)
		e.finished(t, login, uid, int32(1000+i*10))
	}
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}
