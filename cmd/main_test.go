package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/trackrank/internal/adapters/records"
	"github.com/okian/trackrank/internal/config"
	"github.com/okian/trackrank/internal/domain/model"
	"github.com/okian/trackrank/internal/domain/types"
	"github.com/okian/trackrank/pkg/logger"
)

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, r))
	return w
}

func TestMainApplication(t *testing.T) {
	_ = logger.InitWithWriter(io.Discard)

	convey.Convey("Given a configuration from the environment", t, func() {
		ctx := context.Background()
		mr := miniredis.RunT(t)
		dbPath := filepath.Join(t.TempDir(), "trackrank.db")

		t.Setenv("TRACKRANK_ADDR", ":0")
		t.Setenv("TRACKRANK_STORE_DRIVER", "sqlite")
		t.Setenv("TRACKRANK_SQLITE_PATH", dbPath)
		t.Setenv("TRACKRANK_CACHE_BACKEND", "redis")
		t.Setenv("TRACKRANK_REDIS_ADDR", mr.Addr())
		t.Setenv("TRACKRANK_MAPPACK_REFRESH_INTERVAL", "0s")
		t.Setenv("TRACKRANK_WORKER_COUNT", "2")

		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.SQLitePath, convey.ShouldEqual, dbPath)

		svc, closeDeps, err := buildService(ctx, cfg, logger.Get())
		convey.So(err, convey.ShouldBeNil)
		defer closeDeps()
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		// Seed through a second handle on the same database file.
		admin, err := records.OpenSQLite(ctx, dbPath)
		convey.So(err, convey.ShouldBeNil)
		defer func() { _ = admin.Close() }()
		for _, login := range []string{"alice", "bob"} {
			_, err := admin.AddPlayer(ctx, login, strings.ToUpper(login))
			convey.So(err, convey.ShouldBeNil)
		}
		_, err = admin.AddMap(ctx, model.Map{UID: "m1", Name: "First"})
		convey.So(err, convey.ShouldBeNil)

		h := newHandler(ctx, svc)

		convey.Convey("The assembled server answers health checks", func() {
			w := serve(h, http.MethodGet, "/healthz", "")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

			w = serve(h, http.MethodGet, "/stats", "")
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"cacheBackend":"redis"`)

			w = serve(h, http.MethodGet, "/openapi.yaml", "")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Finishes flow through to ranks and mappacks", func() {
			w := serve(h, http.MethodPost, "/player/finished", `{"login":"alice","map_uid":"m1","time":100,"cps":[40,60]}`)
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			w = serve(h, http.MethodPost, "/player/finished", `{"login":"bob","map_uid":"m1","time":120,"cps":[120]}`)
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

			var fin types.FinishedResponse
			convey.So(json.Unmarshal(w.Body.Bytes(), &fin), convey.ShouldBeNil)
			convey.So(fin.CurrentRank, convey.ShouldEqual, 2)

			w = serve(h, http.MethodGet, "/rank?map_uid=m1&time=120", "")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"rank":2`)

			w = serve(h, http.MethodPost, "/mappack", `{"id":"pack","map_uids":["m1"]}`)
			convey.So(w.Code, convey.ShouldEqual, http.StatusCreated)
			w = serve(h, http.MethodPost, "/mappack/pack/update?sync=1", "")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"updated":true`)

			w = serve(h, http.MethodGet, "/mappack/pack", "")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			var pack types.MappackResponse
			convey.So(json.Unmarshal(w.Body.Bytes(), &pack), convey.ShouldBeNil)
			convey.So(pack.Scores, convey.ShouldHaveLength, 2)
			convey.So(pack.Scores[0].Login, convey.ShouldEqual, "alice")
			convey.So(pack.Scores[1].Name, convey.ShouldEqual, "BOB")
		})
	})
}

func TestBuildService(t *testing.T) {
	_ = logger.InitWithWriter(io.Discard)

	convey.Convey("Given the default configuration", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.SQLitePath = ":memory:"

		convey.Convey("An in-memory cache disables mappacks", func() {
			cfg.CacheBackend = config.BackendMemory
			svc, closeDeps, err := buildService(ctx, cfg, logger.Get())
			convey.So(err, convey.ShouldBeNil)
			defer closeDeps()

			w := serve(newHandler(ctx, svc), http.MethodGet, "/mappack/pack", "")
			convey.So(w.Code, convey.ShouldEqual, http.StatusNotImplemented)
		})

		convey.Convey("An unknown driver is rejected", func() {
			cfg.StoreDriver = "mysql"
			_, _, err := buildService(ctx, cfg, logger.Get())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "open records store")
		})
	})
}
