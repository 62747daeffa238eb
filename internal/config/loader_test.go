package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/trackrank/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1_000)
			convey.So(cfg.MapCacheTTL, convey.ShouldEqual, 5*time.Minute)
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("TRACKRANK_ADDR", ":8080")
			_ = os.Setenv("TRACKRANK_QUEUE_SIZE", "64")
			_ = os.Setenv("TRACKRANK_CACHE_BACKEND", "memory")
			_ = os.Setenv("TRACKRANK_MAPPACK_TTL", "2h")

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
			convey.So(cfg.CacheBackend, convey.ShouldEqual, config.BackendMemory)
			convey.So(cfg.MappackTTL, convey.ShouldEqual, 2*time.Hour)
		})

		convey.Convey("When loading config with a YAML file and env overrides", func() {
			tmpFile := createTempConfigFile(t, `
addr: ":9090"
worker_count: 3
key_prefix: "test"
mappack_refresh_interval: 0s
`)
			_ = os.Setenv("TRACKRANK_CONFIG", tmpFile)
			_ = os.Setenv("TRACKRANK_WORKER_COUNT", "5")

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
			convey.So(cfg.KeyPrefix, convey.ShouldEqual, "test")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 5)
			convey.So(cfg.MappackRefreshInterval, convey.ShouldEqual, time.Duration(0))
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 10_000)
		})

		convey.Convey("When the YAML file is invalid", func() {
			tmpFile := createTempConfigFile(t, `invalid: yaml: content: [`)
			_ = os.Setenv("TRACKRANK_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When the file does not exist", func() {
			_ = os.Setenv("TRACKRANK_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When the file empties the address", func() {
			tmpFile := createTempConfigFile(t, `addr: ""`)
			_ = os.Setenv("TRACKRANK_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func createTempConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearConfigEnvVars() {
	for _, key := range []string{
		"TRACKRANK_CONFIG", "TRACKRANK_ADDR", "TRACKRANK_QUEUE_SIZE", "TRACKRANK_WORKER_COUNT",
		"TRACKRANK_CACHE_BACKEND", "TRACKRANK_MAPPACK_TTL",
	} {
		_ = os.Unsetenv(key)
	}
}
