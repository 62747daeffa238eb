package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/trackrank/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverSQLite)
			convey.So(cfg.CacheBackend, convey.ShouldEqual, config.BackendRedis)
			convey.So(cfg.KeyPrefix, convey.ShouldEqual, "v3")
			convey.So(cfg.MappackTTL, convey.ShouldEqual, 7*24*time.Hour)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("When the store driver is unknown", func() {
			cfg.StoreDriver = "mysql"
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "store_driver")
		})

		convey.Convey("When postgres is selected without a DSN", func() {
			cfg.StoreDriver = config.DriverPostgres
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)

			cfg.PostgresDSN = "postgres://localhost/records"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When the memory backend is selected the redis address is optional", func() {
			cfg.CacheBackend = config.BackendMemory
			cfg.RedisAddr = ""
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When the worker count is zero", func() {
			cfg.WorkerCount = 0
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})
	})
}
