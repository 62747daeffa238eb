// Package config defines service configuration structures and loading hooks.
package config

import (
	"runtime"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Cache backends.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the records store: postgres or sqlite.
	StoreDriver string `koanf:"store_driver"`
	PostgresDSN string `koanf:"postgres_dsn"`
	SQLitePath  string `koanf:"sqlite_path"`

	// CacheBackend selects the rank cache: redis or memory.
	// Mappack scoring needs redis.
	CacheBackend  string `koanf:"cache_backend"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// KeyPrefix namespaces every cache key.
	KeyPrefix string `koanf:"key_prefix"`

	// MappackTTL is the expiry applied to ephemeral mappack keys.
	MappackTTL time.Duration `koanf:"mappack_ttl"`
	// MappackRefreshInterval re-enqueues every registered mappack. Zero disables it.
	MappackRefreshInterval time.Duration `koanf:"mappack_refresh_interval"`
	// MappackConcurrency bounds the maps loaded in parallel by one recompute.
	MappackConcurrency int `koanf:"mappack_concurrency"`

	// QueueSize bounds the mappack job queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of mappack workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize bounds the set of pending mappack ids tracked for coalescing.
	DedupeSize int `koanf:"dedupe_size"`

	// MapCacheCapacity and MapCacheTTL size the map lookup cache.
	MapCacheCapacity int           `koanf:"map_cache_capacity"`
	MapCacheTTL      time.Duration `koanf:"map_cache_ttl"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":9080",
		StoreDriver:            DriverSQLite,
		SQLitePath:             "trackrank.db",
		CacheBackend:           BackendRedis,
		RedisAddr:              "localhost:6379",
		KeyPrefix:              "v3",
		MappackTTL:             7 * 24 * time.Hour,
		MappackRefreshInterval: 10 * time.Minute,
		MappackConcurrency:     4,
		QueueSize:              1_000,
		WorkerCount:            runtime.NumCPU(),
		DedupeSize:             10_000,
		MapCacheCapacity:       10_000,
		MapCacheTTL:            5 * time.Minute,
	}
}

// Validate checks the configuration and returns an error wrapping ErrInvalidConfig.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.StoreDriver, validation.Required, validation.In(DriverPostgres, DriverSQLite)),
		validation.Field(&c.PostgresDSN, validation.When(c.StoreDriver == DriverPostgres, validation.Required)),
		validation.Field(&c.SQLitePath, validation.When(c.StoreDriver == DriverSQLite, validation.Required)),
		validation.Field(&c.CacheBackend, validation.Required, validation.In(BackendRedis, BackendMemory)),
		validation.Field(&c.RedisAddr, validation.When(c.CacheBackend == BackendRedis, validation.Required)),
		validation.Field(&c.KeyPrefix, validation.Required),
		validation.Field(&c.MappackTTL, validation.Min(time.Second)),
		validation.Field(&c.MappackRefreshInterval, validation.Min(time.Duration(0))),
		validation.Field(&c.MappackConcurrency, validation.Min(1)),
		validation.Field(&c.QueueSize, validation.Min(1)),
		validation.Field(&c.WorkerCount, validation.Min(1)),
		validation.Field(&c.DedupeSize, validation.Min(1)),
		validation.Field(&c.MapCacheCapacity, validation.Min(1)),
		validation.Field(&c.MapCacheTTL, validation.Min(time.Millisecond)),
	)
	if err != nil {
		return wrapInvalid(err)
	}
	return nil
}
