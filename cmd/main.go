package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/okian/trackrank/internal/adapters/http/api"
	"github.com/okian/trackrank/internal/adapters/http/swagger"
	"github.com/okian/trackrank/internal/adapters/records"
	app "github.com/okian/trackrank/internal/app"
	"github.com/okian/trackrank/internal/config"
	"github.com/okian/trackrank/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	loggerInstance := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A missing .env is fine; the environment may already be set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		loggerInstance.Warn(ctx, "ignoring unreadable .env", logger.Error(err))
	}

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		loggerInstance.Fatal(ctx, "failed to load config", logger.Error(err))
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, closeDeps, err := buildService(ctx, cfg, loggerInstance)
	if err != nil {
		loggerInstance.Fatal(ctx, "failed to build service", logger.Error(err))
	}
	defer closeDeps()

	if err := svc.Start(ctx); err != nil {
		loggerInstance.Fatal(ctx, "failed to start service", logger.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		loggerInstance.Error(shutdownCtx, "service stop failed", logger.Error(err))
	}
	loggerInstance.Info(shutdownCtx, "server stopped")
}

// buildService opens the configured stores and assembles the service. The
// returned func releases the stores.
func buildService(ctx context.Context, cfg *config.Config, l logger.Logger) (*app.Service, func(), error) {
	dsn := cfg.SQLitePath
	if cfg.StoreDriver == config.DriverPostgres {
		dsn = cfg.PostgresDSN
	}
	store, err := records.Open(ctx, cfg.StoreDriver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open records store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("migrate records store: %w", err)
	}

	opts := []app.Option{
		app.WithLogger(l),
		app.WithStore(store),
		app.WithKeyPrefix(cfg.KeyPrefix),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithMappackTTL(cfg.MappackTTL),
		app.WithRefreshInterval(cfg.MappackRefreshInterval),
		app.WithMappackConcurrency(cfg.MappackConcurrency),
		app.WithMapCache(cfg.MapCacheCapacity, cfg.MapCacheTTL),
	}

	var client *redis.Client
	if cfg.CacheBackend == config.BackendRedis {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		opts = append(opts, app.WithRedisClient(client))
	}
	closeDeps := func() {
		if client != nil {
			_ = client.Close()
		}
		_ = store.Close()
	}

	svc, err := app.New(opts...)
	if err != nil {
		closeDeps()
		return nil, nil, fmt.Errorf("new service: %w", err)
	}
	return svc, closeDeps, nil
}

// newHandler registers the API routes of svc and its reference on a fresh mux.
func newHandler(ctx context.Context, svc *app.Service) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux)
	return mux
}
