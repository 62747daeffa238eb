package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/trackrank/internal/adapters/records"
	"github.com/okian/trackrank/internal/loadtest"
	"github.com/okian/trackrank/pkg/logger"
)

// Default configuration constants.
const (
	defaultPlayers  = 200
	defaultMaps     = 5
	defaultFinishes = 5000
	defaultSamples  = 50
	defaultWorkers  = 2 // multiplier for runtime.NumCPU()
	defaultTimeout  = 30 * time.Second
	defaultRunLimit = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		driver   = flag.String("driver", records.SQLite.Name, "Records store driver: sqlite or postgres")
		dsn      = flag.String("dsn", "trackrank.db", "Records store DSN or SQLite path")
		players  = flag.Int("players", defaultPlayers, "Players to seed")
		maps     = flag.Int("maps", defaultMaps, "Maps to seed")
		finishes = flag.Int("finishes", defaultFinishes, "Finishes to submit")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Concurrent submitters")
		samples  = flag.Int("samples", defaultSamples, "Ranks checked per map")
		mappack  = flag.String("mappack", "", "Score a mappack over the seeded maps under this id")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		output   = flag.String("output", "", "Output file for submitted finishes")
		logFile  = flag.String("log", "", "Log file (default: loadtest_TIMESTAMP.log)")
		verbose  = flag.Bool("verbose", false, "Enable verbose logging")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadtest.ShowHelp()
		return
	}

	if err := loadtest.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunLimit)
	defer cancel()

	store, err := records.Open(ctx, *driver, *dsn)
	if err != nil {
		log.Fatal(ctx, "failed to open records store", logger.Error(err))
	}
	defer func() { _ = store.Close() }()

	config := &loadtest.Config{
		BaseURL:    *baseURL,
		Players:    *players,
		Maps:       *maps,
		Finishes:   *finishes,
		Workers:    *workers,
		Samples:    *samples,
		Timeout:    *timeout,
		Mappack:    *mappack,
		OutputFile: *output,
		Verbose:    *verbose,
		Seed:       uint64(time.Now().UnixNano()),
	}
	if _, err := loadtest.Run(ctx, config, store); err != nil {
		log.Error(ctx, "load run failed", logger.Error(err))
		cancel()
		os.Exit(1)
	}
}
