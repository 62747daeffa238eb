// Package loadtest drives a running trackrank service with generated
// finishes and checks what it serves against the runs it was sent.
package loadtest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/trackrank/pkg/logger"
)

const directoryPermission = 0750

// Run executes a complete load run and returns its statistics.
func Run(ctx context.Context, config *Config, seeder Seeder) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting trackrank load run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("finishes", config.Finishes),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.String("mappack", config.Mappack))

	if config.Players < 1 || config.Maps < 1 || config.Workers < 1 || config.Finishes < 1 {
		return stats, fmt.Errorf("%w: players, maps, workers and finishes must be positive", ErrInvalidConfig)
	}
	client := newHTTPClient(config.BaseURL, config.Timeout)

	if _, err := client.do(ctx, http.MethodGet, "/healthz", nil, nil); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	f, err := seed(ctx, seeder, config, stats)
	if err != nil {
		return stats, err
	}
	finishes, want := generateFinishes(ctx, f, config, stats)

	submitFinishes(ctx, client, config, finishes, stats)
	if stats.FinishesFailed > 0 {
		return stats, fmt.Errorf("%d of %d finishes failed", stats.FinishesFailed, stats.FinishesSubmitted)
	}

	if err := verifyRanks(ctx, client, config, want, stats); err != nil {
		return stats, err
	}
	if err := verifyOverviews(ctx, client, want, stats); err != nil {
		return stats, err
	}
	if config.Mappack != "" {
		if err := verifyMappack(ctx, client, config, f, want, stats); err != nil {
			return stats, err
		}
	}

	if config.OutputFile != "" {
		if err := saveFinishes(config.OutputFile, finishes); err != nil {
			log.Warn(ctx, "failed to save finishes to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// saveFinishes writes the submitted finishes as a JSON array.
func saveFinishes(filename string, finishes []Finish) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() { _ = file.Close() }()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(finishes); err != nil {
		return fmt.Errorf("failed to write finishes: %w", err)
	}
	return nil
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.FinishesSubmitted) / stats.Duration.Seconds()
	}
	logger.Get().Info(ctx, "final statistics",
		logger.Int("playersSeeded", stats.PlayersSeeded),
		logger.Int("mapsSeeded", stats.MapsSeeded),
		logger.Int("finishesSubmitted", stats.FinishesSubmitted),
		logger.Int("finishesImproved", stats.FinishesImproved),
		logger.Int("ranksChecked", stats.RanksChecked),
		logger.Int("overviewsChecked", stats.OverviewsChecked),
		logger.Int("mappackPlayers", stats.MappackPlayers),
		logger.Duration("duration", stats.Duration),
		logger.Float64("finishesPerSecond", perSecond))
}
