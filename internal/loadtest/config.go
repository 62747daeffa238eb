package loadtest

import (
	"errors"
	"time"
)

// ErrInvalidConfig rejects a run that cannot produce any finish.
var ErrInvalidConfig = errors.New("invalid load config")

// Config holds configuration for a load run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Players    int           // Players to seed
	Maps       int           // Maps to seed
	Finishes   int           // Finishes to submit
	Workers    int           // Concurrent submitters
	Samples    int           // Ranks checked per map
	Timeout    time.Duration // HTTP request timeout
	Mappack    string        // When set, a mappack over the seeded maps is scored and checked
	OutputFile string        // Output file for submitted finishes
	Verbose    bool          // Enable verbose logging
	Seed       uint64        // Seed of the time generator
}

// Finish is one run as posted to /player/finished.
type Finish struct {
	Login  string  `json:"login"`
	MapUID string  `json:"map_uid"`
	Time   int32   `json:"time"`
	Cps    []int32 `json:"cps,omitempty"`
}

// Stats holds run statistics.
type Stats struct {
	PlayersSeeded     int
	MapsSeeded        int
	FinishesGenerated int
	FinishesSubmitted int
	FinishesImproved  int
	FinishesFailed    int
	RanksChecked      int
	RankMismatches    int
	OverviewsChecked  int
	MappackPlayers    int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
