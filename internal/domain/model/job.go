package model

import "time"

// MappackJob asks for one mappack recompute.
type MappackJob struct {
	// JobID correlates the log lines of one recompute.
	JobID      string
	MappackID  string
	EnqueuedAt time.Time
}
