package model

import "time"

// Best is a player's current best time in a scope.
type Best struct {
	PlayerID int64
	Time     int32
}

// PlayerRecord is a best time joined with the player who holds it.
type PlayerRecord struct {
	PlayerID int64
	Login    string
	Name     string
	Time     int32
}

// RankedRecord is a player record with its resolved rank.
type RankedRecord struct {
	Rank     int
	PlayerID int64
	Login    string
	Name     string
	Time     int32
}

// Finish is one run submitted by a player.
type Finish struct {
	PlayerID     int64
	MapID        int64
	Time         int32
	RespawnCount int32
	Flags        uint32
	// Cps holds the time spent between consecutive checkpoints.
	Cps  []int32
	Date time.Time
	// Event is set when the run was made within an event edition.
	Event *EventRef
}

// FinishResult reports the effect of a finish on the player's standing.
type FinishResult struct {
	RecordID    int64
	HasImproved bool
	Login       string
	// OldTime is the previous best; it equals NewTime on a first finish.
	OldTime     int32
	NewTime     int32
	CurrentRank int
	Reversed    bool
}
