package model

import "time"

// MapRank is a player's rank on the map at MapIdx within a mappack.
type MapRank struct {
	Rank   int
	MapIdx int
}

// PlayerScore is a player's composite standing in a mappack.
type PlayerScore struct {
	PlayerID     int64
	Login        string
	Name         string
	Ranks        []MapRank
	MapsFinished int
	Score        float64
	Rank         int
	Worst        MapRank
}

// MappackMap is one map of a mappack with the worst real rank observed on it.
type MappackMap struct {
	UID      string
	Name     string
	LastRank int
}

// MappackScores is the full result of scoring a mappack.
type MappackScores struct {
	ID         string
	Maps       []MappackMap
	Scores     []PlayerScore
	ComputedAt time.Time
}
