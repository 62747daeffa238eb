// Package model contains domain models passed between layers.
package model

// Map is a track on which players post times.
type Map struct {
	ID     int64
	UID    string
	Name   string
	// CpsNumber is the number of checkpoints, when known.
	CpsNumber *int32
	Reversed  bool
	// LinkedMap points at the map whose leaderboard this one shares.
	LinkedMap *int64
}

// RankingID is the id of the map whose leaderboard ranks this map's times.
func (m Map) RankingID() int64 {
	if m.LinkedMap != nil {
		return *m.LinkedMap
	}
	return m.ID
}

// Order returns the ordering strategy of the map.
func (m Map) Order() Ordering {
	return OrderingFor(m.Reversed)
}

// Player is a registered player.
type Player struct {
	ID    int64
	Login string
	Name  string
}

// Event is a competition grouping editions.
type Event struct {
	ID     int64
	Handle string
}

// Edition is one run of an event.
type Edition struct {
	ID      int64
	EventID int64
	Name    string
}

// Ref returns the scope reference of the edition.
func (e Edition) Ref() EventRef {
	return EventRef{EventID: e.EventID, EditionID: e.ID}
}
