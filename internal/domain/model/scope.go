package model

import "fmt"

// EventRef identifies one edition of an event.
type EventRef struct {
	EventID   int64
	EditionID int64
}

// Scope identifies one independent leaderboard: a map, optionally narrowed to
// an event edition. It carries the ordering of its map.
type Scope struct {
	MapID int64
	Event *EventRef
	Order Ordering
}

// MapScope returns the global scope of m.
func MapScope(m Map) Scope {
	return Scope{MapID: m.RankingID(), Order: m.Order()}
}

// EventScope returns the scope of m within an event edition. A nil ev yields
// the global scope.
func EventScope(m Map, ev *EventRef) Scope {
	s := MapScope(m)
	if ev != nil {
		ref := *ev
		s.Event = &ref
	}
	return s
}

func (s Scope) String() string {
	if s.Event == nil {
		return fmt.Sprintf("map:%d", s.MapID)
	}
	return fmt.Sprintf("map:%d/event:%d/edition:%d", s.MapID, s.Event.EventID, s.Event.EditionID)
}
