package model

// Ordering is the direction strategy of one scope. The zero value ranks
// lower times first.
type Ordering struct {
	reversed bool
}

// Ascending ranks lower times first.
var Ascending = Ordering{}

// Descending ranks higher times first.
var Descending = Ordering{reversed: true}

// OrderingFor returns the ordering of a map given its reversed flag.
func OrderingFor(reversed bool) Ordering {
	return Ordering{reversed: reversed}
}

// Reversed reports whether higher times rank first.
func (o Ordering) Reversed() bool { return o.reversed }

// Compare returns a negative value when a ranks before b, zero on a tie and a
// positive value otherwise.
func (o Ordering) Compare(a, b int32) int {
	switch {
	case a == b:
		return 0
	case (a < b) != o.reversed:
		return -1
	default:
		return 1
	}
}

// Better reports whether a strictly outranks b.
func (o Ordering) Better(a, b int32) bool { return o.Compare(a, b) < 0 }

// Best returns whichever of a and b ranks first.
func (o Ordering) Best(a, b int32) int32 {
	if o.Better(b, a) {
		return b
	}
	return a
}

// Aggregate is the SQL aggregate selecting a player's current best time.
func (o Ordering) Aggregate() string {
	if o.reversed {
		return "MAX"
	}
	return "MIN"
}

// SQLDirection is the ORDER BY direction listing best times first.
func (o Ordering) SQLDirection() string {
	if o.reversed {
		return "DESC"
	}
	return "ASC"
}

func (o Ordering) String() string {
	if o.reversed {
		return "descending"
	}
	return "ascending"
}
