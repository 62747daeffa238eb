// Package window selects which rank ranges an overview materializes.
package window

// Total is the number of rows an overview displays.
const Total = 15

const (
	topBlock   = 3
	tailBlock  = 3
	playerSpan = Total - topBlock
)

// Range is a contiguous block of 0-based ranks [Offset, Offset+Count).
type Range struct {
	Offset int
	Count  int
}

// End returns the exclusive end of the range.
func (r Range) End() int { return r.Offset + r.Count }

// Select returns the ranges to display for a player with 0-based cache rank
// rank (nil when the player has no record) in a scope of n entries.
func Select(rank *int, n int) []Range {
	if rank == nil {
		budget := Total - 1
		if n > budget {
			return []Range{
				{Offset: 0, Count: budget - tailBlock},
				{Offset: n - tailBlock, Count: tailBlock},
			}
		}
		return []Range{{Offset: 0, Count: budget}}
	}

	r := *rank
	if r < Total {
		return []Range{{Offset: 0, Count: Total}}
	}

	start := r - playerSpan/2
	end := start + playerSpan
	if end > n {
		start -= end - n
		end = n
	}
	if start < topBlock {
		start = topBlock
	}
	return []Range{
		{Offset: 0, Count: topBlock},
		{Offset: start, Count: end - start},
	}
}
