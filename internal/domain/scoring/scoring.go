// Package scoring computes composite mappack standings from per-map ranks.
package scoring

import (
	"math"
	"sort"

	"github.com/okian/trackrank/internal/domain/model"
)

// epsilon nudges averages sitting exactly on .xx5 upwards before rounding.
const epsilon = 2.220446049250313e-16

// Entry is one resolved global record on a map.
type Entry struct {
	PlayerID int64
	Login    string
	Name     string
	Rank     int
}

// Participant is a player scored even without any record on the mappack.
type Participant struct {
	PlayerID int64
	Login    string
	Name     string
}

// Result is the outcome of Compute.
type Result struct {
	// LastRanks holds, per map index, the worst real rank observed.
	LastRanks []int
	Scores    []model.PlayerScore
}

// Compute scores every player found in maps, plus participants, against the
// maps in order. A player missing from a map gets that map's last rank + 1.
// The returned scores are sorted by overall rank.
func Compute(maps [][]Entry, participants []Participant) Result {
	res := Result{LastRanks: make([]int, len(maps))}

	byPlayer := make(map[int64]int)
	add := func(id int64, login, name string) {
		if _, ok := byPlayer[id]; ok {
			return
		}
		byPlayer[id] = len(res.Scores)
		res.Scores = append(res.Scores, model.PlayerScore{
			PlayerID: id,
			Login:    login,
			Name:     name,
			Ranks:    make([]model.MapRank, 0, len(maps)),
		})
	}

	for _, records := range maps {
		for _, e := range records {
			add(e.PlayerID, e.Login, e.Name)
		}
	}
	for _, p := range participants {
		add(p.PlayerID, p.Login, p.Name)
	}

	for idx, records := range maps {
		last := 0
		ranks := make(map[int64]int, len(records))
		for _, e := range records {
			if e.Rank > last {
				last = e.Rank
			}
			if _, ok := ranks[e.PlayerID]; !ok {
				ranks[e.PlayerID] = e.Rank
			}
		}
		res.LastRanks[idx] = last

		for i := range res.Scores {
			p := &res.Scores[i]
			if r, ok := ranks[p.PlayerID]; ok {
				p.Ranks = append(p.Ranks, model.MapRank{Rank: r, MapIdx: idx})
				p.MapsFinished++
			} else {
				p.Ranks = append(p.Ranks, model.MapRank{Rank: last + 1, MapIdx: idx})
			}
		}
	}

	for i := range res.Scores {
		p := &res.Scores[i]
		sortRanks(p.Ranks, res.LastRanks)
		p.Worst = worst(p.Ranks)
		p.Score = mean(p.Ranks)
	}

	sort.SliceStable(res.Scores, func(i, j int) bool {
		a, b := res.Scores[i], res.Scores[j]
		if a.MapsFinished != b.MapsFinished {
			return a.MapsFinished > b.MapsFinished
		}
		return a.Score < b.Score
	})

	AssignRanks(res.Scores)
	return res
}

// AssignRanks sets the overall rank of sorted scores. A player shares the
// previous player's rank when both score and maps finished are equal.
func AssignRanks(scores []model.PlayerScore) {
	for i := range scores {
		if i > 0 && scores[i].Score == scores[i-1].Score && scores[i].MapsFinished == scores[i-1].MapsFinished {
			scores[i].Rank = scores[i-1].Rank
			continue
		}
		scores[i].Rank = i + 1
	}
}

// RoundRankAvg rounds a mean rank to two decimals.
func RoundRankAvg(score float64) float64 {
	return math.Round((score+epsilon)*100) / 100
}

// sortRanks orders a player's ranks from best to worst relative to each
// map's last rank, then by absolute rank. The order is presentational only.
func sortRanks(ranks []model.MapRank, lastRanks []int) {
	relative := func(r model.MapRank) float64 {
		last := lastRanks[r.MapIdx]
		if last < 1 {
			last = 1
		}
		return float64(r.Rank) / float64(last)
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		ri, rj := relative(ranks[i]), relative(ranks[j])
		if ri != rj {
			return ri < rj
		}
		return ranks[i].Rank < ranks[j].Rank
	})
}

func worst(ranks []model.MapRank) model.MapRank {
	var w model.MapRank
	for i, r := range ranks {
		if i == 0 || r.Rank >= w.Rank {
			w = r
		}
	}
	return w
}

func mean(ranks []model.MapRank) float64 {
	if len(ranks) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ranks {
		sum += r.Rank
	}
	return float64(sum) / float64(len(ranks))
}
