// Package types contains the JSON shapes served by the HTTP layer.
package types

import (
	"time"

	"github.com/okian/trackrank/internal/domain/model"
)

// RankedRecord is one row of an overview.
type RankedRecord struct {
	Rank     int    `json:"rank"`
	Login    string `json:"login"`
	Nickname string `json:"nickname"`
	Time     int32  `json:"time"`
}

// OverviewResponse wraps the rows of a leaderboard overview.
type OverviewResponse struct {
	Response []RankedRecord `json:"response"`
}

// RankResponse answers a rank query.
type RankResponse struct {
	MapUID string `json:"map_uid"`
	Time   int32  `json:"time"`
	Rank   int    `json:"rank"`
}

// FinishedResponse reports the outcome of a finish.
type FinishedResponse struct {
	HasImproved bool   `json:"has_improved"`
	Login       string `json:"login"`
	Old         int32  `json:"old"`
	New         int32  `json:"new"`
	CurrentRank int    `json:"current_rank"`
	Reversed    bool   `json:"reversed"`
}

// MapRank is a rank on one map of a mappack.
type MapRank struct {
	Rank   int    `json:"rank"`
	MapUID string `json:"map_uid"`
}

// PlayerScore is one row of a mappack leaderboard.
type PlayerScore struct {
	Rank         int       `json:"rank"`
	Login        string    `json:"login"`
	Name         string    `json:"name"`
	RankAvg      float64   `json:"rank_avg"`
	MapsFinished int       `json:"maps_finished"`
	Worst        MapRank   `json:"worst"`
	Ranks        []MapRank `json:"ranks"`
}

// MappackMap describes one map of a mappack.
type MappackMap struct {
	MapUID   string `json:"map_uid"`
	Name     string `json:"name"`
	LastRank int    `json:"last_rank"`
}

// MappackResponse is the rendered mappack snapshot.
type MappackResponse struct {
	ID         string        `json:"id"`
	NbMap      int           `json:"nb_map"`
	Maps       []MappackMap  `json:"maps"`
	Scores     []PlayerScore `json:"scores"`
	ComputedAt time.Time     `json:"computed_at"`
}

// FromRankedRecords converts resolved rows.
func FromRankedRecords(rows []model.RankedRecord) OverviewResponse {
	out := OverviewResponse{Response: make([]RankedRecord, 0, len(rows))}
	for _, r := range rows {
		out.Response = append(out.Response, RankedRecord{Rank: r.Rank, Login: r.Login, Nickname: r.Name, Time: r.Time})
	}
	return out
}

// FromFinishResult converts a finish outcome.
func FromFinishResult(r model.FinishResult) FinishedResponse {
	return FinishedResponse{
		HasImproved: r.HasImproved,
		Login:       r.Login,
		Old:         r.OldTime,
		New:         r.NewTime,
		CurrentRank: r.CurrentRank,
		Reversed:    r.Reversed,
	}
}

// FromMappackScores converts a mappack snapshot. Map indexes are resolved to UIDs.
func FromMappackScores(s model.MappackScores) MappackResponse {
	uid := func(idx int) string {
		if idx >= 0 && idx < len(s.Maps) {
			return s.Maps[idx].UID
		}
		return ""
	}

	out := MappackResponse{
		ID:         s.ID,
		NbMap:      len(s.Maps),
		Maps:       make([]MappackMap, 0, len(s.Maps)),
		Scores:     make([]PlayerScore, 0, len(s.Scores)),
		ComputedAt: s.ComputedAt,
	}
	for _, m := range s.Maps {
		out.Maps = append(out.Maps, MappackMap{MapUID: m.UID, Name: m.Name, LastRank: m.LastRank})
	}
	for _, p := range s.Scores {
		ranks := make([]MapRank, 0, len(p.Ranks))
		for _, r := range p.Ranks {
			ranks = append(ranks, MapRank{Rank: r.Rank, MapUID: uid(r.MapIdx)})
		}
		out.Scores = append(out.Scores, PlayerScore{
			Rank:         p.Rank,
			Login:        p.Login,
			Name:         p.Name,
			RankAvg:      p.Score,
			MapsFinished: p.MapsFinished,
			Worst:        MapRank{Rank: p.Worst.Rank, MapUID: uid(p.Worst.MapIdx)},
			Ranks:        ranks,
		})
	}
	return out
}
