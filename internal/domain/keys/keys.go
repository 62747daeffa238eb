// Package keys names every cache key and holds the mappack expiry policy.
package keys

import (
	"strconv"
	"strings"
	"time"

	"github.com/okian/trackrank/internal/domain/model"
)

// Namer builds cache keys under a common prefix.
type Namer struct {
	prefix string
}

// NewNamer returns a Namer for prefix. An empty prefix yields unprefixed keys.
func NewNamer(prefix string) Namer {
	return Namer{prefix: strings.TrimSuffix(prefix, ":")}
}

func (n Namer) join(parts ...string) string {
	if n.prefix != "" {
		parts = append([]string{n.prefix}, parts...)
	}
	return strings.Join(parts, ":")
}

func id(v int64) string { return strconv.FormatInt(v, 10) }

// Leaderboard is the rank cache key of a scope.
func (n Namer) Leaderboard(s model.Scope) string {
	if s.Event == nil {
		return n.join("lb", id(s.MapID))
	}
	return n.join("lb", id(s.MapID), "ev", id(s.Event.EventID), id(s.Event.EditionID))
}

// Mappacks is the registry of known mappack ids.
func (n Namer) Mappacks() string { return n.join("mappacks") }

// NoTTLMappacks is the registry of permanent mappack ids.
func (n Namer) NoTTLMappacks() string { return n.join("no_ttl_mappacks") }

// Mappack is the set of map UIDs of a mappack.
func (n Namer) Mappack(mappack string) string { return n.join("mappack", mappack) }

// MappackPlayers is the set of enrolled participants of a mappack.
func (n Namer) MappackPlayers(mappack string) string { return n.join("mappack", mappack, "players") }

// MappackNbMap holds the number of maps scored by the last recompute.
func (n Namer) MappackNbMap(mappack string) string { return n.join("mappack", mappack, "nb_map") }

// MappackTime holds the unix time of the last recompute.
func (n Namer) MappackTime(mappack string) string { return n.join("mappack", mappack, "time") }

// MappackLeaderboard is the player -> overall rank sorted set.
func (n Namer) MappackLeaderboard(mappack string) string { return n.join("mappack", mappack, "lb") }

// MappackMapLastRank holds the worst real rank observed on one map.
func (n Namer) MappackMapLastRank(mappack, mapUID string) string {
	return n.join("mappack", mappack, "map", mapUID, "last_rank")
}

// MappackPlayerRanks is the map UID -> rank sorted set of one player.
func (n Namer) MappackPlayerRanks(mappack string, player int64) string {
	return n.join("mappack", mappack, "player", id(player), "ranks")
}

// MappackPlayerRankAvg holds the rounded mean rank of one player.
func (n Namer) MappackPlayerRankAvg(mappack string, player int64) string {
	return n.join("mappack", mappack, "player", id(player), "rank_avg")
}

// MappackPlayerFinished holds the number of maps finished by one player.
func (n Namer) MappackPlayerFinished(mappack string, player int64) string {
	return n.join("mappack", mappack, "player", id(player), "maps_finished")
}

// MappackPlayerWorst holds the worst rank of one player.
func (n Namer) MappackPlayerWorst(mappack string, player int64) string {
	return n.join("mappack", mappack, "player", id(player), "worst_rank")
}

// TTLPolicy decides the expiry of mappack keys.
type TTLPolicy struct {
	Ephemeral time.Duration
}

// Expiry returns the TTL for a mappack's keys. Zero means persist.
func (p TTLPolicy) Expiry(permanent bool) time.Duration {
	if permanent {
		return 0
	}
	return p.Ephemeral
}
