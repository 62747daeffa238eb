// Package snapshot stores mappack registrations and computed standings in Redis.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/okian/trackrank/internal/domain/keys"
	"github.com/okian/trackrank/internal/domain/model"
	"github.com/okian/trackrank/internal/domain/scoring"
)

// RedisStore keeps mappacks under the keys named by a keys.Namer.
type RedisStore struct {
	client redis.UniversalClient
	keys   keys.Namer
}

// NewRedisStore wraps client.
func NewRedisStore(client redis.UniversalClient, namer keys.Namer) *RedisStore {
	return &RedisStore{client: client, keys: namer}
}

// MapUIDs returns the map UIDs of a mappack sorted, which fixes map indexes.
// An empty result means the mappack expired or never existed.
func (s *RedisStore) MapUIDs(ctx context.Context, id string) ([]string, error) {
	uids, err := s.client.SMembers(ctx, s.keys.Mappack(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("mappack %s maps: %w", id, err)
	}
	sort.Strings(uids)
	return uids, nil
}

// Participants returns the players enrolled in a mappack.
func (s *RedisStore) Participants(ctx context.Context, id string) ([]int64, error) {
	members, err := s.client.SMembers(ctx, s.keys.MappackPlayers(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("mappack %s players: %w", id, err)
	}
	out := make([]int64, 0, len(members))
	for _, m := range members {
		pid, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: player %q", ErrCorrupt, m)
		}
		out = append(out, pid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Deregister removes a mappack from the registry.
func (s *RedisStore) Deregister(ctx context.Context, id string) error {
	return s.client.SRem(ctx, s.keys.Mappacks(), id).Err()
}

// IsPermanent reports whether a mappack is in the no-TTL registry.
func (s *RedisStore) IsPermanent(ctx context.Context, id string) (bool, error) {
	return s.client.SIsMember(ctx, s.keys.NoTTLMappacks(), id).Result()
}

// Registered returns every registered mappack id.
func (s *RedisStore) Registered(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.keys.Mappacks()).Result()
	if err != nil {
		return nil, fmt.Errorf("mappack registry: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Register adds maps and participants to a mappack and registers it. A zero
// ttl makes the mappack permanent; a permanent mappack stays so.
func (s *RedisStore) Register(ctx context.Context, id string, uids []string, participants []int64, ttl time.Duration) error {
	if ttl > 0 {
		permanent, err := s.IsPermanent(ctx, id)
		if err != nil {
			return fmt.Errorf("register mappack %s: %w", id, err)
		}
		if permanent {
			ttl = 0
		}
	}
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		if len(uids) > 0 {
			members := make([]interface{}, len(uids))
			for i, u := range uids {
				members[i] = u
			}
			p.SAdd(ctx, s.keys.Mappack(id), members...)
		}
		if len(participants) > 0 {
			members := make([]interface{}, len(participants))
			for i, pid := range participants {
				members[i] = pid
			}
			p.SAdd(ctx, s.keys.MappackPlayers(id), members...)
		}
		p.SAdd(ctx, s.keys.Mappacks(), id)
		if ttl > 0 {
			p.Expire(ctx, s.keys.Mappack(id), ttl)
			p.Expire(ctx, s.keys.MappackPlayers(id), ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("register mappack %s: %w", id, err)
	}
	if ttl <= 0 {
		return s.Persist(ctx, id)
	}
	return nil
}

// Persist marks a mappack permanent and drops the expiry of its map set.
func (s *RedisStore) Persist(ctx context.Context, id string) error {
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.SAdd(ctx, s.keys.Mappacks(), id)
		p.SAdd(ctx, s.keys.NoTTLMappacks(), id)
		p.Persist(ctx, s.keys.Mappack(id))
		p.Persist(ctx, s.keys.MappackPlayers(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("persist mappack %s: %w", id, err)
	}
	return nil
}

// Save writes computed standings in one pipeline and registers the mappack.
// Every key, the map set included, gets ttl; a zero ttl persists them.
// Sorted sets are rewritten so that vanished members do not linger.
func (s *RedisStore) Save(ctx context.Context, scores model.MappackScores, ttl time.Duration) error {
	id := scores.ID
	expire := func(p redis.Pipeliner, key string) {
		if ttl > 0 {
			p.Expire(ctx, key, ttl)
			return
		}
		p.Persist(ctx, key)
	}

	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.keys.MappackNbMap(id), len(scores.Maps), ttl)
		p.Set(ctx, s.keys.MappackTime(id), scores.ComputedAt.Unix(), ttl)
		for _, m := range scores.Maps {
			p.Set(ctx, s.keys.MappackMapLastRank(id, m.UID), m.LastRank, ttl)
		}

		lb := s.keys.MappackLeaderboard(id)
		p.Del(ctx, lb)
		if len(scores.Scores) > 0 {
			zs := make([]*redis.Z, 0, len(scores.Scores))
			for _, ps := range scores.Scores {
				zs = append(zs, &redis.Z{Score: float64(ps.Rank), Member: ps.PlayerID})
			}
			p.ZAdd(ctx, lb, zs...)
			expire(p, lb)
		}

		for _, ps := range scores.Scores {
			pid := ps.PlayerID
			p.Set(ctx, s.keys.MappackPlayerRankAvg(id, pid), scoring.RoundRankAvg(ps.Score), ttl)
			p.Set(ctx, s.keys.MappackPlayerFinished(id, pid), ps.MapsFinished, ttl)
			p.Set(ctx, s.keys.MappackPlayerWorst(id, pid), ps.Worst.Rank, ttl)

			ranks := s.keys.MappackPlayerRanks(id, pid)
			p.Del(ctx, ranks)
			zs := make([]*redis.Z, 0, len(ps.Ranks))
			for _, r := range ps.Ranks {
				if r.MapIdx < 0 || r.MapIdx >= len(scores.Maps) {
					continue
				}
				zs = append(zs, &redis.Z{Score: float64(r.Rank), Member: scores.Maps[r.MapIdx].UID})
			}
			if len(zs) > 0 {
				p.ZAdd(ctx, ranks, zs...)
				expire(p, ranks)
			}
		}

		expire(p, s.keys.Mappack(id))
		expire(p, s.keys.MappackPlayers(id))
		p.SAdd(ctx, s.keys.Mappacks(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save mappack %s: %w", id, err)
	}
	return nil
}

// Load reads back the standings written by Save. Players are ordered by
// overall rank and carry no login or name. ok is false when no standings
// were ever written or they expired.
func (s *RedisStore) Load(ctx context.Context, id string) (scores model.MappackScores, ok bool, err error) {
	nbMap, err := s.client.Get(ctx, s.keys.MappackNbMap(id)).Int()
	if errors.Is(err, redis.Nil) {
		return model.MappackScores{}, false, nil
	}
	if err != nil {
		return model.MappackScores{}, false, fmt.Errorf("load mappack %s: %w", id, err)
	}

	scores.ID = id
	if unix, err := s.client.Get(ctx, s.keys.MappackTime(id)).Int64(); err == nil {
		scores.ComputedAt = time.Unix(unix, 0).UTC()
	}

	uids, err := s.MapUIDs(ctx, id)
	if err != nil {
		return model.MappackScores{}, false, err
	}
	if err := s.loadMaps(ctx, &scores, uids, nbMap); err != nil {
		return model.MappackScores{}, false, err
	}
	if err := s.loadPlayers(ctx, &scores); err != nil {
		return model.MappackScores{}, false, err
	}
	return scores, true, nil
}

func (s *RedisStore) loadMaps(ctx context.Context, scores *model.MappackScores, uids []string, nbMap int) error {
	cmds := make([]*redis.StringCmd, len(uids))
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, uid := range uids {
			cmds[i] = p.Get(ctx, s.keys.MappackMapLastRank(scores.ID, uid))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("load mappack %s maps: %w", scores.ID, err)
	}

	scores.Maps = make([]model.MappackMap, 0, nbMap)
	for i, uid := range uids {
		last, err := cmds[i].Int()
		if errors.Is(err, redis.Nil) {
			// Added after the last recompute.
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: last rank of %s: %v", ErrCorrupt, uid, err)
		}
		scores.Maps = append(scores.Maps, model.MappackMap{UID: uid, LastRank: last})
	}
	return nil
}

type playerCmds struct {
	avg, finished, worst *redis.StringCmd
	ranks                *redis.ZSliceCmd
}

func (s *RedisStore) loadPlayers(ctx context.Context, scores *model.MappackScores) error {
	id := scores.ID
	lb, err := s.client.ZRangeWithScores(ctx, s.keys.MappackLeaderboard(id), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("load mappack %s leaderboard: %w", id, err)
	}

	pids := make([]int64, len(lb))
	for i, z := range lb {
		member, _ := z.Member.(string)
		pid, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: player %q", ErrCorrupt, member)
		}
		pids[i] = pid
	}

	cmds := make([]playerCmds, len(pids))
	_, err = s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, pid := range pids {
			cmds[i] = playerCmds{
				avg:      p.Get(ctx, s.keys.MappackPlayerRankAvg(id, pid)),
				finished: p.Get(ctx, s.keys.MappackPlayerFinished(id, pid)),
				worst:    p.Get(ctx, s.keys.MappackPlayerWorst(id, pid)),
				ranks:    p.ZRangeWithScores(ctx, s.keys.MappackPlayerRanks(id, pid), 0, -1),
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("load mappack %s players: %w", id, err)
	}

	index := make(map[string]int, len(scores.Maps))
	for i, m := range scores.Maps {
		index[m.UID] = i
	}

	scores.Scores = make([]model.PlayerScore, 0, len(pids))
	for i, pid := range pids {
		c := cmds[i]
		ps := model.PlayerScore{PlayerID: pid, Rank: int(lb[i].Score)}
		ps.Score, _ = c.avg.Float64()
		ps.MapsFinished, _ = c.finished.Int()
		worst, _ := c.worst.Int()

		ranks, _ := c.ranks.Result()
		for _, z := range ranks {
			uid, _ := z.Member.(string)
			idx, ok := index[uid]
			if !ok {
				continue
			}
			r := model.MapRank{Rank: int(z.Score), MapIdx: idx}
			ps.Ranks = append(ps.Ranks, r)
			if r.Rank == worst {
				ps.Worst = r
			}
		}
		if ps.Worst.Rank == 0 {
			ps.Worst.Rank = worst
		}
		scores.Scores = append(scores.Scores, ps)
	}
	return nil
}
