package rankcache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/okian/trackrank/internal/domain/model"
)

// RedisCache stores each scope as a Redis sorted set of player id -> time.
type RedisCache struct {
	client redis.UniversalClient
}

// NewRedisCache wraps client.
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

// Add runs ZADD key score member.
func (c *RedisCache) Add(ctx context.Context, key string, member int64, score int32) error {
	return c.client.ZAdd(ctx, key, &redis.Z{Score: float64(score), Member: member}).Err()
}

// Replace runs DEL and ZADD in one MULTI block.
func (c *RedisCache) Replace(ctx context.Context, key string, entries []model.Best) error {
	zs := make([]*redis.Z, 0, len(entries))
	for _, e := range entries {
		zs = append(zs, &redis.Z{Score: float64(e.Time), Member: e.PlayerID})
	}
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		if len(zs) > 0 {
			p.ZAdd(ctx, key, zs...)
		}
		return nil
	})
	return err
}

// Delete drops key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Count runs ZCARD.
func (c *RedisCache) Count(ctx context.Context, key string) (int64, error) {
	return c.client.ZCard(ctx, key).Result()
}

// FirstWithScore runs Z[REV]RANGEBYSCORE key score score LIMIT 0 1.
func (c *RedisCache) FirstWithScore(ctx context.Context, key string, score int32, order model.Ordering) (int64, bool, error) {
	s := strconv.FormatInt(int64(score), 10)
	by := &redis.ZRangeBy{Min: s, Max: s, Offset: 0, Count: 1}

	var res []string
	var err error
	if order.Reversed() {
		res, err = c.client.ZRevRangeByScore(ctx, key, by).Result()
	} else {
		res, err = c.client.ZRangeByScore(ctx, key, by).Result()
	}
	if err != nil {
		return 0, false, err
	}
	if len(res) == 0 {
		return 0, false, nil
	}
	member, err := parseMember(res[0])
	if err != nil {
		return 0, false, err
	}
	return member, true, nil
}

// RankOf runs Z[REV]RANK.
func (c *RedisCache) RankOf(ctx context.Context, key string, member int64, order model.Ordering) (int64, bool, error) {
	m := strconv.FormatInt(member, 10)

	var rank int64
	var err error
	if order.Reversed() {
		rank, err = c.client.ZRevRank(ctx, key, m).Result()
	} else {
		rank, err = c.client.ZRank(ctx, key, m).Result()
	}
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return rank, true, nil
}

// Range runs Z[REV]RANGE key start stop-1.
func (c *RedisCache) Range(ctx context.Context, key string, start, stop int64, order model.Ordering) ([]int64, error) {
	if start < 0 {
		start = 0
	}
	if stop <= start {
		return nil, nil
	}

	var res []string
	var err error
	if order.Reversed() {
		res, err = c.client.ZRevRange(ctx, key, start, stop-1).Result()
	} else {
		res, err = c.client.ZRange(ctx, key, start, stop-1).Result()
	}
	if err != nil {
		return nil, err
	}

	out := make([]int64, 0, len(res))
	for _, r := range res {
		m, err := parseMember(r)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func parseMember(s string) (int64, error) {
	m, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedMember, s)
	}
	return m, nil
}
