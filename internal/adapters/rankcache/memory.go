// Package rankcache implements the per-scope ranked cache on Redis and in memory.
package rankcache

import (
	"context"
	"sync"

	"github.com/okian/trackrank/internal/domain/model"
)

type board struct {
	root   *node
	scores map[int64]int32
}

func newBoard() *board {
	return &board{scores: make(map[int64]int32)}
}

func (b *board) add(member int64, score int32) {
	if old, ok := b.scores[member]; ok {
		if old == score {
			return
		}
		b.root = deleteNode(b.root, memberKey(member), old)
	}
	b.scores[member] = score
	b.root = insert(b.root, newNode(member, score))
}

// MemoryCache keeps every scope in a treap. It serves single-process
// deployments and tests; it offers the same ordering as RedisCache.
type MemoryCache struct {
	mu     sync.RWMutex
	boards map[string]*board
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{boards: make(map[string]*board)}
}

// Add sets member's score in key.
func (c *MemoryCache) Add(_ context.Context, key string, member int64, score int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.boards[key]
	if !ok {
		b = newBoard()
		c.boards[key] = b
	}
	b.add(member, score)
	return nil
}

// Replace swaps the content of key for entries.
func (c *MemoryCache) Replace(_ context.Context, key string, entries []model.Best) error {
	b := newBoard()
	for _, e := range entries {
		b.add(e.PlayerID, e.Time)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(entries) == 0 {
		delete(c.boards, key)
		return nil
	}
	c.boards[key] = b
	return nil
}

// Delete drops key.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.boards, key)
	return nil
}

// Count returns the number of members of key.
func (c *MemoryCache) Count(_ context.Context, key string) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if b, ok := c.boards[key]; ok {
		return int64(nsize(b.root)), nil
	}
	return 0, nil
}

// FirstWithScore returns the first member, in order, holding exactly score.
func (c *MemoryCache) FirstWithScore(_ context.Context, key string, score int32, order model.Ordering) (int64, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, ok := c.boards[key]
	if !ok {
		return 0, false, nil
	}
	idx := countBelow(b.root, score, false)
	if order.Reversed() {
		idx = countBelow(b.root, score, true) - 1
	}
	n := kth(b.root, idx)
	if n == nil || n.score != score {
		return 0, false, nil
	}
	return n.member, true, nil
}

// RankOf returns the 0-based rank of member.
func (c *MemoryCache) RankOf(_ context.Context, key string, member int64, order model.Ordering) (int64, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, ok := c.boards[key]
	if !ok {
		return 0, false, nil
	}
	score, ok := b.scores[member]
	if !ok {
		return 0, false, nil
	}
	pos := position(b.root, score, memberKey(member))
	if order.Reversed() {
		pos = nsize(b.root) - 1 - pos
	}
	return int64(pos), true, nil
}

// Range returns the members ranked [start, stop).
func (c *MemoryCache) Range(_ context.Context, key string, start, stop int64, order model.Ordering) ([]int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, ok := c.boards[key]
	if !ok {
		return nil, nil
	}
	n := int64(nsize(b.root))
	if start < 0 {
		start = 0
	}
	if stop > n {
		stop = n
	}
	if start >= stop {
		return nil, nil
	}

	out := make([]int64, 0, stop-start)
	if !order.Reversed() {
		collect(b.root, 0, int(start), int(stop), &out)
		return out, nil
	}
	collect(b.root, 0, int(n-stop), int(n-start), &out)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
