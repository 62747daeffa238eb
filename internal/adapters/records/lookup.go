package records

import (
	"context"
	"strconv"
	"time"

	"github.com/viccon/sturdyc"

	"github.com/okian/trackrank/internal/domain/model"
)

const (
	lookupShards   = 16
	lookupEvictPct = 10
)

type edition struct {
	event   model.Event
	edition model.Edition
}

// Lookup fronts the existence checks of a Store with an in-process cache.
// Misses are not cached.
type Lookup struct {
	store    *Store
	maps     *sturdyc.Client[model.Map]
	editions *sturdyc.Client[edition]
}

// NewLookup caches up to capacity entries of each kind for ttl.
func NewLookup(store *Store, capacity int, ttl time.Duration) *Lookup {
	return &Lookup{
		store:    store,
		maps:     sturdyc.New[model.Map](capacity, lookupShards, ttl, lookupEvictPct),
		editions: sturdyc.New[edition](capacity, lookupShards, ttl, lookupEvictPct),
	}
}

// HaveMap returns the map with the given UID.
func (l *Lookup) HaveMap(ctx context.Context, uid string) (model.Map, error) {
	return l.maps.GetOrFetch(ctx, uid, func(ctx context.Context) (model.Map, error) {
		return l.store.HaveMap(ctx, uid)
	})
}

// HaveEventEdition returns an event edition.
func (l *Lookup) HaveEventEdition(ctx context.Context, handle string, id int64) (model.Event, model.Edition, error) {
	key := handle + "/" + strconv.FormatInt(id, 10)
	v, err := l.editions.GetOrFetch(ctx, key, func(ctx context.Context) (edition, error) {
		ev, ed, err := l.store.HaveEventEdition(ctx, handle, id)
		return edition{event: ev, edition: ed}, err
	})
	if err != nil {
		return model.Event{}, model.Edition{}, err
	}
	return v.event, v.edition, nil
}

// HavePlayer goes straight to the store; player names change on login.
func (l *Lookup) HavePlayer(ctx context.Context, login string) (model.Player, error) {
	return l.store.HavePlayer(ctx, login)
}

// Size returns the number of cached maps and editions.
func (l *Lookup) Size() int {
	return l.maps.Size() + l.editions.Size()
}
