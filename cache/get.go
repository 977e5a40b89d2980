package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IvanBrykalov/cacheme/internal/locker"
	"github.com/IvanBrykalov/cacheme/serializer"
)

// lockers is the process-wide Locker table: one open flight per full
// key, removed after the leader has loaded and written tiers back.
var lockers locker.Table

// Get returns the node's value, walking its tiers fast-to-slow and
// loading on miss. Concurrent calls for the same full key coalesce into
// a single load.
func Get[V any](ctx context.Context, n Node[V]) (V, error) {
	return getWith(ctx, n, nil)
}

// GetWith is Get with a per-call load override. The node's own Load is
// not consulted.
func GetWith[V any](ctx context.Context, n Node[V], load LoadFunc[V]) (V, error) {
	return getWith(ctx, n, load)
}

func getWith[V any](ctx context.Context, n Node[V], override LoadFunc[V]) (V, error) {
	var zero V
	m := n.Meta()
	met := m.metrics
	met.requests.Add(1)

	tiers, err := tiersOf(m)
	if err != nil {
		return zero, err
	}
	key := FullKey(n)

	v, found, err := lookup[V](ctx, m, tiers, key, tags(n))
	if err != nil {
		return zero, err
	}
	if found {
		met.hits.Add(1)
		return v, nil
	}

	// Miss: load once per key across all concurrent callers. The flight
	// body runs in the leader only; followers receive the slot value and
	// must not write tiers again.
	met.misses.Add(1)
	res, _, err := lockers.Do(ctx, key, func() (any, error) {
		// Double-check after winning the flight: a previous flight may
		// have loaded and written back between our tier walk and now.
		for _, t := range tiers {
			cd, gerr := t.storage.Get(ctx, key)
			if gerr != nil || cd == nil {
				continue
			}
			if dv, derr := decodeValue[V](m.Serializer, cd); derr == nil && tagsValid(ctx, tags(n), cd.UpdatedAt) {
				return dv, nil
			}
		}

		loaded, lerr := loadOne(ctx, n, override)
		if lerr != nil {
			return nil, lerr
		}

		// Admission gate: the first sighting of a key records it and
		// skips tier writes, keeping one-hit wonders out of slow tiers.
		if dk := m.Doorkeeper; dk != nil && !dk.Contains(key) {
			dk.Put(key)
			return loaded, nil
		}

		for _, t := range tiers {
			if serr := t.storage.Set(ctx, key, loaded, t.ttl, m.Serializer); serr != nil {
				return nil, serr
			}
		}
		return loaded, nil
	})
	if err != nil {
		return zero, err
	}
	return res.(V), nil
}

// lookup walks the tiers in order and returns the first live value.
// Corrupt entries are dropped from their tier and the walk continues;
// tag-stale entries are dropped and reported as a miss. On a hit, tiers
// that missed earlier in the walk are repopulated with their own TTL.
func lookup[V any](ctx context.Context, m *Meta, tiers []tier, key string, tagNames []string) (V, bool, error) {
	var zero V
	for i, t := range tiers {
		cd, err := t.storage.Get(ctx, key)
		if err != nil {
			return zero, false, err
		}
		if cd == nil {
			continue
		}
		v, err := decodeValue[V](m.Serializer, cd)
		if err != nil {
			// Corrupt payload: drop it and keep walking.
			Logger.Debug().Err(err).Str("key", key).Msg("dropping undecodable entry")
			if rerr := t.storage.Remove(ctx, key); rerr != nil {
				return zero, false, rerr
			}
			continue
		}
		if !tagsValid(ctx, tagNames, cd.UpdatedAt) {
			if rerr := t.storage.Remove(ctx, key); rerr != nil {
				return zero, false, rerr
			}
			return zero, false, nil
		}
		// Repopulate the faster tiers that missed before this one.
		for _, ft := range tiers[:i] {
			if serr := ft.storage.Set(ctx, key, v, ft.ttl, m.Serializer); serr != nil {
				return zero, false, serr
			}
		}
		return v, true, nil
	}
	return zero, false, nil
}

// loadOne runs the override or the node's own Load, timing it and
// recording load counters.
func loadOne[V any](ctx context.Context, n Node[V], override LoadFunc[V]) (V, error) {
	var zero V
	met := n.Meta().metrics
	start := time.Now()
	var v V
	var err error
	if override != nil {
		v, err = override(ctx, n)
	} else {
		v, err = n.Load(ctx)
	}
	met.observeLoad(time.Since(start), err)
	if err != nil {
		Logger.Debug().Err(err).Str("key", FullKey(n)).Msg("load failed")
		return zero, err
	}
	return v, nil
}

// decodeValue converts a stored record into the node's value type:
// records marked Encoded go through the serializer, raw values
// type-assert. The flag, not the payload type, decides; a raw []byte
// value must not be fed to the codec.
func decodeValue[V any](ser serializer.Serializer, cd *CachedData) (V, error) {
	var zero V
	if cd.Encoded {
		b, ok := cd.Data.([]byte)
		if !ok {
			return zero, fmt.Errorf("%w: encoded payload is %T", ErrSerialize, cd.Data)
		}
		if ser == nil {
			return zero, fmt.Errorf("%w: encoded payload without serializer", ErrSerialize)
		}
		var v V
		if err := ser.Loads(b, &v); err != nil {
			return zero, errors.Join(ErrSerialize, err)
		}
		return v, nil
	}
	v, ok := cd.Data.(V)
	if !ok {
		return zero, fmt.Errorf("%w: stored %T", ErrSerialize, cd.Data)
	}
	return v, nil
}
