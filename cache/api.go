package cache

import "context"

// Invalidate removes the node's entry from every declared tier. The next
// Get will miss and load.
func Invalidate[V any](ctx context.Context, n Node[V]) error {
	tiers, err := tiersOf(n.Meta())
	if err != nil {
		return err
	}
	key := FullKey(n)
	for _, t := range tiers {
		if err := t.storage.Remove(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Refresh unconditionally loads the node and writes the result to every
// tier, bypassing the doorkeeper: a refresh is an explicit write intent.
// It runs under the same per-key Locker as Get, so concurrent refreshes
// of one key coalesce. Hit/miss counters are untouched; load counters
// are recorded.
func Refresh[V any](ctx context.Context, n Node[V]) (V, error) {
	var zero V
	m := n.Meta()
	tiers, err := tiersOf(m)
	if err != nil {
		return zero, err
	}
	key := FullKey(n)

	res, _, err := lockers.Do(ctx, key, func() (any, error) {
		loaded, lerr := loadOne[V](ctx, n, nil)
		if lerr != nil {
			return nil, lerr
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
