package cache

import (
	"context"
	"time"
)

// GetAll returns the values for a homogeneous node list, in input order.
// Each tier is bulk-queried for the still-pending nodes; the remainder
// is loaded in one batch (via BulkLoader when the class implements it)
// and written back to every tier. Duplicate keys collapse to one slot.
func GetAll[V any](ctx context.Context, nodes []Node[V]) ([]V, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	m := nodes[0].Meta()
	for _, n := range nodes {
		if n.Meta() != m {
			return nil, &ClassMismatchError{Want: m, Got: n.Meta()}
		}
	}
	met := m.metrics
	tiers, err := tiersOf(m)
	if err != nil {
		return nil, err
	}

	// Ordered result slots, one per distinct full key.
	order := make([]string, 0, len(nodes))
	pending := make(map[string]Node[V], len(nodes))
	for _, n := range nodes {
		key := FullKey(n)
		if _, seen := pending[key]; !seen {
			order = append(order, key)
			pending[key] = n
		}
	}

	results := make(map[string]V, len(order))
	hits := int64(0)
	for _, t := range tiers {
		if len(pending) == 0 {
			break
		}
		keys := pendingKeys(order, pending)
		records, err := t.storage.GetAll(ctx, keys)
		if err != nil {
			return nil, err
		}
		for i, cd := range records {
			if cd == nil {
				continue
			}
			key := keys[i]
			v, derr := decodeValue[V](m.Serializer, cd)
			if derr != nil {
				Logger.Debug().Err(derr).Str("key", key).Msg("dropping undecodable entry")
				if rerr := t.storage.Remove(ctx, key); rerr != nil {
					return nil, rerr
				}
				continue
			}
			if !tagsValid(ctx, tags(pending[key]), cd.UpdatedAt) {
				if rerr := t.storage.Remove(ctx, key); rerr != nil {
					return nil, rerr
				}
				continue
			}
			results[key] = v
			delete(pending, key)
			hits++
		}
	}
	met.requests.Add(int64(len(order)))
	met.hits.Add(hits)
	met.misses.Add(int64(len(pending)))

	if len(pending) > 0 {
		keys := pendingKeys(order, pending)
		toLoad := make([]Node[V], len(keys))
		for i, key := range keys {
			toLoad[i] = pending[key]
		}

		start := time.Now()
		loaded, err := loadAll(ctx, nodes[0], toLoad)
		elapsed := time.Since(start)
		if err != nil {
			met.loadFailures.Add(int64(len(toLoad)))
			met.loadTimeNS.Add(int64(elapsed))
			return nil, err
		}
		met.loadSuccesses.Add(int64(len(toLoad)))
		met.loadTimeNS.Add(int64(elapsed))

		items := make([]Item, 0, len(loaded))
		for _, l := range loaded {
			key := FullKey(l.Node)
			results[key] = l.Value
			items = append(items, Item{Key: key, Value: l.Value})
		}
		for _, t := range tiers {
			if serr := t.storage.SetAll(ctx, items, t.ttl, m.Serializer); serr != nil {
				return nil, serr
			}
		}
	}

	out := make([]V, len(order))
	for i, key := range order {
		out[i] = results[key]
	}
	return out, nil
}

// pendingKeys filters the ordered key list down to the still-pending set.
func pendingKeys[V any](order []string, pending map[string]Node[V]) []string {
	keys := make([]string, 0, len(pending))
	for _, key := range order {
		if _, ok := pending[key]; ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// loadAll batches the remaining loads: the class's BulkLoader when
// implemented, otherwise one Load per node.
func loadAll[V any](ctx context.Context, first Node[V], pending []Node[V]) ([]Loaded[V], error) {
	if bl, ok := any(first).(BulkLoader[V]); ok {
		return bl.LoadAll(ctx, pending)
	}
	out := make([]Loaded[V], 0, len(pending))
	for _, n := range pending {
		v, err := n.Load(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, Loaded[V]{Node: n, Value: v})
	}
	return out, nil
}
