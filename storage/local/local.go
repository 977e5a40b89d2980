// Package local provides the in-process cache tier: a sharded map with
// an intrusive MRU/LRU list per shard, a pluggable eviction policy and
// lazy TTL expiry. Values are stored raw; node serializers are ignored.
package local

import (
	"context"
	"time"

	"github.com/IvanBrykalov/cacheme/cache"
	"github.com/IvanBrykalov/cacheme/internal/util"
	"github.com/IvanBrykalov/cacheme/policy"
	"github.com/IvanBrykalov/cacheme/policy/lru"
	"github.com/IvanBrykalov/cacheme/serializer"
)

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictPolicy — removed by the active eviction policy.
	EvictPolicy EvictReason = iota
	// EvictTTL — expired by TTL (lazy eviction on access).
	EvictTTL
	// EvictCapacity — removed to satisfy the entry-count limit.
	EvictCapacity
)

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// Options configures the tier. Zero values are safe except Size;
// defaults are applied in New():
//   - nil Policy  => LRU
//   - Shards <= 0 => auto (≈ 2*GOMAXPROCS, rounded to a power of two)
type Options struct {
	// Size is the entry count limit across all shards.
	Size int

	// Shards defines the number of shards. If 0, an automatic value is
	// chosen and rounded to the next power of two.
	Shards int

	// Policy is a pluggable eviction policy (LRU/2Q/…); nil => LRU.
	Policy policy.Policy

	// OnEvict is called on eviction under the shard lock; keep callbacks
	// lightweight.
	OnEvict func(key string, reason EvictReason)

	// Clock overrides the time source (tests). Nil => time.Now().
	Clock Clock
}

// Store is the sharded in-process tier. All methods are safe for
// concurrent use by multiple goroutines; typical operation cost is
// amortized O(1) under a shard lock.
type Store struct {
	shards []*shard
	opt    Options
}

// New constructs a Store with the provided Options.
func New(opt Options) *Store {
	if opt.Size <= 0 {
		panic("local: Size must be > 0")
	}
	if opt.Policy == nil {
		opt.Policy = lru.New()
	}

	sh := opt.Shards
	if sh <= 0 {
		sh = util.ReasonableShardCount()
	} else {
		sh = int(util.NextPow2(uint64(sh)))
	}

	ss := make([]*shard, sh)
	perShardCap := (opt.Size + sh - 1) / sh
	for i := 0; i < sh; i++ {
		ss[i] = newShard(perShardCap, opt)
	}
	return &Store{shards: ss, opt: opt}
}

// ---- cache.Storage implementation ----

// Get returns the record for key, or nil on miss. A hit promotes the
// entry according to the policy; an expired entry is evicted and counts
// as a miss.
func (s *Store) Get(_ context.Context, key string) (*cache.CachedData, error) {
	return s.shardFor(key).get(key), nil
}

// GetAll returns one slot per key, in order; nil slots are misses.
func (s *Store) GetAll(_ context.Context, keys []string) ([]*cache.CachedData, error) {
	out := make([]*cache.CachedData, len(keys))
	for i, key := range keys {
		out[i] = s.shardFor(key).get(key)
	}
	return out, nil
}

// Set inserts or updates key with a per-entry TTL. The serializer is
// ignored: values are held raw.
func (s *Store) Set(_ context.Context, key string, value any, ttl time.Duration, _ serializer.Serializer) error {
	s.shardFor(key).set(key, value, s.deadline(ttl))
	return nil
}

// SetAll writes all items with a shared ttl.
func (s *Store) SetAll(ctx context.Context, items []cache.Item, ttl time.Duration, ser serializer.Serializer) error {
	for _, it := range items {
		if err := s.Set(ctx, it.Key, it.Value, ttl, ser); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes key if present.
func (s *Store) Remove(_ context.Context, key string) error {
	s.shardFor(key).remove(key)
	return nil
}

// Len returns the total number of resident entries across all shards.
func (s *Store) Len() int {
	total := 0
	for _, sh := range s.shards {
		total += sh.length()
	}
	return total
}

// Stats is a point-in-time snapshot of the tier's hot counters.
type Stats struct {
	Hits   int64
	Misses int64
	Evicts uint64
}

// Stats aggregates the per-shard counters. Counters are read without a
// lock, so a snapshot taken under load is approximate.
func (s *Store) Stats() Stats {
	var st Stats
	for _, sh := range s.shards {
		st.Hits += sh.hits.Load()
		st.Misses += sh.misses.Load()
		st.Evicts += sh.evicts.Load()
	}
	return st
}

// ---- helpers ----

// shardFor picks a shard by hashing the key and masking with len-1.
// len(s.shards) is guaranteed to be a power of two.
func (s *Store) shardFor(key string) *shard {
	return s.shards[util.ShardIndex(util.Hash64(key), len(s.shards))]
}

// deadline converts a relative TTL into an absolute UnixNano deadline.
// A non-positive ttl returns 0 (no expiration).
func (s *Store) deadline(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	now := time.Now().UnixNano()
	if s.opt.Clock != nil {
		now = s.opt.Clock.NowUnixNano()
	}
	return now + int64(ttl)
}

var _ cache.Storage = (*Store)(nil)
