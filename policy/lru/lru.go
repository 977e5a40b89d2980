// Package lru implements the LRU eviction policy.
package lru

import "github.com/IvanBrykalov/cacheme/policy"

// lru is a classic "move-to-front" Least-Recently-Used policy.
// It delegates list manipulation to policy.Hooks provided by the shard.
type lru struct {
	h policy.Hooks
}

type lruPolicy struct{}

// New returns a Policy factory that constructs per-shard LRU instances.
func New() policy.Policy { return lruPolicy{} }

// New implements policy.Policy by binding shard hooks and returning
// a shard-local policy instance.
func (lruPolicy) New(h policy.Hooks) policy.ShardPolicy {
	return &lru{h: h}
}

// OnAdd places the new entry at MRU. LRU itself doesn't choose evictions;
// the shard enforces the capacity limit and performs actual evictions.
func (p *lru) OnAdd(e policy.Entry) (evict policy.Entry) {
	p.h.PushFront(e)
	return nil
}

// OnGet promotes the entry to MRU.
func (p *lru) OnGet(e policy.Entry) { p.h.MoveToFront(e) }

// OnUpdate promotes the entry to MRU (updates are treated as recent use).
func (p *lru) OnUpdate(e policy.Entry) { p.h.MoveToFront(e) }

// OnRemove is a no-op for pure LRU (nothing to clean up in policy state).
func (p *lru) OnRemove(_ policy.Entry) {}
