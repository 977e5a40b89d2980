// Package policy defines the eviction-policy plugin surface used by the
// in-process cache tier.
package policy

// Entry is the minimal contract a resident tier entry must satisfy for a
// policy: read-only access to its full key. Entries are identified by the
// cache full key, so no value access is needed at the policy level.
type Entry interface {
	Key() string
}

// Hooks expose O(1) list operations that a policy can use to manipulate
// the shard's intrusive MRU/LRU list. Implementations are provided by the
// shard.
//
// Concurrency: all hook calls happen under the shard lock.
// Important: hooks manage only the list; the shard owns the key->entry map.
type Hooks interface {
	// MoveToFront promotes the entry to MRU.
	MoveToFront(Entry)
	// PushFront inserts the entry at MRU (used on admission).
	PushFront(Entry)
	// Remove detaches the entry from the list (map bookkeeping is done by the shard).
	Remove(Entry)
	// Back returns the current LRU entry (or nil if empty).
	Back() Entry
	// Len returns the number of resident entries in the shard.
	Len() int
}

// ShardPolicy is a per-shard policy instance bound to shard hooks.
// All methods are invoked under the shard lock.
//
// Semantics:
//   - OnAdd may return an eviction candidate (e.g., LRU of a probation
//     queue). The shard calls OnRemove for that entry and then evicts it.
//   - OnGet/OnUpdate typically promote the entry.
//   - OnRemove is a notification to update policy-internal state
//     (e.g., ghost queues). The shard performs the actual deletion.
type ShardPolicy interface {
	OnAdd(Entry) (evict Entry)
	OnGet(Entry)
	OnUpdate(Entry)
	OnRemove(Entry)
}

// Policy is a factory that creates shard-local policy instances bound to
// a particular shard's hooks.
type Policy interface {
	New(Hooks) ShardPolicy
}
