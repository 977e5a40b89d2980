package local

import (
	"sync"
	"time"

	"github.com/IvanBrykalov/cacheme/cache"
	"github.com/IvanBrykalov/cacheme/internal/util"
	"github.com/IvanBrykalov/cacheme/policy"
)

// entry is an intrusive doubly linked list element owned by a shard.
// It stores the full key and raw value alongside list links and the
// metadata used by eviction and TTL accounting.
type entry struct {
	key     string
	data    any
	updated time.Time // write time, drives tag validation upstream

	// Intrusive list links: head is MRU, tail is LRU.
	prev *entry
	next *entry

	// Absolute expiration deadline in UnixNano. Zero means "no TTL".
	exp int64
}

// Key returns the entry key (part of the policy.Entry interface).
func (e *entry) Key() string { return e.key }

// shard is an independent partition of the tier with its own lock, map,
// and an intrusive doubly linked list (head=MRU, tail=LRU).
type shard struct {
	// ---- guarded by mu ----
	mu   sync.RWMutex
	m    map[string]*entry
	head *entry // MRU
	tail *entry // LRU
	len  int    // number of resident entries
	cap  int    // per-shard entry capacity

	pol policy.ShardPolicy
	opt Options

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	_      util.CacheLinePad
	hits   util.PaddedAtomicInt64
	misses util.PaddedAtomicInt64
	evicts util.PaddedAtomicUint64
}

func newShard(capacity int, opt Options) *shard {
	s := &shard{
		m:   make(map[string]*entry, capacity),
		cap: capacity,
		opt: opt,
	}
	s.pol = opt.Policy.New(shardHooks{s: s})
	return s
}

// get returns a copy of the record and promotes the entry per the
// policy. Expired entries are evicted lazily here.
func (s *shard) get(key string) *cache.CachedData {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[key]
	if !ok {
		s.misses.Add(1)
		return nil
	}
	if s.expiredLocked(e) {
		s.evictEntry(e, EvictTTL)
		s.misses.Add(1)
		return nil
	}
	s.pol.OnGet(e)
	s.hits.Add(1)
	return &cache.CachedData{Data: e.data, UpdatedAt: e.updated}
}

// set inserts or updates an entry and promotes it per the policy.
// exp is an absolute UnixNano deadline (0 = no TTL).
func (s *shard) set(key string, value any, exp int64) {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.m[key]; ok {
		e.data = value
		e.updated = now
		e.exp = exp
		s.pol.OnUpdate(e)
		s.enforceLimitLocked()
		return
	}

	e := &entry{key: key, data: value, updated: now, exp: exp}
	s.m[key] = e

	// Let the policy place the entry (and optionally propose an eviction).
	if ev := s.pol.OnAdd(e); ev != nil {
		s.evictEntry(ev.(*entry), EvictPolicy)
	}
	s.enforceLimitLocked()
}

// remove deletes an entry by key.
func (s *shard) remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[key]
	if !ok {
		return
	}
	s.pol.OnRemove(e)
	s.unlink(e)
	delete(s.m, key)
}

func (s *shard) length() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.len
}

// -------------------- internals (mu held) --------------------

func (s *shard) expiredLocked(e *entry) bool {
	if e.exp == 0 {
		return false
	}
	return s.now() > e.exp
}

func (s *shard) now() int64 {
	if s.opt.Clock != nil {
		return s.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

// pushFront inserts e at MRU in O(1).
func (s *shard) pushFront(e *entry) {
	e.prev = nil
	e.next = s.head
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
	s.len++
}

// moveToFront promotes e to MRU in O(1).
func (s *shard) moveToFront(e *entry) {
	if e == s.head {
		return
	}
	if e.prev != nil {
		e.prev.next = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	if s.tail == e {
		s.tail = e.prev
	}
	e.prev = nil
	e.next = s.head
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
}

// unlink removes e from the list and updates counters in O(1).
func (s *shard) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	if s.head == e {
		s.head = e.next
	}
	if s.tail == e {
		s.tail = e.prev
	}
	e.prev, e.next = nil, nil
	s.len--
}

// back returns the current LRU entry in O(1).
func (s *shard) back() *entry { return s.tail }

// evictEntry removes the entry, updates counters, and calls OnEvict.
func (s *shard) evictEntry(e *entry, reason EvictReason) {
	s.pol.OnRemove(e)
	s.unlink(e)
	delete(s.m, e.key)
	s.evicts.Add(1)
	if cb := s.opt.OnEvict; cb != nil {
		// Called under the lock; callbacks must stay lightweight.
		cb(e.key, reason)
	}
}

// enforceLimitLocked evicts LRU entries until the count limit holds.
func (s *shard) enforceLimitLocked() {
	for s.len > s.cap {
		tail := s.back()
		if tail == nil {
			break
		}
		s.evictEntry(tail, EvictCapacity)
	}
}

// -------------------- policy hooks --------------------

// shardHooks adapts the shard's list operations to policy.Hooks.
type shardHooks struct{ s *shard }

func (h shardHooks) MoveToFront(e policy.Entry) { h.s.moveToFront(e.(*entry)) }
func (h shardHooks) PushFront(e policy.Entry)   { h.s.pushFront(e.(*entry)) }
func (h shardHooks) Remove(e policy.Entry) {
	// Policies call Remove while the shard lock is held.
	// Map bookkeeping is performed by the shard itself.
	h.s.unlink(e.(*entry))
}
func (h shardHooks) Back() policy.Entry {
	if t := h.s.back(); t != nil {
		return t
	}
	return nil
}
func (h shardHooks) Len() int { return h.s.len }
