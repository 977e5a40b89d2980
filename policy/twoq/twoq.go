// Package twoq implements the 2Q eviction policy.
package twoq

import (
	"container/list"

	"github.com/IvanBrykalov/cacheme/policy"
)

// twoQ implements 2Q over the shard's intrusive list.
//
// Resident queues:
//   - A1in (younger queue): its own list + index by Entry; admits
//     first-time entries.
//   - Am (mature queue): entries not present in inIdx; ordering is driven
//     by shard hooks.
//
// Ghost A1out: keys only (no values), tracks recently evicted A1in keys to
// give them a second chance (bypass A1in on re-admission).
//
// Concurrency: all methods are called under the shard lock.
type twoQ struct {
	h policy.Hooks

	capIn    int // A1in capacity (per-shard)
	capGhost int // A1out (ghost) capacity (per-shard)

	// A1in: MRU at Front() -> LRU at Back()
	inList *list.List
	// Fast membership check for "is entry in A1in?"
	inIdx map[policy.Entry]*list.Element

	// A1out (ghosts): keys only, MRU at Front() -> LRU at Back()
	ghostList *list.List
	ghostIdx  map[string]*list.Element
}

// New constructs a 2Q policy factory.
// Common choices: capIn ≈ 25% of shard capacity; capGhost ≈ 50–100% of
// shard capacity. When used with a sharded tier, pass per-shard sizes.
func New(capIn, capGhost int) policy.Policy {
	if capIn < 1 {
		capIn = 1
	}
	if capGhost < 1 {
		capGhost = 1
	}
	return twoQPolicy{capIn: capIn, capGhost: capGhost}
}

type twoQPolicy struct {
	capIn    int
	capGhost int
}

func (p twoQPolicy) New(h policy.Hooks) policy.ShardPolicy {
	return &twoQ{
		h:         h,
		capIn:     p.capIn,
		capGhost:  p.capGhost,
		inList:    list.New(),
		inIdx:     make(map[policy.Entry]*list.Element),
		ghostList: list.New(),
		ghostIdx:  make(map[string]*list.Element),
	}
}

// OnAdd admission rules:
//   - If the key is present in ghosts (A1out), bypass A1in and admit
//     directly to Am (MRU), removing the ghost entry.
//   - Otherwise admit into A1in (and MRU in the shard list via hooks).
//   - If A1in overflows, return its LRU candidate to the shard for eviction.
func (q *twoQ) OnAdd(e policy.Entry) (evict policy.Entry) {
	k := e.Key()
	if ge, ok := q.ghostIdx[k]; ok {
		// Second chance: promote from ghosts directly into Am (skip A1in).
		q.ghostList.Remove(ge)
		delete(q.ghostIdx, k)
		q.h.PushFront(e)
		return nil
	}

	// First-time admission: insert into A1in and MRU of the shard list.
	q.h.PushFront(e)
	q.inIdx[e] = q.inList.PushFront(e)

	// If A1in is over capacity, propose its LRU for eviction.
	if q.inList.Len() > q.capIn {
		if lruEl := q.inList.Back(); lruEl != nil {
			return lruEl.Value.(policy.Entry)
		}
	}
	return nil
}

// OnGet: if the entry was in A1in, remove it from A1in (promotion to Am),
// then move it to MRU in the shard list.
func (q *twoQ) OnGet(e policy.Entry) {
	if el, ok := q.inIdx[e]; ok {
		q.inList.Remove(el)
		delete(q.inIdx, e)
	}
	q.h.MoveToFront(e)
}

// OnUpdate follows OnGet semantics (updates count as recent use).
func (q *twoQ) OnUpdate(e policy.Entry) { q.OnGet(e) }

// OnRemove:
//   - If the entry was in A1in, add its key to ghosts (A1out), respecting
//     capGhost.
//   - Removals from Am do NOT populate ghosts.
func (q *twoQ) OnRemove(e policy.Entry) {
	el, ok := q.inIdx[e]
	if !ok {
		return
	}
	q.inList.Remove(el)
	delete(q.inIdx, e)

	k := e.Key()

	// Insert/move ghost to MRU.
	if old := q.ghostIdx[k]; old != nil {
		q.ghostList.Remove(old)
	}
	q.ghostIdx[k] = q.ghostList.PushFront(k)

	// Enforce ghost capacity (drop LRU ghosts).
	for q.ghostList.Len() > q.capGhost {
		tail := q.ghostList.Back()
		if tail == nil {
			break
		}
		delete(q.ghostIdx, tail.Value.(string))
		q.ghostList.Remove(tail)
	}
}
