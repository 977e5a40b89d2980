package twoq

import (
	"strconv"
	"testing"

	"github.com/IvanBrykalov/cacheme/policy"
)

type testEntry struct{ k string }

func (e *testEntry) Key() string { return e.k }

type mockHooks struct {
	pushFrontCnt   int
	moveToFrontCnt int
}

func (h *mockHooks) MoveToFront(policy.Entry) { h.moveToFrontCnt++ }
func (h *mockHooks) PushFront(policy.Entry)   { h.pushFrontCnt++ }
func (h *mockHooks) Remove(policy.Entry)      {}
func (h *mockHooks) Back() policy.Entry       { return nil }
func (h *mockHooks) Len() int                 { return 0 }

// First-time admissions land in A1in; overflowing A1in proposes its LRU
// entry for eviction.
func TestTwoQ_A1inOverflowProposesEviction(t *testing.T) {
	t.Parallel()

	h := &mockHooks{}
	p := New(2, 4).New(h)

	e1 := &testEntry{k: "1"}
	e2 := &testEntry{k: "2"}
	e3 := &testEntry{k: "3"}

	if ev := p.OnAdd(e1); ev != nil {
		t.Fatalf("no eviction expected, got %v", ev)
	}
	if ev := p.OnAdd(e2); ev != nil {
		t.Fatalf("no eviction expected, got %v", ev)
	}
	ev := p.OnAdd(e3)
	if ev != policy.Entry(e1) {
		t.Fatalf("A1in overflow must propose its LRU (e1), got %v", ev)
	}
	if h.pushFrontCnt != 3 {
		t.Fatalf("pushes = %d, want 3", h.pushFrontCnt)
	}
}

// An evicted A1in entry leaves a ghost; re-adding the key bypasses A1in
// (no eviction proposal even with A1in full).
func TestTwoQ_GhostSecondChance(t *testing.T) {
	t.Parallel()

	h := &mockHooks{}
	p := New(1, 4).New(h)

	e1 := &testEntry{k: "hot"}
	p.OnAdd(e1)
	// Shard evicts e1 on some overflow; policy records the ghost.
	p.OnRemove(e1)

	// Fill A1in again.
	p.OnAdd(&testEntry{k: "filler"})

	// Re-admission of "hot" goes straight to Am: no overflow proposal.
	if ev := p.OnAdd(&testEntry{k: "hot"}); ev != nil {
		t.Fatalf("ghost re-admission must bypass A1in, got eviction %v", ev)
	}
}

// A hit moves an A1in entry to Am: a later removal does not create a
// ghost, so re-admission goes through A1in again.
func TestTwoQ_GetPromotesOutOfA1in(t *testing.T) {
	t.Parallel()

	h := &mockHooks{}
	p := New(1, 4).New(h)

	e1 := &testEntry{k: "a"}
	p.OnAdd(e1)
	p.OnGet(e1) // promote to Am
	if h.moveToFrontCnt != 1 {
		t.Fatalf("moves = %d, want 1", h.moveToFrontCnt)
	}

	p.OnRemove(e1) // Am removal: no ghost

	// "a" admits as first-timer into A1in; filling A1in past capacity
	// proposes the previous resident, proving "a" went through A1in.
	ea := &testEntry{k: "a"}
	p.OnAdd(ea)
	if ev := p.OnAdd(&testEntry{k: "b"}); ev != policy.Entry(ea) {
		t.Fatalf("expected A1in overflow to propose %v, got %v", ea, ev)
	}
}

// Ghost capacity is enforced by dropping the oldest ghosts.
func TestTwoQ_GhostCapacity(t *testing.T) {
	t.Parallel()

	h := &mockHooks{}
	p := New(1, 2).New(h)

	// Create three ghosts; the first one ("g0") falls off.
	for i := 0; i < 3; i++ {
		e := &testEntry{k: "g" + strconv.Itoa(i)}
		p.OnAdd(e)
		p.OnRemove(e)
	}

	// "g0" lost its ghost: it admits through A1in and overflow proposes it.
	e0 := &testEntry{k: "g0"}
	if ev := p.OnAdd(e0); ev != nil {
		t.Fatalf("unexpected eviction %v", ev)
	}
	if ev := p.OnAdd(&testEntry{k: "x"}); ev != policy.Entry(e0) {
		t.Fatalf("g0 must have re-entered A1in, got %v", ev)
	}

	// "g2" kept its ghost: bypasses A1in.
	if ev := p.OnAdd(&testEntry{k: "g2"}); ev != nil {
		t.Fatalf("g2 must bypass A1in, got eviction %v", ev)
	}
}
