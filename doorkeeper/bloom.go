package doorkeeper

import (
	"sync"

	"github.com/IvanBrykalov/cacheme/internal/util"
)

// Bloom is a classic bloom filter sized for an expected key count.
// Probes are derived from a single 64-bit hash using the rotate-and-add
// scheme, so Put/Contains cost one hash regardless of k.
//
// Safe for concurrent use. The filter never forgets: false-positive rate
// degrades once the population exceeds the expected count. Size for the
// hot-key working set, not the full keyspace.
type Bloom struct {
	mu    sync.RWMutex
	bits  []uint64
	nbits uint64
	k     int
}

// NewBloom builds a filter for roughly expected keys at bitsPerKey bits
// each. 10 bits/key gives ~1% false positives. The probe count k is
// derived as bitsPerKey * ln2, clamped to [1..30].
func NewBloom(expected, bitsPerKey int) *Bloom {
	if expected < 1 {
		expected = 1
	}
	if bitsPerKey < 1 {
		bitsPerKey = 1
	}
	k := bitsPerKey * 69 / 100 // bitsPerKey * ln2
	if k < 1 {
		k = 1
	}
	if k > 30 {
		k = 30
	}
	nbits := uint64(expected * bitsPerKey)
	if nbits < 64 {
		nbits = 64
	}
	return &Bloom{
		bits:  make([]uint64, (nbits+63)/64),
		nbits: nbits,
		k:     k,
	}
}

// Put records the key.
func (b *Bloom) Put(key string) {
	h := util.Hash64(key)
	delta := h>>33 | h<<31
	b.mu.Lock()
	for i := 0; i < b.k; i++ {
		pos := h % b.nbits
		b.bits[pos/64] |= 1 << (pos % 64)
		h += delta
	}
	b.mu.Unlock()
}

// Contains reports whether the key has (probably) been Put before.
func (b *Bloom) Contains(key string) bool {
	h := util.Hash64(key)
	delta := h>>33 | h<<31
	b.mu.RLock()
	defer b.mu.RUnlock()
	for i := 0; i < b.k; i++ {
		pos := h % b.nbits
		if b.bits[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
		h += delta
	}
	return true
}

var _ Doorkeeper = (*Bloom)(nil)
