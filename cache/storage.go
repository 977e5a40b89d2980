package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/IvanBrykalov/cacheme/serializer"
)

// CachedData is the record a storage returns on a hit. UpdatedAt is set
// by the writer and drives tag validation.
//
// Data is the value exactly as the storage holds it: a raw Go value for
// in-process tiers, the encoded []byte payload for byte-backed tiers.
// Encoded marks the latter, so a raw []byte value is never mistaken for
// a serializer envelope. Decoding into the node's value type happens in
// the read path, which is the only place the concrete type is known.
type CachedData struct {
	Data      any
	UpdatedAt time.Time
	Encoded   bool
}

// Item is a key/value pair for bulk writes.
type Item struct {
	Key   string
	Value any
}

// Storage is the tier contract. Implementations must be safe for
// concurrent use and may suspend on every call.
//
// Byte-backed storages encode values with the supplied serializer on
// writes and return the stored payload verbatim on reads. In-process
// storages ignore the serializer and hold raw values. A ttl of zero
// means no expiration.
type Storage interface {
	// Get returns the record for key, or nil on miss.
	Get(ctx context.Context, key string) (*CachedData, error)

	// GetAll returns one slot per key, in order; nil slots are misses.
	GetAll(ctx context.Context, keys []string) ([]*CachedData, error)

	// Set writes value under key with the given ttl.
	Set(ctx context.Context, key string, value any, ttl time.Duration, ser serializer.Serializer) error

	// SetAll writes all items with a shared ttl.
	SetAll(ctx context.Context, items []Item, ttl time.Duration, ser serializer.Serializer) error

	// Remove deletes key if present. Removing an absent key is not an
	// error.
	Remove(ctx context.Context, key string) error
}

var (
	storageMu sync.RWMutex
	storages  = map[string]Storage{}
)

// RegisterStorage makes a storage available to node tiers under name.
// Registering the same name again replaces the previous storage.
// Intended to be called at startup, before the first Get.
func RegisterStorage(name string, s Storage) {
	storageMu.Lock()
	storages[name] = s
	storageMu.Unlock()
}

func storageByName(name string) (Storage, error) {
	storageMu.RLock()
	s, ok := storages[name]
	storageMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrStorageNotRegistered, name)
	}
	return s, nil
}

// tier is a resolved Cache entry: the storage plus its TTL.
type tier struct {
	storage Storage
	ttl     time.Duration
}

// tiersOf resolves a meta's declared caches fast-to-slow.
func tiersOf(m *Meta) ([]tier, error) {
	ts := make([]tier, 0, len(m.Caches))
	for _, c := range m.Caches {
		s, err := storageByName(c.Storage)
		if err != nil {
			return nil, err
		}
		ts = append(ts, tier{storage: s, ttl: c.TTL})
	}
	return ts, nil
}
