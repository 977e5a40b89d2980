package cache

import (
	"context"
	"sync"
	"time"

	"github.com/IvanBrykalov/cacheme/doorkeeper"
	"github.com/IvanBrykalov/cacheme/serializer"
)

// Node identifies a cacheable computation. Implementations are small
// immutable structs whose fields form the key; class-level schema lives
// in the shared *Meta returned by Meta().
//
// Load produces the value on miss. Classes that only ever load through
// Memoize or a GetWith override embed NotImplemented instead of writing
// one. Optional capabilities are separate interfaces checked by the read
// path: BulkLoader (batched load for GetAll) and Tagger (invalidation
// groups).
type Node[V any] interface {
	// Key is deterministic from the instance fields.
	Key() string
	// Meta returns the class-level schema shared by all instances.
	Meta() *Meta
	// Load produces the value on miss.
	Load(ctx context.Context) (V, error)
}

// NotImplemented is the default load: embed it in node classes whose
// values only arrive via Memoize or GetWith. Calling it through Get
// fails with ErrNotImplemented.
type NotImplemented[V any] struct{}

// Load returns ErrNotImplemented.
func (NotImplemented[V]) Load(context.Context) (V, error) {
	var zero V
	return zero, ErrNotImplemented
}

// BulkLoader is an optional batched load. GetAll consults it on the
// first node of the call; without it, pending nodes load one by one.
type BulkLoader[V any] interface {
	LoadAll(ctx context.Context, nodes []Node[V]) ([]Loaded[V], error)
}

// Tagger declares a node's invalidation groups. Tags may depend on
// instance fields.
type Tagger interface {
	Tags() []string
}

// Loaded pairs a node with its loaded value.
type Loaded[V any] struct {
	Node  Node[V]
	Value V
}

// LoadFunc overrides a node's load for a single call (Get override,
// Memoize binding).
type LoadFunc[V any] func(ctx context.Context, n Node[V]) (V, error)

// Cache is one tier in a node's ordered cache list: a registered
// storage name plus the TTL entries get in that tier. Zero TTL means no
// expiry. Tiers are listed fast to slow.
type Cache struct {
	Storage string
	TTL     time.Duration
}

// Meta is the class-level schema of a node type: version, tier list,
// codec, optional doorkeeper and the metrics record. Build one with
// NewMeta as a package-level variable and return it from Meta() on every
// instance.
type Meta struct {
	// Name labels the node class in metrics and errors.
	Name string
	// Version participates in the full key; bump it to shed all cached
	// values of the class.
	Version string
	// Caches is the ordered tier list, fast to slow.
	Caches []Cache
	// Serializer encodes values for byte-backed tiers. May be nil when
	// every tier is in-process.
	Serializer serializer.Serializer
	// Doorkeeper, when set, delays admission of one-hit wonders: the
	// first load of a key in Get skips tier writes. GetAll and Refresh
	// do not consult it.
	Doorkeeper doorkeeper.Doorkeeper
	// Internal metas are not registered and get no metrics (tag store).
	Internal bool

	metrics *Metrics
}

// NewMeta registers a node class and attaches a fresh Metrics record.
// Internal metas are returned as-is. Call once per class, at package
// init.
func NewMeta(m Meta) *Meta {
	meta := &m
	if m.Internal {
		return meta
	}
	meta.metrics = &Metrics{}
	registryMu.Lock()
	registry = append(registry, meta)
	registryMu.Unlock()
	return meta
}

// Metrics returns the class's counter record.
func (m *Meta) Metrics() *Metrics { return m.metrics }

var (
	registryMu sync.RWMutex
	registry   []*Meta
)

// Nodes returns the metas of every registered (non-internal) node class.
func Nodes() []*Meta {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]*Meta, len(registry))
	copy(out, registry)
	return out
}

// Stats returns the metrics record for a node class.
func Stats(m *Meta) *Metrics { return m.metrics }

var (
	prefixMu sync.RWMutex
	prefix   = "cacheme"
)

// SetPrefix changes the process-wide full-key prefix. Intended to be
// called once at startup; values cached under the old prefix become
// unreachable.
func SetPrefix(p string) {
	prefixMu.Lock()
	prefix = p
	prefixMu.Unlock()
}

func keyPrefix() string {
	prefixMu.RLock()
	defer prefixMu.RUnlock()
	return prefix
}

// FullKey returns "{prefix}:{key}:{version}", the node's unique
// identifier within the process.
func FullKey[V any](n Node[V]) string {
	return keyPrefix() + ":" + n.Key() + ":" + n.Meta().Version
}

// tags returns the node's declared tags, or nil.
func tags[V any](n Node[V]) []string {
	if t, ok := any(n).(Tagger); ok {
		return t.Tags()
	}
	return nil
}
