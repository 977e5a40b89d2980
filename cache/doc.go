// Package cache implements a typed, multi-tier caching core with
// stampede control, tag invalidation, doorkeeper admission and
// per-node-class metrics.
//
// Application code declares a Node: a small struct whose fields form the
// cache key, plus a shared *Meta carrying the class schema (version,
// ordered tier list, serializer, doorkeeper). A node's Load method
// produces its value on miss; Memoize attaches a load function per call
// instead.
//
// Design
//
//   - Read path: Get walks the node's tiers fast-to-slow. A hit is
//     validated against the node's tags; stale and corrupt entries are
//     removed from their tier and fall through. On a hit, faster tiers
//     that missed are repopulated with their own TTL.
//
//   - Stampede control: a miss enters the process-wide Locker table.
//     For one full key, exactly one caller (the leader) loads; followers
//     wait and receive the slot value without repeating work or writing
//     tiers. The flight entry is removed only after the leader has
//     written all tiers, so late arrivals simply hit.
//
//   - Tags: InvalidTag stamps a tag with the current UTC time in the tag
//     storage. A cached record is live only if written strictly after
//     every declared tag's stamp; absent tags never invalidate, and tag
//     store trouble conservatively reloads rather than serving stale.
//
//   - Doorkeeper: with a doorkeeper configured, the first successful
//     load of a key in Get returns the value without writing any tier,
//     protecting slow tiers from one-hit wonders. Refresh and GetAll do
//     not consult it and always write the tiers.
//
//   - Metrics: every non-internal node class gets a Metrics record at
//     registration. At quiescence RequestCount == HitCount+MissCount and
//     LoadCount == LoadSuccessCount+LoadFailureCount.
//
// Basic usage
//
//	var userMeta = cache.NewMeta(cache.Meta{
//	    Name:    "user",
//	    Version: "v1",
//	    Caches: []cache.Cache{
//	        {Storage: "local", TTL: 10 * time.Second},
//	        {Storage: "sqlite", TTL: 0},
//	    },
//	    Serializer: serializer.MsgPack{},
//	})
//
//	type UserNode struct{ ID string }
//
//	func (n UserNode) Key() string       { return n.ID }
//	func (n UserNode) Meta() *cache.Meta { return userMeta }
//	func (n UserNode) Load(ctx context.Context) (User, error) {
//	    return fetchUser(ctx, n.ID)
//	}
//
//	u, err := cache.Get(ctx, UserNode{ID: "42"})
//
// Storages are registered by name at startup:
//
//	cache.RegisterStorage("local", local.New(local.Options{Size: 10_000}))
//	cache.RegisterStorage("sqlite", st)
//	_ = cache.RegisterTagStorage("sqlite")
//
// All exported functions are safe for concurrent use. SetPrefix,
// SetLogger and the registration functions are intended for startup.
package cache
