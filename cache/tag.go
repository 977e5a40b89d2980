package cache

import (
	"context"
	"sync"
	"time"

	"github.com/IvanBrykalov/cacheme/serializer"
)

// The tag store maps each tag name to the UTC timestamp of its last
// invalidation. It is an ordinary storage holding internal tagNode
// entries; a CachedData is valid iff its UpdatedAt is strictly newer
// than every declared tag's timestamp.

var tagMeta = NewMeta(Meta{
	Name:       "tag",
	Version:    "v1",
	Serializer: serializer.MsgPack{},
	Internal:   true,
})

type tagNode struct {
	NotImplemented[time.Time]
	tag string
}

func (n tagNode) Key() string { return "tags:" + n.tag }

func (n tagNode) Meta() *Meta { return tagMeta }

var (
	tagMu      sync.RWMutex
	tagStorage Storage
)

// RegisterTagStorage selects the storage holding tag records. The name
// must have been registered via RegisterStorage. Required before using
// tagged nodes or InvalidTag.
func RegisterTagStorage(name string) error {
	s, err := storageByName(name)
	if err != nil {
		return err
	}
	tagMu.Lock()
	tagStorage = s
	tagMu.Unlock()
	return nil
}

func tagStore() (Storage, error) {
	tagMu.RLock()
	s := tagStorage
	tagMu.RUnlock()
	if s == nil {
		return nil, ErrNoTagStorage
	}
	return s, nil
}

// InvalidTag marks every entry declaring tag as stale, lazily: the tag's
// last-invalidation time is set to now and checked on subsequent reads.
func InvalidTag(ctx context.Context, tag string) error {
	s, err := tagStore()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return s.Set(ctx, FullKey[time.Time](tagNode{tag: tag}), now, 0, tagMeta.Serializer)
}

// tagsValid reports whether a record written at updatedAt is still live
// under every tag in the list. Absent tags never invalidate. Tag-store
// trouble is conservative: the record is reported invalid and reloaded
// rather than silently served.
func tagsValid(ctx context.Context, tagNames []string, updatedAt time.Time) bool {
	if len(tagNames) == 0 {
		return true
	}
	s, err := tagStore()
	if err != nil {
		Logger.Warn().Err(err).Msg("tag validation unavailable, treating entry as stale")
		return false
	}
	keys := make([]string, len(tagNames))
	for i, t := range tagNames {
		keys[i] = FullKey[time.Time](tagNode{tag: t})
	}
	records, err := s.GetAll(ctx, keys)
	if err != nil {
		Logger.Warn().Err(err).Msg("tag read failed, treating entry as stale")
		return false
	}
	for i, cd := range records {
		if cd == nil {
			continue
		}
		ts, err := decodeValue[time.Time](tagMeta.Serializer, cd)
		if err != nil {
			Logger.Warn().Err(err).Str("tag", tagNames[i]).Msg("corrupt tag record, treating entry as stale")
			return false
		}
		if !updatedAt.After(ts) {
			return false
		}
	}
	return true
}
