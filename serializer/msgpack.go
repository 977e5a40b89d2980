package serializer

import "github.com/vmihailenco/msgpack/v5"

// MsgPack encodes values with MessagePack. The default choice for shared
// tiers: compact, fast, and it round-trips time.Time, which the tag store
// relies on.
type MsgPack struct{}

func (MsgPack) Dumps(v any) ([]byte, error) { return msgpack.Marshal(v) }

func (MsgPack) Loads(data []byte, v any) error { return msgpack.Unmarshal(data, v) }
