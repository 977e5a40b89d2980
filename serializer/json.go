package serializer

import "encoding/json"

// JSON encodes values with encoding/json. Useful when cached rows must
// stay readable by other tools (e.g. inspecting a sqlite tier by hand).
type JSON struct{}

func (JSON) Dumps(v any) ([]byte, error) { return json.Marshal(v) }

func (JSON) Loads(data []byte, v any) error { return json.Unmarshal(data, v) }
