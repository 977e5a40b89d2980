// Package serializer defines the value<->bytes contract used by
// byte-backed cache tiers, plus the stock codecs.
package serializer

// Serializer converts cached values to and from their stored byte form.
// Dumps and Loads must be a total inverse on the value domain used by
// the node; failures propagate to the caller.
//
// Loads decodes into v, which must be a non-nil pointer to the target
// type. The read path owns the target type; storages move bytes only.
type Serializer interface {
	Dumps(v any) ([]byte, error)
	Loads(data []byte, v any) error
}
