package cache

import (
	"errors"
	"fmt"
)

// ErrNotImplemented is returned by the load path when a node's Load is
// the embedded NotImplemented default and no load override was supplied.
var ErrNotImplemented = errors.New("cache: load not implemented for node")

// ErrSerialize marks a cached payload that could not be decoded. The read
// path treats such entries as misses and removes them from the tier;
// the decode step wraps decoding failures with it.
var ErrSerialize = errors.New("cache: corrupt cached payload")

// ErrNoTagStorage is returned by InvalidTag when no tag storage was
// registered via RegisterTagStorage. The read path does not return it:
// cached entries of tagged nodes are then treated as stale and reloaded.
var ErrNoTagStorage = errors.New("cache: no tag storage registered")

// ErrStorageNotRegistered is returned when a tier references a storage
// name that was never registered; the wrapping error names the storage.
var ErrStorageNotRegistered = errors.New("cache: storage not registered")

// ClassMismatchError reports a GetAll call over nodes of different
// classes.
type ClassMismatchError struct {
	Want, Got *Meta
}

func (e *ClassMismatchError) Error() string {
	return fmt.Sprintf("cache: node class mismatch: expect %q, got %q", e.Want.Name, e.Got.Name)
}
