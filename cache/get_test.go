package cache_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/cacheme/cache"
	"github.com/IvanBrykalov/cacheme/serializer"
	"github.com/IvanBrykalov/cacheme/storage/local"
)

// fooMeta/fooNode mirror the canonical test node: key from three fields,
// version v1, a single in-process tier.
var fooMeta = cache.NewMeta(cache.Meta{
	Name:    "foo",
	Version: "v1",
	Caches:  []cache.Cache{{Storage: "local-foo"}},
})

func init() {
	cache.RegisterStorage("local-foo", local.New(local.Options{Size: 500}))
}

var fooLoads atomic.Int64

type fooNode struct {
	userID string
	fooID  string
	level  int
}

func (n fooNode) Key() string {
	return fmt.Sprintf("%s:%s:%d", n.userID, n.fooID, n.level)
}

func (n fooNode) Meta() *cache.Meta { return fooMeta }

func (n fooNode) Load(_ context.Context) (string, error) {
	fooLoads.Add(1)
	return fmt.Sprintf("%s-%s-%d", n.userID, n.fooID, n.level), nil
}

// Two sequential gets return the same value; load runs once.
func TestGet_Basic(t *testing.T) {
	ctx := context.Background()
	before := fooLoads.Load()

	v, err := cache.Get(ctx, fooNode{userID: "a", fooID: "1", level: 10})
	if err != nil {
		t.Fatal(err)
	}
	if v != "a-1-10" {
		t.Fatalf("got %q", v)
	}
	if fooLoads.Load() != before+1 {
		t.Fatalf("load count = %d, want %d", fooLoads.Load(), before+1)
	}

	v, err = cache.Get(ctx, fooNode{userID: "a", fooID: "1", level: 10})
	if err != nil {
		t.Fatal(err)
	}
	if v != "a-1-10" {
		t.Fatalf("got %q", v)
	}
	if fooLoads.Load() != before+1 {
		t.Fatalf("second get must not load, count = %d", fooLoads.Load())
	}
}

// 50 concurrent gets of one cold key: every caller sees the value,
// load runs exactly once.
func TestGet_Concurrent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	before := fooLoads.Load()

	var g errgroup.Group
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			v, err := cache.Get(ctx, fooNode{userID: "b", fooID: "a", level: 10})
			if err != nil {
				return err
			}
			if v != "b-a-10" {
				return fmt.Errorf("got %q", v)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if fooLoads.Load() != before+1 {
		t.Fatalf("load count = %d, want exactly one", fooLoads.Load()-before)
	}
}

// GetWith replaces the node's Load for the call; the cached value is the
// override's result.
func TestGetWith_Override(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int64
	override := func(_ context.Context, n cache.Node[string]) (string, error) {
		calls.Add(1)
		fn := n.(fooNode)
		return fmt.Sprintf("%s-%s-%d-o", fn.userID, fn.fooID, fn.level), nil
	}

	v, err := cache.GetWith(ctx, fooNode{userID: "ov", fooID: "1", level: 10}, override)
	if err != nil {
		t.Fatal(err)
	}
	if v != "ov-1-10-o" {
		t.Fatalf("got %q", v)
	}
	if calls.Load() != 1 {
		t.Fatalf("override calls = %d", calls.Load())
	}

	// Second call hits; neither override nor Load runs.
	before := fooLoads.Load()
	v, err = cache.GetWith(ctx, fooNode{userID: "ov", fooID: "1", level: 10}, override)
	if err != nil {
		t.Fatal(err)
	}
	if v != "ov-1-10-o" {
		t.Fatalf("got %q", v)
	}
	if calls.Load() != 1 || fooLoads.Load() != before {
		t.Fatal("hit must not invoke any loader")
	}
}

// A node without Load and without override fails with ErrNotImplemented.
func TestGet_NotImplemented(t *testing.T) {
	v, err := cache.Get(context.Background(), bareNode{id: "x"})
	if !errors.Is(err, cache.ErrNotImplemented) {
		t.Fatalf("err = %v, want ErrNotImplemented", err)
	}
	if v != "" {
		t.Fatalf("value must be zero, got %q", v)
	}
}

var bareMeta = cache.NewMeta(cache.Meta{
	Name:    "bare",
	Version: "v1",
	Caches:  []cache.Cache{{Storage: "local-foo"}},
})

type bareNode struct {
	cache.NotImplemented[string]
	id string
}

func (n bareNode) Key() string       { return n.id }
func (n bareNode) Meta() *cache.Meta { return bareMeta }

// A load error is propagated and nothing is cached.
func TestGet_LoadFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	var calls atomic.Int64
	fail := func(_ context.Context, _ cache.Node[string]) (string, error) {
		calls.Add(1)
		return "", boom
	}

	if _, err := cache.GetWith(ctx, fooNode{userID: "fail", fooID: "1", level: 1}, fail); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	// The failure was not cached: the next call loads again.
	if _, err := cache.GetWith(ctx, fooNode{userID: "fail", fooID: "1", level: 1}, fail); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

// Full keys are "{prefix}:{key}:{version}" and follow SetPrefix.
func TestFullKey_SetPrefix(t *testing.T) {
	n := bareNode{id: "test"}
	if got := cache.FullKey[string](n); got != "cacheme:test:v1" {
		t.Fatalf("full key = %q", got)
	}
	cache.SetPrefix("youcache")
	defer cache.SetPrefix("cacheme")
	if got := cache.FullKey[string](n); got != "youcache:test:v1" {
		t.Fatalf("full key after SetPrefix = %q", got)
	}
}

// An unregistered tier storage surfaces as ErrStorageNotRegistered,
// naming the missing storage.
func TestGet_StorageNotRegistered(t *testing.T) {
	_, err := cache.Get(context.Background(), orphanNode{})
	if !errors.Is(err, cache.ErrStorageNotRegistered) {
		t.Fatalf("err = %v, want ErrStorageNotRegistered", err)
	}
	if !strings.Contains(err.Error(), `"nowhere"`) {
		t.Fatalf("err %q must name the storage", err)
	}
}

var orphanMeta = cache.NewMeta(cache.Meta{
	Name:    "orphan",
	Version: "v1",
	Caches:  []cache.Cache{{Storage: "nowhere"}},
})

type orphanNode struct{}

func (orphanNode) Key() string       { return "o" }
func (orphanNode) Meta() *cache.Meta { return orphanMeta }

func (orphanNode) Load(_ context.Context) (string, error) { return "o", nil }

var blobMeta = cache.NewMeta(cache.Meta{
	Name:       "blob",
	Version:    "v1",
	Caches:     []cache.Cache{{Storage: "local-foo"}},
	Serializer: serializer.MsgPack{},
})

type blobNode struct{ id string }

func (n blobNode) Key() string       { return n.id }
func (n blobNode) Meta() *cache.Meta { return blobMeta }

func (n blobNode) Load(_ context.Context) ([]byte, error) {
	return []byte("blob:" + n.id), nil
}

// A []byte-valued node over a raw tier must get its bytes back verbatim
// even with a serializer configured: raw records are type-asserted, not
// fed to the codec.
func TestGet_RawBytesWithSerializer(t *testing.T) {
	ctx := context.Background()
	n := blobNode{id: "x"}

	v, err := cache.Get(ctx, n)
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "blob:x" {
		t.Fatalf("got %q", v)
	}

	// Second get hits the raw tier; the payload must survive untouched.
	v, err = cache.Get(ctx, n)
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "blob:x" {
		t.Fatalf("cached got %q", v)
	}
	if m := cache.Stats(blobMeta); m.LoadCount() != 1 {
		t.Fatalf("loads = %d, want 1 (no decode-failure reload)", m.LoadCount())
	}
}

// Registered node classes are visible through Nodes().
func TestNodes_Registry(t *testing.T) {
	metas := cache.Nodes()
	if len(metas) == 0 {
		t.Fatal("no registered node classes")
	}
	found := false
	for _, m := range metas {
		if m == fooMeta {
			found = true
		}
		if m.Metrics() == nil {
			t.Fatalf("meta %q has no metrics record", m.Name)
		}
	}
	if !found {
		t.Fatal("fooMeta not in registry")
	}
}
