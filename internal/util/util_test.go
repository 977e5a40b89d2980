package util

import "testing"

func TestNextPow2(t *testing.T) {
	cases := map[uint64]uint64{
		0: 1, 1: 1, 2: 2, 3: 4, 4: 4, 5: 8,
		1023: 1024, 1024: 1024, 1025: 2048,
		1<<63 + 1: 1 << 63, // clamp on overflow
	}
	for in, want := range cases {
		if got := NextPow2(in); got != want {
			t.Fatalf("NextPow2(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestShardIndex(t *testing.T) {
	for _, shards := range []int{1, 2, 8, 256, 3, 7} {
		for _, key := range []string{"", "a", "cacheme:a:1:v1", "☃"} {
			idx := ShardIndex(Hash64(key), shards)
			if idx < 0 || idx >= shards {
				t.Fatalf("ShardIndex out of range: %d for %d shards", idx, shards)
			}
		}
	}
}

func TestHash64_Deterministic(t *testing.T) {
	if Hash64("abc") != Hash64("abc") {
		t.Fatal("hash must be deterministic")
	}
	if Hash64("abc") == Hash64("abd") {
		t.Fatal("suspicious collision on near keys")
	}
}
