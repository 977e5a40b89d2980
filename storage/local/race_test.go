package local

import (
	"context"
	"math/rand"
	"runtime"
	"strconv"
	"sync"
	"testing"
	"time"
)

// A mixed workload of concurrent Set/Get/Remove on random keys.
// Should pass under `-race` without detector reports.
func TestRace_MixedOps(t *testing.T) {
	ctx := context.Background()
	s := New(Options{Size: 8_192, Shards: 32})

	workers := 4 * runtime.GOMAXPROCS(0)
	keyspace := 50_000
	deadline := time.Now().Add(2 * time.Second)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)*9973))
			for time.Now().Before(deadline) {
				k := "k:" + strconv.Itoa(r.Intn(keyspace))
				switch r.Intn(100) {
				case 0, 1, 2, 3, 4: // ~5% — Remove
					_ = s.Remove(ctx, k)
				case 5, 6, 7, 8, 9: // ~5% — Set with TTL
					_ = s.Set(ctx, k, "x", time.Duration(10+r.Intn(20))*time.Millisecond, nil)
				case 10, 11, 12, 13, 14, 15, 16, 17, 18, 19: // ~10% — Set
					_ = s.Set(ctx, k, "x", 0, nil)
				default: // ~80% — Get
					_, _ = s.Get(ctx, k)
				}
			}
		}(w)
	}
	wg.Wait()
}
