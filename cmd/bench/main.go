// Command bench runs a synthetic workload against the full read path and
// exposes a Prometheus metrics endpoint plus an optional pprof endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/cacheme/cache"
	"github.com/IvanBrykalov/cacheme/metrics/prom"
	"github.com/IvanBrykalov/cacheme/policy"
	"github.com/IvanBrykalov/cacheme/policy/lru"
	"github.com/IvanBrykalov/cacheme/policy/twoq"
	"github.com/IvanBrykalov/cacheme/storage/local"
)

var benchMeta = cache.NewMeta(cache.Meta{
	Name:    "bench",
	Version: "v1",
	Caches:  []cache.Cache{{Storage: "local"}},
})

type benchNode struct{ id int }

func (n benchNode) Key() string       { return strconv.Itoa(n.id) }
func (n benchNode) Meta() *cache.Meta { return benchMeta }

func (n benchNode) Load(context.Context) (string, error) {
	return "v:" + strconv.Itoa(n.id), nil
}

func main() {
	// ---- Flags ----
	var (
		capacity = flag.Int("cap", 100_000, "local tier capacity (entries)")
		shards   = flag.Int("shards", 0, "number of shards (0=auto)")
		polName  = flag.String("policy", "lru", "eviction policy: lru | 2q")

		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")

		keys  = flag.Int("keys", 1_000_000, "keyspace size")
		zipfS = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed  = flag.Int64("seed", time.Now().UnixNano(), "random seed")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	prom.NewCollector(nil, "cacheme", "bench")
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s", *metricsAddr)
		log.Println(http.ListenAndServe(*metricsAddr, nil))
	}()

	// ---- Tier ----
	var pol policy.Policy
	switch *polName {
	case "2q":
		pol = twoq.New(*capacity/4, *capacity/2)
	default:
		pol = lru.New()
	}
	store := local.New(local.Options{
		Size:   *capacity,
		Shards: *shards,
		Policy: pol,
	})
	cache.RegisterStorage("local", store)

	// ---- Workload: zipf-skewed gets ----
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	var ops atomic.Int64
	start := time.Now()
	var g errgroup.Group
	for w := 0; w < *workers; w++ {
		w := w
		g.Go(func() error {
			r := rand.New(rand.NewSource(*seed + int64(w)*7919))
			z := rand.NewZipf(r, *zipfS, *zipfV, uint64(*keys-1))
			for ctx.Err() == nil {
				if _, err := cache.Get(ctx, benchNode{id: int(z.Uint64())}); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
				ops.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}

	elapsed := time.Since(start)
	m := cache.Stats(benchMeta)
	fmt.Printf("ops: %d (%.0f/s) in %s\n", ops.Load(),
		float64(ops.Load())/elapsed.Seconds(), elapsed.Round(time.Millisecond))
	fmt.Printf("requests=%d hits=%d misses=%d hit_rate=%.3f loads=%d avg_load=%s\n",
		m.RequestCount(), m.HitCount(), m.MissCount(), m.HitRate(),
		m.LoadCount(), avgLoad(m))
	ts := store.Stats()
	fmt.Printf("tier: resident=%d hits=%d misses=%d evicts=%d\n",
		store.Len(), ts.Hits, ts.Misses, ts.Evicts)
}

func avgLoad(m *cache.Metrics) time.Duration {
	if m.LoadCount() == 0 {
		return 0
	}
	return (m.TotalLoadTime() / time.Duration(m.LoadCount())).Round(time.Microsecond)
}
