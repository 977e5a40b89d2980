// Package prom exports the per-node-class cache metrics to Prometheus.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/IvanBrykalov/cacheme/cache"
)

// Collector walks every registered node class on scrape and emits its
// counters labeled by node name. Classes registered after the collector
// show up on the next scrape; no per-event plumbing is needed because
// the cache core already keeps atomic counters.
type Collector struct {
	requests      *prometheus.Desc
	hits          *prometheus.Desc
	misses        *prometheus.Desc
	loadSuccesses *prometheus.Desc
	loadFailures  *prometheus.Desc
	loadTime      *prometheus.Desc
}

// NewCollector constructs a collector and registers it.
//   - reg:     registry to register with (nil => prometheus.DefaultRegisterer)
//   - ns, sub: Prometheus namespace and subsystem
func NewCollector(reg prometheus.Registerer, ns, sub string) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	labels := []string{"node"}
	c := &Collector{
		requests: prometheus.NewDesc(
			prometheus.BuildFQName(ns, sub, "requests_total"),
			"Cache lookups by node class", labels, nil),
		hits: prometheus.NewDesc(
			prometheus.BuildFQName(ns, sub, "hits_total"),
			"Cache hits by node class", labels, nil),
		misses: prometheus.NewDesc(
			prometheus.BuildFQName(ns, sub, "misses_total"),
			"Cache misses by node class", labels, nil),
		loadSuccesses: prometheus.NewDesc(
			prometheus.BuildFQName(ns, sub, "load_success_total"),
			"Successful loads by node class", labels, nil),
		loadFailures: prometheus.NewDesc(
			prometheus.BuildFQName(ns, sub, "load_failure_total"),
			"Failed loads by node class", labels, nil),
		loadTime: prometheus.NewDesc(
			prometheus.BuildFQName(ns, sub, "load_seconds_total"),
			"Cumulative load wall time by node class", labels, nil),
	}
	reg.MustRegister(c)
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.requests
	ch <- c.hits
	ch <- c.misses
	ch <- c.loadSuccesses
	ch <- c.loadFailures
	ch <- c.loadTime
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, meta := range cache.Nodes() {
		m := meta.Metrics()
		name := meta.Name
		counter := func(d *prometheus.Desc, v float64) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v, name)
		}
		counter(c.requests, float64(m.RequestCount()))
		counter(c.hits, float64(m.HitCount()))
		counter(c.misses, float64(m.MissCount()))
		counter(c.loadSuccesses, float64(m.LoadSuccessCount()))
		counter(c.loadFailures, float64(m.LoadFailureCount()))
		counter(c.loadTime, m.TotalLoadTime().Seconds())
	}
}

var _ prometheus.Collector = (*Collector)(nil)
