package cache

import (
	"time"

	"github.com/IvanBrykalov/cacheme/internal/util"
)

// Metrics holds the per-node-class counters maintained by the read and
// load paths. Counters are monotonic atomics on separate cache lines;
// no ordering between individual counters is guaranteed, but at
// quiescence RequestCount == HitCount+MissCount and
// LoadCount == LoadSuccessCount+LoadFailureCount.
type Metrics struct {
	requests      util.PaddedAtomicInt64
	hits          util.PaddedAtomicInt64
	misses        util.PaddedAtomicInt64
	loadSuccesses util.PaddedAtomicInt64
	loadFailures  util.PaddedAtomicInt64
	loadTimeNS    util.PaddedAtomicInt64
}

// RequestCount returns the number of Get/GetAll lookups, one per distinct
// full key in a call. Refresh is not a request.
func (m *Metrics) RequestCount() int64 { return m.requests.Load() }

// HitCount returns the number of lookups satisfied from a tier.
func (m *Metrics) HitCount() int64 { return m.hits.Load() }

// MissCount returns the number of lookups that fell through to load.
func (m *Metrics) MissCount() int64 { return m.misses.Load() }

// LoadSuccessCount returns the number of loads that returned a value.
func (m *Metrics) LoadSuccessCount() int64 { return m.loadSuccesses.Load() }

// LoadFailureCount returns the number of loads that returned an error.
func (m *Metrics) LoadFailureCount() int64 { return m.loadFailures.Load() }

// LoadCount returns LoadSuccessCount + LoadFailureCount.
func (m *Metrics) LoadCount() int64 {
	return m.loadSuccesses.Load() + m.loadFailures.Load()
}

// TotalLoadTime returns the cumulative wall time spent in load calls.
func (m *Metrics) TotalLoadTime() time.Duration {
	return time.Duration(m.loadTimeNS.Load())
}

// HitRate returns HitCount/RequestCount, or 0 before the first request.
func (m *Metrics) HitRate() float64 {
	r := m.requests.Load()
	if r == 0 {
		return 0
	}
	return float64(m.hits.Load()) / float64(r)
}

// MissRate returns MissCount/RequestCount, or 0 before the first request.
func (m *Metrics) MissRate() float64 {
	r := m.requests.Load()
	if r == 0 {
		return 0
	}
	return float64(m.misses.Load()) / float64(r)
}

func (m *Metrics) observeLoad(elapsed time.Duration, err error) {
	if err != nil {
		m.loadFailures.Add(1)
	} else {
		m.loadSuccesses.Add(1)
	}
	m.loadTimeNS.Add(int64(elapsed))
}
