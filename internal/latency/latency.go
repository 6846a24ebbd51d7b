// Package latency tracks hot-path timing with a lock-free circular buffer of
// samples, grounded on original_source/aegisquant-core/src/latency.rs. The
// Rust RAII LatencyGuard (timed by Drop) becomes a defer-friendly closure
// returned from Track, since Go has no destructor hook.
package latency

import (
	"math"
	"sort"
	"sync/atomic"
	"time"
)

const maxSamples = 10000

// Stats is a point-in-time read of the tracker's accumulated samples.
type Stats struct {
	MinNs, MaxNs, AvgNs      int64
	P50Ns, P95Ns, P99Ns      int64
	SampleCount              int64
	LastNs                   int64
}

// Tracker records latency samples from multiple goroutines without locking:
// running min/max use compare-and-swap retry loops, sum/count use atomic
// adds, and each sample also lands in a circular buffer for percentiles.
type Tracker struct {
	minNs   atomic.Int64
	maxNs   atomic.Int64
	sumNs   atomic.Int64
	count   atomic.Int64
	lastNs  atomic.Int64
	enabled atomic.Bool

	sampleRate    atomic.Int64
	sampleCounter atomic.Int64

	samples    []atomic.Int64
	writeIndex atomic.Int64
}

func NewTracker() *Tracker {
	t := &Tracker{samples: make([]atomic.Int64, maxSamples)}
	t.enabled.Store(true)
	t.sampleRate.Store(1)
	t.minNs.Store(math.MaxInt64)
	return t
}

// Record stores one latency sample in nanoseconds.
func (t *Tracker) Record(latencyNs int64) {
	if !t.enabled.Load() {
		return
	}

	rate := t.sampleRate.Load()
	if rate > 1 {
		n := t.sampleCounter.Add(1)
		if n%rate != 0 {
			return
		}
	}

	for {
		cur := t.minNs.Load()
		if latencyNs >= cur {
			break
		}
		if t.minNs.CompareAndSwap(cur, latencyNs) {
			break
		}
	}
	for {
		cur := t.maxNs.Load()
		if latencyNs <= cur {
			break
		}
		if t.maxNs.CompareAndSwap(cur, latencyNs) {
			break
		}
	}

	t.sumNs.Add(latencyNs)
	t.count.Add(1)
	t.lastNs.Store(latencyNs)

	idx := t.writeIndex.Add(1) - 1
	t.samples[idx%maxSamples].Store(latencyNs)
}

// Track starts timing now and returns a function that records the elapsed
// duration when called — use as `defer tracker.Track()()`.
func (t *Tracker) Track() func() {
	start := time.Now()
	return func() {
		t.Record(time.Since(start).Nanoseconds())
	}
}

func (t *Tracker) GetStats() Stats {
	count := t.count.Load()
	if count == 0 {
		return Stats{}
	}

	sum := t.sumNs.Load()
	avg := sum / count

	collected := make([]int64, 0, maxSamples)
	for i := range t.samples {
		v := t.samples[i].Load()
		if v != 0 {
			collected = append(collected, v)
		}
	}
	sort.Slice(collected, func(i, j int) bool { return collected[i] < collected[j] })

	percentile := func(p int) int64 {
		n := len(collected)
		if n == 0 {
			return 0
		}
		idx := n * p / 100
		if idx >= n {
			idx = n - 1
		}
		return collected[idx]
	}

	return Stats{
		MinNs:       t.minNs.Load(),
		MaxNs:       t.maxNs.Load(),
		AvgNs:       avg,
		P50Ns:       percentile(50),
		P95Ns:       percentile(95),
		P99Ns:       percentile(99),
		SampleCount: count,
		LastNs:      t.lastNs.Load(),
	}
}

func (t *Tracker) Reset() {
	t.minNs.Store(math.MaxInt64)
	t.maxNs.Store(0)
	t.sumNs.Store(0)
	t.count.Store(0)
	t.lastNs.Store(0)
	t.sampleCounter.Store(0)
	t.writeIndex.Store(0)
	for i := range t.samples {
		t.samples[i].Store(0)
	}
}

func (t *Tracker) SetEnabled(enabled bool) { t.enabled.Store(enabled) }

func (t *Tracker) SetSampleRate(rate int64) {
	if rate < 1 {
		rate = 1
	}
	t.sampleRate.Store(rate)
}
