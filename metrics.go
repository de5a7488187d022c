package fangauth

import (
	"sync/atomic"
	"time"
)

// MetricID indexes an engine counter or histogram.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginRateLimited
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricSessionCreated
	MetricSessionInvalidated
	MetricLogout
	MetricPasswordChangeSuccess
	MetricPasswordChangeInvalidOld
	MetricPasswordChangeWeak
	MetricRegisterSuccess
	MetricRegisterDuplicate
	MetricPasswordResetRequest
	MetricPasswordResetConfirmSuccess
	MetricPasswordResetConfirmFailure
	MetricValidateSuccess
	MetricValidateFailure
	MetricBackendUnavailable
	// MetricValidateLatency is the only token-path histogram.
	MetricValidateLatency
	// MetricLoginLatency covers the whole login including the PBKDF2 verify.
	MetricLoginLatency
	metricIDCount
)

// latencyBounds are the inclusive upper bounds of the finite histogram
// buckets. Anything slower lands in the final overflow bucket.
var latencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const histBucketCount = len(latencyBounds) + 1

// histogramIDs lists the latency histograms in slot order.
var histogramIDs = [...]MetricID{MetricValidateLatency, MetricLoginLatency}

// counter sits alone on a cache line; login bursts hit a handful of IDs hard.
type counter struct {
	n atomic.Uint64
	_ [56]byte
}

type latencyHistogram [histBucketCount]atomic.Uint64

// Metrics holds lock-free engine counters. A nil *Metrics is a valid no-op.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]counter
	latency       [len(histogramIDs)]latencyHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histogram buckets.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool { return m != nil && m.enabled }

func (m *Metrics) LatencyEnabled() bool { return m != nil && m.enableLatency }

func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount || histogramSlot(id) >= 0 {
		return
	}
	m.counters[id].n.Add(1)
}

// Observe records d into the histogram of id. Counter IDs are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() {
		return
	}
	slot := histogramSlot(id)
	if slot < 0 {
		return
	}
	m.latency[slot][bucketFor(d)].Add(1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].n.Load()
}

// Snapshot copies counters, plus histogram buckets when latency is enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return snap
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if histogramSlot(id) < 0 {
			snap.Counters[id] = m.counters[id].n.Load()
		}
	}
	if !m.enableLatency {
		return snap
	}
	for slot, id := range histogramIDs {
		out := make([]uint64, histBucketCount)
		for i := range out {
			out[i] = m.latency[slot][i].Load()
		}
		snap.Histograms[id] = out
	}
	return snap
}

func histogramSlot(id MetricID) int {
	for slot, h := range histogramIDs {
		if h == id {
			return slot
		}
	}
	return -1
}

func bucketFor(d time.Duration) int {
	for i, bound := range latencyBounds {
		if d <= bound {
			return i
		}
	}
	return len(latencyBounds)
}
