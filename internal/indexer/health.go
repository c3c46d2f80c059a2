package indexer

import (
	"slices"
	"sync"
	"time"

	"github.com/emperorhan/oilube/internal/domain/model"
	"github.com/emperorhan/oilube/internal/metrics"
)

type HealthStatus string

const (
	HealthStatusUnknown   HealthStatus = "UNKNOWN"
	HealthStatusHealthy   HealthStatus = "HEALTHY"
	HealthStatusDegraded  HealthStatus = "DEGRADED"
	HealthStatusUnhealthy HealthStatus = "UNHEALTHY"
)

const (
	// DefaultUnhealthyThreshold consecutive failed ticks mark the indexer
	// unhealthy.
	DefaultUnhealthyThreshold = 5

	// DefaultDegradedLatency is the p95 batch latency above which a healthy
	// indexer reports DEGRADED.
	DefaultDegradedLatency = 5 * time.Second

	latencyWindowSize = 10
)

var healthGauge = map[HealthStatus]float64{
	HealthStatusUnknown:   0,
	HealthStatusHealthy:   1,
	HealthStatusDegraded:  2,
	HealthStatusUnhealthy: 3,
}

// HealthSnapshot is what /healthz serves.
type HealthSnapshot struct {
	Network             string       `json:"network"`
	Status              HealthStatus `json:"status"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	CursorBlock         int64        `json:"cursor_block"`
	HeadBlock           int64        `json:"head_block"`
	LagBlocks           int64        `json:"lag_blocks"`
	LastSuccessAt       *time.Time   `json:"last_success_at,omitempty"`
	LastFailureAt       *time.Time   `json:"last_failure_at,omitempty"`
	LastError           string       `json:"last_error,omitempty"`
}

// Serving reports whether the query API should answer /healthz with 200.
// A degraded indexer still serves.
func (s HealthSnapshot) Serving() bool {
	return s.Status != HealthStatusUnhealthy
}

// Health folds tick outcomes and batch latencies into one status. It is safe
// for concurrent use by the pipeline and the query API.
type Health struct {
	threshold    int
	degradeAbove time.Duration
	now          func() time.Time

	mu        sync.RWMutex
	snap      HealthSnapshot
	latencies []time.Duration // oldest first, at most latencyWindowSize
}

func NewHealth(network model.Network, unhealthyThreshold int) *Health {
	if unhealthyThreshold <= 0 {
		unhealthyThreshold = DefaultUnhealthyThreshold
	}
	h := &Health{
		threshold:    unhealthyThreshold,
		degradeAbove: DefaultDegradedLatency,
		now:          time.Now,
		snap:         HealthSnapshot{Network: network.String(), Status: HealthStatusUnknown},
	}
	h.publishLocked()
	return h
}

// RecordSuccess notes a completed tick at cursor with the chain at head. It
// reports whether this ended an unhealthy streak.
func (h *Health) RecordSuccess(cursor, head int64) (recovered bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.now()
	recovered = h.snap.Status == HealthStatusUnhealthy

	h.snap.ConsecutiveFailures = 0
	h.snap.LastSuccessAt = &now
	h.snap.LastError = ""
	h.snap.CursorBlock = cursor
	h.snap.HeadBlock = head
	h.snap.LagBlocks = max(head-cursor, 0)
	h.snap.Status = h.liveStatusLocked()
	h.publishLocked()
	return recovered
}

// RecordFailure notes a failed tick. It reports whether this failure pushed
// the indexer into UNHEALTHY.
func (h *Health) RecordFailure(err error) (becameUnhealthy bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.now()

	h.snap.ConsecutiveFailures++
	h.snap.LastFailureAt = &now
	if err != nil {
		h.snap.LastError = err.Error()
	}
	if h.snap.ConsecutiveFailures >= h.threshold && h.snap.Status != HealthStatusUnhealthy {
		h.snap.Status = HealthStatusUnhealthy
		becameUnhealthy = true
	}
	h.publishLocked()
	return becameUnhealthy
}

// RecordLatency adds one batch duration to the sliding window. It only moves
// a live indexer between HEALTHY and DEGRADED.
func (h *Health) RecordLatency(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.latencies) == latencyWindowSize {
		h.latencies = append(h.latencies[:0], h.latencies[1:]...)
	}
	h.latencies = append(h.latencies, d)

	switch h.snap.Status {
	case HealthStatusHealthy, HealthStatusDegraded:
		if h.snap.ConsecutiveFailures == 0 {
			h.snap.Status = h.liveStatusLocked()
		}
	}
	h.publishLocked()
}

func (h *Health) Snapshot() HealthSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap
}

func (h *Health) liveStatusLocked() HealthStatus {
	if h.p95Locked() > h.degradeAbove {
		return HealthStatusDegraded
	}
	return HealthStatusHealthy
}

// p95Locked needs at least two samples; a single slow batch is not a trend.
func (h *Health) p95Locked() time.Duration {
	n := len(h.latencies)
	if n < 2 {
		return 0
	}
	sorted := slices.Clone(h.latencies)
	slices.Sort(sorted)
	idx := (95*n - 1) / 100
	return sorted[min(max(idx, 0), n-1)]
}

func (h *Health) publishLocked() {
	metrics.IndexerHealthStatus.WithLabelValues(h.snap.Network).Set(healthGauge[h.snap.Status])
	metrics.IndexerConsecutiveFailures.WithLabelValues(h.snap.Network).Set(float64(h.snap.ConsecutiveFailures))
}
