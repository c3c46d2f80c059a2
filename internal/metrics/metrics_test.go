package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_AllVariablesNonNil(t *testing.T) {
	t.Parallel()

	vars := []struct {
		name string
		val  any
	}{
		{"IndexerEventsIngested", IndexerEventsIngested},
		{"IndexerDuplicateEvents", IndexerDuplicateEvents},
		{"IndexerErrors", IndexerErrors},
		{"IndexerBatchLatency", IndexerBatchLatency},
		{"IndexerCursorBlock", IndexerCursorBlock},
		{"IndexerLagBlocks", IndexerLagBlocks},
		{"IndexerHealthStatus", IndexerHealthStatus},
		{"IndexerConsecutiveFailures", IndexerConsecutiveFailures},
		{"APIRequestsTotal", APIRequestsTotal},
		{"APIRequestLatency", APIRequestLatency},
		{"RPCCallsTotal", RPCCallsTotal},
		{"RPCRateLimitWaits", RPCRateLimitWaits},
		{"ProvenanceChecksTotal", ProvenanceChecksTotal},
		{"ProvenanceFeesPaidWei", ProvenanceFeesPaidWei},
		{"ProvenanceWritesTotal", ProvenanceWritesTotal},
		{"IndexerClientUnavailable", IndexerClientUnavailable},
		{"CircuitBreakerState", CircuitBreakerState},
		{"CacheHits", CacheHits},
		{"CacheMisses", CacheMisses},
		{"DBPoolOpen", DBPoolOpen},
		{"DBPoolInUse", DBPoolInUse},
		{"DBPoolIdle", DBPoolIdle},
		{"AlertsSentTotal", AlertsSentTotal},
		{"AlertsCooldownSkipped", AlertsCooldownSkipped},
	}

	for _, v := range vars {
		assert.NotNilf(t, v.val, "%s should not be nil", v.name)
	}
}

func TestMetrics_CounterIncrementNoPanic(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() { IndexerEventsIngested.WithLabelValues("test-network").Inc() })
	assert.NotPanics(t, func() { IndexerDuplicateEvents.WithLabelValues("test-network").Inc() })
	assert.NotPanics(t, func() { IndexerErrors.WithLabelValues("test-network", "transient").Inc() })
	assert.NotPanics(t, func() { APIRequestsTotal.WithLabelValues("snapshot", "200").Inc() })
	assert.NotPanics(t, func() { RPCCallsTotal.WithLabelValues("test-network", "eth_call", "ok").Inc() })
	assert.NotPanics(t, func() { ProvenanceChecksTotal.WithLabelValues("consumer", "paid").Inc() })
	assert.NotPanics(t, func() { ProvenanceWritesTotal.WithLabelValues("transfer", "confirmed-on-ledger").Inc() })
	assert.NotPanics(t, func() { CacheHits.WithLabelValues("test-cache").Inc() })
}

func TestMetrics_HistogramObserveNoPanic(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() { IndexerBatchLatency.WithLabelValues("test-network").Observe(1.5) })
	assert.NotPanics(t, func() { APIRequestLatency.WithLabelValues("snapshot").Observe(0.01) })
}

func TestMetrics_GaugeSet(t *testing.T) {
	t.Parallel()

	IndexerCursorBlock.WithLabelValues("gauge-network").Set(42)
	assert.Equal(t, 42.0, testutil.ToFloat64(IndexerCursorBlock.WithLabelValues("gauge-network")))

	assert.NotPanics(t, func() { DBPoolOpen.Set(3) })
	assert.NotPanics(t, func() { CircuitBreakerState.WithLabelValues("test-breaker").Set(1) })
}
