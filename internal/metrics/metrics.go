package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors are partitioned by network unless noted otherwise.

var (
	// Indexer
	IndexerEventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oilube",
		Subsystem: "indexer",
		Name:      "events_ingested_total",
		Help:      "Total ProductDetail events stored as new snapshots",
	}, []string{"network"})

	IndexerDuplicateEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oilube",
		Subsystem: "indexer",
		Name:      "duplicate_events_total",
		Help:      "Total events skipped because their snapshot already existed",
	}, []string{"network"})

	IndexerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oilube",
		Subsystem: "indexer",
		Name:      "errors_total",
		Help:      "Total indexer batch errors by class",
	}, []string{"network", "class"})

	IndexerBatchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "oilube",
		Subsystem: "indexer",
		Name:      "batch_duration_seconds",
		Help:      "Duration of one fetch-map-store batch",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"network"})

	IndexerCursorBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "oilube",
		Subsystem: "indexer",
		Name:      "cursor_block",
		Help:      "Last fully indexed ledger block",
	}, []string{"network"})

	IndexerLagBlocks = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "oilube",
		Subsystem: "indexer",
		Name:      "lag_blocks",
		Help:      "Ledger head minus indexed cursor",
	}, []string{"network"})

	// Indexer health
	IndexerHealthStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "oilube",
		Subsystem: "indexer",
		Name:      "health_status",
		Help:      "Indexer health status (0=UNKNOWN, 1=HEALTHY, 2=DEGRADED, 3=UNHEALTHY)",
	}, []string{"network"})

	IndexerConsecutiveFailures = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "oilube",
		Subsystem: "indexer",
		Name:      "consecutive_failures",
		Help:      "Number of consecutive failed indexer batches",
	}, []string{"network"})

	// Query API
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oilube",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total query API requests",
	}, []string{"route", "code"})

	APIRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "oilube",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "Query API request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	// Ledger RPC
	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oilube",
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "Total ledger RPC calls by method and status",
	}, []string{"network", "method", "status"})

	RPCRateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oilube",
		Subsystem: "rpc",
		Name:      "rate_limit_waits_total",
		Help:      "Total RPC calls delayed by the local rate limiter",
	}, []string{"network"})

	// Provenance client
	ProvenanceChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oilube",
		Subsystem: "provenance",
		Name:      "checks_total",
		Help:      "Total product checks by caller role and outcome",
	}, []string{"role", "outcome"})

	ProvenanceFeesPaidWei = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "oilube",
		Subsystem: "provenance",
		Name:      "fees_paid_wei_total",
		Help:      "Total viewing fees paid through this client, in wei",
	})

	ProvenanceWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oilube",
		Subsystem: "provenance",
		Name:      "writes_total",
		Help:      "Total two-phase writes by operation and shadow record status",
	}, []string{"operation", "status"})

	IndexerClientUnavailable = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "oilube",
		Subsystem: "provenance",
		Name:      "indexer_unavailable_total",
		Help:      "Total indexer queries degraded to ledger-only results",
	})

	// Shadow record reconciliation
	ReconciliationRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "oilube",
		Subsystem: "reconciliation",
		Name:      "runs_total",
		Help:      "Total shadow record reconciliation runs",
	})

	ReconciliationRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oilube",
		Subsystem: "reconciliation",
		Name:      "records_total",
		Help:      "Shadow records checked against the ledger by kind and verdict",
	}, []string{"kind", "verdict"})

	// Circuit breakers
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "oilube",
		Subsystem: "circuitbreaker",
		Name:      "state",
		Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"name"})

	// Caches
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oilube",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"cache"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oilube",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"cache"})

	// Database pool
	DBPoolOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "oilube",
		Subsystem: "postgres",
		Name:      "db_pool_open",
		Help:      "Current number of open PostgreSQL connections in the pool",
	})

	DBPoolInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "oilube",
		Subsystem: "postgres",
		Name:      "db_pool_in_use",
		Help:      "Current number of in-use PostgreSQL connections in the pool",
	})

	DBPoolIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "oilube",
		Subsystem: "postgres",
		Name:      "db_pool_idle",
		Help:      "Current number of idle PostgreSQL connections in the pool",
	})

	// Alerts
	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oilube",
		Subsystem: "alert",
		Name:      "sent_total",
		Help:      "Total alerts sent",
	}, []string{"channel", "alert_type"})

	AlertsCooldownSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oilube",
		Subsystem: "alert",
		Name:      "cooldown_skipped_total",
		Help:      "Total alerts skipped due to cooldown",
	}, []string{"channel", "alert_type"})
)
