package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/emperorhan/oilube/internal/alert"
	"github.com/emperorhan/oilube/internal/chain"
	"github.com/emperorhan/oilube/internal/domain/event"
	"github.com/emperorhan/oilube/internal/domain/model"
	"github.com/emperorhan/oilube/internal/metrics"
	"github.com/emperorhan/oilube/internal/retry"
	"github.com/emperorhan/oilube/internal/store"
	"github.com/emperorhan/oilube/internal/tracing"
)

type Config struct {
	Network model.Network
	// StartBlock is where indexing begins when no cursor exists yet.
	StartBlock int64
	// BatchBlocks bounds the block range fetched per batch.
	BatchBlocks int64
	// Confirmations keeps the pipeline this many blocks behind head.
	Confirmations    int64
	PollInterval     time.Duration
	RetryMaxAttempts int
	BackoffInitial   time.Duration
	BackoffMax       time.Duration
	// UnhealthyThreshold is the number of consecutive failed batches before
	// an unhealthy alert fires.
	UnhealthyThreshold int
	// LagAlertBlocks fires an INDEXER_LAG alert when the cursor trails the
	// target by more blocks than this. Zero disables it.
	LagAlertBlocks int64
}

const (
	defaultBatchBlocks      = 500
	defaultPollInterval     = 5 * time.Second
	defaultRetryMaxAttempts = 4
	defaultBackoffInitial   = 200 * time.Millisecond
	defaultBackoffMax       = 5 * time.Second
)

func (c Config) withDefaults() Config {
	if c.BatchBlocks <= 0 {
		c.BatchBlocks = defaultBatchBlocks
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.RetryMaxAttempts <= 0 {
		c.RetryMaxAttempts = defaultRetryMaxAttempts
	}
	if c.BackoffInitial <= 0 {
		c.BackoffInitial = defaultBackoffInitial
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = defaultBackoffMax
	}
	if c.Confirmations < 0 {
		c.Confirmations = 0
	}
	if c.StartBlock < 0 {
		c.StartBlock = 0
	}
	return c
}

// Pipeline polls the ledger's event feed from the persisted cursor and stores
// each event as a snapshot. It never blocks or orders ledger writes.
type Pipeline struct {
	cfg     Config
	source  chain.EventSource
	cursors store.CursorRepository
	writer  store.BatchCommitter
	mapper  Mapper
	health  *Health
	alerter alert.Alerter
	tracer  trace.Tracer
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

func New(
	cfg Config,
	source chain.EventSource,
	cursors store.CursorRepository,
	writer store.BatchCommitter,
	alerter alert.Alerter,
	logger *slog.Logger,
) *Pipeline {
	cfg = cfg.withDefaults()
	if cfg.Network == "" {
		cfg.Network = source.Network()
	}
	if alerter == nil {
		alerter = &alert.NoopAlerter{}
	}
	return &Pipeline{
		cfg:     cfg,
		source:  source,
		cursors: cursors,
		writer:  writer,
		health:  NewHealth(cfg.Network, cfg.UnhealthyThreshold),
		alerter: alerter,
		tracer:  tracing.Tracer("oilube/indexer"),
		logger:  logger.With("component", "indexer", "network", cfg.Network),
		sleep:   retry.Sleep,
	}
}

func (p *Pipeline) Network() model.Network { return p.cfg.Network }

func (p *Pipeline) Health() *Health { return p.health }

// Run processes batches until ctx is done. Failed batches are recorded and
// retried on the next poll; only ctx cancellation stops the loop.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("indexer pipeline started",
		"start_block", p.cfg.StartBlock,
		"batch_blocks", p.cfg.BatchBlocks,
		"confirmations", p.cfg.Confirmations,
	)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		caughtUp, err := p.Tick(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.onFailure(ctx, err)
			caughtUp = true
		}
		if !caughtUp {
			continue
		}
		if err := p.sleep(ctx, p.cfg.PollInterval); err != nil {
			return err
		}
	}
}

// Tick stores at most one batch. It reports whether the cursor has reached
// the confirmed head.
func (p *Pipeline) Tick(ctx context.Context) (caughtUp bool, err error) {
	ctx, span := p.tracer.Start(ctx, "indexer.batch")
	defer span.End()

	start := time.Now()
	network := p.cfg.Network.String()

	cursor, err := withRetry(ctx, p, "indexer.get_cursor", func(ctx context.Context) (*model.IndexerCursor, error) {
		return p.cursors.Get(ctx, p.cfg.Network)
	})
	if err != nil {
		return false, tracing.RecordError(span, err)
	}
	next := p.cfg.StartBlock
	if cursor != nil && cursor.BlockNumber+1 > next {
		next = cursor.BlockNumber + 1
	}

	head, err := withRetry(ctx, p, "indexer.head_block", p.source.HeadBlock)
	if err != nil {
		return false, tracing.RecordError(span, err)
	}
	target := head - p.cfg.Confirmations
	if next > target {
		p.recordProgress(ctx, next-1, head, target)
		return true, nil
	}

	to := next + p.cfg.BatchBlocks - 1
	if to > target {
		to = target
	}
	span.SetAttributes(tracing.BlockRange(next, to)...)

	events, err := withRetry(ctx, p, "indexer.fetch_events", func(ctx context.Context) ([]event.ProductDetail, error) {
		return p.source.ProductDetailEvents(ctx, next, to)
	})
	if err != nil {
		return false, tracing.RecordError(span, err)
	}
	snaps := p.mapper.MapAll(events)

	inserted, err := withRetry(ctx, p, "indexer.commit_batch", func(ctx context.Context) (int, error) {
		return p.writer.CommitBatch(ctx, p.cfg.Network, snaps, to)
	})
	if err != nil {
		return false, tracing.RecordError(span, err)
	}

	elapsed := time.Since(start)
	metrics.IndexerBatchLatency.WithLabelValues(network).Observe(elapsed.Seconds())
	metrics.IndexerEventsIngested.WithLabelValues(network).Add(float64(inserted))
	metrics.IndexerDuplicateEvents.WithLabelValues(network).Add(float64(len(snaps) - inserted))
	p.health.RecordLatency(elapsed)
	p.recordProgress(ctx, to, head, target)
	span.SetAttributes(attribute.Int("events", len(snaps)), attribute.Int("inserted", inserted))

	if len(snaps) > 0 {
		p.logger.Info("indexed batch",
			"from_block", next,
			"to_block", to,
			"events", len(snaps),
			"inserted", inserted,
			"elapsed", elapsed.String(),
		)
	}

	if p.cfg.LagAlertBlocks > 0 && target-to > p.cfg.LagAlertBlocks {
		p.sendAlert(ctx, alert.Alert{
			Type:    alert.AlertTypeIndexerLag,
			Network: network,
			Title:   "indexer lagging",
			Message: fmt.Sprintf("cursor %d trails confirmed head %d by %d blocks", to, target, target-to),
		})
	}
	return to >= target, nil
}

func (p *Pipeline) recordProgress(ctx context.Context, cursor, head, target int64) {
	network := p.cfg.Network.String()
	if cursor < 0 {
		cursor = 0
	}
	lag := target - cursor
	if lag < 0 {
		lag = 0
	}
	metrics.IndexerCursorBlock.WithLabelValues(network).Set(float64(cursor))
	metrics.IndexerLagBlocks.WithLabelValues(network).Set(float64(lag))

	if p.health.RecordSuccess(cursor, head) {
		p.logger.Info("indexer recovered", "cursor_block", cursor)
		p.sendAlert(ctx, alert.Alert{
			Type:    alert.AlertTypeRecovery,
			Network: network,
			Title:   "indexer recovered",
			Message: fmt.Sprintf("ingestion resumed at block %d", cursor),
		})
	}
}

func (p *Pipeline) onFailure(ctx context.Context, err error) {
	decision := retry.Classify(err)
	metrics.IndexerErrors.WithLabelValues(p.cfg.Network.String(), string(decision.Class)).Inc()
	p.logger.Error("indexer batch failed",
		"classification", decision.Class,
		"classification_reason", decision.Reason,
		"error", err,
	)
	if p.health.RecordFailure(err) {
		snap := p.health.Snapshot()
		p.sendAlert(ctx, alert.Alert{
			Type:    alert.AlertTypeUnhealthy,
			Network: p.cfg.Network.String(),
			Title:   "indexer unhealthy",
			Message: err.Error(),
			Fields: map[string]string{
				"consecutive_failures": strconv.Itoa(snap.ConsecutiveFailures),
				"cursor_block":         strconv.FormatInt(snap.CursorBlock, 10),
			},
		})
	}
}

func (p *Pipeline) sendAlert(ctx context.Context, a alert.Alert) {
	if err := p.alerter.Send(ctx, a); err != nil {
		p.logger.Warn("alert send failed", "type", a.Type, "error", err)
	}
}

// withRetry retries fn on transient errors with exponential backoff.
func withRetry[T any](ctx context.Context, p *Pipeline, stage string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	lastDecision := retry.Decision{Class: retry.ClassTerminal, Reason: "unset"}
	attempts := p.cfg.RetryMaxAttempts

	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		lastDecision = retry.Classify(err)

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if !lastDecision.IsTransient() {
			return zero, fmt.Errorf("terminal_failure stage=%s attempt=%d reason=%s: %w", stage, attempt, lastDecision.Reason, err)
		}
		if attempt == attempts {
			break
		}

		p.logger.Warn("indexer stage failed; retrying",
			"stage", stage,
			"classification", lastDecision.Class,
			"classification_reason", lastDecision.Reason,
			"attempt", attempt,
			"error", err,
		)
		if sleepErr := p.sleep(ctx, retry.Backoff(attempt, p.cfg.BackoffInitial, p.cfg.BackoffMax)); sleepErr != nil {
			return zero, sleepErr
		}
	}

	return zero, fmt.Errorf("transient_recovery_exhausted stage=%s attempts=%d reason=%s: %w", stage, attempts, lastDecision.Reason, lastErr)
}
