// Package provenance orchestrates product checks and participant writes
// across the ledger, the indexer and the local shadow record store.
package provenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/trace"

	"github.com/emperorhan/oilube/internal/cache"
	"github.com/emperorhan/oilube/internal/chain"
	"github.com/emperorhan/oilube/internal/domain/model"
	"github.com/emperorhan/oilube/internal/store"
	"github.com/emperorhan/oilube/internal/tracing"
)

// IndexerQuerier is the indexer query boundary. *client.Client satisfies it.
type IndexerQuerier interface {
	FindByTxHash(ctx context.Context, hash common.Hash) ([]model.Snapshot, error)
	ListByProduct(ctx context.Context, id model.ProductID) ([]model.Snapshot, error)
}

// Config tunes the service's local-code cache.
type Config struct {
	MappingCacheSize int
	MappingCacheTTL  time.Duration
}

const (
	defaultMappingCacheSize = 1024
	defaultMappingCacheTTL  = 10 * time.Minute
)

// Service is safe for concurrent use. Callers pass their wallet session to
// every operation; the service holds no signer of its own.
type Service struct {
	ledger   chain.Ledger
	indexer  IndexerQuerier
	records  store.RecordStore
	mappings cache.Cache[string, model.ProductID]
	tracer   trace.Tracer
	logger   *slog.Logger
	now      func() time.Time
}

// New builds a Service. indexer may be nil, in which case every check is
// served from the ledger alone.
func New(cfg Config, ledger chain.Ledger, indexer IndexerQuerier, records store.RecordStore, logger *slog.Logger) *Service {
	if cfg.MappingCacheSize <= 0 {
		cfg.MappingCacheSize = defaultMappingCacheSize
	}
	if cfg.MappingCacheTTL <= 0 {
		cfg.MappingCacheTTL = defaultMappingCacheTTL
	}
	mappings := cache.NewShardedLRU[string, model.ProductID](cfg.MappingCacheSize, 0, cfg.MappingCacheTTL, cache.StringKeys)
	return &Service{
		ledger:   ledger,
		indexer:  indexer,
		records:  records,
		mappings: cache.NewInstrumented[string, model.ProductID]("local_code", mappings),
		tracer:   tracing.Tracer("oilube/provenance"),
		logger:   logger.With("component", "provenance"),
		now:      time.Now,
	}
}
