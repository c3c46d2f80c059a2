// Package api serves the indexer's snapshot queries over HTTP.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emperorhan/oilube/internal/cache"
	"github.com/emperorhan/oilube/internal/domain/model"
	"github.com/emperorhan/oilube/internal/indexer"
	"github.com/emperorhan/oilube/internal/store"
)

// HealthProvider reports ingestion health for /healthz.
type HealthProvider interface {
	Snapshot() indexer.HealthSnapshot
}

// Server answers snapshot lookups from the store.
type Server struct {
	snapshots store.SnapshotReader
	byID      cache.Cache[string, model.Snapshot]
	health    HealthProvider
	limiter   *RateLimitMiddleware
	logger    *slog.Logger
}

// ServerOption configures optional dependencies for the query server.
type ServerOption func(*Server)

// WithHealthProvider exposes pipeline health on /healthz.
func WithHealthProvider(hp HealthProvider) ServerOption {
	return func(s *Server) { s.health = hp }
}

// WithRateLimit applies per-client rate limiting to every route.
func WithRateLimit(rl *RateLimitMiddleware) ServerOption {
	return func(s *Server) { s.limiter = rl }
}

// WithSnapshotCache keeps up to size snapshots served by id in memory.
// Snapshots are never updated once stored, so entries do not expire.
func WithSnapshotCache(size int) ServerOption {
	return func(s *Server) {
		if size > 0 {
			s.byID = cache.NewInstrumented[string, model.Snapshot]("snapshot_by_id", cache.NewLRU[string, model.Snapshot](size, 0))
		}
	}
}

func NewServer(snapshots store.SnapshotReader, logger *slog.Logger, opts ...ServerOption) *Server {
	s := &Server{
		snapshots: snapshots,
		logger:    logger.With("component", "query_api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler for the query API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/snapshots/{id}", s.handleGetSnapshot)
	mux.HandleFunc("GET /v1/snapshots", s.handleFindSnapshots)
	mux.HandleFunc("GET /v1/products/{productId}/snapshots", s.handleProductSnapshots)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	var h http.Handler = mux
	if s.limiter != nil {
		h = s.limiter.Wrap(h)
	}
	return InstrumentMiddleware(s.logger, h)
}

// SnapshotList is the response body of list endpoints.
type SnapshotList struct {
	Snapshots []model.Snapshot `json:"snapshots"`
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "snapshot id required")
		return
	}

	if s.byID != nil {
		if snap, ok := s.byID.Get(id); ok {
			writeJSON(w, http.StatusOK, snap)
			return
		}
	}

	snap, err := s.snapshots.GetByID(r.Context(), id)
	if err != nil {
		withRequestID(r.Context(), s.logger).Error("get snapshot failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if snap == nil {
		writeError(w, http.StatusNotFound, "snapshot not found")
		return
	}
	if s.byID != nil {
		s.byID.Put(id, *snap)
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleFindSnapshots(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("transactionHash"))
	if raw == "" {
		writeError(w, http.StatusBadRequest, "transactionHash query param required")
		return
	}
	hash, ok := parseHash(raw)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid transactionHash")
		return
	}

	snaps, err := s.snapshots.FindByTxHash(r.Context(), hash)
	if err != nil {
		withRequestID(r.Context(), s.logger).Error("find snapshots failed", "transaction_hash", raw, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, SnapshotList{Snapshots: nonNil(snaps)})
}

func (s *Server) handleProductSnapshots(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseProductID(r.PathValue("productId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	snaps, err := s.snapshots.ListByProduct(r.Context(), id)
	if err != nil {
		withRequestID(r.Context(), s.logger).Error("list product snapshots failed", "product_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, SnapshotList{Snapshots: nonNil(snaps)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	snap := s.health.Snapshot()
	status := http.StatusOK
	if !snap.Serving() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, snap)
}

func parseHash(raw string) (common.Hash, bool) {
	if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
		raw = "0x" + raw
	}
	if len(raw) != 2+2*common.HashLength {
		return common.Hash{}, false
	}
	b, err := hexutil.Decode("0x" + raw[2:])
	if err != nil {
		return common.Hash{}, false
	}
	return common.BytesToHash(b), true
}

func nonNil(snaps []model.Snapshot) []model.Snapshot {
	if snaps == nil {
		return []model.Snapshot{}
	}
	return snaps
}
