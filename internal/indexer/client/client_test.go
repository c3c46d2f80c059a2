package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emperorhan/oilube/internal/circuitbreaker"
	"github.com/emperorhan/oilube/internal/domain/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	txHash    = common.HexToHash("0xabc1")
	productID = model.ProductID{0x01, 0x02}
)

func snapshot(logIndex int64) model.Snapshot {
	return model.Snapshot{
		ID:              model.SnapshotID(txHash, logIndex),
		ProductID:       productID,
		ProductName:     "Olive Oil A",
		Path:            []string{},
		BlockNumber:     3,
		TransactionHash: txHash,
		LogIndex:        logIndex,
		CreationTime:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		BlockTimestamp:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newIndexer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/snapshots/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != snapshot(0).ID {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "snapshot not found"})
			return
		}
		writeJSON(w, http.StatusOK, snapshot(0))
	})
	mux.HandleFunc("GET /v1/snapshots", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("transactionHash") != txHash.Hex() {
			writeJSON(w, http.StatusOK, map[string]any{"snapshots": []model.Snapshot{}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"snapshots": []model.Snapshot{snapshot(0)}})
	})
	mux.HandleFunc("GET /v1/products/{productId}/snapshots", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"snapshots": []model.Snapshot{snapshot(0), snapshot(1)}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Queries(t *testing.T) {
	srv := newIndexer(t)
	c := New(Config{BaseURL: srv.URL + "/"}, testLogger())
	ctx := context.Background()

	snap, err := c.GetSnapshot(ctx, snapshot(0).ID)
	require.NoError(t, err)
	assert.Equal(t, productID, snap.ProductID)

	_, err = c.GetSnapshot(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	found, err := c.FindByTxHash(ctx, txHash)
	require.NoError(t, err)
	require.Len(t, found, 1)

	none, err := c.FindByTxHash(ctx, common.Hash{})
	require.NoError(t, err)
	assert.Empty(t, none)

	history, err := c.ListByProduct(ctx, productID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(1), history[1].LogIndex)
	assert.Equal(t, circuitbreaker.StateClosed, c.BreakerState())
}

func TestClient_NotFoundDoesNotTripBreaker(t *testing.T) {
	srv := newIndexer(t)
	c := New(Config{BaseURL: srv.URL, FailureThreshold: 1}, testLogger())

	for i := 0; i < 3; i++ {
		_, err := c.GetSnapshot(context.Background(), "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, circuitbreaker.StateClosed, c.BreakerState())
}

func TestClient_ServerErrorsOpenBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, FailureThreshold: 2, OpenTimeout: time.Hour}, testLogger())
	for i := 0; i < 3; i++ {
		_, err := c.ListByProduct(context.Background(), productID)
		assert.ErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, int32(2), calls.Load(), "open breaker short-circuits the third call")
	assert.Equal(t, circuitbreaker.StateOpen, c.BreakerState())
}

func TestClient_TransportErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Config{BaseURL: url, Timeout: time.Second}, testLogger())
	_, err := c.FindByTxHash(context.Background(), txHash)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_BadRequestIsReturnedAsIs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product id"})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, FailureThreshold: 1}, testLogger())
	_, err := c.ListByProduct(context.Background(), productID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "400")
	assert.Equal(t, circuitbreaker.StateClosed, c.BreakerState())
}

func TestClient_OversizedResponseIsUnavailable(t *testing.T) {
	one, err := json.Marshal(map[string]any{"snapshots": []model.Snapshot{snapshot(0)}})
	require.NoError(t, err)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := 1
		if calls.Add(1) > 1 {
			n = 50
		}
		list := make([]model.Snapshot, n)
		for i := range list {
			list[i] = snapshot(int64(i))
		}
		writeJSON(w, http.StatusOK, map[string]any{"snapshots": list})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, MaxResponseBytes: int64(2 * len(one))}, testLogger())

	got, err := c.ListByProduct(context.Background(), productID)
	require.NoError(t, err, "a body within the cap decodes")
	assert.Len(t, got, 1)

	_, err = c.ListByProduct(context.Background(), productID)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, ErrResponseTooLarge)
}

func TestClient_ErrorBodyIsTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, strings.Repeat("x", 64<<10))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, testLogger())
	_, err := c.ListByProduct(context.Background(), productID)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "502")
	assert.Less(t, len(err.Error()), 1024)
}
