// Package client queries the indexer's snapshot API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/emperorhan/oilube/internal/circuitbreaker"
	"github.com/emperorhan/oilube/internal/domain/model"
)

var (
	// ErrUnavailable means the indexer could not be reached or is failing.
	// Callers degrade to ledger-only data.
	ErrUnavailable = errors.New("indexer unavailable")
	// ErrNotFound is returned by GetSnapshot for an unknown id.
	ErrNotFound = errors.New("snapshot not found")
	// ErrResponseTooLarge means the indexer answered with more than
	// Config.MaxResponseBytes.
	ErrResponseTooLarge = errors.New("indexer response too large")
)

const (
	defaultMaxResponseBytes = 8 << 20
	// maxErrorBodyBytes bounds how much of an error body ends up in logs.
	maxErrorBodyBytes = 512
)

// statusError is a non-2xx answer from a reachable indexer.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("indexer http status %d: %s", e.code, e.body)
}

// Config for an indexer query client.
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	FailureThreshold int
	OpenTimeout      time.Duration
	// MaxResponseBytes caps one response body. Default 8 MiB.
	MaxResponseBytes int64
}

// Client talks to the query API behind a circuit breaker.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxBytes   int64
	breaker    *circuitbreaker.Breaker
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = defaultMaxResponseBytes
	}
	logger = logger.With("component", "indexer_client")
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxBytes:   cfg.MaxResponseBytes,
		breaker: circuitbreaker.New(circuitbreaker.Config{
			Name:             "indexer_client",
			FailureThreshold: cfg.FailureThreshold,
			OpenTimeout:      cfg.OpenTimeout,
			OnStateChange: func(from, to circuitbreaker.State) {
				logger.Warn("indexer client breaker state change", "from", from.String(), "to", to.String())
			},
		}),
		logger: logger,
	}
}

// BreakerState exposes the breaker for health reporting.
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}

type snapshotList struct {
	Snapshots []model.Snapshot `json:"snapshots"`
}

// GetSnapshot fetches one snapshot by its "<txHash>-<logIndex>" id.
func (c *Client) GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error) {
	var snap model.Snapshot
	if err := c.get(ctx, "/v1/snapshots/"+url.PathEscape(id), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// FindByTxHash returns the snapshots emitted by one transaction.
func (c *Client) FindByTxHash(ctx context.Context, hash common.Hash) ([]model.Snapshot, error) {
	var list snapshotList
	if err := c.get(ctx, "/v1/snapshots?transactionHash="+hash.Hex(), &list); err != nil {
		return nil, err
	}
	return list.Snapshots, nil
}

// ListByProduct returns a product's history in (block, log index) order.
func (c *Client) ListByProduct(ctx context.Context, id model.ProductID) ([]model.Snapshot, error) {
	var list snapshotList
	if err := c.get(ctx, "/v1/products/"+id.Hex()+"/snapshots", &list); err != nil {
		return nil, err
	}
	return list.Snapshots, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	var body []byte
	err := c.breaker.Execute(func() error {
		var err error
		body, err = c.do(ctx, path)
		return err
	}, countable)
	if err == nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode indexer response: %w", err)
		}
		return nil
	}

	var se *statusError
	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	case errors.As(err, &se) && se.code == http.StatusNotFound:
		return ErrNotFound
	case errors.As(err, &se) && se.code < 500:
		return err
	case errors.Is(err, context.Canceled):
		return err
	default:
		c.logger.Debug("indexer query failed", "path", path, "error", err)
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
}

func (c *Client) do(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if len(body) > maxErrorBodyBytes {
			body = body[:maxErrorBodyBytes]
		}
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}
	if int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("%w: over %d bytes", ErrResponseTooLarge, c.maxBytes)
	}
	return body, nil
}

// countable keeps client mistakes and caller cancellation from tripping the
// breaker. 5xx and transport errors count.
func countable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500
	}
	return true
}
