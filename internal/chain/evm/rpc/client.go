// Package rpc is a minimal JSON-RPC 2.0 client for the handful of eth_*
// methods the ledger backend needs.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/emperorhan/oilube/internal/chain/ratelimit"
)

// maxResponseBytes caps a single node reply; eth_getLogs over a wide block
// range is the largest thing we ask for.
const maxResponseBytes = 32 << 20

type Client struct {
	endpoint string
	network  string
	http     *http.Client
	limiter  *ratelimit.Limiter
	logger   *slog.Logger
	ids      atomic.Int64
}

func NewClient(endpoint, network string, logger *slog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		network:  network,
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   logger.With("component", "rpc", "network", network),
	}
}

// SetRateLimiter throttles every outgoing HTTP request, batches included.
func (c *Client) SetRateLimiter(l *ratelimit.Limiter) {
	c.limiter = l
}

func (c *Client) request(method string, params ...any) Request {
	if params == nil {
		params = []any{}
	}
	return Request{JSONRPC: "2.0", ID: int(c.ids.Add(1)), Method: method, Params: params}
}

// invoke runs one method and decodes its result into T.
func invoke[T any](ctx context.Context, c *Client, method string, params ...any) (T, error) {
	var out T
	raw, err := c.call(ctx, method, params...)
	if err != nil {
		return out, fmt.Errorf("%s: %w", method, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode %s result: %w", method, err)
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	body, err := json.Marshal(c.request(method, params...))
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	reply, err := c.send(ctx, method, body)
	if err != nil {
		return nil, err
	}
	var resp Response
	if err := json.Unmarshal(reply, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}

// batch sends reqs in one HTTP round trip and returns the responses in
// request order. Per-entry errors are left in Response.Error.
func (c *Client) batch(ctx context.Context, reqs []Request) ([]Response, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(reqs)
	if err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}
	reply, err := c.send(ctx, "batch:"+reqs[0].Method, body)
	if err != nil {
		return nil, err
	}
	var resps []Response
	if err := json.Unmarshal(reply, &resps); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}

	byID := make(map[int]Response, len(resps))
	for _, r := range resps {
		byID[r.ID] = r
	}
	out := make([]Response, len(reqs))
	for i, req := range reqs {
		r, ok := byID[req.ID]
		if !ok {
			return nil, fmt.Errorf("missing batch response for id %d (%s)", req.ID, req.Method)
		}
		out[i] = r
	}
	return out, nil
}

// send posts body after waiting on the limiter and records the outcome under
// label.
func (c *Client) send(ctx context.Context, label string, body []byte) (reply []byte, err error) {
	defer func() { ratelimit.RecordRPCCall(c.network, label, err) }()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	reply, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("node rejected request", "label", label, "status", resp.StatusCode)
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, bytes.TrimSpace(reply))
	}
	return reply, nil
}
