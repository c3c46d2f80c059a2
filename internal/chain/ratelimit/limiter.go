// Package ratelimit throttles calls to the ledger node and labels their
// outcomes for metrics.
package ratelimit

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/emperorhan/oilube/internal/metrics"
)

// Limiter is a token bucket shared by every RPC a backend issues.
type Limiter struct {
	bucket  *rate.Limiter
	network string
}

// NewLimiter allows rps calls per second with the given burst. rps <= 0
// means unlimited.
func NewLimiter(rps float64, burst int, network string) *Limiter {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Limiter{bucket: rate.NewLimiter(limit, max(burst, 1)), network: network}
}

// Wait takes exactly one token, blocking until it is available or ctx ends.
// A cancelled wait returns its token.
func (l *Limiter) Wait(ctx context.Context) error {
	res := l.bucket.Reserve()
	delay := res.Delay()
	if delay == 0 {
		return nil
	}
	metrics.RPCRateLimitWaits.WithLabelValues(l.network).Inc()

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		res.Cancel()
		return ctx.Err()
	}
}

// RecordRPCCall counts one node call under its outcome label.
func RecordRPCCall(network, method string, err error) {
	metrics.RPCCallsTotal.WithLabelValues(network, method, ClassifyRPCError(err)).Inc()
}

var outcomeTokens = []struct {
	label  string
	tokens []string
}{
	{"reverted", []string{"execution reverted"}},
	{"timeout", []string{"timeout", "deadline exceeded"}},
	{"rate_limited", []string{"rate limit", "429", "too many requests"}},
	{"server_error", []string{"500", "502", "503", "internal server error"}},
	{"network_error", []string{"connection refused", "connection reset", "network is unreachable", "no such host", "broken pipe", "eof"}},
}

// ClassifyRPCError maps err to a low-cardinality outcome label.
func ClassifyRPCError(err error) string {
	if err == nil {
		return "ok"
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return "timeout"
	}
	msg := strings.ToLower(err.Error())
	for _, o := range outcomeTokens {
		for _, tok := range o.tokens {
			if strings.Contains(msg, tok) {
				return o.label
			}
		}
	}
	return "client_error"
}
