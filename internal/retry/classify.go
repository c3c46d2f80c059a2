// Package retry decides whether a failed ledger, store or indexer call is
// worth repeating.
package retry

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/lib/pq"

	"github.com/emperorhan/oilube/internal/chain"
	"github.com/emperorhan/oilube/internal/chain/evm/rpc"
	"github.com/emperorhan/oilube/internal/circuitbreaker"
)

type Class string

const (
	ClassTerminal  Class = "terminal"
	ClassTransient Class = "transient"
)

// Decision is the outcome of Classify. Reason is a short stable label for
// logs and metrics.
type Decision struct {
	Class  Class
	Reason string
}

func (d Decision) IsTransient() bool { return d.Class == ClassTransient }

func transient(reason string) Decision { return Decision{Class: ClassTransient, Reason: reason} }
func terminal(reason string) Decision  { return Decision{Class: ClassTerminal, Reason: reason} }

type markedError struct {
	error
	decision Decision
}

func (e *markedError) Unwrap() error { return e.error }

// Transient forces err to be retried regardless of its contents.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &markedError{error: err, decision: transient("explicit_transient")}
}

// Terminal forces err to fail immediately.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &markedError{error: err, decision: terminal("explicit_terminal")}
}

// rule inspects err and reports a decision when it recognises it.
type rule func(err error) (Decision, bool)

// rules run in order; the first match wins.
var rules = []rule{
	func(err error) (Decision, bool) {
		var m *markedError
		if errors.As(err, &m) {
			return m.decision, true
		}
		return Decision{}, false
	},
	sentinel(context.Canceled, terminal("context_canceled")),
	sentinel(context.DeadlineExceeded, transient("context_deadline_exceeded")),
	func(err error) (Decision, bool) {
		// A revert is the contract's answer, never a transport hiccup.
		return terminal("ledger_revert"), chain.IsRevert(err)
	},
	sentinel(circuitbreaker.ErrCircuitOpen, transient("circuit_open")),
	sentinel(driver.ErrBadConn, transient("db_bad_conn")),
	func(err error) (Decision, bool) {
		var pqErr *pq.Error
		if !errors.As(err, &pqErr) {
			return Decision{}, false
		}
		return classifyPostgres(pqErr), true
	},
	func(err error) (Decision, bool) {
		var netErr net.Error
		return transient("net_timeout"), errors.As(err, &netErr) && netErr.Timeout()
	},
	func(err error) (Decision, bool) {
		var rpcErr *rpc.RPCError
		if !errors.As(err, &rpcErr) {
			return Decision{}, false
		}
		return classifyJSONRPC(rpcErr.Code), true
	},
	func(err error) (Decision, bool) {
		msg := strings.ToLower(err.Error())
		if containsAny(msg, terminalMessageTokens) {
			return terminal("message_terminal"), true
		}
		if containsAny(msg, transientMessageTokens) {
			return transient("message_transient"), true
		}
		return Decision{}, false
	},
}

func sentinel(target error, d Decision) rule {
	return func(err error) (Decision, bool) {
		return d, errors.Is(err, target)
	}
}

// Classify decides whether err is worth another attempt. Unrecognised errors
// are terminal.
func Classify(err error) Decision {
	if err == nil {
		return terminal("nil_error")
	}
	for _, r := range rules {
		if d, ok := r(err); ok {
			return d
		}
	}
	return terminal("unknown_terminal_default")
}

// classifyPostgres keys off the SQLSTATE class. Connection loss, lock
// contention and resource exhaustion clear up on their own; constraint and
// syntax failures do not.
func classifyPostgres(err *pq.Error) Decision {
	switch err.Code.Class() {
	case "08":
		return transient("pg_connection")
	case "40":
		return transient("pg_serialization")
	case "53":
		return transient("pg_insufficient_resources")
	case "57":
		if err.Code == "57014" {
			return transient("pg_query_canceled")
		}
		return transient("pg_operator_intervention")
	case "55":
		if err.Code == "55P03" {
			return transient("pg_lock_not_available")
		}
	}
	return terminal("pg_" + string(err.Code.Class()))
}

func classifyJSONRPC(code int) Decision {
	switch {
	case code == -32603 || code == -32005:
		return transient("jsonrpc_server_transient")
	case code <= -32000 && code >= -32099:
		return transient("jsonrpc_server_range")
	default:
		return terminal("jsonrpc_terminal")
	}
}

func containsAny(msg string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(msg, t) {
			return true
		}
	}
	return false
}

var transientMessageTokens = []string{
	"timeout",
	"timed out",
	"temporar",
	"unavailable",
	"connection reset",
	"connection refused",
	"broken pipe",
	"too many requests",
	"rate limit",
	"http status 429",
	"http status 502",
	"http status 503",
	"http status 504",
}

var terminalMessageTokens = []string{
	"invalid argument",
	"invalid params",
	"method not found",
	"execution reverted",
	"insufficient funds",
}
