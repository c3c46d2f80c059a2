package retry

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/emperorhan/oilube/internal/chain"
	"github.com/emperorhan/oilube/internal/chain/evm/rpc"
	"github.com/emperorhan/oilube/internal/circuitbreaker"
	"github.com/emperorhan/oilube/internal/ledger"
)

func TestClassify_Markers(t *testing.T) {
	// the marker wins over what the message says
	d := Classify(Transient(errors.New("invalid params")))
	assert.Equal(t, transient("explicit_transient"), d)

	d = Classify(fmt.Errorf("commit: %w", Terminal(errors.New("rpc timed out"))))
	assert.Equal(t, terminal("explicit_terminal"), d)

	assert.Nil(t, Transient(nil))
	assert.Nil(t, Terminal(nil))
	assert.Equal(t, terminal("nil_error"), Classify(nil))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		class  Class
		reason string
	}{
		{"deadline", context.DeadlineExceeded, ClassTransient, "context_deadline_exceeded"},
		{"canceled", fmt.Errorf("head block: %w", context.Canceled), ClassTerminal, "context_canceled"},
		{"revert", chain.NewRevertError("Transfer", ledger.ErrUnauthorized), ClassTerminal, "ledger_revert"},
		{"breaker open", fmt.Errorf("indexer: %w", circuitbreaker.ErrCircuitOpen), ClassTransient, "circuit_open"},
		{"bad conn", fmt.Errorf("commit batch: %w", driver.ErrBadConn), ClassTransient, "db_bad_conn"},
		{"pg connection", &pq.Error{Code: "08006"}, ClassTransient, "pg_connection"},
		{"pg serialization", fmt.Errorf("upsert: %w", &pq.Error{Code: "40001"}), ClassTransient, "pg_serialization"},
		{"pg statement timeout", &pq.Error{Code: "57014"}, ClassTransient, "pg_query_canceled"},
		{"pg lock", &pq.Error{Code: "55P03"}, ClassTransient, "pg_lock_not_available"},
		{"pg unique", &pq.Error{Code: "23505"}, ClassTerminal, "pg_23"},
		{"pg other 55", &pq.Error{Code: "55000"}, ClassTerminal, "pg_55"},
		{"jsonrpc limit", &rpc.RPCError{Code: -32005, Message: "limit exceeded"}, ClassTransient, "jsonrpc_server_transient"},
		{"jsonrpc server range", &rpc.RPCError{Code: -32010, Message: "busy"}, ClassTransient, "jsonrpc_server_range"},
		{"jsonrpc invalid params", &rpc.RPCError{Code: -32602, Message: "invalid params"}, ClassTerminal, "jsonrpc_terminal"},
		{"http 503", errors.New("http status 503: upstream down"), ClassTransient, "message_transient"},
		{"refused", errors.New("dial tcp 127.0.0.1:8545: connection refused"), ClassTransient, "message_transient"},
		{"reverted text", errors.New("execution reverted"), ClassTerminal, "message_terminal"},
		{"unknown", errors.New("unexpected failure"), ClassTerminal, "unknown_terminal_default"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Classify(tc.err)
			assert.Equal(t, tc.class, d.Class)
			assert.Equal(t, tc.reason, d.Reason)
			assert.Equal(t, tc.class == ClassTransient, d.IsTransient())
		})
	}
}

func TestBackoff(t *testing.T) {
	initial, max := 100*time.Millisecond, time.Second

	assert.Equal(t, 100*time.Millisecond, Backoff(1, initial, max))
	assert.Equal(t, 200*time.Millisecond, Backoff(2, initial, max))
	assert.Equal(t, 800*time.Millisecond, Backoff(4, initial, max))
	assert.Equal(t, max, Backoff(5, initial, max))
	assert.Equal(t, max, Backoff(60, initial, max))
	assert.Equal(t, 200*time.Millisecond, Backoff(3, 0, 0))
}

func TestSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, Sleep(ctx, 0), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}
