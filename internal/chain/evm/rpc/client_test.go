package rpc

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(handler func(*http.Request) (*http.Response, error)) *Client {
	client := NewClient("http://rpc.local", "test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	client.http = &http.Client{Transport: roundTripFunc(handler)}
	return client
}

func jsonHTTPResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

// resultServer answers every single request with the result returned by fn.
func resultServer(t *testing.T, fn func(req Request) (any, *RPCError)) *Client {
	return newTestClient(func(r *http.Request) (*http.Response, error) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		result, rpcErr := fn(req)
		resp := Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
		if rpcErr == nil {
			raw, err := json.Marshal(result)
			require.NoError(t, err)
			resp.Result = raw
		}
		raw, err := json.Marshal(resp)
		require.NoError(t, err)
		return jsonHTTPResponse(http.StatusOK, string(raw)), nil
	})
}

func TestCall_Success(t *testing.T) {
	client := resultServer(t, func(req Request) (any, *RPCError) {
		assert.Equal(t, "2.0", req.JSONRPC)
		assert.Equal(t, "eth_testMethod", req.Method)
		return "0x2a", nil
	})

	result, err := client.call(context.Background(), "eth_testMethod", "p1")
	require.NoError(t, err)

	var value string
	require.NoError(t, json.Unmarshal(result, &value))
	assert.Equal(t, "0x2a", value)
}

func TestCall_RPCError(t *testing.T) {
	client := resultServer(t, func(Request) (any, *RPCError) {
		return nil, &RPCError{Code: -32000, Message: "upstream unavailable"}
	})

	_, err := client.call(context.Background(), "eth_testMethod")
	require.Error(t, err)

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32000, rpcErr.Code)
}

func TestCall_HTTPStatusError(t *testing.T) {
	client := newTestClient(func(*http.Request) (*http.Response, error) {
		return jsonHTTPResponse(http.StatusServiceUnavailable, "down"), nil
	})

	_, err := client.call(context.Background(), "eth_blockNumber")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http status 503")
}

func TestCallBatch_OrdersByID(t *testing.T) {
	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		var reqs []Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqs))
		require.Len(t, reqs, 2)
		// reply in reverse order
		body := `[{"jsonrpc":"2.0","id":` + itoa(reqs[1].ID) + `,"result":"0x2"},{"jsonrpc":"2.0","id":` + itoa(reqs[0].ID) + `,"result":"0x1"}]`
		return jsonHTTPResponse(http.StatusOK, body), nil
	})

	requests := []Request{client.request("m1"), client.request("m2")}
	results, err := client.batch(context.Background(), requests)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.JSONEq(t, `"0x1"`, string(results[0].Result))
	assert.JSONEq(t, `"0x2"`, string(results[1].Result))
}

func TestCallBatch_MissingResponse(t *testing.T) {
	client := newTestClient(func(*http.Request) (*http.Response, error) {
		return jsonHTTPResponse(http.StatusOK, `[]`), nil
	})

	_, err := client.batch(context.Background(), []Request{client.request("m1")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing batch response")
}

func TestGetBlocksByNumber_NullEntries(t *testing.T) {
	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		var reqs []Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqs))
		require.Len(t, reqs, 2)
		assert.Equal(t, []any{"0x10", false}, reqs[0].Params)
		body := `[{"jsonrpc":"2.0","id":` + itoa(reqs[0].ID) + `,"result":{"number":"0x10","hash":"0xab","timestamp":"0x5f5e100"}},` +
			`{"jsonrpc":"2.0","id":` + itoa(reqs[1].ID) + `,"result":null}]`
		return jsonHTTPResponse(http.StatusOK, body), nil
	})

	blocks, err := client.GetBlocksByNumber(context.Background(), []int64{16, 17})
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	require.NotNil(t, blocks[0])
	assert.Equal(t, "0x5f5e100", blocks[0].Timestamp)
	assert.Nil(t, blocks[1])
}

func TestMethods_HexResults(t *testing.T) {
	client := resultServer(t, func(req Request) (any, *RPCError) {
		switch req.Method {
		case "eth_blockNumber":
			return "0x10", nil
		case "eth_chainId":
			return "0xaa36a7", nil
		case "eth_gasPrice":
			return "0x3b9aca00", nil
		case "eth_getTransactionCount":
			assert.Equal(t, "pending", req.Params[1])
			return "0x5", nil
		case "eth_estimateGas":
			return "0x5208", nil
		}
		return nil, &RPCError{Code: -32601, Message: "method not found"}
	})
	ctx := context.Background()

	head, err := client.GetBlockNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(16), head)

	chainID, err := client.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(11155111), chainID)

	price, err := client.GasPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_000_000_000), price)

	nonce, err := client.GetTransactionCount(ctx, "0x01")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), nonce)

	gas, err := client.EstimateGas(ctx, CallMsg{To: "0x02"})
	require.NoError(t, err)
	assert.Equal(t, uint64(21000), gas)
}

func TestGetTransactionReceipt_Pending(t *testing.T) {
	client := resultServer(t, func(Request) (any, *RPCError) { return nil, nil })

	receipt, err := client.GetTransactionReceipt(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Nil(t, receipt)
}

func TestCall_DecodesOutput(t *testing.T) {
	client := resultServer(t, func(req Request) (any, *RPCError) {
		assert.Equal(t, "latest", req.Params[1])
		return "0x0102", nil
	})

	out, err := client.Call(context.Background(), CallMsg{To: "0x02", Data: "0x"})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, out)
}

func TestRPCError_RevertData(t *testing.T) {
	e := &RPCError{Code: 3, Message: "execution reverted: Unauthorized", Data: json.RawMessage(`"0x08c379a0"`)}
	assert.True(t, e.IsRevert())
	data, ok := e.RevertData()
	require.True(t, ok)
	assert.Equal(t, []byte{0x08, 0xc3, 0x79, 0xa0}, data)

	plain := &RPCError{Code: -32000, Message: "nonce too low"}
	assert.False(t, plain.IsRevert())
	_, ok = plain.RevertData()
	assert.False(t, ok)
}

func TestParseHexInt64(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"0x0", 0, false},
		{"0x1a", 26, false},
		{"0X", 0, false},
		{"", 0, true},
		{"0xzz", 0, true},
	}
	for _, tc := range tests {
		got, err := ParseHexInt64(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
	assert.Equal(t, "0xff", FormatHexInt64(255))
	assert.Equal(t, "0x0", FormatHexInt64(0))
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}
