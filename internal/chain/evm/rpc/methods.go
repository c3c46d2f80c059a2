package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

func (c *Client) GetBlockNumber(ctx context.Context) (int64, error) {
	n, err := invoke[hexutil.Uint64](ctx, c, "eth_blockNumber")
	return int64(n), err
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	n, err := invoke[*hexutil.Big](ctx, c, "eth_chainId")
	return n.ToInt(), err
}

func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	n, err := invoke[*hexutil.Big](ctx, c, "eth_gasPrice")
	return n.ToInt(), err
}

// GetTransactionCount returns the pending nonce for address.
func (c *Client) GetTransactionCount(ctx context.Context, address string) (uint64, error) {
	n, err := invoke[hexutil.Uint64](ctx, c, "eth_getTransactionCount", address, "pending")
	return uint64(n), err
}

func (c *Client) EstimateGas(ctx context.Context, msg CallMsg) (uint64, error) {
	n, err := invoke[hexutil.Uint64](ctx, c, "eth_estimateGas", msg)
	return uint64(n), err
}

// Call executes msg against the latest block and returns the raw output.
func (c *Client) Call(ctx context.Context, msg CallMsg) ([]byte, error) {
	out, err := invoke[hexutil.Bytes](ctx, c, "eth_call", msg, "latest")
	return out, err
}

func (c *Client) SendRawTransaction(ctx context.Context, raw []byte) (string, error) {
	return invoke[string](ctx, c, "eth_sendRawTransaction", hexutil.Encode(raw))
}

// GetTransactionReceipt returns nil, nil while the transaction is pending.
func (c *Client) GetTransactionReceipt(ctx context.Context, hash string) (*TransactionReceipt, error) {
	r, err := invoke[*TransactionReceipt](ctx, c, "eth_getTransactionReceipt", hash)
	if err != nil {
		return nil, fmt.Errorf("receipt %s: %w", hash, err)
	}
	return r, nil
}

func (c *Client) GetLogs(ctx context.Context, filter LogFilter) ([]*Log, error) {
	return invoke[[]*Log](ctx, c, "eth_getLogs", filter)
}

// GetBlocksByNumber fetches headers in one batch, in input order. Unknown
// blocks come back as nil entries.
func (c *Client) GetBlocksByNumber(ctx context.Context, numbers []int64) ([]*Block, error) {
	if len(numbers) == 0 {
		return []*Block{}, nil
	}
	reqs := make([]Request, len(numbers))
	for i, n := range numbers {
		reqs[i] = c.request("eth_getBlockByNumber", FormatHexInt64(n), false)
	}
	resps, err := c.batch(ctx, reqs)
	if err != nil {
		return nil, fmt.Errorf("eth_getBlockByNumber batch: %w", err)
	}

	blocks := make([]*Block, len(numbers))
	for i, r := range resps {
		if r.Error != nil {
			return nil, fmt.Errorf("eth_getBlockByNumber(%d): %w", numbers[i], r.Error)
		}
		if err := json.Unmarshal(r.Result, &blocks[i]); err != nil {
			return nil, fmt.Errorf("decode block %d: %w", numbers[i], err)
		}
	}
	return blocks, nil
}

// ParseHexInt64 parses a quantity such as a log's blockNumber. "0x" alone
// reads as zero.
func ParseHexInt64(value string) (int64, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return 0, fmt.Errorf("empty hex value")
	}
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse hex %q: %w", value, err)
	}
	return n, nil
}

func FormatHexInt64(value int64) string {
	return "0x" + strconv.FormatInt(value, 16)
}
