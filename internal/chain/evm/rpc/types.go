package rpc

import (
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// RevertData returns the ABI-encoded revert payload nodes attach to
// "execution reverted" errors, if any.
func (e *RPCError) RevertData() ([]byte, bool) {
	if len(e.Data) == 0 {
		return nil, false
	}
	var s string
	if err := json.Unmarshal(e.Data, &s); err != nil || !strings.HasPrefix(s, "0x") {
		return nil, false
	}
	data, err := hexutil.Decode(s)
	if err != nil {
		return nil, false
	}
	return data, true
}

// IsRevert reports whether the node rejected the call during execution.
func (e *RPCError) IsRevert() bool {
	return e.Code == 3 || strings.Contains(strings.ToLower(e.Message), "execution reverted")
}

type Block struct {
	Number    string `json:"number"`
	Hash      string `json:"hash"`
	Timestamp string `json:"timestamp"`
}

type TransactionReceipt struct {
	TransactionHash string `json:"transactionHash"`
	BlockNumber     string `json:"blockNumber"`
	Status          string `json:"status"`
	From            string `json:"from"`
	To              string `json:"to"`
	GasUsed         string `json:"gasUsed"`
	Logs            []*Log `json:"logs"`
}

type Log struct {
	Address         string   `json:"address"`
	Topics          []string `json:"topics"`
	Data            string   `json:"data"`
	BlockNumber     string   `json:"blockNumber"`
	TransactionHash string   `json:"transactionHash"`
	LogIndex        string   `json:"logIndex"`
	Removed         bool     `json:"removed"`
}

// LogFilter is the eth_getLogs filter object.
type LogFilter struct {
	FromBlock string     `json:"fromBlock"`
	ToBlock   string     `json:"toBlock"`
	Address   string     `json:"address"`
	Topics    [][]string `json:"topics,omitempty"`
}

// CallMsg is the eth_call / eth_estimateGas transaction object.
type CallMsg struct {
	From  string `json:"from,omitempty"`
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value,omitempty"`
	Gas   string `json:"gas,omitempty"`
}
