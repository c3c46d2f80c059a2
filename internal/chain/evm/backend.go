package evm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/emperorhan/oilube/internal/chain"
	"github.com/emperorhan/oilube/internal/chain/evm/rpc"
	"github.com/emperorhan/oilube/internal/chain/ratelimit"
	"github.com/emperorhan/oilube/internal/domain/event"
	"github.com/emperorhan/oilube/internal/domain/model"
	"github.com/emperorhan/oilube/internal/wallet"
)

const (
	defaultPollInterval = 2 * time.Second
	gasHeadroomPercent  = 20
)

var _ chain.Ledger = (*Backend)(nil)

// rpcClient is the subset of the JSON-RPC client the backend needs.
type rpcClient interface {
	GetBlockNumber(ctx context.Context) (int64, error)
	ChainID(ctx context.Context) (*big.Int, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	GetTransactionCount(ctx context.Context, address string) (uint64, error)
	EstimateGas(ctx context.Context, msg rpc.CallMsg) (uint64, error)
	Call(ctx context.Context, msg rpc.CallMsg) ([]byte, error)
	SendRawTransaction(ctx context.Context, raw []byte) (string, error)
	GetTransactionReceipt(ctx context.Context, hash string) (*rpc.TransactionReceipt, error)
	GetLogs(ctx context.Context, filter rpc.LogFilter) ([]*rpc.Log, error)
	GetBlocksByNumber(ctx context.Context, blockNumbers []int64) ([]*rpc.Block, error)
}

type Config struct {
	RPCURL          string
	ContractAddress common.Address
	Network         model.Network
	// ChainID is queried from the node when nil.
	ChainID        *big.Int
	RateLimitRPS   float64
	RateLimitBurst int
	// GasLimit fixes the gas of every transaction. Zero means estimate.
	GasLimit     uint64
	PollInterval time.Duration
}

// Backend serves the ledger boundary from a deployed contract over JSON-RPC.
type Backend struct {
	client       rpcClient
	abi          abi.ABI
	contract     common.Address
	network      model.Network
	chainID      *big.Int
	gasLimit     uint64
	pollInterval time.Duration
	logger       *slog.Logger
}

// Dial connects to the node at cfg.RPCURL.
func Dial(ctx context.Context, cfg Config, logger *slog.Logger) (*Backend, error) {
	if cfg.RPCURL == "" {
		return nil, errors.New("evm: rpc url is required")
	}
	client := rpc.NewClient(cfg.RPCURL, cfg.Network.String(), logger)
	if cfg.RateLimitRPS > 0 {
		client.SetRateLimiter(ratelimit.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.Network.String()))
	}
	if cfg.ChainID == nil {
		id, err := client.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("evm: query chain id: %w", err)
		}
		cfg.ChainID = id
	}
	return newBackend(cfg, client, logger)
}

func newBackend(cfg Config, client rpcClient, logger *slog.Logger) (*Backend, error) {
	parsed, err := parseContractABI()
	if err != nil {
		return nil, fmt.Errorf("evm: parse abi: %w", err)
	}
	if cfg.ContractAddress == (common.Address{}) {
		return nil, errors.New("evm: contract address is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		client:       client,
		abi:          parsed,
		contract:     cfg.ContractAddress,
		network:      cfg.Network,
		chainID:      cfg.ChainID,
		gasLimit:     cfg.GasLimit,
		pollInterval: cfg.PollInterval,
		logger:       logger.With("component", "evm_ledger", "network", cfg.Network),
	}, nil
}

func (b *Backend) Network() model.Network {
	return b.network
}

// --- reads ---

func (b *Backend) CheckRole(ctx context.Context, addr common.Address) (model.Role, error) {
	out, err := b.read(ctx, common.Address{}, "CheckRole", addr)
	if err != nil {
		return model.RoleNone, err
	}
	raw, ok := out[0].(string)
	if !ok {
		return model.RoleNone, fmt.Errorf("CheckRole: unexpected output %T", out[0])
	}
	return model.ParseRole(raw), nil
}

func (b *Backend) CheckID(ctx context.Context, caller common.Address) (model.ProductID, error) {
	out, err := b.read(ctx, caller, "CheckID")
	if err != nil {
		return model.ProductID{}, err
	}
	raw, ok := out[0].([32]byte)
	if !ok {
		return model.ProductID{}, fmt.Errorf("CheckID: unexpected output %T", out[0])
	}
	return model.ProductID(raw), nil
}

func (b *Backend) CheckPath(ctx context.Context, caller common.Address, id model.ProductID) ([]model.PathEntry, error) {
	out, err := b.read(ctx, caller, "CheckPath", [32]byte(id))
	if err != nil {
		return nil, err
	}
	raw, ok := out[0].([]string)
	if !ok {
		return nil, fmt.Errorf("CheckPath: unexpected output %T", out[0])
	}
	return model.ParsePath(raw)
}

func (b *Backend) CheckProduct(ctx context.Context, caller common.Address, id model.ProductID) (*model.Product, error) {
	out, err := b.read(ctx, caller, "CheckProduct", [32]byte(id))
	if err != nil {
		return nil, err
	}
	var res struct {
		ManufacturerName string
		ProductName      string
		CreationTime     *big.Int
		Creator          common.Address
		CurrentHolder    common.Address
		IsDelivered      bool
		Path             []string
	}
	if err := b.abi.Methods["CheckProduct"].Outputs.Copy(&res, out); err != nil {
		return nil, fmt.Errorf("CheckProduct: decode output: %w", err)
	}
	path, err := model.ParsePath(res.Path)
	if err != nil {
		return nil, fmt.Errorf("CheckProduct: %w", err)
	}
	return &model.Product{
		ID:               id,
		ManufacturerName: res.ManufacturerName,
		ProductName:      res.ProductName,
		CreationTime:     unixTime(res.CreationTime),
		Creator:          res.Creator,
		CurrentHolder:    res.CurrentHolder,
		IsDelivered:      res.IsDelivered,
		Path:             path,
	}, nil
}

func (b *Backend) Fee(ctx context.Context) (*big.Int, error) {
	out, err := b.read(ctx, common.Address{}, "fee")
	if err != nil {
		return nil, err
	}
	fee, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("fee: unexpected output %T", out[0])
	}
	return fee, nil
}

func (b *Backend) HeadBlock(ctx context.Context) (int64, error) {
	return b.client.GetBlockNumber(ctx)
}

func (b *Backend) ProductDetailEvents(ctx context.Context, fromBlock, toBlock int64) ([]event.ProductDetail, error) {
	filter := rpc.LogFilter{
		FromBlock: rpc.FormatHexInt64(fromBlock),
		ToBlock:   rpc.FormatHexInt64(toBlock),
		Address:   b.contract.Hex(),
		Topics:    [][]string{{b.abi.Events[productDetailEvent].ID.Hex()}},
	}
	logs, err := b.client.GetLogs(ctx, filter)
	if err != nil {
		return nil, err
	}
	return b.decodeLogs(ctx, logs)
}

func (b *Backend) read(ctx context.Context, from common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: pack: %w", method, err)
	}
	msg := rpc.CallMsg{To: b.contract.Hex(), Data: hexutil.Encode(data)}
	if from != (common.Address{}) {
		msg.From = from.Hex()
	}
	out, err := b.client.Call(ctx, msg)
	if err != nil {
		return nil, revertOrErr(method, err)
	}
	values, err := b.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("%s: unpack: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: empty output", method)
	}
	return values, nil
}

// --- writes ---

func (b *Backend) Register(ctx context.Context, s wallet.Session, addr common.Address, role model.Role, name, location string) (chain.PendingTx, error) {
	return b.transact(ctx, s, "Register", nil, addr, role.LedgerName(), name, location)
}

func (b *Backend) NewInstance(ctx context.Context, s wallet.Session, manufacturer common.Address, productName string) (chain.PendingTx, error) {
	return b.transact(ctx, s, "NewInstance", nil, manufacturer, productName)
}

func (b *Backend) Transfer(ctx context.Context, s wallet.Session, newHolder common.Address, id model.ProductID) (chain.PendingTx, error) {
	return b.transact(ctx, s, "Transfer", nil, newHolder, [32]byte(id))
}

func (b *Backend) Purchase(ctx context.Context, s wallet.Session, buyer common.Address, id model.ProductID, location string) (chain.PendingTx, error) {
	return b.transact(ctx, s, "Purchase", nil, buyer, [32]byte(id), location)
}

func (b *Backend) PayToView(ctx context.Context, s wallet.Session, id model.ProductID, value *big.Int) (chain.PendingTx, error) {
	return b.transact(ctx, s, "PayToView", value, [32]byte(id))
}

func (b *Backend) Withdraw(ctx context.Context, s wallet.Session) (chain.PendingTx, error) {
	return b.transact(ctx, s, "Withdraw", nil)
}

// transact simulates the call first so reverts surface before anything is
// signed, then signs and broadcasts a legacy transaction.
func (b *Backend) transact(ctx context.Context, s wallet.Session, method string, value *big.Int, args ...interface{}) (chain.PendingTx, error) {
	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: pack: %w", method, err)
	}
	if value == nil {
		value = new(big.Int)
	}
	from := s.Address()
	msg := rpc.CallMsg{
		From:  from.Hex(),
		To:    b.contract.Hex(),
		Data:  hexutil.Encode(data),
		Value: hexutil.EncodeBig(value),
	}

	if _, err := b.client.Call(ctx, msg); err != nil {
		return nil, revertOrErr(method, err)
	}

	gas := b.gasLimit
	if gas == 0 {
		estimated, err := b.client.EstimateGas(ctx, msg)
		if err != nil {
			return nil, revertOrErr(method, err)
		}
		gas = estimated + estimated*gasHeadroomPercent/100
	}
	nonce, err := b.client.GetTransactionCount(ctx, from.Hex())
	if err != nil {
		return nil, fmt.Errorf("%s: nonce: %w", method, err)
	}
	gasPrice, err := b.client.GasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: gas price: %w", method, err)
	}

	to := b.contract
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := s.SignTx(tx, b.chainID)
	if err != nil {
		return nil, fmt.Errorf("%s: sign: %w", method, err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%s: encode tx: %w", method, err)
	}
	if _, err := b.client.SendRawTransaction(ctx, raw); err != nil {
		return nil, revertOrErr(method, err)
	}

	b.logger.Info("transaction submitted", "method", method, "tx_hash", signed.Hash(), "from", from, "nonce", nonce)
	return &pendingTx{backend: b, method: method, hash: signed.Hash()}, nil
}

type pendingTx struct {
	backend *Backend
	method  string
	hash    common.Hash
}

func (p *pendingTx) Hash() common.Hash {
	return p.hash
}

// Wait polls for the receipt. A mined but reverted transaction returns the
// receipt together with a *chain.RevertError.
func (p *pendingTx) Wait(ctx context.Context) (*chain.Receipt, error) {
	ticker := time.NewTicker(p.backend.pollInterval)
	defer ticker.Stop()

	for {
		raw, err := p.backend.client.GetTransactionReceipt(ctx, p.hash.Hex())
		if err != nil {
			return nil, err
		}
		if raw != nil {
			return p.backend.convertReceipt(ctx, p.method, raw)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (b *Backend) convertReceipt(ctx context.Context, method string, raw *rpc.TransactionReceipt) (*chain.Receipt, error) {
	blockNumber, err := rpc.ParseHexInt64(raw.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("receipt block number: %w", err)
	}
	receipt := &chain.Receipt{
		TxHash:      common.HexToHash(raw.TransactionHash),
		BlockNumber: blockNumber,
		Status:      model.TxStatusSuccess,
	}
	if raw.Status != "0x1" {
		receipt.Status = model.TxStatusReverted
		return receipt, chain.RevertFromReason(method, "")
	}

	topic := b.abi.Events[productDetailEvent].ID.Hex()
	var ours []*rpc.Log
	for _, l := range raw.Logs {
		if common.HexToAddress(l.Address) == b.contract && len(l.Topics) > 0 && strings.EqualFold(l.Topics[0], topic) {
			if l.BlockNumber == "" {
				l.BlockNumber = raw.BlockNumber
			}
			if l.TransactionHash == "" {
				l.TransactionHash = raw.TransactionHash
			}
			ours = append(ours, l)
		}
	}
	events, err := b.decodeLogs(ctx, ours)
	if err != nil {
		return nil, err
	}
	receipt.Events = events
	return receipt, nil
}

// decodeLogs turns ProductDetail logs into events, attaching block
// timestamps fetched in one batch.
func (b *Backend) decodeLogs(ctx context.Context, logs []*rpc.Log) ([]event.ProductDetail, error) {
	events := make([]event.ProductDetail, 0, len(logs))
	blockSet := make(map[int64]struct{})
	for _, l := range logs {
		if l.Removed {
			continue
		}
		ev, err := b.decodeLog(l)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
		blockSet[ev.BlockNumber] = struct{}{}
	}
	if len(events) == 0 {
		return events, nil
	}

	blockNumbers := make([]int64, 0, len(blockSet))
	for n := range blockSet {
		blockNumbers = append(blockNumbers, n)
	}
	sort.Slice(blockNumbers, func(i, j int) bool { return blockNumbers[i] < blockNumbers[j] })
	blocks, err := b.client.GetBlocksByNumber(ctx, blockNumbers)
	if err != nil {
		return nil, err
	}
	timestamps := make(map[int64]time.Time, len(blocks))
	for i, blk := range blocks {
		if blk == nil {
			return nil, fmt.Errorf("block %d not found", blockNumbers[i])
		}
		ts, err := rpc.ParseHexInt64(blk.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("block %d timestamp: %w", blockNumbers[i], err)
		}
		timestamps[blockNumbers[i]] = time.Unix(ts, 0).UTC()
	}
	for i := range events {
		events[i].BlockTimestamp = timestamps[events[i].BlockNumber]
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Key().Less(events[j].Key()) })
	return events, nil
}

func (b *Backend) decodeLog(l *rpc.Log) (event.ProductDetail, error) {
	if len(l.Topics) < 2 {
		return event.ProductDetail{}, fmt.Errorf("ProductDetail log %s: missing productId topic", l.TransactionHash)
	}
	data, err := hexutil.Decode(l.Data)
	if err != nil {
		return event.ProductDetail{}, fmt.Errorf("ProductDetail log %s: decode data: %w", l.TransactionHash, err)
	}
	var payload struct {
		ManufacturerName string
		ProductName      string
		CreationTime     *big.Int
		CurrentHolder    common.Address
		IsDelivered      bool
		Path             []string
	}
	if err := b.abi.UnpackIntoInterface(&payload, productDetailEvent, data); err != nil {
		return event.ProductDetail{}, fmt.Errorf("ProductDetail log %s: unpack: %w", l.TransactionHash, err)
	}
	blockNumber, err := rpc.ParseHexInt64(l.BlockNumber)
	if err != nil {
		return event.ProductDetail{}, fmt.Errorf("ProductDetail log %s: block number: %w", l.TransactionHash, err)
	}
	logIndex, err := rpc.ParseHexInt64(l.LogIndex)
	if err != nil {
		return event.ProductDetail{}, fmt.Errorf("ProductDetail log %s: log index: %w", l.TransactionHash, err)
	}
	return event.ProductDetail{
		ProductID:        model.ProductID(common.HexToHash(l.Topics[1])),
		ManufacturerName: payload.ManufacturerName,
		ProductName:      payload.ProductName,
		CreationTime:     unixTime(payload.CreationTime),
		CurrentHolder:    payload.CurrentHolder,
		IsDelivered:      payload.IsDelivered,
		Path:             payload.Path,
		BlockNumber:      blockNumber,
		TransactionHash:  common.HexToHash(l.TransactionHash),
		LogIndex:         logIndex,
	}, nil
}

// revertOrErr converts node-reported reverts into *chain.RevertError and
// passes every other error through.
func revertOrErr(method string, err error) error {
	var rpcErr *rpc.RPCError
	if !errors.As(err, &rpcErr) || !rpcErr.IsRevert() {
		return fmt.Errorf("%s: %w", method, err)
	}
	return chain.RevertFromReason(method, revertReason(rpcErr))
}

func revertReason(e *rpc.RPCError) string {
	if data, ok := e.RevertData(); ok {
		if reason, err := abi.UnpackRevert(data); err == nil {
			return reason
		}
	}
	_, reason, found := strings.Cut(e.Message, "execution reverted:")
	if !found {
		return ""
	}
	return strings.TrimSpace(reason)
}

func unixTime(v *big.Int) time.Time {
	if v == nil || !v.IsInt64() {
		return time.Time{}
	}
	return time.Unix(v.Int64(), 0).UTC()
}
