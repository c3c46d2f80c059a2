package simulated

import (
	"context"
	"encoding/binary"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/emperorhan/oilube/internal/chain"
	"github.com/emperorhan/oilube/internal/domain/event"
	"github.com/emperorhan/oilube/internal/domain/model"
	"github.com/emperorhan/oilube/internal/ledger"
	"github.com/emperorhan/oilube/internal/wallet"
)

var _ chain.Ledger = (*Backend)(nil)

// Backend serves the ledger boundary from an in-process contract. Every
// submitted transaction is included immediately in its own block.
type Backend struct {
	contract *ledger.Contract
	logger   *slog.Logger

	// submit serializes apply+receipt so the receipt reflects exactly the
	// block the call produced.
	submit sync.Mutex
	txSeq  uint64
}

func New(contract *ledger.Contract, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		contract: contract,
		logger:   logger.With("component", "simulated_ledger"),
	}
}

// Contract exposes the underlying contract, e.g. for owner-only operations.
func (b *Backend) Contract() *ledger.Contract {
	return b.contract
}

func (b *Backend) Network() model.Network {
	return model.NetworkSimulated
}

func (b *Backend) CheckRole(ctx context.Context, addr common.Address) (model.Role, error) {
	if err := ctx.Err(); err != nil {
		return model.RoleNone, err
	}
	return b.contract.CheckRole(addr), nil
}

func (b *Backend) CheckID(ctx context.Context, caller common.Address) (model.ProductID, error) {
	if err := ctx.Err(); err != nil {
		return model.ProductID{}, err
	}
	id, err := b.contract.CheckID(caller)
	if err != nil {
		return model.ProductID{}, chain.NewRevertError("CheckID", err)
	}
	return id, nil
}

func (b *Backend) CheckPath(ctx context.Context, caller common.Address, id model.ProductID) ([]model.PathEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := b.contract.CheckPath(caller, id)
	if err != nil {
		return nil, chain.NewRevertError("CheckPath", err)
	}
	return path, nil
}

func (b *Backend) CheckProduct(ctx context.Context, caller common.Address, id model.ProductID) (*model.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := b.contract.CheckProduct(caller, id)
	if err != nil {
		return nil, chain.NewRevertError("CheckProduct", err)
	}
	return p, nil
}

func (b *Backend) Fee(ctx context.Context) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.contract.Fee(), nil
}

func (b *Backend) HeadBlock(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	head, _ := b.contract.Head()
	return head, nil
}

func (b *Backend) ProductDetailEvents(ctx context.Context, fromBlock, toBlock int64) ([]event.ProductDetail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.contract.Events(fromBlock, toBlock), nil
}

func (b *Backend) Register(ctx context.Context, s wallet.Session, addr common.Address, role model.Role, name, location string) (chain.PendingTx, error) {
	return b.apply(ctx, "Register", s, nil, func(msg ledger.Msg) error {
		_, err := b.contract.Register(msg, addr, role, name, location)
		return err
	})
}

func (b *Backend) NewInstance(ctx context.Context, s wallet.Session, manufacturer common.Address, productName string) (chain.PendingTx, error) {
	return b.apply(ctx, "NewInstance", s, nil, func(msg ledger.Msg) error {
		_, err := b.contract.NewInstance(msg, manufacturer, productName)
		return err
	})
}

func (b *Backend) Transfer(ctx context.Context, s wallet.Session, newHolder common.Address, id model.ProductID) (chain.PendingTx, error) {
	return b.apply(ctx, "Transfer", s, nil, func(msg ledger.Msg) error {
		_, err := b.contract.Transfer(msg, newHolder, id)
		return err
	})
}

func (b *Backend) Purchase(ctx context.Context, s wallet.Session, buyer common.Address, id model.ProductID, location string) (chain.PendingTx, error) {
	return b.apply(ctx, "Purchase", s, nil, func(msg ledger.Msg) error {
		_, err := b.contract.Purchase(msg, buyer, id, location)
		return err
	})
}

func (b *Backend) PayToView(ctx context.Context, s wallet.Session, id model.ProductID, value *big.Int) (chain.PendingTx, error) {
	return b.apply(ctx, "PayToView", s, value, func(msg ledger.Msg) error {
		return b.contract.PayToView(msg, id)
	})
}

func (b *Backend) Withdraw(ctx context.Context, s wallet.Session) (chain.PendingTx, error) {
	return b.apply(ctx, "Withdraw", s, nil, func(msg ledger.Msg) error {
		_, err := b.contract.Withdraw(msg)
		return err
	})
}

func (b *Backend) apply(ctx context.Context, method string, s wallet.Session, value *big.Int, call func(ledger.Msg) error) (chain.PendingTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.submit.Lock()
	defer b.submit.Unlock()

	b.txSeq++
	msg := ledger.Msg{
		From:   s.Address(),
		Value:  value,
		TxHash: txHash(s.Address(), b.txSeq),
	}
	if err := call(msg); err != nil {
		b.logger.Debug("call reverted", "method", method, "from", msg.From, "error", err)
		return nil, chain.NewRevertError(method, err)
	}

	head, _ := b.contract.Head()
	receipt := &chain.Receipt{
		TxHash:      msg.TxHash,
		Status:      model.TxStatusSuccess,
		BlockNumber: head,
		Events:      b.contract.EventsByTx(msg.TxHash),
	}
	b.logger.Debug("transaction included", "method", method, "tx_hash", msg.TxHash, "block", head, "events", len(receipt.Events))
	return &pendingTx{receipt: receipt}, nil
}

func txHash(from common.Address, seq uint64) common.Hash {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], seq)
	return crypto.Keccak256Hash(from.Bytes(), n[:])
}

type pendingTx struct {
	receipt *chain.Receipt
}

func (p *pendingTx) Hash() common.Hash {
	return p.receipt.TxHash
}

func (p *pendingTx) Wait(ctx context.Context) (*chain.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.receipt, nil
}
