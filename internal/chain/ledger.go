package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/emperorhan/oilube/internal/domain/event"
	"github.com/emperorhan/oilube/internal/domain/model"
	"github.com/emperorhan/oilube/internal/wallet"
)

// LedgerReader is the read-only side of the ledger RPC boundary. Gated reads
// are evaluated as if sent by caller.
type LedgerReader interface {
	Network() model.Network
	CheckRole(ctx context.Context, addr common.Address) (model.Role, error)
	CheckID(ctx context.Context, caller common.Address) (model.ProductID, error)
	CheckPath(ctx context.Context, caller common.Address, id model.ProductID) ([]model.PathEntry, error)
	CheckProduct(ctx context.Context, caller common.Address, id model.ProductID) (*model.Product, error)
	Fee(ctx context.Context) (*big.Int, error)
}

// EventSource is the event stream boundary consumed by the indexer.
type EventSource interface {
	Network() model.Network
	HeadBlock(ctx context.Context) (int64, error)
	// ProductDetailEvents returns events with fromBlock <= block <= toBlock,
	// ordered by (block, log index).
	ProductDetailEvents(ctx context.Context, fromBlock, toBlock int64) ([]event.ProductDetail, error)
}

// LedgerWriter submits signed transactions. A call that the ledger would
// revert fails at submission with a *RevertError; otherwise the returned
// handle resolves once the transaction is included.
type LedgerWriter interface {
	Register(ctx context.Context, s wallet.Session, addr common.Address, role model.Role, name, location string) (PendingTx, error)
	NewInstance(ctx context.Context, s wallet.Session, manufacturer common.Address, productName string) (PendingTx, error)
	Transfer(ctx context.Context, s wallet.Session, newHolder common.Address, id model.ProductID) (PendingTx, error)
	Purchase(ctx context.Context, s wallet.Session, buyer common.Address, id model.ProductID, location string) (PendingTx, error)
	PayToView(ctx context.Context, s wallet.Session, id model.ProductID, value *big.Int) (PendingTx, error)
	Withdraw(ctx context.Context, s wallet.Session) (PendingTx, error)
}

// Ledger is the full ledger RPC boundary.
type Ledger interface {
	LedgerReader
	LedgerWriter
	EventSource
}

// PendingTx is a submitted transaction. Submission is irreversible; Wait only
// observes inclusion.
type PendingTx interface {
	Hash() common.Hash
	Wait(ctx context.Context) (*Receipt, error)
}
