package store

import (
	"context"
	"database/sql"

	"github.com/ethereum/go-ethereum/common"

	"github.com/emperorhan/oilube/internal/domain/model"
)

// TxBeginner abstracts the ability to begin a database transaction.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// SnapshotReader serves indexer queries. Lookups that match nothing return
// nil (or an empty slice) and no error.
type SnapshotReader interface {
	GetByID(ctx context.Context, id string) (*model.Snapshot, error)
	FindByTxHash(ctx context.Context, txHash common.Hash) ([]model.Snapshot, error)
	// ListByProduct returns a product's snapshots ordered by
	// (BlockNumber, LogIndex).
	ListByProduct(ctx context.Context, id model.ProductID) ([]model.Snapshot, error)
}

// SnapshotRepository is the append-only snapshot log. Insert never updates an
// existing entity; a duplicate id reports inserted=false.
type SnapshotRepository interface {
	SnapshotReader
	Insert(ctx context.Context, s *model.Snapshot) (inserted bool, err error)
}

// CursorRepository tracks indexer progress per network.
type CursorRepository interface {
	// Get returns nil, nil before the first commit.
	Get(ctx context.Context, network model.Network) (*model.IndexerCursor, error)
}

// BatchCommitter stores one batch of snapshots and advances the cursor to
// lastBlock atomically, so a crash never skips or half-applies a block range.
type BatchCommitter interface {
	CommitBatch(ctx context.Context, network model.Network, snapshots []model.Snapshot, lastBlock int64) (inserted int, err error)
}

// RecordStore keeps off-ledger shadow copies of identities and product writes.
// Entries are advisory: callers must prefer a successful ledger read and
// surface each record's ConfirmationStatus.
type RecordStore interface {
	PutIdentity(ctx context.Context, rec model.LocalIdentity) error
	// GetIdentity returns nil, nil when no record exists.
	GetIdentity(ctx context.Context, addr common.Address) (*model.LocalIdentity, error)
	AppendProduct(ctx context.Context, rec model.LocalProduct) error
	// ListProducts returns an owner's records in insertion order.
	ListProducts(ctx context.Context, owner common.Address) ([]model.LocalProduct, error)
	PutMapping(ctx context.Context, localCode string, id model.ProductID) error
	ResolveMapping(ctx context.Context, localCode string) (model.ProductID, bool, error)
}
