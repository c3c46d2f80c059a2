package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lib/pq"

	"github.com/emperorhan/oilube/internal/domain/model"
)

const snapshotColumns = `id, product_id, manufacturer_name, product_name, creation_time,
	current_holder, is_delivered, path, block_number, block_timestamp, transaction_hash, log_index`

type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *SnapshotRepo) Insert(ctx context.Context, s *model.Snapshot) (bool, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()
	return insertSnapshot(ctx, r.db, s)
}

// InsertTx inserts within an existing transaction.
func (r *SnapshotRepo) InsertTx(ctx context.Context, tx *sql.Tx, s *model.Snapshot) (bool, error) {
	return insertSnapshot(ctx, tx, s)
}

func insertSnapshot(ctx context.Context, ex execer, s *model.Snapshot) (bool, error) {
	path := s.Path
	if path == nil {
		path = []string{}
	}
	res, err := ex.ExecContext(ctx, `
		INSERT INTO product_snapshots (`+snapshotColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`,
		s.ID, s.ProductID.Hex(), s.ManufacturerName, s.ProductName, s.CreationTime.UTC(),
		strings.ToLower(s.CurrentHolder.Hex()), s.IsDelivered, pq.Array(path),
		s.BlockNumber, s.BlockTimestamp.UTC(), s.TransactionHash.Hex(), s.LogIndex,
	)
	if err != nil {
		return false, fmt.Errorf("insert snapshot %s: %w", s.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert snapshot %s rows affected: %w", s.ID, err)
	}
	return n > 0, nil
}

func (r *SnapshotRepo) GetByID(ctx context.Context, id string) (*model.Snapshot, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM product_snapshots WHERE id = $1`, id)
	s, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", id, err)
	}
	return s, nil
}

func (r *SnapshotRepo) FindByTxHash(ctx context.Context, txHash common.Hash) ([]model.Snapshot, error) {
	return r.list(ctx, `
		SELECT `+snapshotColumns+` FROM product_snapshots
		WHERE transaction_hash = $1
		ORDER BY log_index
	`, txHash.Hex())
}

func (r *SnapshotRepo) ListByProduct(ctx context.Context, id model.ProductID) ([]model.Snapshot, error) {
	return r.list(ctx, `
		SELECT `+snapshotColumns+` FROM product_snapshots
		WHERE product_id = $1
		ORDER BY block_number, log_index
	`, id.Hex())
}

func (r *SnapshotRepo) list(ctx context.Context, query string, arg any) ([]model.Snapshot, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []model.Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*model.Snapshot, error) {
	var (
		s                         model.Snapshot
		productID, holder, txHash string
		path                      []string
	)
	if err := row.Scan(
		&s.ID, &productID, &s.ManufacturerName, &s.ProductName, &s.CreationTime,
		&holder, &s.IsDelivered, pq.Array(&path),
		&s.BlockNumber, &s.BlockTimestamp, &txHash, &s.LogIndex,
	); err != nil {
		return nil, err
	}
	id, err := model.ParseProductID(productID)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", s.ID, err)
	}
	s.ProductID = id
	s.CurrentHolder = common.HexToAddress(holder)
	s.TransactionHash = common.HexToHash(txHash)
	s.Path = path
	if s.Path == nil {
		s.Path = []string{}
	}
	s.CreationTime = s.CreationTime.UTC()
	s.BlockTimestamp = s.BlockTimestamp.UTC()
	return &s, nil
}
