package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/emperorhan/oilube/internal/domain/model"
)

type CursorRepo struct {
	db *DB
}

func NewCursorRepo(db *DB) *CursorRepo {
	return &CursorRepo{db: db}
}

func (r *CursorRepo) Get(ctx context.Context, network model.Network) (*model.IndexerCursor, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var c model.IndexerCursor
	err := r.db.QueryRowContext(ctx, `
		SELECT network, block_number, events_indexed, updated_at
		FROM indexer_cursors
		WHERE network = $1
	`, network).Scan(&c.Network, &c.BlockNumber, &c.EventsIndexed, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cursor: %w", err)
	}
	return &c, nil
}

// UpsertTx moves the cursor forward only; a lower block number leaves it
// unchanged but still accumulates the event count.
func (r *CursorRepo) UpsertTx(ctx context.Context, tx *sql.Tx, network model.Network, blockNumber, eventsIndexed int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO indexer_cursors (network, block_number, events_indexed, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (network) DO UPDATE SET
			block_number = GREATEST(indexer_cursors.block_number, EXCLUDED.block_number),
			events_indexed = indexer_cursors.events_indexed + EXCLUDED.events_indexed,
			updated_at = now()
	`, network, blockNumber, eventsIndexed)
	if err != nil {
		return fmt.Errorf("upsert cursor: %w", err)
	}
	return nil
}
