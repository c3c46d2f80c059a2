package postgres

import (
	"context"
	"fmt"

	"github.com/emperorhan/oilube/internal/domain/model"
	"github.com/emperorhan/oilube/internal/store"
)

var (
	_ store.SnapshotRepository = (*SnapshotRepo)(nil)
	_ store.CursorRepository   = (*CursorRepo)(nil)
	_ store.BatchCommitter     = (*BatchWriter)(nil)
)

// BatchWriter commits snapshots and the cursor in one transaction.
type BatchWriter struct {
	db        store.TxBeginner
	snapshots *SnapshotRepo
	cursors   *CursorRepo
}

func NewBatchWriter(db store.TxBeginner, snapshots *SnapshotRepo, cursors *CursorRepo) *BatchWriter {
	return &BatchWriter{db: db, snapshots: snapshots, cursors: cursors}
}

func (w *BatchWriter) CommitBatch(ctx context.Context, network model.Network, snapshots []model.Snapshot, lastBlock int64) (int, error) {
	ctx, cancel := withTimeout(ctx, BatchCommitTimeout)
	defer cancel()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for i := range snapshots {
		ok, err := w.snapshots.InsertTx(ctx, tx, &snapshots[i])
		if err != nil {
			return 0, err
		}
		if ok {
			inserted++
		}
	}
	if err := w.cursors.UpsertTx(ctx, tx, network, lastBlock, int64(inserted)); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}
	return inserted, nil
}
