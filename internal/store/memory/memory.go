// Package memory is an in-process snapshot store for the simulated ledger and
// tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/emperorhan/oilube/internal/domain/model"
	"github.com/emperorhan/oilube/internal/store"
)

var (
	_ store.SnapshotRepository = (*Store)(nil)
	_ store.CursorRepository   = (*Store)(nil)
	_ store.BatchCommitter     = (*Store)(nil)
)

type Store struct {
	mu        sync.RWMutex
	snapshots map[string]model.Snapshot
	byProduct map[model.ProductID][]string
	byTx      map[common.Hash][]string
	cursors   map[model.Network]model.IndexerCursor
	now       func() time.Time
}

func New() *Store {
	return &Store{
		snapshots: make(map[string]model.Snapshot),
		byProduct: make(map[model.ProductID][]string),
		byTx:      make(map[common.Hash][]string),
		cursors:   make(map[model.Network]model.IndexerCursor),
		now:       time.Now,
	}
}

func (s *Store) Insert(ctx context.Context, snap *model.Snapshot) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(snap), nil
}

func (s *Store) insertLocked(snap *model.Snapshot) bool {
	if _, ok := s.snapshots[snap.ID]; ok {
		return false
	}
	cp := *snap
	cp.Path = append([]string{}, snap.Path...)
	s.snapshots[cp.ID] = cp
	s.byProduct[cp.ProductID] = append(s.byProduct[cp.ProductID], cp.ID)
	s.byTx[cp.TransactionHash] = append(s.byTx[cp.TransactionHash], cp.ID)
	return true
}

func (s *Store) GetByID(ctx context.Context, id string) (*model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[id]
	if !ok {
		return nil, nil
	}
	cp := clone(snap)
	return &cp, nil
}

func (s *Store) FindByTxHash(ctx context.Context, txHash common.Hash) ([]model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byTx[txHash]), nil
}

func (s *Store) ListByProduct(ctx context.Context, id model.ProductID) ([]model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byProduct[id]), nil
}

func (s *Store) collect(ids []string) []model.Snapshot {
	out := make([]model.Snapshot, 0, len(ids))
	for _, id := range ids {
		out = append(out, clone(s.snapshots[id]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(&out[j]) })
	return out
}

func (s *Store) Get(ctx context.Context, network model.Network) (*model.IndexerCursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cursors[network]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *Store) CommitBatch(ctx context.Context, network model.Network, snapshots []model.Snapshot, lastBlock int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for i := range snapshots {
		if s.insertLocked(&snapshots[i]) {
			inserted++
		}
	}
	c := s.cursors[network]
	c.Network = network
	if lastBlock > c.BlockNumber {
		c.BlockNumber = lastBlock
	}
	c.EventsIndexed += int64(inserted)
	c.UpdatedAt = s.now()
	s.cursors[network] = c
	return inserted, nil
}

func clone(s model.Snapshot) model.Snapshot {
	s.Path = append([]string{}, s.Path...)
	return s
}
