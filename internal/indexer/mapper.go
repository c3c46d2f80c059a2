// Package indexer mirrors the ledger's ProductDetail events into the
// append-only snapshot log.
package indexer

import (
	"github.com/emperorhan/oilube/internal/domain/event"
	"github.com/emperorhan/oilube/internal/domain/model"
)

// Mapper turns ledger events into snapshot entities.
type Mapper struct{}

// Map copies every event field plus block metadata. The entity id is
// "<txHash>-<logIndex>", so a replayed event maps to the same id.
func (Mapper) Map(e event.ProductDetail) model.Snapshot {
	path := make([]string, len(e.Path))
	copy(path, e.Path)
	return model.Snapshot{
		ID:               model.SnapshotID(e.TransactionHash, e.LogIndex),
		ProductID:        e.ProductID,
		ManufacturerName: e.ManufacturerName,
		ProductName:      e.ProductName,
		CreationTime:     e.CreationTime.UTC(),
		CurrentHolder:    e.CurrentHolder,
		IsDelivered:      e.IsDelivered,
		Path:             path,
		BlockNumber:      e.BlockNumber,
		BlockTimestamp:   e.BlockTimestamp.UTC(),
		TransactionHash:  e.TransactionHash,
		LogIndex:         e.LogIndex,
	}
}

func (m Mapper) MapAll(events []event.ProductDetail) []model.Snapshot {
	out := make([]model.Snapshot, len(events))
	for i, e := range events {
		out[i] = m.Map(e)
	}
	return out
}
