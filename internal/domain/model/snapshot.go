package model

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Snapshot is the indexer's immutable copy of one ProductDetail event.
// A product's history is the set of snapshots sharing its ProductID, read in
// (BlockNumber, LogIndex) order.
type Snapshot struct {
	ID               string         `json:"id" db:"id"`
	ProductID        ProductID      `json:"product_id" db:"product_id"`
	ManufacturerName string         `json:"manufacturer_name" db:"manufacturer_name"`
	ProductName      string         `json:"product_name" db:"product_name"`
	CreationTime     time.Time      `json:"creation_time" db:"creation_time"`
	CurrentHolder    common.Address `json:"current_holder" db:"current_holder"`
	IsDelivered      bool           `json:"is_delivered" db:"is_delivered"`
	Path             []string       `json:"path" db:"path"`
	BlockNumber      int64          `json:"block_number" db:"block_number"`
	BlockTimestamp   time.Time      `json:"block_timestamp" db:"block_timestamp"`
	TransactionHash  common.Hash    `json:"transaction_hash" db:"transaction_hash"`
	LogIndex         int64          `json:"log_index" db:"log_index"`
}

// SnapshotID builds the entity id "<txHash>-<logIndex>".
func SnapshotID(txHash common.Hash, logIndex int64) string {
	return fmt.Sprintf("%s-%d", txHash.Hex(), logIndex)
}

// Before orders snapshots by block number, then log index.
func (s *Snapshot) Before(other *Snapshot) bool {
	if s.BlockNumber != other.BlockNumber {
		return s.BlockNumber < other.BlockNumber
	}
	return s.LogIndex < other.LogIndex
}
