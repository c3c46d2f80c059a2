package model

import "time"

// IndexerCursor is the indexer's progress through the ledger's event log.
// BlockNumber is the last block whose events are fully stored.
type IndexerCursor struct {
	Network       Network   `json:"network" db:"network"`
	BlockNumber   int64     `json:"block_number" db:"block_number"`
	EventsIndexed int64     `json:"events_indexed" db:"events_indexed"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
