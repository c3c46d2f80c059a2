package event

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/emperorhan/oilube/internal/domain/model"
)

// ProductDetail is the event the ledger emits on every state-relevant write.
// ProductID is carried explicitly so consumers can correlate events of the
// same product without inspecting path contents.
type ProductDetail struct {
	ProductID        model.ProductID
	ManufacturerName string
	ProductName      string
	CreationTime     time.Time
	CurrentHolder    common.Address
	IsDelivered      bool
	Path             []string

	BlockNumber     int64
	BlockTimestamp  time.Time
	TransactionHash common.Hash
	LogIndex        int64
}

// Key returns the position of the event in the ledger's log.
func (e ProductDetail) Key() Position {
	return Position{BlockNumber: e.BlockNumber, LogIndex: e.LogIndex}
}

// Position orders events in the ledger's log.
type Position struct {
	BlockNumber int64
	LogIndex    int64
}

func (p Position) Less(other Position) bool {
	if p.BlockNumber != other.BlockNumber {
		return p.BlockNumber < other.BlockNumber
	}
	return p.LogIndex < other.LogIndex
}
