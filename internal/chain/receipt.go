package chain

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/emperorhan/oilube/internal/domain/event"
	"github.com/emperorhan/oilube/internal/domain/model"
)

// Receipt is the inclusion record of a transaction.
type Receipt struct {
	TxHash      common.Hash
	Status      model.TxStatus
	BlockNumber int64
	Events      []event.ProductDetail
}

func (r *Receipt) Succeeded() bool {
	return r != nil && r.Status == model.TxStatusSuccess
}

// ProductIDFromReceipt returns the product touched by the first
// ProductDetail event of the receipt.
func ProductIDFromReceipt(r *Receipt) (model.ProductID, bool) {
	if !r.Succeeded() || len(r.Events) == 0 {
		return model.ProductID{}, false
	}
	return r.Events[0].ProductID, true
}

// Applied reports whether a successful transaction changed product id.
// Soft failures are included but emit no event for the product.
func Applied(r *Receipt, id model.ProductID) bool {
	if !r.Succeeded() {
		return false
	}
	for _, ev := range r.Events {
		if ev.ProductID == id {
			return true
		}
	}
	return false
}
