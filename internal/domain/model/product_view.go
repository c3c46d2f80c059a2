package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PlaceholderText stands in for descriptive fields the indexer could not supply.
const PlaceholderText = "unavailable"

// ViewSource records which backends contributed to a ProductView.
type ViewSource string

const (
	SourceLedgerAndIndexer ViewSource = "ledger+indexer"
	SourceLedgerOnly       ViewSource = "ledger-only"
)

// ProductView is the merged product record returned to callers. Path, holder
// and delivery state always come from the ledger.
type ProductView struct {
	ID               ProductID      `json:"id"`
	ManufacturerName string         `json:"manufacturer_name"`
	ProductName      string         `json:"product_name"`
	Description      string         `json:"description"`
	CurrentHolder    common.Address `json:"current_holder"`
	IsDelivered      bool           `json:"is_delivered"`
	State            ProductState   `json:"state"`
	Path             []PathEntry    `json:"path"`
	History          []Snapshot     `json:"history,omitempty"`
	Source           ViewSource     `json:"source"`
	PaidFee          *big.Int       `json:"paid_fee,omitempty"`
	PaymentTx        *common.Hash   `json:"payment_tx,omitempty"`
}
