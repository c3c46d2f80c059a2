package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// LocalIdentity is the shadow copy of a registration kept off-ledger.
type LocalIdentity struct {
	Identity
	Status    ConfirmationStatus `json:"status"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// LocalProductKind distinguishes the write a shadow product record mirrors.
type LocalProductKind string

const (
	LocalKindCreated     LocalProductKind = "created"
	LocalKindTransferred LocalProductKind = "transferred"
	LocalKindPurchased   LocalProductKind = "purchased"
)

// LocalProduct is a per-address shadow record of a product write.
type LocalProduct struct {
	RecordID    uuid.UUID          `json:"record_id"`
	LocalCode   string             `json:"local_code"`
	ProductID   *ProductID         `json:"product_id,omitempty"`
	ProductName string             `json:"product_name"`
	Description string             `json:"description,omitempty"`
	Kind        LocalProductKind   `json:"kind"`
	Owner       common.Address     `json:"owner"`
	Location    string             `json:"location,omitempty"`
	TxHash      *common.Hash       `json:"tx_hash,omitempty"`
	Status      ConfirmationStatus `json:"status"`
	RecordedAt  time.Time          `json:"recorded_at"`
}

// Confirmed reports whether the ledger accepted the mirrored write.
func (p *LocalProduct) Confirmed() bool {
	return p.Status == ConfirmedOnLedger
}
