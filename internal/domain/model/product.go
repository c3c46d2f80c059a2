package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ProductID is the opaque 32-byte identifier the ledger assigns at creation.
type ProductID [32]byte

var ErrInvalidProductID = errors.New("invalid product id")

// ParseProductID parses a 0x-prefixed (or bare) 64-character hex string.
func ParseProductID(s string) (ProductID, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	raw, err := hexutil.Decode(s)
	if err != nil {
		return ProductID{}, fmt.Errorf("%w: %v", ErrInvalidProductID, err)
	}
	if len(raw) != 32 {
		return ProductID{}, fmt.Errorf("%w: want 32 bytes, got %d", ErrInvalidProductID, len(raw))
	}
	var id ProductID
	copy(id[:], raw)
	return id, nil
}

func (id ProductID) Hex() string {
	return hexutil.Encode(id[:])
}

func (id ProductID) String() string {
	return id.Hex()
}

func (id ProductID) IsZero() bool {
	return id == ProductID{}
}

func (id ProductID) Hash() common.Hash {
	return common.Hash(id)
}

func (id ProductID) MarshalText() ([]byte, error) {
	return []byte(id.Hex()), nil
}

func (id *ProductID) UnmarshalText(text []byte) error {
	parsed, err := ParseProductID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ProductState is the lifecycle stage derived from a product's path and
// delivery flag.
type ProductState string

const (
	StateManufactured ProductState = "MANUFACTURED"
	StateInTransit    ProductState = "IN_TRANSIT"
	StateDelivered    ProductState = "DELIVERED"
)

// Product is the ledger's canonical record of one product instance.
type Product struct {
	ID               ProductID      `json:"id"`
	ManufacturerName string         `json:"manufacturer_name"`
	ProductName      string         `json:"product_name"`
	CreationTime     time.Time      `json:"creation_time"`
	Creator          common.Address `json:"creator"`
	CurrentHolder    common.Address `json:"current_holder"`
	IsDelivered      bool           `json:"is_delivered"`
	Path             []PathEntry    `json:"path"`
}

func (p *Product) State() ProductState {
	switch {
	case p.IsDelivered:
		return StateDelivered
	case len(p.Path) > 0:
		return StateInTransit
	default:
		return StateManufactured
	}
}

// ExpectedHolder is the holder implied by the custody path: the recipient of
// the last entry, or the creator when nothing was transferred yet.
func (p *Product) ExpectedHolder() common.Address {
	if len(p.Path) == 0 {
		return p.Creator
	}
	return p.Path[len(p.Path)-1].To
}

// Clone returns a deep copy so callers cannot mutate ledger-owned slices.
// The copy's Path is never nil.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Path = append(make([]PathEntry, 0, len(p.Path)), p.Path...)
	return &cp
}

// PathStrings renders the path in its on-ledger string form.
func (p *Product) PathStrings() []string {
	out := make([]string, len(p.Path))
	for i, e := range p.Path {
		out[i] = e.String()
	}
	return out
}
