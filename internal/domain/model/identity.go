package model

import "github.com/ethereum/go-ethereum/common"

// Identity is the ledger's registration record for one address.
type Identity struct {
	Address     common.Address `json:"address"`
	Role        Role           `json:"role"`
	DisplayName string         `json:"display_name"`
	Location    string         `json:"location"`
}
