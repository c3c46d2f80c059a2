package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrReadOnly is returned when a session without a key is asked to sign.
var ErrReadOnly = errors.New("wallet session cannot sign")

// Session is the signer capability threaded through writes: the current
// signer address plus the ability to sign transactions for it.
type Session interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// KeySession signs with an in-memory private key.
type KeySession struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

// NewKeySession parses a hex private key, with or without 0x prefix.
func NewKeySession(hexKey string) (*KeySession, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return FromKey(key), nil
}

func FromKey(key *ecdsa.PrivateKey) *KeySession {
	return &KeySession{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}
}

func (s *KeySession) Address() common.Address {
	return s.addr
}

func (s *KeySession) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}

// AddressSession identifies a caller without any signing capability. The
// simulated ledger trusts the address as msg.sender.
type AddressSession common.Address

func (s AddressSession) Address() common.Address {
	return common.Address(s)
}

func (s AddressSession) SignTx(*types.Transaction, *big.Int) (*types.Transaction, error) {
	return nil, ErrReadOnly
}
