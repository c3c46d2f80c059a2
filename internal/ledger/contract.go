package ledger

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/emperorhan/oilube/internal/domain/event"
	"github.com/emperorhan/oilube/internal/domain/model"
)

// Msg carries the transaction context of a call: the sender, the attached
// value and the hash the transaction was submitted under.
type Msg struct {
	From   common.Address
	Value  *big.Int
	TxHash common.Hash
}

// Config configures a Contract.
type Config struct {
	Owner common.Address
	Fee   *big.Int
	// Now supplies block timestamps. Defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

type grantKey struct {
	viewer common.Address
	id     model.ProductID
}

// Contract is the authoritative product and role state machine. Every
// mutating call that does not revert is included in its own block; calls are
// serialized, so at most one state transition applies per transaction.
type Contract struct {
	mu sync.RWMutex

	owner   common.Address
	fee     *big.Int
	balance *big.Int
	nowFn   func() time.Time
	logger  *slog.Logger

	nonce     uint64
	head      int64
	headTime  time.Time
	logIndex  int64
	curTxHash common.Hash

	identities map[common.Address]model.Identity
	products   map[model.ProductID]*model.Product
	lastID     map[common.Address]model.ProductID
	grants     map[grantKey]struct{}
	events     []event.ProductDetail
}

// NewContract deploys a fresh contract owned by cfg.Owner.
func NewContract(cfg Config) *Contract {
	fee := new(big.Int)
	if cfg.Fee != nil {
		fee.Set(cfg.Fee)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Contract{
		owner:      cfg.Owner,
		fee:        fee,
		balance:    new(big.Int),
		nowFn:      cfg.Now,
		logger:     cfg.Logger.With("component", "ledger"),
		headTime:   cfg.Now().UTC(),
		identities: make(map[common.Address]model.Identity),
		products:   make(map[model.ProductID]*model.Product),
		lastID:     make(map[common.Address]model.ProductID),
		grants:     make(map[grantKey]struct{}),
	}
}

// Owner returns the contract owner.
func (c *Contract) Owner() common.Address {
	return c.owner
}

// Head returns the latest block number and its timestamp.
func (c *Contract) Head() (int64, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.head, c.headTime
}

// Register upserts the identity record of addr. Addresses may register
// themselves; the owner may register anyone.
func (c *Contract) Register(msg Msg, addr common.Address, role model.Role, name, location string) (bool, error) {
	if addr == (common.Address{}) {
		return false, ErrInvalidAddress
	}
	if !role.IsParticipant() {
		return false, fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}
	if strings.TrimSpace(name) == "" {
		return false, ErrEmptyName
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if msg.From != addr && msg.From != c.owner {
		return false, ErrUnauthorized
	}

	c.beginBlock(msg)
	c.identities[addr] = model.Identity{
		Address:     addr,
		Role:        role,
		DisplayName: strings.TrimSpace(name),
		Location:    strings.TrimSpace(location),
	}
	c.logger.Debug("identity registered", "address", addr, "role", role, "block", c.head)
	return true, nil
}

// NewInstance creates a product held by manufacturer. The caller must be a
// registered manufacturer.
func (c *Contract) NewInstance(msg Msg, manufacturer common.Address, productName string) (model.ProductID, error) {
	if manufacturer == (common.Address{}) {
		return model.ProductID{}, ErrInvalidAddress
	}
	if strings.TrimSpace(productName) == "" {
		return model.ProductID{}, ErrEmptyName
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	caller, ok := c.identities[msg.From]
	if !ok || caller.Role != model.RoleManufacturer {
		return model.ProductID{}, fmt.Errorf("%w: NewInstance requires manufacturer", ErrUnauthorized)
	}

	c.beginBlock(msg)
	c.nonce++
	id := deriveProductID(manufacturer, productName, c.headTime, c.nonce)

	p := &model.Product{
		ID:               id,
		ManufacturerName: caller.DisplayName,
		ProductName:      productName,
		CreationTime:     c.headTime,
		Creator:          manufacturer,
		CurrentHolder:    manufacturer,
		Path:             []model.PathEntry{},
	}
	c.products[id] = p
	c.lastID[msg.From] = id
	c.emit(p)

	c.logger.Debug("product created", "product_id", id, "manufacturer", manufacturer, "block", c.head)
	return id, nil
}

// Transfer hands custody of id to newHolder. Business-rule violations
// (unknown or delivered product, no-op handoff) return false without error.
func (c *Contract) Transfer(msg Msg, newHolder common.Address, id model.ProductID) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	caller, ok := c.identities[msg.From]
	if !ok || (caller.Role != model.RoleManufacturer && caller.Role != model.RoleMiddleman) {
		return false, fmt.Errorf("%w: Transfer requires manufacturer or middleman", ErrUnauthorized)
	}

	c.beginBlock(msg)

	p, ok := c.products[id]
	switch {
	case !ok:
		c.logger.Debug("transfer rejected", "product_id", id, "reason", "not_found")
		return false, nil
	case p.IsDelivered:
		c.logger.Debug("transfer rejected", "product_id", id, "reason", "delivered")
		return false, nil
	case newHolder == (common.Address{}) || newHolder == p.CurrentHolder:
		c.logger.Debug("transfer rejected", "product_id", id, "reason", "same_holder")
		return false, nil
	}

	p.Path = append(p.Path, model.PathEntry{
		From:     p.CurrentHolder,
		To:       newHolder,
		Location: c.identities[newHolder].Location,
	})
	p.CurrentHolder = newHolder
	c.emit(p)
	return true, nil
}

// Purchase is the terminal transfer to a consumer. It marks the product
// delivered. Business-rule violations return false without error.
func (c *Contract) Purchase(msg Msg, buyer common.Address, id model.ProductID, location string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	caller, ok := c.identities[msg.From]
	if !ok || caller.Role != model.RoleConsumer {
		return false, fmt.Errorf("%w: Purchase requires consumer", ErrUnauthorized)
	}

	c.beginBlock(msg)

	p, ok := c.products[id]
	if !ok || p.IsDelivered || buyer == (common.Address{}) {
		return false, nil
	}

	location = strings.TrimSpace(location)
	if location == "" {
		location = c.identities[buyer].Location
	}
	p.Path = append(p.Path, model.PathEntry{From: p.CurrentHolder, To: buyer, Location: location})
	p.CurrentHolder = buyer
	p.IsDelivered = true
	c.emit(p)
	return true, nil
}

// CheckRole returns the role registered for addr, RoleNone if unregistered.
func (c *Contract) CheckRole(addr common.Address) model.Role {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identities[addr].Role
}

// Identity returns the identity record registered for addr.
func (c *Contract) Identity(addr common.Address) (model.Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ident, ok := c.identities[addr]
	return ident, ok
}

// CheckID returns the latest product id created by caller.
func (c *Contract) CheckID(caller common.Address) (model.ProductID, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.lastID[caller]
	if !ok {
		return model.ProductID{}, ErrProductNotFound
	}
	return id, nil
}

// Fee returns the current viewing fee.
func (c *Contract) Fee() *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return new(big.Int).Set(c.fee)
}

// Balance returns the accumulated, not yet withdrawn fees.
func (c *Contract) Balance() *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return new(big.Int).Set(c.balance)
}

// CheckPath returns the custody path of id. Middlemen read freely; everyone
// else needs a view grant obtained through PayToView.
func (c *Contract) CheckPath(caller common.Address, id model.ProductID) ([]model.PathEntry, error) {
	p, err := c.CheckProduct(caller, id)
	if err != nil {
		return nil, err
	}
	return p.Path, nil
}

// CheckProduct returns a copy of the full product record under the same gate
// as CheckPath.
func (c *Contract) CheckProduct(caller common.Address, id model.ProductID) (*model.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	if !c.canViewLocked(caller, id) {
		return nil, ErrPaymentRequired
	}
	return p.Clone(), nil
}

func (c *Contract) canViewLocked(caller common.Address, id model.ProductID) bool {
	if c.identities[caller].Role == model.RoleMiddleman {
		return true
	}
	_, granted := c.grants[grantKey{viewer: caller, id: id}]
	return granted
}

// PayToView accepts msg.Value >= Fee() and grants msg.From read access to id.
// It emits the product's current snapshot.
func (c *Contract) PayToView(msg Msg, id model.ProductID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[id]
	if !ok {
		return ErrProductNotFound
	}
	value := msg.Value
	if value == nil {
		value = new(big.Int)
	}
	if value.Cmp(c.fee) < 0 {
		return fmt.Errorf("%w: paid %s, fee %s", ErrInsufficientPayment, value, c.fee)
	}

	c.beginBlock(msg)
	c.balance.Add(c.balance, value)
	c.grants[grantKey{viewer: msg.From, id: id}] = struct{}{}
	c.emit(p)

	c.logger.Debug("view paid", "product_id", id, "viewer", msg.From, "value", value.String())
	return nil
}

// SetFee changes the viewing fee. Owner only.
func (c *Contract) SetFee(msg Msg, fee *big.Int) error {
	if fee == nil || fee.Sign() < 0 {
		return ErrInvalidFee
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.From != c.owner {
		return ErrNotOwner
	}
	c.beginBlock(msg)
	c.fee = new(big.Int).Set(fee)
	return nil
}

// Withdraw sweeps the accumulated fees to the owner and returns the amount.
func (c *Contract) Withdraw(msg Msg) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.From != c.owner {
		return nil, ErrNotOwner
	}
	c.beginBlock(msg)
	amount := new(big.Int).Set(c.balance)
	c.balance.SetInt64(0)
	return amount, nil
}

// Events returns the emitted events with fromBlock <= BlockNumber <= toBlock
// in log order. A negative toBlock means up to the head.
func (c *Contract) Events(fromBlock, toBlock int64) []event.ProductDetail {
	c.mu.RLock()
	defer c.mu.RUnlock()

	start := sort.Search(len(c.events), func(i int) bool {
		return c.events[i].BlockNumber >= fromBlock
	})
	out := make([]event.ProductDetail, 0)
	for _, ev := range c.events[start:] {
		if toBlock >= 0 && ev.BlockNumber > toBlock {
			break
		}
		out = append(out, cloneEvent(ev))
	}
	return out
}

// EventsByTx returns the events emitted by the transaction hash.
func (c *Contract) EventsByTx(hash common.Hash) []event.ProductDetail {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []event.ProductDetail
	for _, ev := range c.events {
		if ev.TransactionHash == hash {
			out = append(out, cloneEvent(ev))
		}
	}
	return out
}

// beginBlock opens a new block for msg. Must be called with mu held and only
// once the call is known not to revert.
func (c *Contract) beginBlock(msg Msg) {
	c.head++
	now := c.nowFn().UTC().Truncate(time.Second)
	if !now.After(c.headTime) {
		now = c.headTime.Add(time.Second)
	}
	c.headTime = now
	c.logIndex = 0
	c.curTxHash = msg.TxHash
}

// emit appends a ProductDetail for p to the log. Must be called with mu held
// after beginBlock.
func (c *Contract) emit(p *model.Product) {
	c.events = append(c.events, event.ProductDetail{
		ProductID:        p.ID,
		ManufacturerName: p.ManufacturerName,
		ProductName:      p.ProductName,
		CreationTime:     p.CreationTime,
		CurrentHolder:    p.CurrentHolder,
		IsDelivered:      p.IsDelivered,
		Path:             p.PathStrings(),
		BlockNumber:      c.head,
		BlockTimestamp:   c.headTime,
		TransactionHash:  c.curTxHash,
		LogIndex:         c.logIndex,
	})
	c.logIndex++
}

func cloneEvent(ev event.ProductDetail) event.ProductDetail {
	ev.Path = append([]string(nil), ev.Path...)
	return ev
}

// deriveProductID hashes the creation inputs with the block time and a
// contract-wide nonce, so equal inputs never collide.
func deriveProductID(manufacturer common.Address, name string, blockTime time.Time, nonce uint64) model.ProductID {
	var ts, n [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(blockTime.Unix()))
	binary.BigEndian.PutUint64(n[:], nonce)
	return model.ProductID(crypto.Keccak256Hash(manufacturer.Bytes(), []byte(name), ts[:], n[:]))
}
