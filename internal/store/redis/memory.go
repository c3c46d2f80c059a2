package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/emperorhan/oilube/internal/domain/model"
	"github.com/emperorhan/oilube/internal/store"
)

var _ store.RecordStore = (*InMemoryRecordStore)(nil)

// InMemoryRecordStore is a process-local store.RecordStore using the same key
// layout as RecordStore.
type InMemoryRecordStore struct {
	mu         sync.RWMutex
	identities map[string]model.LocalIdentity
	products   map[string][]model.LocalProduct
	mappings   map[string]model.ProductID
}

func NewInMemoryRecordStore() *InMemoryRecordStore {
	return &InMemoryRecordStore{
		identities: make(map[string]model.LocalIdentity),
		products:   make(map[string][]model.LocalProduct),
		mappings:   make(map[string]model.ProductID),
	}
}

func (s *InMemoryRecordStore) PutIdentity(ctx context.Context, rec model.LocalIdentity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[identityKey(rec.Address)] = rec
	return nil
}

func (s *InMemoryRecordStore) GetIdentity(ctx context.Context, addr common.Address) (*model.LocalIdentity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.identities[identityKey(addr)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *InMemoryRecordStore) AppendProduct(ctx context.Context, rec model.LocalProduct) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := productsKey(rec.Owner)
	s.products[key] = append(s.products[key], rec)
	return nil
}

func (s *InMemoryRecordStore) ListProducts(ctx context.Context, owner common.Address) ([]model.LocalProduct, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.LocalProduct{}, s.products[productsKey(owner)]...), nil
}

func (s *InMemoryRecordStore) PutMapping(ctx context.Context, localCode string, id model.ProductID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(localCode) == "" {
		return fmt.Errorf("put mapping: empty local code")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings[mappingKey(localCode)] = id
	return nil
}

func (s *InMemoryRecordStore) ResolveMapping(ctx context.Context, localCode string) (model.ProductID, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.ProductID{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.mappings[mappingKey(localCode)]
	return id, ok, nil
}
