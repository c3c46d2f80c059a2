// Package redis stores shadow records of ledger writes.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/emperorhan/oilube/internal/domain/model"
	"github.com/emperorhan/oilube/internal/store"
)

var _ store.RecordStore = (*RecordStore)(nil)

const (
	identityKeyPrefix = "userProfile:"
	productsKeyPrefix = "oilProducts:"
	mappingKeyPrefix  = "localCode:"
)

func identityKey(addr common.Address) string {
	return identityKeyPrefix + strings.ToLower(addr.Hex())
}

func productsKey(addr common.Address) string {
	return productsKeyPrefix + strings.ToLower(addr.Hex())
}

// mappingKey normalizes local codes so "oil001" and "OIL001" resolve alike.
func mappingKey(code string) string {
	return mappingKeyPrefix + strings.ToUpper(strings.TrimSpace(code))
}

// RecordStore is a store.RecordStore backed by Redis strings and lists.
type RecordStore struct {
	client *redis.Client
}

func NewRecordStore(url string) (*RecordStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RecordStore{client: client}, nil
}

// NewRecordStoreFromClient wraps an existing client.
func NewRecordStoreFromClient(client *redis.Client) *RecordStore {
	return &RecordStore{client: client}
}

func (s *RecordStore) Close() error {
	return s.client.Close()
}

func (s *RecordStore) PutIdentity(ctx context.Context, rec model.LocalIdentity) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	if err := s.client.Set(ctx, identityKey(rec.Address), raw, 0).Err(); err != nil {
		return fmt.Errorf("put identity %s: %w", rec.Address.Hex(), err)
	}
	return nil
}

func (s *RecordStore) GetIdentity(ctx context.Context, addr common.Address) (*model.LocalIdentity, error) {
	raw, err := s.client.Get(ctx, identityKey(addr)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get identity %s: %w", addr.Hex(), err)
	}
	var rec model.LocalIdentity
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode identity %s: %w", addr.Hex(), err)
	}
	return &rec, nil
}

func (s *RecordStore) AppendProduct(ctx context.Context, rec model.LocalProduct) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal product record: %w", err)
	}
	if err := s.client.RPush(ctx, productsKey(rec.Owner), raw).Err(); err != nil {
		return fmt.Errorf("append product record for %s: %w", rec.Owner.Hex(), err)
	}
	return nil
}

func (s *RecordStore) ListProducts(ctx context.Context, owner common.Address) ([]model.LocalProduct, error) {
	items, err := s.client.LRange(ctx, productsKey(owner), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list product records for %s: %w", owner.Hex(), err)
	}
	out := make([]model.LocalProduct, 0, len(items))
	for i, item := range items {
		var rec model.LocalProduct
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode product record %d for %s: %w", i, owner.Hex(), err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *RecordStore) PutMapping(ctx context.Context, localCode string, id model.ProductID) error {
	if strings.TrimSpace(localCode) == "" {
		return fmt.Errorf("put mapping: empty local code")
	}
	if err := s.client.Set(ctx, mappingKey(localCode), id.Hex(), 0).Err(); err != nil {
		return fmt.Errorf("put mapping %s: %w", localCode, err)
	}
	return nil
}

func (s *RecordStore) ResolveMapping(ctx context.Context, localCode string) (model.ProductID, bool, error) {
	raw, err := s.client.Get(ctx, mappingKey(localCode)).Result()
	if errors.Is(err, redis.Nil) {
		return model.ProductID{}, false, nil
	}
	if err != nil {
		return model.ProductID{}, false, fmt.Errorf("resolve mapping %s: %w", localCode, err)
	}
	id, err := model.ParseProductID(raw)
	if err != nil {
		return model.ProductID{}, false, fmt.Errorf("resolve mapping %s: %w", localCode, err)
	}
	return id, true, nil
}
