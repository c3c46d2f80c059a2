package provenance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/emperorhan/oilube/internal/domain/model"
	"github.com/emperorhan/oilube/internal/ledger"
	"github.com/emperorhan/oilube/internal/wallet"
)

// Resolve maps a human supplied identifier to an on-chain product id. It
// tries, in order: a local code from the shadow store, a product id known to
// the ledger, then a transaction hash known to the indexer.
func (s *Service) Resolve(ctx context.Context, sess wallet.Session, input string) (model.ProductID, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return model.ProductID{}, fmt.Errorf("%w: empty input", ErrUnresolved)
	}

	code := normalizeCode(input)
	if id, ok := s.mappings.Get(code); ok {
		return id, nil
	}
	id, ok, err := s.records.ResolveMapping(ctx, code)
	if err != nil {
		// Advisory store; fall through to the ledger.
		s.logger.Warn("local code lookup failed", "code", code, "error", err)
	} else if ok {
		s.mappings.Put(code, id)
		return id, nil
	}

	id, err = model.ParseProductID(input)
	if err != nil {
		return model.ProductID{}, fmt.Errorf("%w: %q", ErrUnresolved, input)
	}

	_, err = s.ledger.CheckProduct(ctx, sess.Address(), id)
	switch {
	case err == nil, errors.Is(err, ledger.ErrPaymentRequired):
		return id, nil
	case errors.Is(err, ledger.ErrProductNotFound):
	default:
		return model.ProductID{}, ledgerError("check product", err)
	}

	// Not a product; maybe the hash of a transaction that touched one.
	if s.indexer == nil {
		return model.ProductID{}, fmt.Errorf("%w: %s", ErrUnresolved, id.Hex())
	}
	snaps, err := s.indexer.FindByTxHash(ctx, id.Hash())
	if err != nil {
		return model.ProductID{}, fmt.Errorf("%w: %s: indexer: %v", ErrUnresolved, id.Hex(), err)
	}
	if len(snaps) == 0 {
		return model.ProductID{}, fmt.Errorf("%w: %s", ErrUnresolved, id.Hex())
	}
	return snaps[0].ProductID, nil
}

// normalizeCode upper-cases local codes the way they are stored.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
