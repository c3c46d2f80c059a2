package provenance

import (
	"context"
	"errors"
	"fmt"

	"github.com/emperorhan/oilube/internal/chain"
)

var (
	// ErrRoleNotPermitted is returned when a manufacturer asks to check a product.
	ErrRoleNotPermitted = errors.New("role not permitted to check products")
	// ErrPaymentCancelled means the viewer declined the fee quote. Nothing was submitted.
	ErrPaymentCancelled = errors.New("payment cancelled")
	// ErrLedgerUnavailable wraps every failure to reach the ledger. It is
	// fatal: provenance is never fabricated from secondary sources.
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	// ErrUnresolved means the input matched no local code, product or
	// indexed transaction.
	ErrUnresolved = errors.New("identifier does not resolve to a product")
	// ErrTransactionFailed is returned when an included transaction did not succeed.
	ErrTransactionFailed = errors.New("transaction failed")
)

// ledgerError keeps reverts as they are and tags everything else as ledger
// unavailability.
func ledgerError(op string, err error) error {
	if chain.IsRevert(err) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrLedgerUnavailable, err)
}
