package chain

import (
	"errors"
	"fmt"

	"github.com/emperorhan/oilube/internal/ledger"
)

// ErrReverted is matched by every *RevertError whose reason is unknown.
var ErrReverted = errors.New("transaction reverted")

// RevertError reports a call the ledger refused. Unwrap yields the matching
// ledger sentinel (ledger.ErrUnauthorized, ledger.ErrPaymentRequired, ...)
// when the reason is known, ErrReverted otherwise.
type RevertError struct {
	Method string
	Reason string
	err    error
}

func NewRevertError(method string, err error) *RevertError {
	return &RevertError{Method: method, Reason: ledger.Reason(err), err: err}
}

// RevertFromReason builds a RevertError from a raw revert reason string.
func RevertFromReason(method, reason string) *RevertError {
	if err, ok := ledger.FromReason(reason); ok {
		return &RevertError{Method: method, Reason: reason, err: err}
	}
	return &RevertError{Method: method, Reason: reason, err: ErrReverted}
}

func (e *RevertError) Error() string {
	if e.err != nil && e.err != ErrReverted {
		return fmt.Sprintf("%s reverted: %v", e.Method, e.err)
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s reverted: %s", e.Method, e.Reason)
	}
	return e.Method + " reverted"
}

func (e *RevertError) Unwrap() error {
	return e.err
}

// IsRevert reports whether err carries a ledger revert.
func IsRevert(err error) bool {
	var rev *RevertError
	return errors.As(err, &rev)
}
