package provenance

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/emperorhan/oilube/internal/domain/model"
)

const weiPerEtherExp = 18

// Quote is what a viewer is asked to confirm before paying.
type Quote struct {
	ProductID model.ProductID
	Input     string
	Fee       *big.Int
}

// FeeEther renders the fee in ether, trimmed of trailing zeros.
func (q Quote) FeeEther() string {
	return FormatEther(q.Fee)
}

// FormatEther converts wei to a decimal ether string.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -weiPerEtherExp).String()
}

// ParseEther converts a decimal ether amount to wei.
func ParseEther(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return d.Shift(weiPerEtherExp).BigInt(), nil
}

// Confirmer is the confirm/cancel step in front of a payment. Returning
// false cancels the check before anything is submitted.
type Confirmer interface {
	ConfirmPayment(ctx context.Context, q Quote) (bool, error)
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context, q Quote) (bool, error)

func (f ConfirmerFunc) ConfirmPayment(ctx context.Context, q Quote) (bool, error) {
	return f(ctx, q)
}

// MaxFee confirms any quote up to limit wei.
func MaxFee(limit *big.Int) Confirmer {
	return ConfirmerFunc(func(_ context.Context, q Quote) (bool, error) {
		return q.Fee.Cmp(limit) <= 0, nil
	})
}
