package chain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/emperorhan/oilube/internal/domain/event"
	"github.com/emperorhan/oilube/internal/domain/model"
	"github.com/emperorhan/oilube/internal/ledger"
)

func TestApplied(t *testing.T) {
	t.Parallel()

	id := model.ProductID{1}
	other := model.ProductID{2}

	tests := []struct {
		name    string
		receipt *Receipt
		want    bool
	}{
		{"nil receipt", nil, false},
		{"reverted", &Receipt{Status: model.TxStatusReverted, Events: []event.ProductDetail{{ProductID: id}}}, false},
		{"no events (soft failure)", &Receipt{Status: model.TxStatusSuccess}, false},
		{"event for other product", &Receipt{Status: model.TxStatusSuccess, Events: []event.ProductDetail{{ProductID: other}}}, false},
		{"event for product", &Receipt{Status: model.TxStatusSuccess, Events: []event.ProductDetail{{ProductID: other}, {ProductID: id}}}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Applied(tc.receipt, id))
		})
	}
}

func TestProductIDFromReceipt(t *testing.T) {
	t.Parallel()

	_, ok := ProductIDFromReceipt(&Receipt{Status: model.TxStatusSuccess})
	assert.False(t, ok)

	got, ok := ProductIDFromReceipt(&Receipt{
		Status: model.TxStatusSuccess,
		Events: []event.ProductDetail{{ProductID: model.ProductID{7}}},
	})
	assert.True(t, ok)
	assert.Equal(t, model.ProductID{7}, got)
}

func TestRevertError_UnwrapsLedgerSentinel(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("submit: %w", NewRevertError("NewInstance", fmt.Errorf("%w: needs manufacturer", ledger.ErrUnauthorized)))
	assert.True(t, IsRevert(err))
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)

	var rev *RevertError
	assert.True(t, errors.As(err, &rev))
	assert.Equal(t, "Unauthorized", rev.Reason)
	assert.Equal(t, "NewInstance", rev.Method)
}

func TestRevertFromReason(t *testing.T) {
	t.Parallel()

	known := RevertFromReason("PayToView", "InsufficientPayment")
	assert.ErrorIs(t, known, ledger.ErrInsufficientPayment)
	assert.NotErrorIs(t, known, ErrReverted)

	unknown := RevertFromReason("Transfer", "out of gas")
	assert.ErrorIs(t, unknown, ErrReverted)
	assert.Equal(t, "Transfer reverted: out of gas", unknown.Error())

	assert.False(t, IsRevert(errors.New("dial tcp: connection refused")))
}
