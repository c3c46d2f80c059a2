package provenance

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/emperorhan/oilube/internal/domain/model"
	"github.com/emperorhan/oilube/internal/metrics"
	"github.com/emperorhan/oilube/internal/tracing"
	"github.com/emperorhan/oilube/internal/wallet"
)

// Check resolves input and returns the merged product view for the session's
// caller. Manufacturers are refused. Middlemen read without paying; everyone
// else is quoted the viewing fee, and must confirm it before PayToView is
// submitted. Path, holder and delivery state always come from the ledger.
func (s *Service) Check(ctx context.Context, sess wallet.Session, input string, confirm Confirmer) (*model.ProductView, error) {
	ctx, span := s.tracer.Start(ctx, "provenance.check")
	defer span.End()

	role, err := s.ledger.CheckRole(ctx, sess.Address())
	if err != nil {
		return nil, tracing.RecordError(span, s.checkFailed(model.RoleUnknown, ledgerError("check role", err)))
	}
	span.SetAttributes(tracing.KeyRole.String(role.String()))
	if role == model.RoleManufacturer {
		metrics.ProvenanceChecksTotal.WithLabelValues(role.String(), "rejected").Inc()
		return nil, tracing.RecordError(span, ErrRoleNotPermitted)
	}

	id, err := s.Resolve(ctx, sess, input)
	if err != nil {
		return nil, tracing.RecordError(span, s.checkFailed(role, err))
	}
	span.SetAttributes(tracing.KeyProductID.String(id.Hex()))

	view := &model.ProductView{ID: id}
	if role != model.RoleMiddleman {
		if err := s.payToView(ctx, sess, input, id, confirm, view); err != nil {
			return nil, tracing.RecordError(span, s.checkFailed(role, err))
		}
	}

	path, err := s.ledger.CheckPath(ctx, sess.Address(), id)
	if err != nil {
		return nil, tracing.RecordError(span, s.checkFailed(role, ledgerError("check path", err)))
	}
	product, err := s.ledger.CheckProduct(ctx, sess.Address(), id)
	if err != nil {
		return nil, tracing.RecordError(span, s.checkFailed(role, ledgerError("check product", err)))
	}
	product.Path = path

	s.merge(ctx, view, product)
	span.SetAttributes(tracing.KeySource.String(string(view.Source)))
	metrics.ProvenanceChecksTotal.WithLabelValues(role.String(), "ok").Inc()
	s.logger.Info("product checked",
		"caller", sess.Address(),
		"role", role.String(),
		"product_id", id,
		"path_len", len(view.Path),
		"source", view.Source,
	)
	return view, nil
}

func (s *Service) checkFailed(role model.Role, err error) error {
	outcome := "error"
	switch {
	case errors.Is(err, ErrPaymentCancelled):
		outcome = "cancelled"
	case errors.Is(err, ErrUnresolved):
		outcome = "unresolved"
	case errors.Is(err, ErrLedgerUnavailable):
		outcome = "ledger_unavailable"
	}
	metrics.ProvenanceChecksTotal.WithLabelValues(role.String(), outcome).Inc()
	return err
}

// payToView quotes, confirms, submits and awaits the viewing payment.
// Cancellation is only possible before submission.
func (s *Service) payToView(ctx context.Context, sess wallet.Session, input string, id model.ProductID, confirm Confirmer, view *model.ProductView) error {
	fee, err := s.ledger.Fee(ctx)
	if err != nil {
		return ledgerError("quote fee", err)
	}
	quote := Quote{ProductID: id, Input: input, Fee: new(big.Int).Set(fee)}
	if confirm == nil {
		return ErrPaymentCancelled
	}
	ok, err := confirm.ConfirmPayment(ctx, quote)
	if err != nil {
		return fmt.Errorf("confirm payment: %w", err)
	}
	if !ok {
		s.logger.Info("payment declined", "caller", sess.Address(), "product_id", id, "fee_eth", quote.FeeEther())
		return ErrPaymentCancelled
	}

	tx, err := s.ledger.PayToView(ctx, sess, id, fee)
	if err != nil {
		return ledgerError("pay to view", err)
	}
	receipt, err := tx.Wait(ctx)
	if err != nil {
		return ledgerError("await payment", err)
	}
	if !receipt.Succeeded() {
		return fmt.Errorf("pay to view %s: %w", tx.Hash().Hex(), ErrTransactionFailed)
	}

	feeWei, _ := new(big.Float).SetInt(fee).Float64()
	metrics.ProvenanceFeesPaidWei.Add(feeWei)
	hash := tx.Hash()
	view.PaidFee = quote.Fee
	view.PaymentTx = &hash
	s.logger.Info("view paid", "caller", sess.Address(), "product_id", id, "fee_eth", quote.FeeEther(), "tx_hash", hash)
	return nil
}

// merge fills view from the live ledger record and, when reachable, the
// indexer history. An unreachable indexer leaves descriptive fields as
// placeholders.
func (s *Service) merge(ctx context.Context, view *model.ProductView, product *model.Product) {
	label := model.ParseProductLabel(product.ProductName)

	view.ManufacturerName = product.ManufacturerName
	view.ProductName = label.Name
	view.Description = label.Description
	view.CurrentHolder = product.CurrentHolder
	view.IsDelivered = product.IsDelivered
	view.State = product.State()
	view.Path = product.Path
	if view.Path == nil {
		view.Path = []model.PathEntry{}
	}

	if s.indexer == nil {
		s.degrade(view, nil)
		return
	}
	history, err := s.indexer.ListByProduct(ctx, product.ID)
	if err != nil {
		s.degrade(view, err)
		return
	}
	view.Source = model.SourceLedgerAndIndexer
	view.History = history
	if len(history) > 0 {
		created := model.ParseProductLabel(history[0].ProductName)
		if created.Name != "" {
			view.ProductName = created.Name
		}
		if created.Description != "" {
			view.Description = created.Description
		}
	}
}

func (s *Service) degrade(view *model.ProductView, err error) {
	if err != nil {
		metrics.IndexerClientUnavailable.Inc()
		s.logger.Warn("indexer unavailable, serving ledger-only view", "product_id", view.ID, "error", err)
	}
	view.Source = model.SourceLedgerOnly
	view.History = nil
	view.Description = model.PlaceholderText
	if view.ProductName == "" {
		view.ProductName = model.PlaceholderText
	}
}
