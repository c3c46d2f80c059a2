// Package reconciliation compares local shadow records with the ledger.
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/emperorhan/oilube/internal/alert"
	"github.com/emperorhan/oilube/internal/chain"
	"github.com/emperorhan/oilube/internal/domain/model"
	"github.com/emperorhan/oilube/internal/ledger"
	"github.com/emperorhan/oilube/internal/metrics"
	"github.com/emperorhan/oilube/internal/store"
)

// Verdict classifies one shadow record against the ledger.
type Verdict string

const (
	VerdictMatch    Verdict = "match"
	VerdictPromoted Verdict = "promoted" // pending identity found on the ledger, now confirmed
	VerdictPending  Verdict = "pending"  // the ledger never applied the write
	VerdictMismatch Verdict = "mismatch"
	VerdictError    Verdict = "error"
)

const (
	kindIdentity = "identity"
	kindProduct  = "product"
)

// RecordResult holds the outcome for a single shadow record.
type RecordResult struct {
	Kind        string                   `json:"kind"`
	RecordID    string                   `json:"record_id,omitempty"`
	ProductID   *model.ProductID         `json:"product_id,omitempty"`
	LocalStatus model.ConfirmationStatus `json:"local_status"`
	LocalValue  string                   `json:"local_value"`
	LedgerValue string                   `json:"ledger_value"`
	Verdict     Verdict                  `json:"verdict"`
}

// RunResult aggregates a reconciliation run for one address.
type RunResult struct {
	Address    common.Address `json:"address"`
	Total      int            `json:"total"`
	Matched    int            `json:"matched"`
	Promoted   int            `json:"promoted"`
	Pending    int            `json:"pending"`
	Mismatched int            `json:"mismatched"`
	Errors     int            `json:"errors"`
	Records    []RecordResult `json:"records"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

func (r *RunResult) add(rec RecordResult) {
	r.Records = append(r.Records, rec)
	r.Total++
	switch rec.Verdict {
	case VerdictMatch:
		r.Matched++
	case VerdictPromoted:
		r.Promoted++
	case VerdictPending:
		r.Pending++
	case VerdictMismatch:
		r.Mismatched++
	case VerdictError:
		r.Errors++
	}
	metrics.ReconciliationRecordsTotal.WithLabelValues(rec.Kind, string(rec.Verdict)).Inc()
}

// Service checks an address's shadow records against live ledger state.
type Service struct {
	ledger  chain.LedgerReader
	records store.RecordStore
	alerter alert.Alerter
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(ledger chain.LedgerReader, records store.RecordStore, alerter alert.Alerter, logger *slog.Logger) *Service {
	if alerter == nil {
		alerter = &alert.NoopAlerter{}
	}
	return &Service{
		ledger:  ledger,
		records: records,
		alerter: alerter,
		logger:  logger.With("component", "reconciliation"),
		now:     time.Now,
	}
}

// Reconcile walks addr's identity and product records. Ledger read failures
// are counted per record; only a failing record store aborts the run.
func (s *Service) Reconcile(ctx context.Context, addr common.Address) (*RunResult, error) {
	result := &RunResult{Address: addr, StartedAt: s.now()}

	ident, err := s.records.GetIdentity(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("get identity record: %w", err)
	}
	if ident != nil {
		result.add(s.reconcileIdentity(ctx, ident))
	}

	products, err := s.records.ListProducts(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("list product records: %w", err)
	}
	for i := range products {
		result.add(s.reconcileProduct(ctx, addr, &products[i]))
	}

	result.FinishedAt = s.now()
	metrics.ReconciliationRunsTotal.Inc()

	if result.Mismatched > 0 {
		if err := s.alerter.Send(ctx, alert.Alert{
			Type:    alert.AlertTypeShadowMismatch,
			Network: string(s.ledger.Network()),
			Title:   "Shadow records disagree with the ledger",
			Message: fmt.Sprintf("%d/%d records for %s disagree with the ledger", result.Mismatched, result.Total, addr.Hex()),
			Fields: map[string]string{
				"address":    addr.Hex(),
				"matched":    fmt.Sprintf("%d", result.Matched),
				"mismatched": fmt.Sprintf("%d", result.Mismatched),
				"errors":     fmt.Sprintf("%d", result.Errors),
			},
		}); err != nil {
			s.logger.Warn("send mismatch alert failed", "error", err)
		}
	}

	s.logger.Info("reconciliation completed",
		"address", addr,
		"total", result.Total, "matched", result.Matched,
		"promoted", result.Promoted, "pending", result.Pending,
		"mismatched", result.Mismatched, "errors", result.Errors,
	)
	return result, nil
}

func (s *Service) reconcileIdentity(ctx context.Context, rec *model.LocalIdentity) RecordResult {
	res := RecordResult{
		Kind:        kindIdentity,
		LocalStatus: rec.Status,
		LocalValue:  rec.Role.String(),
	}

	role, err := s.ledger.CheckRole(ctx, rec.Address)
	if err != nil {
		s.logger.Warn("ledger role query failed", "address", rec.Address, "error", err)
		res.LedgerValue = "ERROR"
		res.Verdict = VerdictError
		return res
	}
	res.LedgerValue = role.String()

	switch {
	case role == rec.Role && rec.Status == model.ConfirmedOnLedger:
		res.Verdict = VerdictMatch
	case role == rec.Role:
		promoted := *rec
		promoted.Status = model.ConfirmedOnLedger
		promoted.UpdatedAt = s.now().UTC()
		if err := s.records.PutIdentity(ctx, promoted); err != nil {
			s.logger.Warn("promote identity record failed", "address", rec.Address, "error", err)
			res.Verdict = VerdictError
			return res
		}
		res.Verdict = VerdictPromoted
	case rec.Status == model.LocalOnlyPending:
		res.Verdict = VerdictPending
	default:
		res.Verdict = VerdictMismatch
	}
	return res
}

func (s *Service) reconcileProduct(ctx context.Context, caller common.Address, rec *model.LocalProduct) RecordResult {
	res := RecordResult{
		Kind:        kindProduct,
		RecordID:    rec.RecordID.String(),
		ProductID:   rec.ProductID,
		LocalStatus: rec.Status,
		LocalValue:  string(rec.Kind),
	}

	if rec.ProductID == nil {
		res.LedgerValue = "unknown"
		if rec.Confirmed() {
			res.Verdict = VerdictMismatch
		} else {
			res.Verdict = VerdictPending
		}
		return res
	}

	exists, err := s.productExists(ctx, caller, *rec.ProductID)
	if err != nil {
		s.logger.Warn("ledger product query failed", "product_id", rec.ProductID, "error", err)
		res.LedgerValue = "ERROR"
		res.Verdict = VerdictError
		return res
	}
	res.LedgerValue = "missing"
	if exists {
		res.LedgerValue = "exists"
	}

	switch {
	case !rec.Confirmed():
		res.Verdict = VerdictPending
	case exists:
		res.Verdict = VerdictMatch
	default:
		res.Verdict = VerdictMismatch
	}
	return res
}

// productExists probes the gated product read. A payment gate still proves
// the product exists.
func (s *Service) productExists(ctx context.Context, caller common.Address, id model.ProductID) (bool, error) {
	_, err := s.ledger.CheckProduct(ctx, caller, id)
	switch {
	case err == nil, errors.Is(err, ledger.ErrPaymentRequired):
		return true, nil
	case errors.Is(err, ledger.ErrProductNotFound):
		return false, nil
	default:
		return false, err
	}
}
