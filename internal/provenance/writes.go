package provenance

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/emperorhan/oilube/internal/chain"
	"github.com/emperorhan/oilube/internal/domain/model"
	"github.com/emperorhan/oilube/internal/metrics"
	"github.com/emperorhan/oilube/internal/wallet"
)

// Outcome reports a two-phase write. Applied is true only when the ledger
// accepted the change; Status tags the shadow record written either way.
type Outcome struct {
	Applied   bool
	TxHash    common.Hash
	ProductID model.ProductID
	LocalCode string
	RecordID  uuid.UUID
	Status    model.ConfirmationStatus
}

// RoleResolution is a caller's role and where it came from. Confirmed is
// false when the ledger could not be read and a shadow record was used.
type RoleResolution struct {
	Role      model.Role
	Confirmed bool
}

// ResolveRole reads the role from the ledger, falling back to the local
// identity record only when the ledger is unreachable.
func (s *Service) ResolveRole(ctx context.Context, addr common.Address) (RoleResolution, error) {
	role, err := s.ledger.CheckRole(ctx, addr)
	if err == nil {
		return RoleResolution{Role: role, Confirmed: true}, nil
	}
	ledgerErr := ledgerError("check role", err)

	rec, lerr := s.records.GetIdentity(ctx, addr)
	if lerr != nil || rec == nil {
		return RoleResolution{}, ledgerErr
	}
	s.logger.Warn("ledger unreachable, using local identity record",
		"address", addr, "role", rec.Role.String(), "record_status", rec.Status, "error", err)
	return RoleResolution{Role: rec.Role, Confirmed: false}, nil
}

// Register registers ident (the session's own address when ident.Address
// is zero) and mirrors it into the local identity record.
func (s *Service) Register(ctx context.Context, sess wallet.Session, ident model.Identity) (*Outcome, error) {
	if ident.Address == (common.Address{}) {
		ident.Address = sess.Address()
	}
	receipt, err := s.submit(ctx, "register", func() (chain.PendingTx, error) {
		return s.ledger.Register(ctx, sess, ident.Address, ident.Role, ident.DisplayName, ident.Location)
	})
	out := newOutcome(receipt, receipt.Succeeded())

	rec := model.LocalIdentity{Identity: ident, Status: out.Status, UpdatedAt: s.now().UTC()}
	if perr := s.records.PutIdentity(ctx, rec); perr != nil {
		s.logger.Warn("write local identity failed", "address", ident.Address, "error", perr)
	}
	s.recordWrite("register", out, err)
	return out, err
}

// CreateProduct creates a product labelled with label and maps localCode
// (generated when empty) to the new id.
func (s *Service) CreateProduct(ctx context.Context, sess wallet.Session, label model.ProductLabel, localCode string) (*Outcome, error) {
	if strings.TrimSpace(label.Name) == "" {
		return nil, fmt.Errorf("create product: empty product name")
	}
	code := normalizeCode(localCode)
	if code == "" {
		code = newLocalCode()
	}

	receipt, err := s.submit(ctx, "new instance", func() (chain.PendingTx, error) {
		return s.ledger.NewInstance(ctx, sess, sess.Address(), label.Encode())
	})
	id, applied := chain.ProductIDFromReceipt(receipt)
	out := newOutcome(receipt, applied)
	out.ProductID = id
	out.LocalCode = code

	if applied {
		if perr := s.records.PutMapping(ctx, code, id); perr != nil {
			s.logger.Warn("write local code mapping failed", "code", code, "product_id", id, "error", perr)
		} else {
			s.mappings.Put(code, id)
		}
	}
	rec := s.localProduct(out, model.LocalKindCreated, sess.Address(), label.Location)
	rec.ProductName = label.Name
	rec.Description = label.Description
	s.appendShadow(ctx, &rec, out)

	s.recordWrite("create", out, err)
	return out, err
}

// RecordTransfer hands custody of id to newHolder. A transfer the ledger
// ignores (missing or delivered product, unchanged holder) is a soft failure:
// Applied is false and err is nil.
func (s *Service) RecordTransfer(ctx context.Context, sess wallet.Session, id model.ProductID, newHolder common.Address) (*Outcome, error) {
	receipt, err := s.submit(ctx, "transfer", func() (chain.PendingTx, error) {
		return s.ledger.Transfer(ctx, sess, newHolder, id)
	})
	out := newOutcome(receipt, chain.Applied(receipt, id))
	out.ProductID = id

	rec := s.localProduct(out, model.LocalKindTransferred, newHolder, "")
	s.appendShadow(ctx, &rec, out)

	s.recordWrite("transfer", out, err)
	return out, err
}

// Purchase delivers id to the session's address. Missing or already
// delivered products are soft failures.
func (s *Service) Purchase(ctx context.Context, sess wallet.Session, id model.ProductID, location string) (*Outcome, error) {
	receipt, err := s.submit(ctx, "purchase", func() (chain.PendingTx, error) {
		return s.ledger.Purchase(ctx, sess, sess.Address(), id, location)
	})
	out := newOutcome(receipt, chain.Applied(receipt, id))
	out.ProductID = id

	rec := s.localProduct(out, model.LocalKindPurchased, sess.Address(), location)
	s.appendShadow(ctx, &rec, out)

	s.recordWrite("purchase", out, err)
	return out, err
}

// Withdraw moves the accrued viewing fees to the contract owner.
func (s *Service) Withdraw(ctx context.Context, sess wallet.Session) (*chain.Receipt, error) {
	return s.submit(ctx, "withdraw", func() (chain.PendingTx, error) {
		return s.ledger.Withdraw(ctx, sess)
	})
}

// LocalProducts lists the shadow records kept for owner.
func (s *Service) LocalProducts(ctx context.Context, owner common.Address) ([]model.LocalProduct, error) {
	return s.records.ListProducts(ctx, owner)
}

// submit sends a transaction and waits for inclusion. A nil receipt with a
// nil error never happens.
func (s *Service) submit(ctx context.Context, op string, send func() (chain.PendingTx, error)) (*chain.Receipt, error) {
	tx, err := send()
	if err != nil {
		return nil, ledgerError(op, err)
	}
	receipt, err := tx.Wait(ctx)
	if err != nil {
		return nil, ledgerError(op, err)
	}
	if !receipt.Succeeded() {
		return receipt, fmt.Errorf("%s %s: %w", op, tx.Hash().Hex(), ErrTransactionFailed)
	}
	return receipt, nil
}

func newOutcome(receipt *chain.Receipt, applied bool) *Outcome {
	out := &Outcome{Applied: applied, Status: model.LocalOnlyPending}
	if applied {
		out.Status = model.ConfirmedOnLedger
	}
	if receipt != nil {
		out.TxHash = receipt.TxHash
	}
	return out
}

func (s *Service) localProduct(out *Outcome, kind model.LocalProductKind, owner common.Address, location string) model.LocalProduct {
	rec := model.LocalProduct{
		RecordID:   uuid.New(),
		LocalCode:  out.LocalCode,
		Kind:       kind,
		Owner:      owner,
		Location:   location,
		Status:     out.Status,
		RecordedAt: s.now().UTC(),
	}
	if !out.ProductID.IsZero() {
		id := out.ProductID
		rec.ProductID = &id
	}
	if out.TxHash != (common.Hash{}) {
		hash := out.TxHash
		rec.TxHash = &hash
	}
	return rec
}

func (s *Service) appendShadow(ctx context.Context, rec *model.LocalProduct, out *Outcome) {
	out.RecordID = rec.RecordID
	if err := s.records.AppendProduct(ctx, *rec); err != nil {
		s.logger.Warn("write local product record failed", "owner", rec.Owner, "kind", rec.Kind, "error", err)
	}
}

func (s *Service) recordWrite(op string, out *Outcome, err error) {
	metrics.ProvenanceWritesTotal.WithLabelValues(op, string(out.Status)).Inc()
	if err != nil {
		s.logger.Warn("ledger write failed, shadow record kept", "operation", op, "status", out.Status, "error", err)
		return
	}
	s.logger.Info("ledger write", "operation", op, "applied", out.Applied, "tx_hash", out.TxHash)
}

func newLocalCode() string {
	return "OIL-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
