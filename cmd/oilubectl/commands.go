package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/emperorhan/oilube/internal/domain/model"
	"github.com/emperorhan/oilube/internal/provenance"
)

// usageError marks a bad invocation rather than a failed operation.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := parseFlags(fs, args); err != nil {
		return usageError{err}
	}
	return nil
}

func newFlags(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func parseAddress(flagName, raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, usagef("--%s %q is not a hex address", flagName, raw)
	}
	return common.HexToAddress(raw), nil
}

func (a *app) cmdRole(ctx context.Context, args []string) error {
	fs := newFlags("role", a.out)
	address := fs.String("address", "", "address to look up (default: caller)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	addr, err := a.addressOrCaller("address", *address)
	if err != nil {
		return err
	}

	res, err := a.svc.ResolveRole(ctx, addr)
	if err != nil {
		return err
	}
	source := "ledger"
	if !res.Confirmed {
		source = "local record, ledger unreachable"
	}
	fmt.Fprintf(a.out, "%s: %s (%s)\n", addr.Hex(), res.Role, source)
	return nil
}

func (a *app) cmdRegister(ctx context.Context, args []string) error {
	fs := newFlags("register", a.out)
	role := fs.String("role", "", "manufacturer, middleman or consumer")
	name := fs.String("name", "", "display name")
	location := fs.String("location", "", "location")
	address := fs.String("address", "", "address to register (default: caller)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	sess, err := a.session()
	if err != nil {
		return err
	}

	ident := model.Identity{Role: model.ParseRole(*role), DisplayName: *name, Location: *location}
	if !ident.Role.IsParticipant() {
		return usagef("--role %q must be manufacturer, middleman or consumer", *role)
	}
	if *address != "" {
		if ident.Address, err = parseAddress("address", *address); err != nil {
			return err
		}
	}

	out, err := a.svc.Register(ctx, sess, ident)
	printOutcome(a.out, "register", out)
	return err
}

func (a *app) cmdCreate(ctx context.Context, args []string) error {
	fs := newFlags("create", a.out)
	var label model.ProductLabel
	fs.StringVar(&label.Name, "name", "", "product name")
	fs.StringVar(&label.Description, "description", "", "description")
	fs.StringVar(&label.Location, "location", "", "origin")
	fs.StringVar(&label.Price, "price", "", "price")
	fs.StringVar(&label.Manufacturer, "manufacturer", "", "manufacturer name")
	code := fs.String("code", "", "local code (generated when empty)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(label.Name) == "" {
		return usagef("--name is required")
	}
	sess, err := a.session()
	if err != nil {
		return err
	}

	out, err := a.svc.CreateProduct(ctx, sess, label, *code)
	printOutcome(a.out, "create", out)
	return err
}

func (a *app) cmdTransfer(ctx context.Context, args []string) error {
	fs := newFlags("transfer", a.out)
	product := fs.String("product", "", "product id, local code or transaction hash")
	to := fs.String("to", "", "new holder address")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	sess, err := a.session()
	if err != nil {
		return err
	}
	holder, err := parseAddress("to", *to)
	if err != nil {
		return err
	}
	id, err := a.svc.Resolve(ctx, sess, *product)
	if err != nil {
		return err
	}

	out, err := a.svc.RecordTransfer(ctx, sess, id, holder)
	printOutcome(a.out, "transfer", out)
	return err
}

func (a *app) cmdPurchase(ctx context.Context, args []string) error {
	fs := newFlags("purchase", a.out)
	product := fs.String("product", "", "product id, local code or transaction hash")
	location := fs.String("location", "", "delivery location (default: registered location)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	sess, err := a.session()
	if err != nil {
		return err
	}
	id, err := a.svc.Resolve(ctx, sess, *product)
	if err != nil {
		return err
	}

	out, err := a.svc.Purchase(ctx, sess, id, *location)
	printOutcome(a.out, "purchase", out)
	return err
}

func (a *app) cmdCheck(ctx context.Context, args []string) error {
	fs := newFlags("check", a.out)
	yes := fs.Bool("yes", false, "pay the quoted fee without asking")
	maxFee := fs.String("max-fee", "", "pay without asking when the fee is at most this many ETH")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usagef("expected exactly one product id, local code or transaction hash")
	}
	sess, err := a.session()
	if err != nil {
		return err
	}
	confirm, err := a.confirmer(*yes, *maxFee)
	if err != nil {
		return err
	}

	view, err := a.svc.Check(ctx, sess, fs.Arg(0), confirm)
	if err != nil {
		return err
	}
	if view.Source == model.SourceLedgerOnly {
		a.logger.Warn("indexer unavailable, descriptive fields are placeholders")
	}
	return printJSON(a.out, view)
}

func (a *app) cmdWithdraw(ctx context.Context, args []string) error {
	fs := newFlags("withdraw", a.out)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	sess, err := a.session()
	if err != nil {
		return err
	}
	receipt, err := a.svc.Withdraw(ctx, sess)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "withdraw: tx=%s status=%s block=%d\n", receipt.TxHash.Hex(), receipt.Status, receipt.BlockNumber)
	return nil
}

func (a *app) cmdLocal(ctx context.Context, args []string) error {
	fs := newFlags("local", a.out)
	ownerFlag := fs.String("owner", "", "record owner (default: caller)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	owner, err := a.addressOrCaller("owner", *ownerFlag)
	if err != nil {
		return err
	}

	recs, err := a.svc.LocalProducts(ctx, owner)
	if err != nil {
		return err
	}
	if recs == nil {
		recs = []model.LocalProduct{}
	}
	return printJSON(a.out, recs)
}

func (a *app) cmdReconcile(ctx context.Context, args []string) error {
	fs := newFlags("reconcile", a.out)
	address := fs.String("address", "", "address whose records are checked (default: caller)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	addr, err := a.addressOrCaller("address", *address)
	if err != nil {
		return err
	}

	res, err := a.recon.Reconcile(ctx, addr)
	if err != nil {
		return err
	}
	if err := printJSON(a.out, res); err != nil {
		return err
	}
	if res.Mismatched > 0 {
		return fmt.Errorf("%d of %d records disagree with the ledger", res.Mismatched, res.Total)
	}
	return nil
}

// addressOrCaller parses raw, falling back to the session address.
func (a *app) addressOrCaller(flagName, raw string) (common.Address, error) {
	if raw != "" {
		return parseAddress(flagName, raw)
	}
	sess, err := a.session()
	if err != nil {
		return common.Address{}, err
	}
	return sess.Address(), nil
}

func (a *app) confirmer(yes bool, maxFee string) (provenance.Confirmer, error) {
	switch {
	case yes && maxFee != "":
		return nil, usagef("--yes and --max-fee are mutually exclusive")
	case yes:
		return provenance.ConfirmerFunc(func(context.Context, provenance.Quote) (bool, error) {
			return true, nil
		}), nil
	case maxFee != "":
		limit, err := provenance.ParseEther(maxFee)
		if err != nil {
			return nil, usageError{fmt.Errorf("--max-fee: %w", err)}
		}
		return provenance.MaxFee(limit), nil
	default:
		return &promptConfirmer{in: a.in, out: a.out}, nil
	}
}

// promptConfirmer asks on the terminal before any fee is paid.
type promptConfirmer struct {
	in interface {
		ReadString(delim byte) (string, error)
	}
	out io.Writer
}

func (p *promptConfirmer) ConfirmPayment(_ context.Context, q provenance.Quote) (bool, error) {
	fmt.Fprintf(p.out, "Viewing %s costs %s ETH. Pay? [y/N] ", q.ProductID.Hex(), q.FeeEther())
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func printOutcome(w io.Writer, op string, out *provenance.Outcome) {
	if out == nil {
		return
	}
	state := "applied"
	if !out.Applied {
		state = "not applied"
	}
	fmt.Fprintf(w, "%s %s: status=%s", op, state, out.Status)
	if out.TxHash != (common.Hash{}) {
		fmt.Fprintf(w, " tx=%s", out.TxHash.Hex())
	}
	fmt.Fprintln(w)
	if !out.ProductID.IsZero() {
		fmt.Fprintf(w, "  product: %s\n", out.ProductID.Hex())
	}
	if out.LocalCode != "" {
		fmt.Fprintf(w, "  local code: %s\n", out.LocalCode)
	}
	if out.RecordID != uuid.Nil {
		fmt.Fprintf(w, "  record: %s\n", out.RecordID)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
