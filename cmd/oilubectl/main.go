package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"github.com/emperorhan/oilube/internal/alert"
	"github.com/emperorhan/oilube/internal/chain"
	"github.com/emperorhan/oilube/internal/chain/backend"
	"github.com/emperorhan/oilube/internal/config"
	"github.com/emperorhan/oilube/internal/indexer/client"
	"github.com/emperorhan/oilube/internal/provenance"
	"github.com/emperorhan/oilube/internal/reconciliation"
	"github.com/emperorhan/oilube/internal/store"
	"github.com/emperorhan/oilube/internal/store/redis"
	"github.com/emperorhan/oilube/internal/wallet"
)

var errNoSession = errors.New("no caller: pass --key (or OILUBE_PRIVATE_KEY) or --from")

type command func(a *app, ctx context.Context, args []string) error

var commands = map[string]command{
	"role":      (*app).cmdRole,
	"register":  (*app).cmdRegister,
	"create":    (*app).cmdCreate,
	"transfer":  (*app).cmdTransfer,
	"purchase":  (*app).cmdPurchase,
	"check":     (*app).cmdCheck,
	"withdraw":  (*app).cmdWithdraw,
	"local":     (*app).cmdLocal,
	"reconcile": (*app).cmdReconcile,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("oilubectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	key := fs.String("key", os.Getenv("OILUBE_PRIVATE_KEY"), "hex private key that signs writes")
	from := fs.String("from", "", "caller address (simulated backend only)")
	verbose := fs.Bool("v", false, "debug logging")
	fs.Usage = func() { usage(stderr) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		usage(stderr)
		return 2
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	name, rest := fs.Arg(0), fs.Args()[1:]
	if name == "demo" {
		if err := runDemo(ctx, stdout, logger); err != nil {
			fmt.Fprintf(stderr, "demo failed: %v\n", err)
			return 1
		}
		return 0
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", name)
		usage(stderr)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	sess, err := newSession(*key, *from)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}
	a, err := newApp(ctx, cfg, sess, stdin, stdout, logger)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	defer a.Close()

	if err := cmd(a, ctx, rest); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		if isUsage(err) {
			return 2
		}
		return 1
	}
	return 0
}

// isUsage reports whether err came from a bad invocation rather than a
// failed operation.
func isUsage(err error) bool {
	var ue usageError
	return errors.As(err, &ue) || errors.Is(err, errNoSession)
}

func usage(w io.Writer) {
	fmt.Fprint(w, `Usage: oilubectl [--key HEX | --from ADDR] [-v] <command> [flags]

Commands:
  role      [--address ADDR]                          show a role (ledger, else local record)
  register  --role R --name N [--location L] [--address ADDR]
  create    --name N [--description D] [--location L] [--price P] [--manufacturer M] [--code C]
  transfer  --product ID|CODE|TX --to ADDR
  purchase  --product ID|CODE|TX [--location L]
  check     [--yes | --max-fee ETH] ID|CODE|TX           view a product, paying the fee if required
  withdraw                                            move accrued fees to the owner
  local     [--owner ADDR]                            list local shadow records
  reconcile [--address ADDR]                          check local shadow records against the ledger
  demo                                                run the full lifecycle on an in-process ledger

Configuration is read from .env, OILUBE_CONFIG and the environment.
`)
}

func newSession(key, from string) (wallet.Session, error) {
	switch {
	case key != "":
		ks, err := wallet.NewKeySession(key)
		if err != nil {
			return nil, err
		}
		return ks, nil
	case from != "":
		if !common.IsHexAddress(from) {
			return nil, fmt.Errorf("--from %q is not a hex address", from)
		}
		return wallet.AddressSession(common.HexToAddress(from)), nil
	default:
		return nil, nil
	}
}

type app struct {
	ledger  chain.Ledger
	svc     *provenance.Service
	recon   *reconciliation.Service
	sess    wallet.Session
	in      *bufio.Reader
	out     io.Writer
	logger  *slog.Logger
	closers []io.Closer
}

func newApp(ctx context.Context, cfg *config.Config, sess wallet.Session, stdin io.Reader, stdout io.Writer, logger *slog.Logger) (*app, error) {
	ledger, err := backend.Open(ctx, cfg.Ledger, logger)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if cfg.Ledger.Backend == config.LedgerBackendSimulated {
		logger.Warn("simulated ledger starts empty on every invocation; use `demo` for a full walkthrough")
	}

	a := &app{ledger: ledger, sess: sess, in: bufio.NewReader(stdin), out: stdout, logger: logger}

	var records store.RecordStore
	if cfg.Redis.URL != "" {
		rs, err := redis.NewRecordStore(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("open record store: %w", err)
		}
		a.closers = append(a.closers, rs)
		records = rs
	} else {
		records = redis.NewInMemoryRecordStore()
	}

	var idx provenance.IndexerQuerier
	if cfg.Client.IndexerURL != "" {
		idx = client.New(client.Config{
			BaseURL:          cfg.Client.IndexerURL,
			Timeout:          cfg.Client.Timeout(),
			FailureThreshold: cfg.Client.BreakerFailures,
			OpenTimeout:      cfg.Client.BreakerOpenTimeout(),
		}, logger)
	}

	a.svc = provenance.New(provenance.Config{MappingCacheSize: cfg.Client.MappingCacheSize}, ledger, idx, records, logger)
	alerter := alert.FromSinks(cfg.Alert.SlackWebhookURL, cfg.Alert.WebhookURL, cfg.Alert.Cooldown(), logger)
	a.recon = reconciliation.NewService(ledger, records, alerter, logger)
	return a, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
}

func (a *app) session() (wallet.Session, error) {
	if a.sess == nil {
		return nil, errNoSession
	}
	return a.sess, nil
}
