package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/emperorhan/oilube/internal/chain/simulated"
	"github.com/emperorhan/oilube/internal/domain/model"
	"github.com/emperorhan/oilube/internal/indexer"
	"github.com/emperorhan/oilube/internal/indexer/api"
	"github.com/emperorhan/oilube/internal/indexer/client"
	"github.com/emperorhan/oilube/internal/ledger"
	"github.com/emperorhan/oilube/internal/provenance"
	"github.com/emperorhan/oilube/internal/store/memory"
	"github.com/emperorhan/oilube/internal/store/redis"
	"github.com/emperorhan/oilube/internal/wallet"
)

var (
	demoOwner   = wallet.AddressSession(common.HexToAddress("0x00000000000000000000000000000000000000d0"))
	demoPress   = wallet.AddressSession(common.HexToAddress("0x00000000000000000000000000000000000000d1"))
	demoDepot   = wallet.AddressSession(common.HexToAddress("0x00000000000000000000000000000000000000d2"))
	demoShopper = wallet.AddressSession(common.HexToAddress("0x00000000000000000000000000000000000000d3"))
	demoFeeWei  = big.NewInt(1_000_000_000_000_000)
)

// runDemo walks one product through its lifecycle on an in-process ledger
// with a live indexer, then repeats the consumer check with the indexer down.
func runDemo(ctx context.Context, w io.Writer, logger *slog.Logger) error {
	contract := ledger.NewContract(ledger.Config{Owner: demoOwner.Address(), Fee: demoFeeWei, Logger: logger})
	ledgerBackend := simulated.New(contract, logger)

	snapshots := memory.New()
	pipeline := indexer.New(indexer.Config{BatchBlocks: 100}, ledgerBackend, snapshots, snapshots, nil, logger)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	server := &http.Server{
		Handler:           api.NewServer(snapshots, logger, api.WithHealthProvider(pipeline.Health())).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("demo indexer server stopped", "error", err)
		}
	}()
	defer server.Close()

	idx := client.New(client.Config{
		BaseURL:          "http://" + ln.Addr().String(),
		Timeout:          2 * time.Second,
		FailureThreshold: 1,
		OpenTimeout:      time.Minute,
	}, logger)
	svc := provenance.New(provenance.Config{}, ledgerBackend, idx, redis.NewInMemoryRecordStore(), logger)

	step := func(format string, args ...any) {
		fmt.Fprintf(w, "==> "+format+"\n", args...)
	}

	step("registering participants")
	for _, p := range []struct {
		sess     wallet.AddressSession
		role     model.Role
		name     string
		location string
	}{
		{demoPress, model.RoleManufacturer, "Almazara del Sur", "Jaen"},
		{demoDepot, model.RoleMiddleman, "Rhone Depot", "Lyon"},
		{demoShopper, model.RoleConsumer, "Greta", "Berlin"},
	} {
		out, err := svc.Register(ctx, p.sess, model.Identity{Role: p.role, DisplayName: p.name, Location: p.location})
		printOutcome(w, "register "+p.role.String(), out)
		if err != nil {
			return err
		}
	}

	step("manufacturer creates a product")
	created, err := svc.CreateProduct(ctx, demoPress, model.ProductLabel{
		Name:         "Extra Virgin Olive Oil",
		Description:  "Cold pressed picual, 2026 harvest",
		Location:     "Jaen",
		Price:        "12.50",
		Manufacturer: "Almazara del Sur",
	}, "")
	printOutcome(w, "create", created)
	if err != nil {
		return err
	}
	id := created.ProductID

	step("custody moves to the middleman")
	out, err := svc.RecordTransfer(ctx, demoPress, id, demoDepot.Address())
	printOutcome(w, "transfer", out)
	if err != nil {
		return err
	}

	step("consumer purchases using the local code %s", created.LocalCode)
	out, err = svc.Purchase(ctx, demoShopper, id, "")
	printOutcome(w, "purchase", out)
	if err != nil {
		return err
	}

	step("indexer catches up")
	for {
		caughtUp, err := pipeline.Tick(ctx)
		if err != nil {
			return fmt.Errorf("index events: %w", err)
		}
		if caughtUp {
			break
		}
	}

	autoPay := provenance.ConfirmerFunc(func(_ context.Context, q provenance.Quote) (bool, error) {
		fmt.Fprintf(w, "    paying %s ETH to view %s\n", q.FeeEther(), q.ProductID.Hex())
		return true, nil
	})

	step("consumer checks the product by transaction hash")
	view, err := svc.Check(ctx, demoShopper, created.TxHash.Hex(), autoPay)
	if err != nil {
		return err
	}
	if err := printJSON(w, view); err != nil {
		return err
	}

	step("indexer goes offline; consumer checks again")
	if err := server.Close(); err != nil {
		return fmt.Errorf("stop indexer server: %w", err)
	}
	view, err = svc.Check(ctx, demoShopper, created.LocalCode, autoPay)
	if err != nil {
		return err
	}
	if err := printJSON(w, view); err != nil {
		return err
	}

	step("owner withdraws %s ETH of viewing fees", provenance.FormatEther(contract.Balance()))
	receipt, err := svc.Withdraw(ctx, demoOwner)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "withdraw: tx=%s status=%s\n", receipt.TxHash.Hex(), receipt.Status)
	return nil
}
