package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emperorhan/oilube/internal/chain/simulated"
	"github.com/emperorhan/oilube/internal/domain/model"
	"github.com/emperorhan/oilube/internal/ledger"
	"github.com/emperorhan/oilube/internal/provenance"
	"github.com/emperorhan/oilube/internal/reconciliation"
	"github.com/emperorhan/oilube/internal/store/redis"
	"github.com/emperorhan/oilube/internal/wallet"
)

const (
	ownerHex    = "0x00000000000000000000000000000000000000a0"
	pressHex    = "0x00000000000000000000000000000000000000a1"
	depotHex    = "0x00000000000000000000000000000000000000a2"
	shopperHex  = "0x00000000000000000000000000000000000000a3"
	testFeeWei  = 500
	testOilName = "Arbequina"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp(t *testing.T, stdin string) (*app, *bytes.Buffer, *ledger.Contract) {
	t.Helper()
	logger := quietLogger()
	contract := ledger.NewContract(ledger.Config{Owner: common.HexToAddress(ownerHex), Fee: big.NewInt(testFeeWei), Logger: logger})
	backend := simulated.New(contract, logger)
	records := redis.NewInMemoryRecordStore()
	out := &bytes.Buffer{}
	a := &app{
		ledger: backend,
		svc:    provenance.New(provenance.Config{}, backend, nil, records, logger),
		recon:  reconciliation.NewService(backend, records, nil, logger),
		in:     bufio.NewReader(strings.NewReader(stdin)),
		out:    out,
		logger: logger,
	}
	return a, out, contract
}

func (a *app) as(hex string) *app {
	a.sess = wallet.AddressSession(common.HexToAddress(hex))
	return a
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), nil, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "Usage: oilubectl")
}

func TestRun_UnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"explode"}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), `unknown command "explode"`)
}

func simulatedEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OILUBE_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("OILUBE_CONFIG", "")
	t.Setenv("OILUBE_PRIVATE_KEY", "")
	t.Setenv("LEDGER_BACKEND", "simulated")
	t.Setenv("LEDGER_OWNER_ADDRESS", ownerHex)
	t.Setenv("REDIS_URL", "")
	t.Setenv("INDEXER_URL", "")
}

func TestRun_RoleFromConfig(t *testing.T) {
	simulatedEnv(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--from", pressHex, "role"}, strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "none (ledger)")
}

func TestRun_ExitCodes(t *testing.T) {
	simulatedEnv(t)

	cases := []struct {
		name string
		args []string
		want int
	}{
		{"unknown subcommand flag", []string{"--from", depotHex, "transfer", "--bogus"}, 2},
		{"write without a caller", []string{"withdraw"}, 2},
		{"malformed address flag", []string{"--from", depotHex, "transfer", "--product", "ARB-1", "--to", "nowhere"}, 2},
		{"missing check argument", []string{"--from", shopperHex, "check"}, 2},
		{"ledger rejects the caller", []string{"--from", shopperHex, "withdraw"}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tc.args, strings.NewReader(""), &stdout, &stderr)
			assert.Equal(t, tc.want, code, stderr.String())
		})
	}
}

func TestRun_Demo(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"demo"}, strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	got := stdout.String()
	assert.Contains(t, got, `"source": "ledger+indexer"`)
	assert.Contains(t, got, `"source": "ledger-only"`)
	assert.Contains(t, got, `"description": "unavailable"`)
	assert.Contains(t, got, "paying 0.001 ETH")
	assert.Contains(t, got, "withdraw: tx=")
}

func TestNewSession(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	hexKey := common.Bytes2Hex(crypto.FromECDSA(key))

	sess, err := newSession(hexKey, "")
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), sess.Address())

	sess, err = newSession("", pressHex)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(pressHex), sess.Address())

	sess, err = newSession("", "")
	require.NoError(t, err)
	assert.Nil(t, sess)

	_, err = newSession("", "not-an-address")
	assert.Error(t, err)
	_, err = newSession("zz", "")
	assert.Error(t, err)
}

func TestPromptConfirmer(t *testing.T) {
	q := provenance.Quote{Fee: big.NewInt(1_000_000_000_000_000)}
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		p := &promptConfirmer{in: bufio.NewReader(strings.NewReader(tt.input)), out: &out}
		ok, err := p.ConfirmPayment(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, "input %q", tt.input)
		assert.Contains(t, out.String(), "costs 0.001 ETH")
	}
}

func TestConfirmer_Flags(t *testing.T) {
	a, _, _ := newTestApp(t, "")

	_, err := a.confirmer(true, "0.1")
	assert.Error(t, err)

	_, err = a.confirmer(false, "lots")
	assert.Error(t, err)

	c, err := a.confirmer(false, "0.000000000000000400")
	require.NoError(t, err)
	ok, err := c.ConfirmPayment(context.Background(), provenance.Quote{Fee: big.NewInt(testFeeWei)})
	require.NoError(t, err)
	assert.False(t, ok, "fee above limit")

	c, err = a.confirmer(false, "")
	require.NoError(t, err)
	assert.IsType(t, &promptConfirmer{}, c)
}

func TestCommands_Lifecycle(t *testing.T) {
	ctx := context.Background()
	a, out, contract := newTestApp(t, "y\n")

	require.NoError(t, a.as(pressHex).cmdRegister(ctx, []string{"--role", "manufacturer", "--name", "Press", "--location", "Jaen"}))
	require.NoError(t, a.as(depotHex).cmdRegister(ctx, []string{"--role", "middleman", "--name", "Depot", "--location", "Lyon"}))
	require.NoError(t, a.as(shopperHex).cmdRegister(ctx, []string{"--role", "consumer", "--name", "Greta", "--location", "Berlin"}))
	assert.Contains(t, out.String(), "register applied: status=confirmed-on-ledger")

	out.Reset()
	require.NoError(t, a.as(pressHex).cmdCreate(ctx, []string{"--name", testOilName, "--description", "early harvest", "--code", "arb-1"}))
	assert.Contains(t, out.String(), "local code: ARB-1")

	require.NoError(t, a.as(pressHex).cmdTransfer(ctx, []string{"--product", "ARB-1", "--to", depotHex}))
	require.NoError(t, a.as(shopperHex).cmdPurchase(ctx, []string{"--product", "arb-1"}))

	out.Reset()
	require.NoError(t, a.as(shopperHex).cmdCheck(ctx, []string{"ARB-1"}))
	text := out.String()
	require.Contains(t, text, "Pay? [y/N]")
	var view model.ProductView
	require.NoError(t, json.Unmarshal([]byte(text[strings.Index(text, "{"):]), &view))
	assert.Equal(t, testOilName, view.ProductName)
	assert.True(t, view.IsDelivered)
	assert.Equal(t, model.SourceLedgerOnly, view.Source)
	require.Len(t, view.Path, 2)
	assert.Equal(t, "Berlin", view.Path[1].Location)
	assert.Equal(t, int64(testFeeWei), contract.Balance().Int64())

	out.Reset()
	require.NoError(t, a.as(pressHex).cmdLocal(ctx, nil))
	var recs []model.LocalProduct
	require.NoError(t, json.Unmarshal(out.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, model.LocalKindCreated, recs[0].Kind)

	out.Reset()
	require.NoError(t, a.as(ownerHex).cmdWithdraw(ctx, nil))
	assert.Contains(t, out.String(), "status=SUCCESS")
	assert.Zero(t, contract.Balance().Sign())
}

func TestCommands_CheckDeclinedPaysNothing(t *testing.T) {
	ctx := context.Background()
	a, _, contract := newTestApp(t, "n\n")
	require.NoError(t, a.as(pressHex).cmdRegister(ctx, []string{"--role", "manufacturer", "--name", "Press"}))
	require.NoError(t, a.as(pressHex).cmdCreate(ctx, []string{"--name", testOilName, "--code", "ARB-2"}))

	err := a.as(shopperHex).cmdCheck(ctx, []string{"ARB-2"})
	assert.ErrorIs(t, err, provenance.ErrPaymentCancelled)
	assert.Zero(t, contract.Balance().Sign())
}

func TestCommands_Validation(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newTestApp(t, "")

	err := a.cmdWithdraw(ctx, nil)
	assert.ErrorIs(t, err, errNoSession)
	assert.True(t, isUsage(err))

	for _, err := range []error{
		a.as(pressHex).cmdRegister(ctx, []string{"--role", "owner", "--name", "x"}),
		a.as(pressHex).cmdCreate(ctx, nil),
		a.as(pressHex).cmdTransfer(ctx, []string{"--product", "ARB-1", "--to", "nowhere"}),
		a.as(shopperHex).cmdCheck(ctx, nil),
		a.as(shopperHex).cmdCheck(ctx, []string{"--yes", "--max-fee", "1", "ARB-1"}),
		a.as(shopperHex).cmdRole(ctx, []string{"--verbose"}),
	} {
		require.Error(t, err)
		assert.True(t, isUsage(err), "%v", err)
	}

	err = a.as(shopperHex).cmdCheck(ctx, []string{"--yes", "NO-SUCH-CODE"})
	assert.ErrorIs(t, err, provenance.ErrUnresolved)
	assert.False(t, isUsage(err))
}

func TestCommands_Role(t *testing.T) {
	ctx := context.Background()
	a, out, _ := newTestApp(t, "")
	require.NoError(t, a.as(depotHex).cmdRegister(ctx, []string{"--role", "middleman", "--name", "Depot"}))

	out.Reset()
	require.NoError(t, a.cmdRole(ctx, []string{"--address", depotHex}))
	assert.Contains(t, out.String(), "middleman (ledger)")
}

func TestCommands_Reconcile(t *testing.T) {
	ctx := context.Background()
	a, out, _ := newTestApp(t, "")
	require.NoError(t, a.as(pressHex).cmdRegister(ctx, []string{"--role", "manufacturer", "--name", "Press"}))
	require.NoError(t, a.as(pressHex).cmdCreate(ctx, []string{"--name", testOilName}))

	out.Reset()
	require.NoError(t, a.as(pressHex).cmdReconcile(ctx, nil))
	var res reconciliation.RunResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.Matched)
	assert.Equal(t, common.HexToAddress(pressHex), res.Address)
}
