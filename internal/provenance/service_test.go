package provenance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/emperorhan/oilube/internal/chain"
	"github.com/emperorhan/oilube/internal/chain/simulated"
	"github.com/emperorhan/oilube/internal/domain/model"
	"github.com/emperorhan/oilube/internal/indexer"
	"github.com/emperorhan/oilube/internal/ledger"
	"github.com/emperorhan/oilube/internal/metrics"
	"github.com/emperorhan/oilube/internal/provenance/mocks"
	shadow "github.com/emperorhan/oilube/internal/store/redis"
	"github.com/emperorhan/oilube/internal/wallet"
)

var (
	owner    = wallet.AddressSession(common.HexToAddress("0x00000000000000000000000000000000000000a0"))
	manuf    = wallet.AddressSession(common.HexToAddress("0x00000000000000000000000000000000000000a1"))
	middle   = wallet.AddressSession(common.HexToAddress("0x00000000000000000000000000000000000000a2"))
	consumer = wallet.AddressSession(common.HexToAddress("0x00000000000000000000000000000000000000a3"))
	stranger = wallet.AddressSession(common.HexToAddress("0x00000000000000000000000000000000000000a4"))
)

const testFee = 100

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// contractIndexer answers indexer queries straight from the ledger's event
// log through the indexer's mapper.
type contractIndexer struct {
	c *ledger.Contract
}

func (x contractIndexer) FindByTxHash(_ context.Context, hash common.Hash) ([]model.Snapshot, error) {
	return indexer.Mapper{}.MapAll(x.c.EventsByTx(hash)), nil
}

func (x contractIndexer) ListByProduct(_ context.Context, id model.ProductID) ([]model.Snapshot, error) {
	var out []model.Snapshot
	for _, snap := range (indexer.Mapper{}).MapAll(x.c.Events(0, -1)) {
		if snap.ProductID == id {
			out = append(out, snap)
		}
	}
	return out, nil
}

type fixture struct {
	backend *simulated.Backend
	records *shadow.InMemoryRecordStore
	svc     *Service
}

func newFixture(t *testing.T, idx func(*ledger.Contract) IndexerQuerier) *fixture {
	t.Helper()
	logger := testLogger()
	contract := ledger.NewContract(ledger.Config{Owner: owner.Address(), Fee: big.NewInt(testFee), Logger: logger})
	backend := simulated.New(contract, logger)
	records := shadow.NewInMemoryRecordStore()
	var q IndexerQuerier
	if idx != nil {
		q = idx(contract)
	}
	f := &fixture{backend: backend, records: records, svc: New(Config{}, backend, q, records, logger)}

	ctx := context.Background()
	for _, r := range []struct {
		s    wallet.AddressSession
		role model.Role
		name string
		loc  string
	}{
		{manuf, model.RoleManufacturer, "Acme", "Seville"},
		{middle, model.RoleMiddleman, "Dist", "Lyon"},
		{consumer, model.RoleConsumer, "Carol", "Berlin"},
	} {
		out, err := f.svc.Register(ctx, r.s, model.Identity{Role: r.role, DisplayName: r.name, Location: r.loc})
		require.NoError(t, err)
		require.True(t, out.Applied)
	}
	return f
}

func withContractIndexer(c *ledger.Contract) IndexerQuerier {
	return contractIndexer{c: c}
}

func (f *fixture) create(t *testing.T, name, code string) *Outcome {
	t.Helper()
	out, err := f.svc.CreateProduct(context.Background(), manuf, model.ProductLabel{Name: name, Description: "cold pressed"}, code)
	require.NoError(t, err)
	require.True(t, out.Applied)
	return out
}

type quoteRecorder struct {
	quotes []Quote
	accept bool
}

func (r *quoteRecorder) ConfirmPayment(_ context.Context, q Quote) (bool, error) {
	r.quotes = append(r.quotes, q)
	return r.accept, nil
}

func TestCheck_PayToViewLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, withContractIndexer)
	feesBefore := testutil.ToFloat64(metrics.ProvenanceFeesPaidWei)

	created := f.create(t, "Sunflower Oil", "oil001")
	assert.Equal(t, "OIL001", created.LocalCode)
	x := created.ProductID

	// Middleman reads for free.
	view, err := f.svc.Check(ctx, middle, "OIL001", nil)
	require.NoError(t, err)
	assert.Equal(t, x, view.ID)
	assert.Empty(t, view.Path)
	assert.Nil(t, view.PaidFee)
	assert.Equal(t, manuf.Address(), view.CurrentHolder)

	// Consumer is quoted, confirms and pays.
	confirm := &quoteRecorder{accept: true}
	view, err = f.svc.Check(ctx, consumer, x.Hex(), confirm)
	require.NoError(t, err)
	require.Len(t, confirm.quotes, 1)
	assert.Equal(t, x, confirm.quotes[0].ProductID)
	assert.Equal(t, big.NewInt(testFee), confirm.quotes[0].Fee)
	assert.Empty(t, view.Path)
	assert.Equal(t, manuf.Address(), view.CurrentHolder)
	assert.Equal(t, big.NewInt(testFee), view.PaidFee)
	require.NotNil(t, view.PaymentTx)
	assert.Equal(t, model.StateManufactured, view.State)

	// Middleman pulls custody.
	moved, err := f.svc.RecordTransfer(ctx, middle, x, middle.Address())
	require.NoError(t, err)
	assert.True(t, moved.Applied)
	assert.Equal(t, model.ConfirmedOnLedger, moved.Status)

	// Consumer pays again and sees the handoff.
	view, err = f.svc.Check(ctx, consumer, x.Hex(), confirm)
	require.NoError(t, err)
	assert.Len(t, confirm.quotes, 2)
	require.Len(t, view.Path, 1)
	assert.Equal(t, manuf.Address(), view.Path[0].From)
	assert.Equal(t, middle.Address(), view.Path[0].To)
	assert.Equal(t, "Lyon", view.Path[0].Location)
	assert.Equal(t, middle.Address(), view.CurrentHolder)
	assert.Equal(t, model.StateInTransit, view.State)

	assert.Equal(t, model.SourceLedgerAndIndexer, view.Source)
	assert.Equal(t, "Sunflower Oil", view.ProductName)
	assert.Equal(t, "cold pressed", view.Description)
	assert.Equal(t, "Acme", view.ManufacturerName)
	// create, first payment, transfer, second payment
	require.Len(t, view.History, 4)
	for i := 1; i < len(view.History); i++ {
		assert.True(t, view.History[i-1].Before(&view.History[i]))
	}

	assert.Equal(t, big.NewInt(2*testFee), f.backend.Contract().Balance())
	assert.Equal(t, 2.0*testFee, testutil.ToFloat64(metrics.ProvenanceFeesPaidWei)-feesBefore)
}

func TestCheck_IndexerUnavailableDegradesToLedgerOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	idx := mocks.NewMockIndexerQuerier(ctrl)
	f := newFixture(t, func(*ledger.Contract) IndexerQuerier { return idx })
	x := f.create(t, "Olive Oil A", "").ProductID

	before := testutil.ToFloat64(metrics.IndexerClientUnavailable)
	idx.EXPECT().ListByProduct(gomock.Any(), x).Return(nil, errors.New("indexer unavailable: connection refused"))

	view, err := f.svc.Check(context.Background(), consumer, x.Hex(), MaxFee(big.NewInt(testFee)))
	require.NoError(t, err)
	assert.Equal(t, model.SourceLedgerOnly, view.Source)
	assert.Equal(t, model.PlaceholderText, view.Description)
	assert.Nil(t, view.History)
	assert.Empty(t, view.Path)
	assert.Equal(t, manuf.Address(), view.CurrentHolder)
	assert.Equal(t, "Acme", view.ManufacturerName)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.IndexerClientUnavailable)-before)
}

func TestCheck_NoIndexerConfigured(t *testing.T) {
	f := newFixture(t, nil)
	x := f.create(t, "Olive Oil A", "").ProductID

	view, err := f.svc.Check(context.Background(), middle, x.Hex(), nil)
	require.NoError(t, err)
	assert.Equal(t, model.SourceLedgerOnly, view.Source)
	assert.Equal(t, model.PlaceholderText, view.Description)
}

func TestCheck_ManufacturerRejected(t *testing.T) {
	f := newFixture(t, withContractIndexer)
	x := f.create(t, "Olive Oil A", "").ProductID

	confirm := &quoteRecorder{accept: true}
	_, err := f.svc.Check(context.Background(), manuf, x.Hex(), confirm)
	assert.ErrorIs(t, err, ErrRoleNotPermitted)
	assert.Empty(t, confirm.quotes)
	assert.Zero(t, f.backend.Contract().Balance().Sign())
}

func TestCheck_CancelledPaymentSubmitsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, withContractIndexer)
	x := f.create(t, "Olive Oil A", "").ProductID
	head, err := f.backend.HeadBlock(ctx)
	require.NoError(t, err)

	confirm := &quoteRecorder{accept: false}
	_, err = f.svc.Check(ctx, consumer, x.Hex(), confirm)
	assert.ErrorIs(t, err, ErrPaymentCancelled)
	assert.Len(t, confirm.quotes, 1)

	_, err = f.svc.Check(ctx, stranger, x.Hex(), nil)
	assert.ErrorIs(t, err, ErrPaymentCancelled, "a nil confirmer never pays")

	after, err := f.backend.HeadBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, head, after)
	assert.Zero(t, f.backend.Contract().Balance().Sign())
}

func TestCheck_ConfirmerErrorIsReturned(t *testing.T) {
	f := newFixture(t, withContractIndexer)
	x := f.create(t, "Olive Oil A", "").ProductID
	boom := errors.New("prompt closed")

	_, err := f.svc.Check(context.Background(), consumer, x.Hex(), ConfirmerFunc(func(context.Context, Quote) (bool, error) {
		return false, boom
	}))
	assert.ErrorIs(t, err, boom)
}

func TestCheck_UnregisteredViewerPays(t *testing.T) {
	f := newFixture(t, withContractIndexer)
	x := f.create(t, "Olive Oil A", "").ProductID

	view, err := f.svc.Check(context.Background(), stranger, x.Hex(), MaxFee(big.NewInt(testFee)))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(testFee), view.PaidFee)
}

func TestCheck_FeeRaisedAfterQuoteFailsPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, withContractIndexer)
	x := f.create(t, "Olive Oil A", "").ProductID
	contract := f.backend.Contract()

	raised := big.NewInt(5 * testFee)
	var quoted *big.Int
	confirm := ConfirmerFunc(func(_ context.Context, q Quote) (bool, error) {
		quoted = q.Fee
		require.NoError(t, contract.SetFee(ledger.Msg{From: owner.Address()}, raised))
		return true, nil
	})

	_, err := f.svc.Check(ctx, consumer, x.Hex(), confirm)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrInsufficientPayment)
	assert.NotErrorIs(t, err, ErrLedgerUnavailable)
	assert.Equal(t, big.NewInt(testFee), quoted)
	assert.Zero(t, contract.Balance().Sign())

	_, err = contract.CheckPath(consumer.Address(), x)
	assert.ErrorIs(t, err, ledger.ErrPaymentRequired, "a failed payment grants nothing")

	// A fresh quote picks up the new fee.
	view, err := f.svc.Check(ctx, consumer, x.Hex(), MaxFee(raised))
	require.NoError(t, err)
	assert.Equal(t, raised, view.PaidFee)
	assert.Equal(t, raised, contract.Balance())
}

func TestCheck_FeeAboveLimitIsCancelled(t *testing.T) {
	f := newFixture(t, withContractIndexer)
	x := f.create(t, "Olive Oil A", "").ProductID

	_, err := f.svc.Check(context.Background(), consumer, x.Hex(), MaxFee(big.NewInt(testFee-1)))
	assert.ErrorIs(t, err, ErrPaymentCancelled)
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, withContractIndexer)
	created := f.create(t, "Olive Oil A", "OIL007")
	x := created.ProductID

	tests := []struct {
		name  string
		input string
		want  model.ProductID
		err   error
	}{
		{name: "local code", input: "OIL007", want: x},
		{name: "local code any case", input: " oil007 ", want: x},
		{name: "product id", input: x.Hex(), want: x},
		{name: "product id without prefix", input: x.Hex()[2:], want: x},
		{name: "creation tx hash", input: created.TxHash.Hex(), want: x},
		{name: "unknown 32 bytes", input: common.HexToHash("0xdead").Hex(), err: ErrUnresolved},
		{name: "unknown code", input: "OIL999", err: ErrUnresolved},
		{name: "empty", input: "  ", err: ErrUnresolved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.Resolve(ctx, consumer, tt.input)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_MappingCachedAfterFirstLookup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, withContractIndexer)
	x := f.create(t, "Olive Oil A", "").ProductID
	require.NoError(t, f.records.PutMapping(ctx, "LEGACY1", x))

	hitsBefore := testutil.ToFloat64(metrics.CacheHits.WithLabelValues("local_code"))
	for i := 0; i < 2; i++ {
		got, err := f.svc.Resolve(ctx, consumer, "LEGACY1")
		require.NoError(t, err)
		assert.Equal(t, x, got)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheHits.WithLabelValues("local_code"))-hitsBefore)
}

type unreachableLedger struct {
	chain.Ledger
}

var errDial = errors.New("dial tcp 127.0.0.1:8545: connect: connection refused")

func (unreachableLedger) CheckRole(context.Context, common.Address) (model.Role, error) {
	return model.RoleNone, errDial
}

func TestCheck_LedgerUnavailableIsFatal(t *testing.T) {
	f := newFixture(t, withContractIndexer)
	x := f.create(t, "Olive Oil A", "").ProductID
	svc := New(Config{}, unreachableLedger{f.backend}, contractIndexer{c: f.backend.Contract()}, f.records, testLogger())

	_, err := svc.Check(context.Background(), middle, x.Hex(), nil)
	assert.ErrorIs(t, err, ErrLedgerUnavailable)
	assert.ErrorIs(t, err, errDial)
}

func TestResolveRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	res, err := f.svc.ResolveRole(ctx, middle.Address())
	require.NoError(t, err)
	assert.Equal(t, RoleResolution{Role: model.RoleMiddleman, Confirmed: true}, res)

	res, err = f.svc.ResolveRole(ctx, stranger.Address())
	require.NoError(t, err)
	assert.Equal(t, RoleResolution{Role: model.RoleNone, Confirmed: true}, res)

	offline := New(Config{}, unreachableLedger{f.backend}, nil, f.records, testLogger())
	res, err = offline.ResolveRole(ctx, middle.Address())
	require.NoError(t, err)
	assert.Equal(t, RoleResolution{Role: model.RoleMiddleman, Confirmed: false}, res)

	_, err = offline.ResolveRole(ctx, stranger.Address())
	assert.ErrorIs(t, err, ErrLedgerUnavailable)
}

func TestRegister_IdempotentAndShadowed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	ident := model.Identity{Role: model.RoleConsumer, DisplayName: "Carol", Location: "Berlin"}

	_, err := f.svc.Register(ctx, consumer, ident)
	require.NoError(t, err)
	first, ok := f.backend.Contract().Identity(consumer.Address())
	require.True(t, ok)

	_, err = f.svc.Register(ctx, consumer, ident)
	require.NoError(t, err)
	second, _ := f.backend.Contract().Identity(consumer.Address())
	assert.Equal(t, first, second)

	rec, err := f.records.GetIdentity(ctx, consumer.Address())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, model.ConfirmedOnLedger, rec.Status)
	assert.Equal(t, consumer.Address(), rec.Address)
}

func TestRegister_RejectedKeepsPendingShadow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	// Only the owner may register someone else.
	out, err := f.svc.Register(ctx, consumer, model.Identity{Address: stranger.Address(), Role: model.RoleMiddleman, DisplayName: "Eve"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	assert.False(t, out.Applied)

	rec, err := f.records.GetIdentity(ctx, stranger.Address())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, model.LocalOnlyPending, rec.Status)
}

func TestCreateProduct_ConsumerUnauthorized(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	out, err := f.svc.CreateProduct(ctx, consumer, model.ProductLabel{Name: "Fake Oil"}, "FAKE1")
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	require.NotNil(t, out)
	assert.False(t, out.Applied)
	assert.Equal(t, model.LocalOnlyPending, out.Status)

	_, ok, err := f.records.ResolveMapping(ctx, "FAKE1")
	require.NoError(t, err)
	assert.False(t, ok, "no mapping for a product the ledger never created")

	recs, err := f.svc.LocalProducts(ctx, consumer.Address())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, model.LocalKindCreated, recs[0].Kind)
	assert.False(t, recs[0].Confirmed())
	assert.Nil(t, recs[0].ProductID)
}

func TestCreateProduct_GeneratesLocalCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	out := f.create(t, "Olive Oil A", "")
	assert.Regexp(t, `^OIL-[0-9A-F]{8}$`, out.LocalCode)

	id, ok, err := f.records.ResolveMapping(ctx, out.LocalCode)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, out.ProductID, id)

	latest, err := f.backend.CheckID(ctx, manuf.Address())
	require.NoError(t, err)
	assert.Equal(t, out.ProductID, latest)

	recs, err := f.svc.LocalProducts(ctx, manuf.Address())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Confirmed())
	assert.Equal(t, out.RecordID, recs[0].RecordID)
}

func TestRecordTransfer_SoftFailureOnMissingProduct(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	missing := model.ProductID{0x42}

	out, err := f.svc.RecordTransfer(ctx, middle, missing, middle.Address())
	require.NoError(t, err)
	assert.False(t, out.Applied)
	assert.Equal(t, model.LocalOnlyPending, out.Status)

	recs, err := f.svc.LocalProducts(ctx, middle.Address())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, model.LocalKindTransferred, recs[0].Kind)
	assert.Equal(t, model.LocalOnlyPending, recs[0].Status)
}

func TestPurchase_DeliversOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	x := f.create(t, "Olive Oil A", "").ProductID

	_, err := f.svc.RecordTransfer(ctx, middle, x, middle.Address())
	require.NoError(t, err)

	out, err := f.svc.Purchase(ctx, consumer, x, "Berlin")
	require.NoError(t, err)
	assert.True(t, out.Applied)

	out, err = f.svc.Purchase(ctx, consumer, x, "Berlin")
	require.NoError(t, err)
	assert.False(t, out.Applied, "already delivered")

	view, err := f.svc.Check(ctx, middle, x.Hex(), nil)
	require.NoError(t, err)
	assert.True(t, view.IsDelivered)
	assert.Equal(t, model.StateDelivered, view.State)
	assert.Equal(t, consumer.Address(), view.CurrentHolder)
	require.Len(t, view.Path, 2)
	assert.Equal(t, "Berlin", view.Path[1].Location)

	out, err = f.svc.RecordTransfer(ctx, middle, x, middle.Address())
	require.NoError(t, err)
	assert.False(t, out.Applied, "delivered products cannot move")
}

func TestWithdraw(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, withContractIndexer)
	x := f.create(t, "Olive Oil A", "").ProductID
	_, err := f.svc.Check(ctx, consumer, x.Hex(), MaxFee(big.NewInt(testFee)))
	require.NoError(t, err)

	_, err = f.svc.Withdraw(ctx, consumer)
	assert.ErrorIs(t, err, ledger.ErrNotOwner)

	receipt, err := f.svc.Withdraw(ctx, owner)
	require.NoError(t, err)
	assert.True(t, receipt.Succeeded())
	assert.Zero(t, f.backend.Contract().Balance().Sign())
}
