package core

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	coreerrors "hashmelody/core/errors"
	"hashmelody/core/events"
	nhbstate "hashmelody/core/state"
	"hashmelody/core/types"
	"hashmelody/native/bank"
	"hashmelody/native/oracle"
	"hashmelody/native/purchase"
	"hashmelody/storage"
)

var (
	testAdmin     = [20]byte{0xa1}
	testTreasury  = [20]byte{0xa2}
	testOracle    = [20]byte{0xa3}
	testCreator   = [20]byte{0xb1}
	testWallet    = [20]byte{0xb2}
	testBuyer     = [20]byte{0xc1}
	testToken     = [20]byte{0xd1}
	testSecret    = []byte("0123456789abcdef0123456789abcdef")
	testTimestamp = int64(1_700_000_000)
)

type eventRecorder struct {
	mu     sync.Mutex
	events []types.Event
}

func (r *eventRecorder) Emit(evt events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *events.Payload(evt))
}

func (r *eventRecorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, evt := range r.events {
		out[i] = evt.Type
	}
	return out
}

func (r *eventRecorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func newTestNode(t *testing.T, db storage.Database) (*Node, *eventRecorder) {
	t.Helper()
	opts := DefaultOptions(testSecret)
	opts.Now = func() int64 { return testTimestamp }
	node, err := NewNode(db, opts)
	require.NoError(t, err)
	rec := &eventRecorder{}
	node.Subscribe(rec)
	return node, rec
}

func setupToken(t *testing.T, node *Node) {
	t.Helper()
	ctx := context.Background()
	_, err := node.InitializePlatform(ctx, testAdmin, testTreasury, testOracle)
	require.NoError(t, err)
	_, err = node.CreateToken(ctx, TokenRequest{
		Token:            testToken,
		Creator:          testCreator,
		CollectionWallet: testWallet,
		MetadataID:       1,
		Name:             "Night Drive",
		URI:              "ipfs://bafy-night-drive",
	})
	require.NoError(t, err)
}

func TestNewNodeRejectsShortSecret(t *testing.T) {
	_, err := NewNode(storage.NewMemDB(), DefaultOptions([]byte("short")))
	require.Error(t, err)
}

func TestCreateTokenBootstrapsAllocations(t *testing.T) {
	node, rec := newTestNode(t, storage.NewMemDB())
	setupToken(t, node)

	creator, err := node.TokenBalance(testToken, testCreator)
	require.NoError(t, err)
	require.Equal(t, uint64(50_000), creator)
	platform, err := node.TokenBalance(testToken, testTreasury)
	require.NoError(t, err)
	require.Equal(t, uint64(50_000), platform)
	supply, err := node.TokenSupply(testToken)
	require.NoError(t, err)
	require.Equal(t, uint64(100_000), supply)

	v, err := node.Vault(testToken)
	require.NoError(t, err)
	require.Equal(t, testWallet, v.CollectionWallet)
	require.Zero(t, v.TotalCollected)

	tokens, err := node.Tokens()
	require.NoError(t, err)
	require.Equal(t, [][20]byte{testToken}, tokens)

	require.Contains(t, rec.kinds(), events.TypeMetadataCreated)
	require.Contains(t, rec.kinds(), events.TypeVaultBound)

	_, err = node.CreateToken(context.Background(), TokenRequest{
		Token:            testToken,
		Creator:          testCreator,
		CollectionWallet: testWallet,
		MetadataID:       1,
		Name:             "Night Drive",
		URI:              "ipfs://bafy-night-drive",
	})
	require.ErrorIs(t, err, ErrTokenExists)
}

func TestCreateTokenRequiresRegistry(t *testing.T) {
	node, rec := newTestNode(t, storage.NewMemDB())
	_, err := node.CreateToken(context.Background(), TokenRequest{
		Token:            testToken,
		Creator:          testCreator,
		CollectionWallet: testWallet,
		MetadataID:       1,
		Name:             "Night Drive",
		URI:              "https://example.com/a",
	})
	require.Error(t, err)
	require.Empty(t, rec.kinds())
	_, err = node.Oracle(testToken)
	require.True(t, IsNotFound(err))
}

func TestPurchaseDefaultToken(t *testing.T) {
	node, rec := newTestNode(t, storage.NewMemDB())
	setupToken(t, node)
	ctx := context.Background()
	_, err := node.Credit(ctx, testBuyer, 5_000_000)
	require.NoError(t, err)

	// The bootstrap supply sits well below the quadratic term's threshold, so
	// the floor still applies.
	quote, err := node.Price(testToken)
	require.NoError(t, err)
	require.Equal(t, oracle.FloorPrice, quote.Price)

	rec.reset()
	receipt, err := node.Purchase(ctx, testBuyer, testToken, 1_000_000)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000), receipt.Price)
	require.Equal(t, uint64(1_000_000), receipt.TotalCost)
	require.Equal(t, uint64(25_000), receipt.PlatformFee)
	require.Equal(t, uint64(975_000), receipt.VaultAmount)
	require.NotEmpty(t, receipt.ID)

	buyer, err := node.Balance(testBuyer)
	require.NoError(t, err)
	require.Equal(t, uint64(4_000_000), buyer)
	treasury, err := node.Balance(testTreasury)
	require.NoError(t, err)
	require.Equal(t, uint64(25_000), treasury)
	wallet, err := node.VaultBalance(testToken)
	require.NoError(t, err)
	require.Equal(t, uint64(975_000), wallet)
	units, err := node.TokenBalance(testToken, testBuyer)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000), units)

	v, err := node.Vault(testToken)
	require.NoError(t, err)
	require.Equal(t, uint64(975_000), v.TotalCollected)
	require.Equal(t, []string{events.TypeTokensIssued, events.TypeTokenPurchased}, rec.kinds())
}

func TestPurchaseSupplyOverflowMovesNothing(t *testing.T) {
	db := storage.NewMemDB()
	node, rec := newTestNode(t, db)
	setupToken(t, node)
	ctx := context.Background()
	_, err := node.Credit(ctx, testBuyer, 1_000_000)
	require.NoError(t, err)
	rec.reset()

	_, err = node.Purchase(ctx, testBuyer, testToken, math.MaxUint64)
	require.ErrorIs(t, err, coreerrors.ErrArithmeticOverflow)
	require.ErrorIs(t, err, purchase.ErrSupplyOverflow)

	buyer, err := node.Balance(testBuyer)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000), buyer)
	treasury, err := node.Balance(testTreasury)
	require.NoError(t, err)
	require.Zero(t, treasury)
	require.Empty(t, rec.kinds())
}

func TestPurchaseIssuanceFailureRollsBack(t *testing.T) {
	db := storage.NewMemDB()
	node, rec := newTestNode(t, db)
	setupToken(t, node)
	ctx := context.Background()
	_, err := node.Credit(ctx, testBuyer, 5_000_000)
	require.NoError(t, err)

	// A saturated holder balance makes issuance fail after both transfers
	// have been applied to the journal.
	require.NoError(t, nhbstate.NewManager(db).PutTokenBalance(testToken, testBuyer, math.MaxUint64))
	rec.reset()

	_, err = node.Purchase(ctx, testBuyer, testToken, 1_000_000)
	require.ErrorIs(t, err, bank.ErrBalanceOverflow)

	buyer, err := node.Balance(testBuyer)
	require.NoError(t, err)
	require.Equal(t, uint64(5_000_000), buyer)
	treasury, err := node.Balance(testTreasury)
	require.NoError(t, err)
	require.Zero(t, treasury)
	wallet, err := node.VaultBalance(testToken)
	require.NoError(t, err)
	require.Zero(t, wallet)
	v, err := node.Vault(testToken)
	require.NoError(t, err)
	require.Zero(t, v.TotalCollected)
	supply, err := node.TokenSupply(testToken)
	require.NoError(t, err)
	require.Equal(t, uint64(100_000), supply)
	require.Empty(t, rec.kinds())
}

func TestUnauthorizedViewUpdateLeavesState(t *testing.T) {
	node, rec := newTestNode(t, storage.NewMemDB())
	setupToken(t, node)
	rec.reset()

	_, err := node.UpdateViewCount(context.Background(), testBuyer, testToken, 10)
	require.ErrorIs(t, err, coreerrors.ErrUnauthorized)
	o, err := node.Oracle(testToken)
	require.NoError(t, err)
	require.Zero(t, o.ViewCount)
	require.Empty(t, rec.kinds())
}

func TestViewCountMonotonic(t *testing.T) {
	node, rec := newTestNode(t, storage.NewMemDB())
	setupToken(t, node)
	ctx := context.Background()

	update, err := node.UpdateViewCount(ctx, testOracle, testToken, 1_000_000_000_000)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000_000_000), update.Oracle.ViewCount)
	require.Contains(t, rec.kinds(), events.TypeOracleUpdated)

	quote, err := node.Price(testToken)
	require.NoError(t, err)
	require.Greater(t, quote.Price, oracle.FloorPrice)

	_, err = node.UpdateViewCount(ctx, testOracle, testToken, 10)
	require.ErrorIs(t, err, oracle.ErrViewCountRegression)
	o, err := node.Oracle(testToken)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000_000_000), o.ViewCount)

	_, err = node.UpdateViewCount(ctx, testOracle, testToken, 1_000_000_000_000)
	require.NoError(t, err)
}

func TestPlatformRotation(t *testing.T) {
	node, _ := newTestNode(t, storage.NewMemDB())
	setupToken(t, node)
	ctx := context.Background()
	newOracle := [20]byte{0xee}

	_, err := node.UpdatePlatform(ctx, testBuyer, testTreasury, &newOracle)
	require.ErrorIs(t, err, coreerrors.ErrUnauthorized)

	reg, err := node.UpdatePlatform(ctx, testAdmin, [20]byte{0xef}, &newOracle)
	require.NoError(t, err)
	require.Equal(t, newOracle, reg.OracleAuthority)

	_, err = node.UpdateViewCount(ctx, testOracle, testToken, 5)
	require.ErrorIs(t, err, coreerrors.ErrUnauthorized)
	_, err = node.UpdateViewCount(ctx, newOracle, testToken, 5)
	require.NoError(t, err)
}

func TestSetLiquidityPoolAdminOnly(t *testing.T) {
	node, _ := newTestNode(t, storage.NewMemDB())
	setupToken(t, node)
	ctx := context.Background()
	pool := [20]byte{0x90}

	_, err := node.SetLiquidityPool(ctx, testCreator, testToken, pool)
	require.ErrorIs(t, err, coreerrors.ErrUnauthorized)
	v, err := node.SetLiquidityPool(ctx, testAdmin, testToken, pool)
	require.NoError(t, err)
	require.NotNil(t, v.LiquidityPool)
	require.Equal(t, pool, *v.LiquidityPool)
}

func TestCanceledContextSkipsTransition(t *testing.T) {
	node, _ := newTestNode(t, storage.NewMemDB())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := node.InitializePlatform(ctx, testAdmin, testTreasury, testOracle)
	require.True(t, errors.Is(err, context.Canceled))
	_, err = node.Registry()
	require.True(t, IsNotFound(err))
}

func TestLevelDBPersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger")
	db, err := storage.NewLevelDB(path)
	require.NoError(t, err)
	node, _ := newTestNode(t, db)
	setupToken(t, node)
	_, err = node.Credit(context.Background(), testBuyer, 2_000_000)
	require.NoError(t, err)
	_, err = node.Purchase(context.Background(), testBuyer, testToken, 1_000_000)
	require.NoError(t, err)
	db.Close()

	reopened, err := storage.NewLevelDB(path)
	require.NoError(t, err)
	defer reopened.Close()
	restarted, _ := newTestNode(t, reopened)
	v, err := restarted.Vault(testToken)
	require.NoError(t, err)
	require.Equal(t, uint64(975_000), v.TotalCollected)
	units, err := restarted.TokenBalance(testToken, testBuyer)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000), units)
}

func TestSingleUnitPurchasesPayQuotedPrice(t *testing.T) {
	node, _ := newTestNode(t, storage.NewMemDB())
	setupToken(t, node)
	ctx := context.Background()
	_, err := node.UpdateViewCount(ctx, testOracle, testToken, 39_999_600_001)
	require.NoError(t, err)
	quote, err := node.Price(testToken)
	require.NoError(t, err)
	require.Equal(t, uint64(1_999_990), quote.Price)
	_, err = node.Credit(ctx, testBuyer, 10_000_000)
	require.NoError(t, err)

	var paid uint64
	for i := 0; i < 1000; i++ {
		receipt, err := node.Purchase(ctx, testBuyer, testToken, 1)
		require.NoError(t, err)
		require.Equal(t, uint64(2), receipt.TotalCost)
		paid += receipt.TotalCost
	}
	bulk, err := purchase.TotalCost(quote.Price, 1000)
	require.NoError(t, err)
	require.GreaterOrEqual(t, paid, bulk)

	// 20 units at 1,999,990 per token is 39.9998, charged as 40.
	receipt, err := node.Purchase(ctx, testBuyer, testToken, 20)
	require.NoError(t, err)
	require.Equal(t, uint64(40), receipt.TotalCost)
	require.Equal(t, uint64(1), receipt.PlatformFee)
	treasury, err := node.Balance(testTreasury)
	require.NoError(t, err)
	require.Equal(t, uint64(1), treasury)
}

type gateSubscriber struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gateSubscriber) Emit(events.Event) {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
}

func TestSlowSubscriberDoesNotHoldState(t *testing.T) {
	node, _ := newTestNode(t, storage.NewMemDB())
	gate := &gateSubscriber{entered: make(chan struct{}), release: make(chan struct{})}
	node.Subscribe(gate)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := node.InitializePlatform(ctx, testAdmin, testTreasury, testOracle)
		done <- err
	}()
	select {
	case <-gate.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber was never called")
	}

	// The registry is committed and the node keeps serving while the
	// subscriber is stuck.
	reg, err := node.Registry()
	require.NoError(t, err)
	require.Equal(t, testTreasury, reg.TreasuryWallet)
	balance, err := node.Credit(ctx, testBuyer, 7)
	require.NoError(t, err)
	require.Equal(t, uint64(7), balance)

	close(gate.release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("initialize did not return after release")
	}
}
