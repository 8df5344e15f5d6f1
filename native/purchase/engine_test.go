package purchase

import (
	"errors"
	"math"
	"testing"

	coreerrors "hashmelody/core/errors"
	"hashmelody/core/events"
	"hashmelody/core/types"
	"hashmelody/native/metadata"
	"hashmelody/native/mintauth"
	"hashmelody/native/oracle"
	"hashmelody/native/registry"
	"hashmelody/native/vault"
)

type holding struct {
	token  [20]byte
	holder [20]byte
}

type mockState struct {
	reg         *registry.Registry
	accounts    map[string]*types.Account
	oracles     map[[20]byte]*oracle.Oracle
	vaults      map[[20]byte]*vault.Vault
	authorities map[[20]byte]*mintauth.Authority
	bootstraps  map[[20]byte]*mintauth.Bootstrap
	supply      map[[20]byte]uint64
	balances    map[holding]uint64
	names       map[[20]byte]*metadata.Metadata
}

func newMockState() *mockState {
	return &mockState{
		accounts:    make(map[string]*types.Account),
		oracles:     make(map[[20]byte]*oracle.Oracle),
		vaults:      make(map[[20]byte]*vault.Vault),
		authorities: make(map[[20]byte]*mintauth.Authority),
		bootstraps:  make(map[[20]byte]*mintauth.Bootstrap),
		supply:      make(map[[20]byte]uint64),
		balances:    make(map[holding]uint64),
		names:       make(map[[20]byte]*metadata.Metadata),
	}
}

func (m *mockState) RegistryGet() (*registry.Registry, bool, error) {
	if m.reg == nil {
		return nil, false, nil
	}
	return m.reg.Clone(), true, nil
}

func (m *mockState) GetAccount(addr []byte) (*types.Account, error) {
	acc, ok := m.accounts[string(addr)]
	if !ok {
		return &types.Account{}, nil
	}
	return acc.Clone(), nil
}

func (m *mockState) PutAccount(addr []byte, account *types.Account) error {
	m.accounts[string(addr)] = account.Clone()
	return nil
}

func (m *mockState) TokenMetadataID(token [20]byte) (uint64, bool, error) {
	record, ok := m.names[token]
	if !ok {
		return 0, false, nil
	}
	return record.ID, true, nil
}

func (m *mockState) MetadataGet(token [20]byte, id uint64) (*metadata.Metadata, bool, error) {
	record, ok := m.names[token]
	if !ok || record.ID != id {
		return nil, false, nil
	}
	return record.Clone(), true, nil
}

func (m *mockState) OracleGet(token [20]byte) (*oracle.Oracle, bool, error) {
	o, ok := m.oracles[token]
	if !ok {
		return nil, false, nil
	}
	return o.Clone(), true, nil
}

func (m *mockState) OraclePut(o *oracle.Oracle) error {
	m.oracles[o.Token] = o.Clone()
	return nil
}

func (m *mockState) VaultGet(token [20]byte) (*vault.Vault, bool, error) {
	v, ok := m.vaults[token]
	if !ok {
		return nil, false, nil
	}
	return v.Clone(), true, nil
}

func (m *mockState) VaultPut(v *vault.Vault) error {
	m.vaults[v.Token] = v.Clone()
	return nil
}

func (m *mockState) MintAuthorityGet(token [20]byte) (*mintauth.Authority, bool, error) {
	a, ok := m.authorities[token]
	if !ok {
		return nil, false, nil
	}
	return a.Clone(), true, nil
}

func (m *mockState) MintAuthorityPut(a *mintauth.Authority) error {
	m.authorities[a.Token] = a.Clone()
	return nil
}

func (m *mockState) MintBootstrapGet(token [20]byte) (*mintauth.Bootstrap, bool, error) {
	b, ok := m.bootstraps[token]
	if !ok {
		return nil, false, nil
	}
	return b.Clone(), true, nil
}

func (m *mockState) MintBootstrapPut(b *mintauth.Bootstrap) error {
	m.bootstraps[b.Token] = b.Clone()
	return nil
}

func (m *mockState) TokenSupply(token [20]byte) (uint64, error) { return m.supply[token], nil }

func (m *mockState) PutTokenSupply(token [20]byte, supply uint64) error {
	m.supply[token] = supply
	return nil
}

func (m *mockState) TokenBalance(token, holder [20]byte) (uint64, error) {
	return m.balances[holding{token, holder}], nil
}

func (m *mockState) PutTokenBalance(token, holder [20]byte, amount uint64) error {
	m.balances[holding{token, holder}] = amount
	return nil
}

func (m *mockState) balance(addr [20]byte) uint64 {
	acc, ok := m.accounts[string(addr[:])]
	if !ok {
		return 0
	}
	return acc.Balance
}

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

func (c *captureEmitter) kinds() []string {
	out := make([]string, len(c.events))
	for i, evt := range c.events {
		out[i] = evt.EventType()
	}
	return out
}

type failingIssuer struct {
	Issuer
}

func (failingIssuer) Issue(mintauth.Capability, [20]byte, []mintauth.Allocation) (uint64, error) {
	return 0, errors.New("issuance unavailable")
}

func addr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

var (
	admin      = addr(0x01)
	treasury   = addr(0x02)
	oracleAuth = addr(0x03)
	wallet     = addr(0x04)
	buyer      = addr(0x05)
	testToken  = addr(0x10)
)

type fixture struct {
	state   *mockState
	engine  *Engine
	oracle  *oracle.Engine
	vaults  *vault.Engine
	mint    *mintauth.Engine
	emitter *captureEmitter
}

func newFixture(t *testing.T, threshold uint64) *fixture {
	t.Helper()
	state := newMockState()
	state.reg = &registry.Registry{Admin: admin, TreasuryWallet: treasury, OracleAuthority: oracleAuth}
	emitter := &captureEmitter{}
	now := func() int64 { return 1_700_000_000 }

	oracles := oracle.NewEngine()
	oracles.SetState(state)
	oracles.SetEmitter(emitter)
	oracles.SetNowFunc(now)

	vaults := vault.NewEngine()
	vaults.SetState(state)
	vaults.SetEmitter(emitter)
	vaults.SetNowFunc(now)
	vaults.SetDefaultThreshold(threshold)

	mint := mintauth.NewEngine()
	mint.SetState(state)
	mint.SetEmitter(emitter)
	mint.SetNowFunc(now)
	if err := mint.SetSecret(make([]byte, 32)); err != nil {
		t.Fatalf("set secret: %v", err)
	}

	if _, _, err := oracles.Initialize(testToken); err != nil {
		t.Fatalf("oracle init: %v", err)
	}
	if _, _, err := vaults.Initialize(testToken); err != nil {
		t.Fatalf("vault init: %v", err)
	}
	if _, err := vaults.Setup(testToken, wallet); err != nil {
		t.Fatalf("vault setup: %v", err)
	}
	if _, _, err := mint.Ensure(testToken); err != nil {
		t.Fatalf("mint ensure: %v", err)
	}
	emitter.events = nil

	engine := NewEngine()
	engine.SetState(state)
	engine.SetOracle(oracles)
	engine.SetVaults(vaults)
	engine.SetIssuer(mint)
	engine.SetEmitter(emitter)
	engine.SetNowFunc(now)
	return &fixture{state: state, engine: engine, oracle: oracles, vaults: vaults, mint: mint, emitter: emitter}
}

func (f *fixture) fund(addr [20]byte, amount uint64) {
	f.state.accounts[string(addr[:])] = &types.Account{Balance: amount}
}

func TestPurchaseDefaultToken(t *testing.T) {
	f := newFixture(t, vault.DefaultLiquidityThreshold)
	f.fund(buyer, 2_000_000)
	receipt, err := f.engine.Purchase(buyer, testToken, 1_000_000)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if receipt.Price != 1_000_000 || receipt.TotalCost != 1_000_000 {
		t.Fatalf("unexpected price/cost %d/%d", receipt.Price, receipt.TotalCost)
	}
	if receipt.PlatformFee != 25_000 || receipt.VaultAmount != 975_000 {
		t.Fatalf("unexpected split %d/%d", receipt.PlatformFee, receipt.VaultAmount)
	}
	if f.state.vaults[testToken].TotalCollected != 975_000 || receipt.TotalCollected != 975_000 {
		t.Fatalf("unexpected total collected %d", f.state.vaults[testToken].TotalCollected)
	}
	if got := f.state.balances[holding{testToken, buyer}]; got != 1_000_000 {
		t.Fatalf("buyer received %d units", got)
	}
	if f.state.balance(buyer) != 1_000_000 || f.state.balance(treasury) != 25_000 || f.state.balance(wallet) != 975_000 {
		t.Fatalf("unexpected native balances buyer=%d treasury=%d wallet=%d",
			f.state.balance(buyer), f.state.balance(treasury), f.state.balance(wallet))
	}
	if receipt.SupplyBefore != 0 || receipt.SupplyAfter != 1_000_000 || receipt.LiquidityReady {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if receipt.ID == "" {
		t.Fatalf("expected receipt id")
	}
	got := f.emitter.kinds()
	if len(got) != 2 || got[0] != events.TypeTokensIssued || got[1] != events.TypeTokenPurchased {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestPurchaseZeroAmount(t *testing.T) {
	f := newFixture(t, vault.DefaultLiquidityThreshold)
	f.fund(buyer, 1_000)
	if _, err := f.engine.Purchase(buyer, testToken, 0); !errors.Is(err, coreerrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPurchaseSupplyOverflowMovesNoFunds(t *testing.T) {
	f := newFixture(t, vault.DefaultLiquidityThreshold)
	f.fund(buyer, math.MaxUint64)
	f.state.supply[testToken] = math.MaxUint64 - 5
	_, err := f.engine.Purchase(buyer, testToken, 10)
	if !errors.Is(err, ErrSupplyOverflow) || !errors.Is(err, coreerrors.ErrArithmeticOverflow) {
		t.Fatalf("expected supply overflow, got %v", err)
	}
	if f.state.balance(buyer) != math.MaxUint64 || f.state.balance(treasury) != 0 || f.state.balance(wallet) != 0 {
		t.Fatalf("funds moved on overflow")
	}
	if f.state.vaults[testToken].TotalCollected != 0 {
		t.Fatalf("vault credited on overflow")
	}
}

func TestPurchaseCostOverflow(t *testing.T) {
	f := newFixture(t, vault.DefaultLiquidityThreshold)
	f.fund(buyer, math.MaxUint64)
	if _, err := f.oracle.UpdateViewCount(oracleAuth, testToken, math.MaxUint64); err != nil {
		t.Fatalf("update views: %v", err)
	}
	_, err := f.engine.Purchase(buyer, testToken, math.MaxUint64/2)
	if !errors.Is(err, ErrCostOverflow) {
		t.Fatalf("expected cost overflow, got %v", err)
	}
	if f.state.balance(treasury) != 0 {
		t.Fatalf("funds moved on overflow")
	}
}

func TestPurchaseInsufficientFunds(t *testing.T) {
	f := newFixture(t, vault.DefaultLiquidityThreshold)
	f.fund(buyer, 999_999)
	_, err := f.engine.Purchase(buyer, testToken, 1_000_000)
	if !errors.Is(err, coreerrors.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if f.state.balance(buyer) != 999_999 {
		t.Fatalf("buyer charged on failed purchase")
	}
}

func TestPurchaseRequiresBoundVault(t *testing.T) {
	f := newFixture(t, vault.DefaultLiquidityThreshold)
	other := addr(0x11)
	if _, _, err := f.oracle.Initialize(other); err != nil {
		t.Fatalf("oracle init: %v", err)
	}
	if _, _, err := f.vaults.Initialize(other); err != nil {
		t.Fatalf("vault init: %v", err)
	}
	f.fund(buyer, 10_000_000)
	if _, err := f.engine.Purchase(buyer, other, 1); !errors.Is(err, vault.ErrWalletNotBound) {
		t.Fatalf("expected unbound vault error, got %v", err)
	}
}

func TestPurchaseSignalsLiquidity(t *testing.T) {
	f := newFixture(t, 900_000)
	f.fund(buyer, 2_000_000)
	receipt, err := f.engine.Purchase(buyer, testToken, 1_000_000)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if !receipt.LiquidityReady {
		t.Fatalf("expected liquidity ready")
	}
	got := f.emitter.kinds()
	if len(got) != 3 || got[0] != events.TypeLiquidityReady {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestPurchaseSurfacesIssuerFailure(t *testing.T) {
	f := newFixture(t, vault.DefaultLiquidityThreshold)
	f.fund(buyer, 2_000_000)
	f.engine.SetIssuer(failingIssuer{Issuer: f.mint})
	if _, err := f.engine.Purchase(buyer, testToken, 1_000_000); err == nil {
		t.Fatalf("expected issuance failure")
	}
	for _, kind := range f.emitter.kinds() {
		if kind == events.TypeTokenPurchased {
			t.Fatalf("purchase event emitted despite failure")
		}
	}
}

func TestPurchasePriceRisesWithSupply(t *testing.T) {
	f := newFixture(t, vault.DefaultLiquidityThreshold)
	f.fund(buyer, math.MaxUint64)
	f.state.supply[testToken] = 10_000_000_000_000_000_000
	receipt, err := f.engine.Purchase(buyer, testToken, 2_000_000)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if receipt.Price != 10_000_000 || receipt.TotalCost != 20_000_000 {
		t.Fatalf("unexpected price %d cost %d", receipt.Price, receipt.TotalCost)
	}
}
