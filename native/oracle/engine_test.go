package oracle

import (
	"errors"
	"testing"

	coreerrors "hashmelody/core/errors"
	"hashmelody/core/events"
	"hashmelody/native/registry"
)

type mockState struct {
	oracles map[[20]byte]*Oracle
	reg     *registry.Registry
	supply  map[[20]byte]uint64
}

func newMockState() *mockState {
	return &mockState{
		oracles: make(map[[20]byte]*Oracle),
		supply:  make(map[[20]byte]uint64),
	}
}

func (m *mockState) OracleGet(token [20]byte) (*Oracle, bool, error) {
	oracle, ok := m.oracles[token]
	if !ok {
		return nil, false, nil
	}
	return oracle.Clone(), true, nil
}

func (m *mockState) OraclePut(oracle *Oracle) error {
	m.oracles[oracle.Token] = oracle.Clone()
	return nil
}

func (m *mockState) RegistryGet() (*registry.Registry, bool, error) {
	if m.reg == nil {
		return nil, false, nil
	}
	return m.reg.Clone(), true, nil
}

func (m *mockState) TokenSupply(token [20]byte) (uint64, error) { return m.supply[token], nil }

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

func addr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

var (
	oracleAuthority = addr(0xAA)
	testToken       = addr(0x10)
)

func newTestEngine(t *testing.T) (*Engine, *mockState, *captureEmitter) {
	t.Helper()
	state := newMockState()
	state.reg = &registry.Registry{Admin: addr(1), TreasuryWallet: addr(2), OracleAuthority: oracleAuthority}
	emitter := &captureEmitter{}
	engine := NewEngine()
	engine.SetState(state)
	engine.SetEmitter(emitter)
	now := int64(1_700_000_000)
	engine.SetNowFunc(func() int64 {
		now++
		return now
	})
	if _, created, err := engine.Initialize(testToken); err != nil || !created {
		t.Fatalf("initialize: created=%v err=%v", created, err)
	}
	return engine, state, emitter
}

func TestInitializeIsCreateIfAbsent(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	if _, err := engine.UpdateViewCount(oracleAuthority, testToken, 50); err != nil {
		t.Fatalf("update: %v", err)
	}
	oracle, created, err := engine.Initialize(testToken)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if created {
		t.Fatalf("expected existing oracle to be reused")
	}
	if oracle.ViewCount != 50 || state.oracles[testToken].ViewCount != 50 {
		t.Fatalf("existing oracle overwritten: %+v", oracle)
	}
	if oracle.Params != DefaultParams() {
		t.Fatalf("unexpected params %+v", oracle.Params)
	}
}

func TestUpdateViewCountMonotonic(t *testing.T) {
	engine, state, emitter := newTestEngine(t)
	sequence := []uint64{10, 10, 25, 1_000}
	for _, count := range sequence {
		if _, err := engine.UpdateViewCount(oracleAuthority, testToken, count); err != nil {
			t.Fatalf("update %d: %v", count, err)
		}
	}
	before := *state.oracles[testToken]
	_, err := engine.UpdateViewCount(oracleAuthority, testToken, 999)
	if !errors.Is(err, ErrViewCountRegression) || !errors.Is(err, coreerrors.ErrValidation) {
		t.Fatalf("expected regression validation error, got %v", err)
	}
	if *state.oracles[testToken] != before {
		t.Fatalf("oracle mutated by rejected update")
	}
	if len(emitter.events) != len(sequence) {
		t.Fatalf("expected %d events, got %d", len(sequence), len(emitter.events))
	}
}

func TestUpdateViewCountRefreshesTimestamp(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	first := state.oracles[testToken].LastUpdated
	update, err := engine.UpdateViewCount(oracleAuthority, testToken, 0)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if update.Oracle.LastUpdated <= first {
		t.Fatalf("expected last updated to advance")
	}
	if update.Price != FloorPrice {
		t.Fatalf("expected informational floor price, got %d", update.Price)
	}
}

func TestUpdateViewCountUnauthorized(t *testing.T) {
	engine, state, emitter := newTestEngine(t)
	before := *state.oracles[testToken]
	_, err := engine.UpdateViewCount(addr(0xBB), testToken, 100)
	if !errors.Is(err, ErrNotOracleAuthority) || !errors.Is(err, coreerrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if *state.oracles[testToken] != before {
		t.Fatalf("oracle mutated by unauthorized caller")
	}
	if len(emitter.events) != 0 {
		t.Fatalf("unexpected events %v", emitter.events)
	}
}

func TestUpdateViewCountWithoutRegistry(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	state.reg = nil
	if _, err := engine.UpdateViewCount(oracleAuthority, testToken, 1); !errors.Is(err, coreerrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized without registry, got %v", err)
	}
}

func TestPriceUsesLiveSupply(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	state.supply[testToken] = 10_000_000_000_000_000_000
	price, err := engine.Price(testToken)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if price != 10_000_000 {
		t.Fatalf("expected 10000000, got %d", price)
	}
	if _, err := engine.Price(addr(0x77)); !errors.Is(err, ErrOracleNotFound) {
		t.Fatalf("expected missing oracle error, got %v", err)
	}
}
