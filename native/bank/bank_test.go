package bank

import (
	"errors"
	"math"
	"testing"

	coreerrors "hashmelody/core/errors"
	"hashmelody/core/types"
)

type mockState struct {
	accounts map[string]*types.Account
	supply   map[[20]byte]uint64
	balances map[[40]byte]uint64
}

func newMockState() *mockState {
	return &mockState{
		accounts: make(map[string]*types.Account),
		supply:   make(map[[20]byte]uint64),
		balances: make(map[[40]byte]uint64),
	}
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

func holdingKey(token, holder [20]byte) [40]byte {
	var key [40]byte
	copy(key[:20], token[:])
	copy(key[20:], holder[:])
	return key
}

func (m *mockState) TokenSupply(token [20]byte) (uint64, error) { return m.supply[token], nil }

func (m *mockState) PutTokenSupply(token [20]byte, supply uint64) error {
	m.supply[token] = supply
	return nil
}

func (m *mockState) TokenBalance(token, holder [20]byte) (uint64, error) {
	return m.balances[holdingKey(token, holder)], nil
}

func (m *mockState) PutTokenBalance(token, holder [20]byte, amount uint64) error {
	m.balances[holdingKey(token, holder)] = amount
	return nil
}

func addr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

func TestTransferMovesFunds(t *testing.T) {
	state := newMockState()
	if _, err := Credit(state, addr(1), 100); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := Transfer(state, addr(1), addr(2), 40); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	from, _ := Balance(state, addr(1))
	to, _ := Balance(state, addr(2))
	if from != 60 || to != 40 {
		t.Fatalf("unexpected balances from=%d to=%d", from, to)
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	state := newMockState()
	if _, err := Credit(state, addr(1), 10); err != nil {
		t.Fatalf("credit: %v", err)
	}
	err := Transfer(state, addr(1), addr(2), 11)
	if !errors.Is(err, coreerrors.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if bal, _ := Balance(state, addr(1)); bal != 10 {
		t.Fatalf("balance changed on failed transfer: %d", bal)
	}
}

func TestTransferSelfAndZero(t *testing.T) {
	state := newMockState()
	if _, err := Credit(state, addr(1), 10); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := Transfer(state, addr(1), addr(1), 10); err != nil {
		t.Fatalf("self transfer: %v", err)
	}
	if err := Transfer(state, addr(3), addr(1), 0); err != nil {
		t.Fatalf("zero transfer: %v", err)
	}
	if bal, _ := Balance(state, addr(1)); bal != 10 {
		t.Fatalf("unexpected balance %d", bal)
	}
}

func TestCreditOverflow(t *testing.T) {
	state := newMockState()
	if _, err := Credit(state, addr(1), math.MaxUint64); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := Credit(state, addr(1), 1); !errors.Is(err, coreerrors.ErrArithmeticOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestLedgerMint(t *testing.T) {
	state := newMockState()
	ledger := NewLedger(state)
	token := addr(9)
	supply, err := ledger.Mint(token, addr(1), 500)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if supply != 500 {
		t.Fatalf("expected supply 500, got %d", supply)
	}
	if _, err := ledger.Mint(token, addr(2), 250); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if got, _ := ledger.Supply(token); got != 750 {
		t.Fatalf("expected supply 750, got %d", got)
	}
	if got, _ := ledger.BalanceOf(token, addr(2)); got != 250 {
		t.Fatalf("expected holder balance 250, got %d", got)
	}
}

func TestLedgerMintSupplyOverflow(t *testing.T) {
	state := newMockState()
	token := addr(9)
	state.supply[token] = math.MaxUint64
	ledger := NewLedger(state)
	if _, err := ledger.Mint(token, addr(1), 1); !errors.Is(err, ErrSupplyOverflow) {
		t.Fatalf("expected supply overflow, got %v", err)
	}
	if state.balances[holdingKey(token, addr(1))] != 0 {
		t.Fatalf("balance credited despite overflow")
	}
}
