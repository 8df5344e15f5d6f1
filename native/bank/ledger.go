package bank

import (
	"errors"
	"fmt"
	"math"

	coreerrors "hashmelody/core/errors"
)

var (
	// ErrSupplyOverflow is returned when issuance would push the circulating
	// supply beyond 64 bits.
	ErrSupplyOverflow = fmt.Errorf("%w: bank: token supply overflow", coreerrors.ErrArithmeticOverflow)
	errZeroIssuance   = errors.New("bank: issuance amount must be positive")
)

type ledgerState interface {
	TokenSupply(token [20]byte) (uint64, error)
	PutTokenSupply(token [20]byte, supply uint64) error
	TokenBalance(token [20]byte, holder [20]byte) (uint64, error)
	PutTokenBalance(token [20]byte, holder [20]byte, amount uint64) error
}

// Ledger tracks circulating supply and holder balances for issued tokens.
// Callers gate access to Mint; the ledger itself performs no authorization.
type Ledger struct {
	state ledgerState
}

// NewLedger binds a ledger to the provided state.
func NewLedger(state ledgerState) *Ledger {
	return &Ledger{state: state}
}

// Supply returns the circulating supply of token.
func (l *Ledger) Supply(token [20]byte) (uint64, error) {
	if l == nil || l.state == nil {
		return 0, errNilState
	}
	return l.state.TokenSupply(token)
}

// BalanceOf returns the amount of token held by holder.
func (l *Ledger) BalanceOf(token, holder [20]byte) (uint64, error) {
	if l == nil || l.state == nil {
		return 0, errNilState
	}
	return l.state.TokenBalance(token, holder)
}

// Mint credits amount units of token to holder and returns the new supply.
func (l *Ledger) Mint(token, holder [20]byte, amount uint64) (uint64, error) {
	if l == nil || l.state == nil {
		return 0, errNilState
	}
	if amount == 0 {
		return 0, errZeroIssuance
	}
	supply, err := l.state.TokenSupply(token)
	if err != nil {
		return 0, err
	}
	if supply > math.MaxUint64-amount {
		return 0, fmt.Errorf("%w: supply %d, amount %d", ErrSupplyOverflow, supply, amount)
	}
	balance, err := l.state.TokenBalance(token, holder)
	if err != nil {
		return 0, err
	}
	if balance > math.MaxUint64-amount {
		return 0, ErrBalanceOverflow
	}
	if err := l.state.PutTokenBalance(token, holder, balance+amount); err != nil {
		return 0, err
	}
	if err := l.state.PutTokenSupply(token, supply+amount); err != nil {
		return 0, err
	}
	return supply + amount, nil
}
