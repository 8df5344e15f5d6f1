package bank

import (
	"errors"
	"fmt"
	"math"

	coreerrors "hashmelody/core/errors"
	"hashmelody/core/types"
)

var (
	errNilState = errors.New("bank: state not configured")

	// ErrInsufficientBalance is returned when the payer cannot cover a transfer.
	ErrInsufficientBalance = fmt.Errorf("%w: bank: insufficient balance", coreerrors.ErrInsufficientFunds)
	// ErrBalanceOverflow is returned when a credit would exceed the 64-bit range.
	ErrBalanceOverflow = fmt.Errorf("%w: bank: balance overflow", coreerrors.ErrArithmeticOverflow)
)

type accountState interface {
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

func loadAccount(state accountState, addr [20]byte) (*types.Account, error) {
	acc, err := state.GetAccount(addr[:])
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return &types.Account{}, nil
	}
	return acc, nil
}

// Balance returns the native balance held by addr.
func Balance(state accountState, addr [20]byte) (uint64, error) {
	if state == nil {
		return 0, errNilState
	}
	acc, err := loadAccount(state, addr)
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

// Transfer moves amount base units from one account to another. A zero amount
// is a no-op.
func Transfer(state accountState, from, to [20]byte, amount uint64) error {
	if state == nil {
		return errNilState
	}
	if amount == 0 {
		return nil
	}
	sender, err := loadAccount(state, from)
	if err != nil {
		return err
	}
	if sender.Balance < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, sender.Balance, amount)
	}
	if from == to {
		return nil
	}
	recipient, err := loadAccount(state, to)
	if err != nil {
		return err
	}
	if recipient.Balance > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}
	sender.Balance -= amount
	recipient.Balance += amount
	if err := state.PutAccount(from[:], sender); err != nil {
		return err
	}
	return state.PutAccount(to[:], recipient)
}

// Credit adds amount to addr without a counterparty. It backs genesis
// allocations and operator funding.
func Credit(state accountState, addr [20]byte, amount uint64) (uint64, error) {
	if state == nil {
		return 0, errNilState
	}
	acc, err := loadAccount(state, addr)
	if err != nil {
		return 0, err
	}
	if acc.Balance > math.MaxUint64-amount {
		return 0, ErrBalanceOverflow
	}
	acc.Balance += amount
	if err := state.PutAccount(addr[:], acc); err != nil {
		return 0, err
	}
	return acc.Balance, nil
}
