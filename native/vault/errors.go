package vault

import (
	"errors"
	"fmt"

	coreerrors "hashmelody/core/errors"
)

var (
	errNilState = errors.New("vault engine: state not configured")

	// ErrVaultNotFound is returned when the token has no vault.
	ErrVaultNotFound = fmt.Errorf("%w: vault engine: vault not found", coreerrors.ErrValidation)
	// ErrWalletNotBound is returned when the vault has no collection wallet yet.
	ErrWalletNotBound = fmt.Errorf("%w: vault engine: collection wallet not bound", coreerrors.ErrValidation)
	// ErrAlreadyBound is returned when rebinding a vault to a different wallet.
	ErrAlreadyBound = fmt.Errorf("%w: vault engine: collection wallet already bound", coreerrors.ErrValidation)
	// ErrPoolAlreadySet is returned when replacing a recorded liquidity pool.
	ErrPoolAlreadySet = fmt.Errorf("%w: vault engine: liquidity pool already recorded", coreerrors.ErrValidation)
	// ErrZeroAddress is returned for an unset wallet or pool.
	ErrZeroAddress = fmt.Errorf("%w: vault engine: address must not be zero", coreerrors.ErrValidation)
	// ErrZeroThreshold is returned when a vault would be created without a threshold.
	ErrZeroThreshold = fmt.Errorf("%w: vault engine: liquidity threshold must be positive", coreerrors.ErrValidation)
	// ErrNotAdmin is returned when a non-admin records a liquidity pool.
	ErrNotAdmin = fmt.Errorf("%w: vault engine: caller is not the admin", coreerrors.ErrUnauthorized)
	// ErrCollectedOverflow is returned when TotalCollected would exceed 64 bits.
	ErrCollectedOverflow = fmt.Errorf("%w: vault engine: total collected overflow", coreerrors.ErrArithmeticOverflow)
)
