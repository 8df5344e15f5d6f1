package purchase

import (
	"errors"
	"fmt"

	coreerrors "hashmelody/core/errors"
)

var (
	errNilState        = errors.New("purchase engine: state not configured")
	errNoCollaborators = errors.New("purchase engine: oracle, vault and issuer must be configured")

	// ErrZeroAmount is returned for purchases of zero units.
	ErrZeroAmount = fmt.Errorf("%w: purchase engine: amount must be positive", coreerrors.ErrValidation)
	// ErrRegistryMissing is returned when the platform registry is absent.
	ErrRegistryMissing = fmt.Errorf("%w: purchase engine: platform registry not initialized", coreerrors.ErrValidation)
	// ErrSupplyOverflow is returned when supply plus amount exceeds 64 bits.
	ErrSupplyOverflow = fmt.Errorf("%w: purchase engine: supply overflow", coreerrors.ErrArithmeticOverflow)
	// ErrCostOverflow is returned when the total cost exceeds 64 bits.
	ErrCostOverflow = fmt.Errorf("%w: purchase engine: total cost overflow", coreerrors.ErrArithmeticOverflow)
	// ErrInsufficientFunds is returned when the buyer cannot cover the total cost.
	ErrInsufficientFunds = fmt.Errorf("%w: purchase engine: buyer balance below total cost", coreerrors.ErrInsufficientFunds)
)
