package oracle

import (
	"errors"
	"fmt"

	coreerrors "hashmelody/core/errors"
)

var (
	errNilState = errors.New("oracle engine: state not configured")

	// ErrOracleNotFound is returned when the token has no oracle.
	ErrOracleNotFound = fmt.Errorf("%w: oracle engine: oracle not found", coreerrors.ErrValidation)
	// ErrViewCountRegression is returned when an update would lower the view count.
	ErrViewCountRegression = fmt.Errorf("%w: oracle engine: view count must not decrease", coreerrors.ErrValidation)
	// ErrNotOracleAuthority is returned when the caller is not the registered oracle authority.
	ErrNotOracleAuthority = fmt.Errorf("%w: oracle engine: caller is not the oracle authority", coreerrors.ErrUnauthorized)
	// ErrPriceOverflow is returned when a quote does not fit in 64 bits.
	ErrPriceOverflow = fmt.Errorf("%w: oracle engine: price exceeds 64 bits", coreerrors.ErrArithmeticOverflow)
)
