package mintauth

import (
	"errors"
	"fmt"

	coreerrors "hashmelody/core/errors"
)

var (
	errNilState   = errors.New("mint authority: state not configured")
	errNoSecret   = errors.New("mint authority: engine secret not configured")
	errSecretSize = errors.New("mint authority: secret must be 32 bytes")

	// ErrAuthorityNotFound is returned when the token has no mint authority.
	ErrAuthorityNotFound = fmt.Errorf("%w: mint authority: authority not found", coreerrors.ErrValidation)
	// ErrInvalidCapability is returned when a capability does not match the token's authority.
	ErrInvalidCapability = fmt.Errorf("%w: mint authority: capability rejected", coreerrors.ErrUnauthorized)
	// ErrNoAllocations is returned by Issue without allocations.
	ErrNoAllocations = fmt.Errorf("%w: mint authority: no allocations", coreerrors.ErrValidation)
	// ErrZeroAllocation is returned for an allocation with no amount or recipient.
	ErrZeroAllocation = fmt.Errorf("%w: mint authority: allocation must name a recipient and a positive amount", coreerrors.ErrValidation)
	// ErrAlreadyBootstrapped is returned when the bootstrap issuance ran before.
	ErrAlreadyBootstrapped = fmt.Errorf("%w: mint authority: bootstrap already issued", coreerrors.ErrValidation)
	// ErrBootstrapOverflow is returned when the configured bootstrap amount exceeds 64 bits.
	ErrBootstrapOverflow = fmt.Errorf("%w: mint authority: bootstrap amount overflow", coreerrors.ErrArithmeticOverflow)
)
