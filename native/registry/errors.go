package registry

import (
	"errors"
	"fmt"

	coreerrors "hashmelody/core/errors"
)

var (
	errNilState = errors.New("registry engine: state not configured")

	// ErrNotInitialized is returned when the registry has not been created.
	ErrNotInitialized = errors.New("registry engine: registry not initialized")
	// ErrAlreadyInitialized is returned by a second Initialize call.
	ErrAlreadyInitialized = fmt.Errorf("%w: registry engine: registry already initialized", coreerrors.ErrValidation)
	// ErrZeroAddress is returned when a wallet or authority is left unset.
	ErrZeroAddress = fmt.Errorf("%w: registry engine: address must not be zero", coreerrors.ErrValidation)
	// ErrNotAdmin is returned when a caller other than the admin attempts a rotation.
	ErrNotAdmin = fmt.Errorf("%w: registry engine: caller is not the admin", coreerrors.ErrUnauthorized)
)
