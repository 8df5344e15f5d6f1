package errors

import stderrors "errors"

// Failure categories shared by every ledger engine. Package level errors wrap
// exactly one of these so callers can branch on the category with errors.Is.
var (
	// ErrValidation marks malformed input: zero amounts, regressed view
	// counts, bad metadata, rebinding attempts.
	ErrValidation = stderrors.New("validation failed")
	// ErrUnauthorized marks a caller that does not hold the required role or
	// issuance capability.
	ErrUnauthorized = stderrors.New("unauthorized")
	// ErrArithmeticOverflow marks a computation whose result does not fit the
	// 64-bit ledger representation.
	ErrArithmeticOverflow = stderrors.New("arithmetic overflow")
	// ErrInsufficientFunds marks a payer whose balance is below the required
	// amount.
	ErrInsufficientFunds = stderrors.New("insufficient funds")
)

// Category returns the taxonomy sentinel wrapped by err, or nil when err does
// not belong to any known category.
func Category(err error) error {
	for _, candidate := range []error{ErrValidation, ErrUnauthorized, ErrArithmeticOverflow, ErrInsufficientFunds} {
		if stderrors.Is(err, candidate) {
			return candidate
		}
	}
	return nil
}

// Label renders the category of err for metrics and log attributes.
func Label(err error) string {
	switch Category(err) {
	case ErrValidation:
		return "validation"
	case ErrUnauthorized:
		return "unauthorized"
	case ErrArithmeticOverflow:
		return "overflow"
	case ErrInsufficientFunds:
		return "insufficient_funds"
	}
	if err == nil {
		return "ok"
	}
	return "internal"
}
