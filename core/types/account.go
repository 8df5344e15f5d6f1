package types

// Account holds the native-currency balance of an address. Balances are kept
// in base units (10^-9 of the native coin) and never go negative.
type Account struct {
	Nonce   uint64 `json:"nonce"`
	Balance uint64 `json:"balance"`
}

// Clone returns a copy of the account. A nil account clones to an empty one.
func (a *Account) Clone() *Account {
	if a == nil {
		return &Account{}
	}
	clone := *a
	return &clone
}
