package state

import (
	"fmt"

	"hashmelody/core/types"
)

const accountCategory = "account:"

// GetAccount returns the native account stored under addr. Unknown addresses
// yield an empty account.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	if len(addr) == 0 {
		return nil, fmt.Errorf("address must not be empty")
	}
	account := new(types.Account)
	if _, err := m.KVGet(recordKey(accountCategory, addr), account); err != nil {
		return nil, err
	}
	return account, nil
}

// PutAccount persists the provided account state under the supplied address.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if len(addr) == 0 {
		return fmt.Errorf("address must not be empty")
	}
	if account == nil {
		return fmt.Errorf("nil account")
	}
	return m.KVPut(recordKey(accountCategory, addr), account)
}
