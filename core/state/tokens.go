package state

const (
	supplyCategory  = "token_supply:"
	balanceCategory = "token_balance:"
)

var tokenIndexKey = []byte("token_index")

// TokenSupply returns the circulating supply of token.
func (m *Manager) TokenSupply(token [20]byte) (uint64, error) {
	var supply uint64
	if _, err := m.KVGet(recordKey(supplyCategory, token[:]), &supply); err != nil {
		return 0, err
	}
	return supply, nil
}

// PutTokenSupply stores the circulating supply of token.
func (m *Manager) PutTokenSupply(token [20]byte, supply uint64) error {
	return m.KVPut(recordKey(supplyCategory, token[:]), supply)
}

// TokenBalance returns the amount of token held by holder.
func (m *Manager) TokenBalance(token [20]byte, holder [20]byte) (uint64, error) {
	var balance uint64
	if _, err := m.KVGet(recordKey(balanceCategory, token[:], holder[:]), &balance); err != nil {
		return 0, err
	}
	return balance, nil
}

// PutTokenBalance stores the amount of token held by holder.
func (m *Manager) PutTokenBalance(token [20]byte, holder [20]byte, amount uint64) error {
	return m.KVPut(recordKey(balanceCategory, token[:], holder[:]), amount)
}

// TokenIndex returns every token created on the ledger in creation order.
func (m *Manager) TokenIndex() ([][20]byte, error) {
	var list [][20]byte
	if _, err := m.KVGet(tokenIndexKey, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// TokenIndexAdd appends token to the index. Duplicates are ignored to keep the
// index deterministic.
func (m *Manager) TokenIndexAdd(token [20]byte) error {
	list, err := m.TokenIndex()
	if err != nil {
		return err
	}
	for _, existing := range list {
		if existing == token {
			return nil
		}
	}
	list = append(list, token)
	return m.KVPut(tokenIndexKey, list)
}
