package vault

import (
	"fmt"
	"math"
)

// DefaultLiquidityThreshold is the collected amount, in base units, at which a
// vault signals readiness for a trading pool.
const DefaultLiquidityThreshold uint64 = 10_000_000_000

// Vault escrows the net proceeds of purchases for a single token.
type Vault struct {
	Token              [20]byte  `json:"token"`
	EscrowAccount      [20]byte  `json:"escrowAccount"`
	CollectionWallet   [20]byte  `json:"collectionWallet"`
	LiquidityPool      *[20]byte `json:"liquidityPool,omitempty"`
	LiquidityThreshold uint64    `json:"liquidityThreshold"`
	TotalCollected     uint64    `json:"totalCollected"`
	CreatedAt          int64     `json:"createdAt"`
}

// Clone returns a deep copy of the vault.
func (v *Vault) Clone() *Vault {
	if v == nil {
		return nil
	}
	clone := *v
	if v.LiquidityPool != nil {
		pool := *v.LiquidityPool
		clone.LiquidityPool = &pool
	}
	return &clone
}

// Bound reports whether a collection wallet has been attached.
func (v *Vault) Bound() bool {
	var zero [20]byte
	return v != nil && v.CollectionWallet != zero
}

// LiquidityReady reports whether the collected funds reached the threshold.
func (v *Vault) LiquidityReady() bool {
	return v != nil && v.TotalCollected >= v.LiquidityThreshold
}

// CheckCredit verifies that amount can be added to TotalCollected.
func (v *Vault) CheckCredit(amount uint64) error {
	if v.TotalCollected > math.MaxUint64-amount {
		return fmt.Errorf("%w: collected %d, credit %d", ErrCollectedOverflow, v.TotalCollected, amount)
	}
	return nil
}
