package oracle

const (
	// DefaultK weights the quadratic supply term.
	DefaultK uint64 = 1
	// DefaultM weights the square root view count term.
	DefaultM uint64 = 100
	// FloorPrice is the minimum quote in base units per whole token.
	FloorPrice uint64 = 1_000_000
)

// PriceParams holds the bonding curve coefficients of a token.
type PriceParams struct {
	K uint64 `json:"k"`
	M uint64 `json:"m"`
}

// DefaultParams returns the coefficients applied to newly created oracles.
func DefaultParams() PriceParams {
	return PriceParams{K: DefaultK, M: DefaultM}
}

// Oracle tracks the cumulative engagement count of a token. ViewCount never
// decreases.
type Oracle struct {
	Token       [20]byte    `json:"token"`
	ViewCount   uint64      `json:"viewCount"`
	LastUpdated int64       `json:"lastUpdated"`
	Params      PriceParams `json:"params"`
}

// Clone returns a copy of the oracle.
func (o *Oracle) Clone() *Oracle {
	if o == nil {
		return nil
	}
	clone := *o
	return &clone
}

// Update describes an accepted view count update. Price is informational and
// reflects the supply at the time of the update.
type Update struct {
	Oracle        *Oracle `json:"oracle"`
	PreviousCount uint64  `json:"previousCount"`
	Supply        uint64  `json:"supply"`
	Price         uint64  `json:"price"`
}
