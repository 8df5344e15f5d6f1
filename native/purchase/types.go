package purchase

const (
	// PlatformFeeNumerator and PlatformFeeDenominator define the 2.5% treasury cut.
	PlatformFeeNumerator   uint64 = 25
	PlatformFeeDenominator uint64 = 1000
	// UnitsPerToken is the number of base units a quoted price covers.
	UnitsPerToken uint64 = 1_000_000
)

// Receipt describes a completed purchase.
type Receipt struct {
	ID             string   `json:"id"`
	Token          [20]byte `json:"token"`
	Buyer          [20]byte `json:"buyer"`
	Amount         uint64   `json:"amount"`
	Price          uint64   `json:"price"`
	TotalCost      uint64   `json:"totalCost"`
	PlatformFee    uint64   `json:"platformFee"`
	VaultAmount    uint64   `json:"vaultAmount"`
	SupplyBefore   uint64   `json:"supplyBefore"`
	SupplyAfter    uint64   `json:"supplyAfter"`
	TotalCollected uint64   `json:"totalCollected"`
	LiquidityReady bool     `json:"liquidityReady"`
	Timestamp      int64    `json:"timestamp"`
}
