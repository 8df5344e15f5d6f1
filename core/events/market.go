package events

import (
	"strconv"

	"hashmelody/core/types"
	"hashmelody/crypto"
)

const (
	TypeRegistryInitialized = "registry.initialized"
	TypeRegistryUpdated     = "registry.updated"
	TypeMetadataCreated     = "metadata.created"
	TypeOracleUpdated       = "oracle.view_count_updated"
	TypeVaultBound          = "vault.bound"
	TypeVaultPoolRecorded   = "vault.pool_recorded"
	TypeLiquidityReady      = "vault.liquidity_ready"
	TypeTokensIssued        = "mint.issued"
	TypeTokenPurchased      = "purchase.completed"
)

func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }

// RegistryInitialized is emitted once when the platform registry is created.
type RegistryInitialized struct {
	Admin           [20]byte
	Treasury        [20]byte
	OracleAuthority [20]byte
}

func (RegistryInitialized) EventType() string { return TypeRegistryInitialized }

func (e RegistryInitialized) Event() *types.Event {
	return &types.Event{
		Type: TypeRegistryInitialized,
		Attributes: map[string]string{
			"admin":           crypto.FormatAccount(e.Admin),
			"treasury":        crypto.FormatAccount(e.Treasury),
			"oracleAuthority": crypto.FormatAccount(e.OracleAuthority),
		},
	}
}

// RegistryUpdated is emitted when the admin rotates the treasury or oracle
// authority.
type RegistryUpdated struct {
	Admin            [20]byte
	PreviousTreasury [20]byte
	Treasury         [20]byte
	OracleAuthority  [20]byte
	OracleRotated    bool
}

func (RegistryUpdated) EventType() string { return TypeRegistryUpdated }

func (e RegistryUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeRegistryUpdated,
		Attributes: map[string]string{
			"admin":            crypto.FormatAccount(e.Admin),
			"previousTreasury": crypto.FormatAccount(e.PreviousTreasury),
			"treasury":         crypto.FormatAccount(e.Treasury),
			"oracleAuthority":  crypto.FormatAccount(e.OracleAuthority),
			"oracleRotated":    strconv.FormatBool(e.OracleRotated),
		},
	}
}

// MetadataCreated is emitted when descriptive token metadata is recorded.
type MetadataCreated struct {
	Token [20]byte
	ID    uint64
	Name  string
	URI   string
}

func (MetadataCreated) EventType() string { return TypeMetadataCreated }

func (e MetadataCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeMetadataCreated,
		Attributes: map[string]string{
			"token": crypto.FormatToken(e.Token),
			"id":    formatUint(e.ID),
			"name":  e.Name,
			"uri":   e.URI,
		},
	}
}

// OracleUpdated is emitted for every accepted view count update. Price is the
// observational quote at the time of the update; it is never persisted.
type OracleUpdated struct {
	Token         [20]byte
	PreviousViews uint64
	Views         uint64
	Supply        uint64
	Price         uint64
	UpdatedAt     int64
}

func (OracleUpdated) EventType() string { return TypeOracleUpdated }

func (e OracleUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeOracleUpdated,
		Attributes: map[string]string{
			"token":         crypto.FormatToken(e.Token),
			"previousViews": formatUint(e.PreviousViews),
			"views":         formatUint(e.Views),
			"supply":        formatUint(e.Supply),
			"price":         formatUint(e.Price),
			"updatedAt":     strconv.FormatInt(e.UpdatedAt, 10),
		},
	}
}

// VaultBound is emitted when a vault's collection wallet is bound.
type VaultBound struct {
	Token            [20]byte
	EscrowAccount    [20]byte
	CollectionWallet [20]byte
}

func (VaultBound) EventType() string { return TypeVaultBound }

func (e VaultBound) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultBound,
		Attributes: map[string]string{
			"token":            crypto.FormatToken(e.Token),
			"escrow":           crypto.FormatAccount(e.EscrowAccount),
			"collectionWallet": crypto.FormatAccount(e.CollectionWallet),
		},
	}
}

// VaultPoolRecorded is emitted when a liquidity pool reference is attached to
// a vault.
type VaultPoolRecorded struct {
	Token [20]byte
	Pool  [20]byte
}

func (VaultPoolRecorded) EventType() string { return TypeVaultPoolRecorded }

func (e VaultPoolRecorded) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultPoolRecorded,
		Attributes: map[string]string{
			"token": crypto.FormatToken(e.Token),
			"pool":  crypto.FormatAccount(e.Pool),
		},
	}
}

// LiquidityReady signals that a vault has collected at least its liquidity
// threshold. Nothing acts on it inside the ledger.
type LiquidityReady struct {
	Token          [20]byte
	TotalCollected uint64
	Threshold      uint64
	Crossed        bool
	Pool           *[20]byte
}

func (LiquidityReady) EventType() string { return TypeLiquidityReady }

func (e LiquidityReady) Event() *types.Event {
	attrs := map[string]string{
		"token":          crypto.FormatToken(e.Token),
		"totalCollected": formatUint(e.TotalCollected),
		"threshold":      formatUint(e.Threshold),
		"crossed":        strconv.FormatBool(e.Crossed),
	}
	if e.Pool != nil {
		attrs["pool"] = crypto.FormatAccount(*e.Pool)
	}
	return &types.Event{Type: TypeLiquidityReady, Attributes: attrs}
}

// TokensIssued is emitted for each credited allocation.
type TokensIssued struct {
	Token     [20]byte
	Recipient [20]byte
	Amount    uint64
	Supply    uint64
	Reason    string
}

func (TokensIssued) EventType() string { return TypeTokensIssued }

func (e TokensIssued) Event() *types.Event {
	return &types.Event{
		Type: TypeTokensIssued,
		Attributes: map[string]string{
			"token":     crypto.FormatToken(e.Token),
			"recipient": crypto.FormatAccount(e.Recipient),
			"amount":    formatUint(e.Amount),
			"supply":    formatUint(e.Supply),
			"reason":    e.Reason,
		},
	}
}

// TokenPurchased summarises a completed purchase.
type TokenPurchased struct {
	ReceiptID      string
	Token          [20]byte
	Buyer          [20]byte
	Amount         uint64
	Price          uint64
	TotalCost      uint64
	PlatformFee    uint64
	VaultAmount    uint64
	Supply         uint64
	TotalCollected uint64
	Timestamp      int64
}

func (TokenPurchased) EventType() string { return TypeTokenPurchased }

func (e TokenPurchased) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenPurchased,
		Attributes: map[string]string{
			"receiptId":      e.ReceiptID,
			"token":          crypto.FormatToken(e.Token),
			"buyer":          crypto.FormatAccount(e.Buyer),
			"amount":         formatUint(e.Amount),
			"price":          formatUint(e.Price),
			"totalCost":      formatUint(e.TotalCost),
			"platformFee":    formatUint(e.PlatformFee),
			"vaultAmount":    formatUint(e.VaultAmount),
			"supply":         formatUint(e.Supply),
			"totalCollected": formatUint(e.TotalCollected),
			"timestamp":      strconv.FormatInt(e.Timestamp, 10),
		},
	}
}
