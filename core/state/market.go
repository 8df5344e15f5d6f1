package state

import (
	"encoding/binary"

	"hashmelody/native/metadata"
	"hashmelody/native/mintauth"
	"hashmelody/native/oracle"
	"hashmelody/native/registry"
	"hashmelody/native/vault"
)

const (
	oracleCategory        = "oracle:"
	vaultCategory         = "vault:"
	mintAuthorityCategory = "mint_authority:"
	mintBootstrapCategory = "mint_bootstrap:"
	metadataCategory      = "metadata:"
	metadataIndexCategory = "metadata_index:"
)

var registryKey = []byte("platform_config")

// RLP has no signed integers or optional fields, so timestamps are stored as
// uint64 and the pool reference as a flag plus address.

type storedRegistry struct {
	TreasuryWallet  [20]byte
	OracleAuthority [20]byte
	Admin           [20]byte
	CreatedAt       uint64
	UpdatedAt       uint64
}

type storedOracle struct {
	Token       [20]byte
	ViewCount   uint64
	LastUpdated uint64
	K           uint64
	M           uint64
}

type storedVault struct {
	Token              [20]byte
	EscrowAccount      [20]byte
	CollectionWallet   [20]byte
	HasPool            bool
	LiquidityPool      [20]byte
	LiquidityThreshold uint64
	TotalCollected     uint64
	CreatedAt          uint64
}

type storedAuthority struct {
	Token       [20]byte
	Salt        [32]byte
	Fingerprint [32]byte
	CreatedAt   uint64
}

type storedBootstrap struct {
	Token    [20]byte
	Creator  [20]byte
	Platform [20]byte
	Amount   uint64
	IssuedAt uint64
}

type storedMetadata struct {
	Token     [20]byte
	ID        uint64
	Name      string
	URI       string
	CreatedAt uint64
}

// RegistryGet returns the platform registry singleton.
func (m *Manager) RegistryGet() (*registry.Registry, bool, error) {
	var stored storedRegistry
	ok, err := m.KVGet(registryKey, &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &registry.Registry{
		TreasuryWallet:  stored.TreasuryWallet,
		OracleAuthority: stored.OracleAuthority,
		Admin:           stored.Admin,
		CreatedAt:       int64(stored.CreatedAt),
		UpdatedAt:       int64(stored.UpdatedAt),
	}, true, nil
}

// RegistryPut stores the platform registry singleton.
func (m *Manager) RegistryPut(reg *registry.Registry) error {
	return m.KVPut(registryKey, &storedRegistry{
		TreasuryWallet:  reg.TreasuryWallet,
		OracleAuthority: reg.OracleAuthority,
		Admin:           reg.Admin,
		CreatedAt:       uint64(reg.CreatedAt),
		UpdatedAt:       uint64(reg.UpdatedAt),
	})
}

// OracleGet returns the viewership oracle of token.
func (m *Manager) OracleGet(token [20]byte) (*oracle.Oracle, bool, error) {
	var stored storedOracle
	ok, err := m.KVGet(recordKey(oracleCategory, token[:]), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &oracle.Oracle{
		Token:       stored.Token,
		ViewCount:   stored.ViewCount,
		LastUpdated: int64(stored.LastUpdated),
		Params:      oracle.PriceParams{K: stored.K, M: stored.M},
	}, true, nil
}

// OraclePut stores a viewership oracle.
func (m *Manager) OraclePut(o *oracle.Oracle) error {
	return m.KVPut(recordKey(oracleCategory, o.Token[:]), &storedOracle{
		Token:       o.Token,
		ViewCount:   o.ViewCount,
		LastUpdated: uint64(o.LastUpdated),
		K:           o.Params.K,
		M:           o.Params.M,
	})
}

// VaultGet returns the vault of token.
func (m *Manager) VaultGet(token [20]byte) (*vault.Vault, bool, error) {
	var stored storedVault
	ok, err := m.KVGet(recordKey(vaultCategory, token[:]), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	v := &vault.Vault{
		Token:              stored.Token,
		EscrowAccount:      stored.EscrowAccount,
		CollectionWallet:   stored.CollectionWallet,
		LiquidityThreshold: stored.LiquidityThreshold,
		TotalCollected:     stored.TotalCollected,
		CreatedAt:          int64(stored.CreatedAt),
	}
	if stored.HasPool {
		pool := stored.LiquidityPool
		v.LiquidityPool = &pool
	}
	return v, true, nil
}

// VaultPut stores a vault.
func (m *Manager) VaultPut(v *vault.Vault) error {
	stored := &storedVault{
		Token:              v.Token,
		EscrowAccount:      v.EscrowAccount,
		CollectionWallet:   v.CollectionWallet,
		LiquidityThreshold: v.LiquidityThreshold,
		TotalCollected:     v.TotalCollected,
		CreatedAt:          uint64(v.CreatedAt),
	}
	if v.LiquidityPool != nil {
		stored.HasPool = true
		stored.LiquidityPool = *v.LiquidityPool
	}
	return m.KVPut(recordKey(vaultCategory, v.Token[:]), stored)
}

// MintAuthorityGet returns the mint authority of token.
func (m *Manager) MintAuthorityGet(token [20]byte) (*mintauth.Authority, bool, error) {
	var stored storedAuthority
	ok, err := m.KVGet(recordKey(mintAuthorityCategory, token[:]), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &mintauth.Authority{
		Token:       stored.Token,
		Salt:        stored.Salt,
		Fingerprint: stored.Fingerprint,
		CreatedAt:   int64(stored.CreatedAt),
	}, true, nil
}

// MintAuthorityPut stores a mint authority.
func (m *Manager) MintAuthorityPut(a *mintauth.Authority) error {
	return m.KVPut(recordKey(mintAuthorityCategory, a.Token[:]), &storedAuthority{
		Token:       a.Token,
		Salt:        a.Salt,
		Fingerprint: a.Fingerprint,
		CreatedAt:   uint64(a.CreatedAt),
	})
}

// MintBootstrapGet returns the bootstrap issuance record of token.
func (m *Manager) MintBootstrapGet(token [20]byte) (*mintauth.Bootstrap, bool, error) {
	var stored storedBootstrap
	ok, err := m.KVGet(recordKey(mintBootstrapCategory, token[:]), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &mintauth.Bootstrap{
		Token:    stored.Token,
		Creator:  stored.Creator,
		Platform: stored.Platform,
		Amount:   stored.Amount,
		IssuedAt: int64(stored.IssuedAt),
	}, true, nil
}

// MintBootstrapPut stores the bootstrap issuance record.
func (m *Manager) MintBootstrapPut(b *mintauth.Bootstrap) error {
	return m.KVPut(recordKey(mintBootstrapCategory, b.Token[:]), &storedBootstrap{
		Token:    b.Token,
		Creator:  b.Creator,
		Platform: b.Platform,
		Amount:   b.Amount,
		IssuedAt: uint64(b.IssuedAt),
	})
}

func metadataKey(token [20]byte, id uint64) []byte {
	var idBytes [8]byte
	binary.BigEndian.PutUint64(idBytes[:], id)
	return recordKey(metadataCategory, token[:], idBytes[:])
}

// MetadataGet returns the metadata record (token, id).
func (m *Manager) MetadataGet(token [20]byte, id uint64) (*metadata.Metadata, bool, error) {
	var stored storedMetadata
	ok, err := m.KVGet(metadataKey(token, id), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &metadata.Metadata{
		Token:     stored.Token,
		ID:        stored.ID,
		Name:      stored.Name,
		URI:       stored.URI,
		CreatedAt: int64(stored.CreatedAt),
	}, true, nil
}

// MetadataPut stores a metadata record. The first record of a token becomes
// its primary record.
func (m *Manager) MetadataPut(record *metadata.Metadata) error {
	if err := m.KVPut(metadataKey(record.Token, record.ID), &storedMetadata{
		Token:     record.Token,
		ID:        record.ID,
		Name:      record.Name,
		URI:       record.URI,
		CreatedAt: uint64(record.CreatedAt),
	}); err != nil {
		return err
	}
	indexKey := recordKey(metadataIndexCategory, record.Token[:])
	ok, err := m.KVGet(indexKey, nil)
	if err != nil || ok {
		return err
	}
	return m.KVPut(indexKey, record.ID)
}

// TokenMetadataID returns the id of the primary metadata record of token.
func (m *Manager) TokenMetadataID(token [20]byte) (uint64, bool, error) {
	var id uint64
	ok, err := m.KVGet(recordKey(metadataIndexCategory, token[:]), &id)
	return id, ok, err
}
