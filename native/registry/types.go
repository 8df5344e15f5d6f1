package registry

// Registry is the platform wide configuration record. Exactly one exists per
// ledger and only Admin may rotate the treasury or oracle authority.
type Registry struct {
	TreasuryWallet  [20]byte `json:"treasuryWallet"`
	OracleAuthority [20]byte `json:"oracleAuthority"`
	Admin           [20]byte `json:"admin"`
	CreatedAt       int64    `json:"createdAt"`
	UpdatedAt       int64    `json:"updatedAt"`
}

// Clone returns a copy of the registry.
func (r *Registry) Clone() *Registry {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}

// IsAdmin reports whether addr is the registry administrator.
func (r *Registry) IsAdmin(addr [20]byte) bool {
	return r != nil && r.Admin == addr
}

// IsOracleAuthority reports whether addr may push view count updates.
func (r *Registry) IsOracleAuthority(addr [20]byte) bool {
	return r != nil && r.OracleAuthority == addr
}
