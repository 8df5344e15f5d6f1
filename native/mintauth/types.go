package mintauth

import "fmt"

const (
	// DefaultBaseUnits is the nominal base of the bootstrap issuance, in base
	// units.
	DefaultBaseUnits uint64 = 1_000_000
	// DefaultAllocationBps is the share of the base given to each bootstrap recipient.
	DefaultAllocationBps uint64 = 500

	bpsDenominator = 10_000
)

// Authority is the persisted issuance identity of a token. The capability
// secret is never stored; only its fingerprint is.
type Authority struct {
	Token       [20]byte `json:"token"`
	Salt        [32]byte `json:"salt"`
	Fingerprint [32]byte `json:"fingerprint"`
	CreatedAt   int64    `json:"createdAt"`
}

// Clone returns a copy of the authority.
func (a *Authority) Clone() *Authority {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

// Bootstrap records the one-time creator and platform allocation of a token.
type Bootstrap struct {
	Token    [20]byte `json:"token"`
	Creator  [20]byte `json:"creator"`
	Platform [20]byte `json:"platform"`
	Amount   uint64   `json:"amount"`
	IssuedAt int64    `json:"issuedAt"`
}

// Clone returns a copy of the bootstrap record.
func (b *Bootstrap) Clone() *Bootstrap {
	if b == nil {
		return nil
	}
	clone := *b
	return &clone
}

// Allocation credits Amount base units to Account.
type Allocation struct {
	Account [20]byte
	Amount  uint64
	Reason  string
}

// Capability is the opaque credential that authorizes issuance for a single
// token. It can only be obtained from an Engine.
type Capability struct {
	token  [20]byte
	secret [32]byte
}

// Token returns the token the capability is scoped to.
func (c Capability) Token() [20]byte { return c.token }

// String never reveals the secret.
func (c Capability) String() string {
	return fmt.Sprintf("mintauth.Capability{token: %x, secret: [redacted]}", c.token)
}

// GoString never reveals the secret.
func (c Capability) GoString() string { return c.String() }
