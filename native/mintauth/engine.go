package mintauth

import (
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	"github.com/holiman/uint256"
	"lukechampine.com/blake3"

	"hashmelody/core/events"
	"hashmelody/crypto"
	"hashmelody/native/bank"
)

const capabilityDomain = "hashmelody/mint-capability/v1"

type engineState interface {
	MintAuthorityGet(token [20]byte) (*Authority, bool, error)
	MintAuthorityPut(authority *Authority) error
	MintBootstrapGet(token [20]byte) (*Bootstrap, bool, error)
	MintBootstrapPut(record *Bootstrap) error
	TokenSupply(token [20]byte) (uint64, error)
	PutTokenSupply(token [20]byte, supply uint64) error
	TokenBalance(token [20]byte, holder [20]byte) (uint64, error)
	PutTokenBalance(token [20]byte, holder [20]byte, amount uint64) error
}

// Engine owns the issuance capabilities of every token.
type Engine struct {
	state         engineState
	ledger        *bank.Ledger
	emitter       events.Emitter
	logger        *slog.Logger
	nowFn         func() int64
	secret        [32]byte
	hasSecret     bool
	baseUnits     uint64
	allocationBps uint64
}

// NewEngine constructs a mint authority engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter:       events.NoopEmitter{},
		logger:        slog.Default(),
		nowFn:         func() int64 { return time.Now().Unix() },
		baseUnits:     DefaultBaseUnits,
		allocationBps: DefaultAllocationBps,
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) {
	e.state = state
	if state == nil {
		e.ledger = nil
		return
	}
	e.ledger = bank.NewLedger(state)
}

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetLogger configures the structured logger.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetSecret installs the 32-byte key capabilities are derived from.
func (e *Engine) SetSecret(secret []byte) error {
	if len(secret) != len(e.secret) {
		return errSecretSize
	}
	copy(e.secret[:], secret)
	e.hasSecret = true
	return nil
}

// SetBootstrap overrides the nominal base and per-recipient share of the
// bootstrap issuance.
func (e *Engine) SetBootstrap(baseUnits, allocationBps uint64) {
	e.baseUnits = baseUnits
	e.allocationBps = allocationBps
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if !e.hasSecret {
		return errNoSecret
	}
	return nil
}

func (e *Engine) deriveSecret(token [20]byte, salt [32]byte) [32]byte {
	h := blake3.New(32, e.secret[:])
	h.Write([]byte(capabilityDomain))
	h.Write(token[:])
	h.Write(salt[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Ensure creates the mint authority for token when absent. An existing
// authority is returned unchanged.
func (e *Engine) Ensure(token [20]byte) (*Authority, bool, error) {
	if err := e.ready(); err != nil {
		return nil, false, err
	}
	existing, ok, err := e.state.MintAuthorityGet(token)
	if err != nil {
		return nil, false, err
	}
	if ok && existing != nil {
		return existing, false, nil
	}
	created := e.now()
	var seed [28]byte
	copy(seed[:20], token[:])
	binary.BigEndian.PutUint64(seed[20:], uint64(created))
	salt := blake3.Sum256(seed[:])
	secret := e.deriveSecret(token, salt)
	authority := &Authority{
		Token:       token,
		Salt:        salt,
		Fingerprint: blake3.Sum256(secret[:]),
		CreatedAt:   created,
	}
	if err := e.state.MintAuthorityPut(authority); err != nil {
		return nil, false, err
	}
	e.logger.Info("mint authority created", slog.String("token", crypto.FormatToken(token)))
	return authority.Clone(), true, nil
}

// Capability derives the issuance credential of token.
func (e *Engine) Capability(token [20]byte) (Capability, error) {
	if err := e.ready(); err != nil {
		return Capability{}, err
	}
	authority, ok, err := e.state.MintAuthorityGet(token)
	if err != nil {
		return Capability{}, err
	}
	if !ok || authority == nil {
		return Capability{}, fmt.Errorf("%w: %s", ErrAuthorityNotFound, crypto.FormatToken(token))
	}
	return Capability{token: token, secret: e.deriveSecret(token, authority.Salt)}, nil
}

func (e *Engine) verify(capability Capability, token [20]byte) error {
	if capability.token != token {
		return ErrInvalidCapability
	}
	authority, ok, err := e.state.MintAuthorityGet(token)
	if err != nil {
		return err
	}
	if !ok || authority == nil {
		return fmt.Errorf("%w: %s", ErrAuthorityNotFound, crypto.FormatToken(token))
	}
	fingerprint := blake3.Sum256(capability.secret[:])
	if subtle.ConstantTimeCompare(fingerprint[:], authority.Fingerprint[:]) != 1 {
		return ErrInvalidCapability
	}
	return nil
}

// Issue credits every allocation after verifying that capability was issued
// for token. It returns the circulating supply after issuance.
func (e *Engine) Issue(capability Capability, token [20]byte, allocations []Allocation) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if err := e.verify(capability, token); err != nil {
		return 0, err
	}
	if len(allocations) == 0 {
		return 0, ErrNoAllocations
	}
	var zero [20]byte
	for _, alloc := range allocations {
		if alloc.Amount == 0 || alloc.Account == zero {
			return 0, ErrZeroAllocation
		}
	}
	var supply uint64
	for _, alloc := range allocations {
		next, err := e.ledger.Mint(token, alloc.Account, alloc.Amount)
		if err != nil {
			return 0, err
		}
		supply = next
		e.logger.Info("tokens issued",
			slog.String("token", crypto.FormatToken(token)),
			slog.String("recipient", crypto.FormatAccount(alloc.Account)),
			slog.Uint64("amount", alloc.Amount),
			slog.Uint64("supply", supply),
			slog.String("reason", alloc.Reason))
		e.emitter.Emit(events.TokensIssued{
			Token:     token,
			Recipient: alloc.Account,
			Amount:    alloc.Amount,
			Supply:    supply,
			Reason:    alloc.Reason,
		})
	}
	return supply, nil
}

// BootstrapAmount returns the base units credited to each bootstrap recipient.
func (e *Engine) BootstrapAmount() (uint64, error) {
	amount := new(uint256.Int).Mul(uint256.NewInt(e.baseUnits), uint256.NewInt(e.allocationBps))
	amount.Div(amount, uint256.NewInt(bpsDenominator))
	if !amount.IsUint64() {
		return 0, ErrBootstrapOverflow
	}
	return amount.Uint64(), nil
}

// Bootstrap performs the one-time creator and platform issuance of token.
func (e *Engine) Bootstrap(token, creator, platform [20]byte) (*Bootstrap, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if _, ok, err := e.state.MintBootstrapGet(token); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAlreadyBootstrapped
	}
	amount, err := e.BootstrapAmount()
	if err != nil {
		return nil, err
	}
	capability, err := e.Capability(token)
	if err != nil {
		return nil, err
	}
	allocations := []Allocation{
		{Account: creator, Amount: amount, Reason: "bootstrap_creator"},
		{Account: platform, Amount: amount, Reason: "bootstrap_platform"},
	}
	if _, err := e.Issue(capability, token, allocations); err != nil {
		return nil, err
	}
	record := &Bootstrap{
		Token:    token,
		Creator:  creator,
		Platform: platform,
		Amount:   amount,
		IssuedAt: e.now(),
	}
	if err := e.state.MintBootstrapPut(record); err != nil {
		return nil, err
	}
	return record.Clone(), nil
}
