package vault

import (
	"fmt"
	"log/slog"
	"time"

	"hashmelody/core/events"
	"hashmelody/core/types"
	"hashmelody/crypto"
	"hashmelody/native/registry"
)

const escrowCategory = "vault_escrow"

type engineState interface {
	VaultGet(token [20]byte) (*Vault, bool, error)
	VaultPut(vault *Vault) error
	RegistryGet() (*registry.Registry, bool, error)
	GetAccount(addr []byte) (*types.Account, error)
}

// Engine manages token vaults.
type Engine struct {
	state     engineState
	emitter   events.Emitter
	logger    *slog.Logger
	nowFn     func() int64
	threshold uint64
}

// NewEngine constructs a vault engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter:   events.NoopEmitter{},
		logger:    slog.Default(),
		nowFn:     func() int64 { return time.Now().Unix() },
		threshold: DefaultLiquidityThreshold,
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

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

// SetDefaultThreshold overrides the liquidity threshold given to new vaults.
func (e *Engine) SetDefaultThreshold(threshold uint64) { e.threshold = threshold }

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// EscrowAccount returns the deterministic escrow reference of token.
func EscrowAccount(token [20]byte) [20]byte {
	return crypto.DeriveAddress(escrowCategory, token[:])
}

// Initialize creates the vault for token when absent. An existing vault is
// returned unchanged.
func (e *Engine) Initialize(token [20]byte) (*Vault, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	existing, ok, err := e.state.VaultGet(token)
	if err != nil {
		return nil, false, err
	}
	if ok && existing != nil {
		return existing, false, nil
	}
	if e.threshold == 0 {
		return nil, false, ErrZeroThreshold
	}
	vault := &Vault{
		Token:              token,
		EscrowAccount:      EscrowAccount(token),
		LiquidityThreshold: e.threshold,
		CreatedAt:          e.now(),
	}
	if err := e.state.VaultPut(vault); err != nil {
		return nil, false, err
	}
	e.logger.Info("token vault created",
		slog.String("token", crypto.FormatToken(token)),
		slog.String("escrow", crypto.FormatAccount(vault.EscrowAccount)),
		slog.Uint64("liquidity_threshold", vault.LiquidityThreshold))
	return vault.Clone(), true, nil
}

// Get returns the vault for token.
func (e *Engine) Get(token [20]byte) (*Vault, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	vault, ok, err := e.state.VaultGet(token)
	if err != nil {
		return nil, err
	}
	if !ok || vault == nil {
		return nil, fmt.Errorf("%w: %s", ErrVaultNotFound, crypto.FormatToken(token))
	}
	return vault, nil
}

// Setup binds the collection wallet of token. Binding the same wallet twice is
// a no-op; a different wallet is rejected.
func (e *Engine) Setup(token, wallet [20]byte) (*Vault, error) {
	var zero [20]byte
	if wallet == zero {
		return nil, ErrZeroAddress
	}
	vault, err := e.Get(token)
	if err != nil {
		return nil, err
	}
	if vault.Bound() {
		if vault.CollectionWallet == wallet {
			return vault, nil
		}
		return nil, fmt.Errorf("%w: bound to %s", ErrAlreadyBound, crypto.FormatAccount(vault.CollectionWallet))
	}
	vault.CollectionWallet = wallet
	if err := e.state.VaultPut(vault); err != nil {
		return nil, err
	}
	e.logger.Info("vault collection wallet bound",
		slog.String("token", crypto.FormatToken(token)),
		slog.String("collection_wallet", crypto.FormatAccount(wallet)))
	e.emitter.Emit(events.VaultBound{Token: token, EscrowAccount: vault.EscrowAccount, CollectionWallet: wallet})
	return vault.Clone(), nil
}

// Balance returns the live balance of the vault's collection wallet. The
// cached TotalCollected is logged alongside for cross-checking; a mismatch is
// expected once funds leave the wallet.
func (e *Engine) Balance(token [20]byte) (uint64, error) {
	vault, err := e.Get(token)
	if err != nil {
		return 0, err
	}
	if !vault.Bound() {
		return 0, ErrWalletNotBound
	}
	acc, err := e.state.GetAccount(vault.CollectionWallet[:])
	if err != nil {
		return 0, err
	}
	var live uint64
	if acc != nil {
		live = acc.Balance
	}
	attrs := []any{
		slog.String("token", crypto.FormatToken(token)),
		slog.Uint64("live_balance", live),
		slog.Uint64("total_collected", vault.TotalCollected),
	}
	if live != vault.TotalCollected {
		e.logger.Info("vault balance differs from collected total", attrs...)
	} else {
		e.logger.Debug("vault balance", attrs...)
	}
	return live, nil
}

// Credit adds amount to the vault's collected total and reports whether the
// liquidity threshold is met. Reaching the threshold only raises a signal.
func (e *Engine) Credit(token [20]byte, amount uint64) (*Vault, bool, error) {
	vault, err := e.Get(token)
	if err != nil {
		return nil, false, err
	}
	if err := vault.CheckCredit(amount); err != nil {
		return nil, false, err
	}
	wasReady := vault.LiquidityReady()
	vault.TotalCollected += amount
	if err := e.state.VaultPut(vault); err != nil {
		return nil, false, err
	}
	ready := vault.LiquidityReady()
	if ready {
		e.logger.Info("vault liquidity threshold reached",
			slog.String("token", crypto.FormatToken(token)),
			slog.Uint64("total_collected", vault.TotalCollected),
			slog.Uint64("liquidity_threshold", vault.LiquidityThreshold),
			slog.Bool("crossed", !wasReady))
		evt := events.LiquidityReady{
			Token:          token,
			TotalCollected: vault.TotalCollected,
			Threshold:      vault.LiquidityThreshold,
			Crossed:        !wasReady,
		}
		if vault.LiquidityPool != nil {
			pool := *vault.LiquidityPool
			evt.Pool = &pool
		}
		e.emitter.Emit(evt)
	}
	return vault.Clone(), ready, nil
}

// SetLiquidityPool records the pool reference of token. Only the registry
// admin may call it and a recorded pool cannot be replaced.
func (e *Engine) SetLiquidityPool(caller, token, pool [20]byte) (*Vault, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	reg, ok, err := e.state.RegistryGet()
	if err != nil {
		return nil, err
	}
	if !ok || !reg.IsAdmin(caller) {
		return nil, ErrNotAdmin
	}
	var zero [20]byte
	if pool == zero {
		return nil, ErrZeroAddress
	}
	vault, err := e.Get(token)
	if err != nil {
		return nil, err
	}
	if vault.LiquidityPool != nil {
		if *vault.LiquidityPool == pool {
			return vault, nil
		}
		return nil, ErrPoolAlreadySet
	}
	vault.LiquidityPool = &pool
	if err := e.state.VaultPut(vault); err != nil {
		return nil, err
	}
	e.logger.Info("vault liquidity pool recorded",
		slog.String("token", crypto.FormatToken(token)),
		slog.String("pool", crypto.FormatAccount(pool)))
	e.emitter.Emit(events.VaultPoolRecorded{Token: token, Pool: pool})
	return vault.Clone(), nil
}
