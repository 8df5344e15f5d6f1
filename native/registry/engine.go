package registry

import (
	"log/slog"
	"time"

	"hashmelody/core/events"
	"hashmelody/crypto"
)

type engineState interface {
	RegistryGet() (*Registry, bool, error)
	RegistryPut(reg *Registry) error
}

// Engine manages the platform registry singleton.
type Engine struct {
	state   engineState
	emitter events.Emitter
	logger  *slog.Logger
	nowFn   func() int64
}

// NewEngine constructs a registry engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
		nowFn:   func() int64 { return time.Now().Unix() },
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

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func isZero(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

// Initialize creates the registry. The caller becomes the admin.
func (e *Engine) Initialize(caller, treasury, oracleAuthority [20]byte) (*Registry, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if isZero(caller) || isZero(treasury) || isZero(oracleAuthority) {
		return nil, ErrZeroAddress
	}
	if _, ok, err := e.state.RegistryGet(); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAlreadyInitialized
	}
	now := e.now()
	reg := &Registry{
		TreasuryWallet:  treasury,
		OracleAuthority: oracleAuthority,
		Admin:           caller,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := e.state.RegistryPut(reg); err != nil {
		return nil, err
	}
	e.logger.Info("platform registry initialized",
		slog.String("admin", crypto.FormatAccount(caller)),
		slog.String("treasury", crypto.FormatAccount(treasury)),
		slog.String("oracle_authority", crypto.FormatAccount(oracleAuthority)))
	e.emitter.Emit(events.RegistryInitialized{Admin: caller, Treasury: treasury, OracleAuthority: oracleAuthority})
	return reg.Clone(), nil
}

// Update rotates the treasury wallet and, when newOracle is non-nil, the
// oracle authority. Only the admin may call it.
func (e *Engine) Update(caller, newTreasury [20]byte, newOracle *[20]byte) (*Registry, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	reg, err := e.Get()
	if err != nil {
		return nil, err
	}
	if !reg.IsAdmin(caller) {
		return nil, ErrNotAdmin
	}
	if isZero(newTreasury) || (newOracle != nil && isZero(*newOracle)) {
		return nil, ErrZeroAddress
	}
	previous := reg.TreasuryWallet
	reg.TreasuryWallet = newTreasury
	if newOracle != nil {
		reg.OracleAuthority = *newOracle
	}
	reg.UpdatedAt = e.now()
	if err := e.state.RegistryPut(reg); err != nil {
		return nil, err
	}
	e.logger.Info("platform registry updated",
		slog.String("treasury", crypto.FormatAccount(reg.TreasuryWallet)),
		slog.String("oracle_authority", crypto.FormatAccount(reg.OracleAuthority)),
		slog.Bool("oracle_rotated", newOracle != nil))
	e.emitter.Emit(events.RegistryUpdated{
		Admin:            caller,
		PreviousTreasury: previous,
		Treasury:         reg.TreasuryWallet,
		OracleAuthority:  reg.OracleAuthority,
		OracleRotated:    newOracle != nil,
	})
	return reg.Clone(), nil
}

// Get returns the registry or ErrNotInitialized.
func (e *Engine) Get() (*Registry, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	reg, ok, err := e.state.RegistryGet()
	if err != nil {
		return nil, err
	}
	if !ok || reg == nil {
		return nil, ErrNotInitialized
	}
	return reg, nil
}
