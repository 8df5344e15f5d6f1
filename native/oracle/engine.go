package oracle

import (
	"fmt"
	"log/slog"
	"time"

	"hashmelody/core/events"
	"hashmelody/crypto"
	"hashmelody/native/registry"
)

type engineState interface {
	OracleGet(token [20]byte) (*Oracle, bool, error)
	OraclePut(oracle *Oracle) error
	RegistryGet() (*registry.Registry, bool, error)
	TokenSupply(token [20]byte) (uint64, error)
}

// Engine maintains per-token view counts and serves price quotes.
type Engine struct {
	state    engineState
	emitter  events.Emitter
	logger   *slog.Logger
	nowFn    func() int64
	defaults PriceParams
}

// NewEngine constructs an oracle engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter:  events.NoopEmitter{},
		logger:   slog.Default(),
		nowFn:    func() int64 { return time.Now().Unix() },
		defaults: DefaultParams(),
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

// SetDefaultParams overrides the coefficients given to new oracles.
func (e *Engine) SetDefaultParams(params PriceParams) { e.defaults = params }

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// Initialize creates the oracle for token when absent. An existing oracle is
// returned unchanged.
func (e *Engine) Initialize(token [20]byte) (*Oracle, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	existing, ok, err := e.state.OracleGet(token)
	if err != nil {
		return nil, false, err
	}
	if ok && existing != nil {
		return existing, false, nil
	}
	oracle := &Oracle{
		Token:       token,
		ViewCount:   0,
		LastUpdated: e.now(),
		Params:      e.defaults,
	}
	if err := e.state.OraclePut(oracle); err != nil {
		return nil, false, err
	}
	e.logger.Info("viewership oracle created",
		slog.String("token", crypto.FormatToken(token)),
		slog.Uint64("k", oracle.Params.K),
		slog.Uint64("m", oracle.Params.M))
	return oracle.Clone(), true, nil
}

// Get returns the oracle for token.
func (e *Engine) Get(token [20]byte) (*Oracle, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	oracle, ok, err := e.state.OracleGet(token)
	if err != nil {
		return nil, err
	}
	if !ok || oracle == nil {
		return nil, fmt.Errorf("%w: %s", ErrOracleNotFound, crypto.FormatToken(token))
	}
	return oracle, nil
}

// Quote evaluates the price of token at its current view count and supply.
func (e *Engine) Quote(token [20]byte) (Quote, error) {
	oracle, err := e.Get(token)
	if err != nil {
		return Quote{}, err
	}
	supply, err := e.state.TokenSupply(token)
	if err != nil {
		return Quote{}, err
	}
	return e.evaluate(token, oracle.ViewCount, supply, oracle.Params)
}

// Price returns the current price of token in base units per whole token.
func (e *Engine) Price(token [20]byte) (uint64, error) {
	q, err := e.Quote(token)
	if err != nil {
		return 0, err
	}
	return q.Price, nil
}

func (e *Engine) evaluate(token [20]byte, viewCount, supply uint64, params PriceParams) (Quote, error) {
	q, err := Evaluate(viewCount, supply, params)
	if err != nil {
		e.logger.Warn("price evaluation failed",
			slog.String("token", crypto.FormatToken(token)),
			slog.Uint64("view_count", viewCount),
			slog.Uint64("supply", supply),
			slog.Any("error", err))
		return q, err
	}
	e.logger.Debug("price evaluated",
		slog.String("token", crypto.FormatToken(token)),
		slog.Uint64("view_count", viewCount),
		slog.Uint64("supply", supply),
		slog.Uint64("k", params.K),
		slog.Uint64("m", params.M),
		slog.Uint64("quadratic_term", q.Quadratic),
		slog.Uint64("views_term", q.Views),
		slog.Uint64("raw", q.Raw),
		slog.Uint64("price", q.Price),
		slog.Bool("floored", q.Floored))
	return q, nil
}

// UpdateViewCount records a new cumulative view count for token. Only the
// registered oracle authority may call it and the count may not decrease.
func (e *Engine) UpdateViewCount(caller, token [20]byte, newCount uint64) (*Update, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	reg, ok, err := e.state.RegistryGet()
	if err != nil {
		return nil, err
	}
	if !ok || !reg.IsOracleAuthority(caller) {
		return nil, fmt.Errorf("%w: %s", ErrNotOracleAuthority, crypto.FormatAccount(caller))
	}
	oracle, err := e.Get(token)
	if err != nil {
		return nil, err
	}
	if newCount < oracle.ViewCount {
		return nil, fmt.Errorf("%w: current %d, proposed %d", ErrViewCountRegression, oracle.ViewCount, newCount)
	}
	supply, err := e.state.TokenSupply(token)
	if err != nil {
		return nil, err
	}
	previous := oracle.ViewCount
	oracle.ViewCount = newCount
	oracle.LastUpdated = e.now()
	if err := e.state.OraclePut(oracle); err != nil {
		return nil, err
	}
	update := &Update{Oracle: oracle.Clone(), PreviousCount: previous, Supply: supply}
	// The quote is informational; a curve overflow must not reject the count.
	if q, err := e.evaluate(token, newCount, supply, oracle.Params); err == nil {
		update.Price = q.Price
	}
	e.logger.Info("view count updated",
		slog.String("token", crypto.FormatToken(token)),
		slog.Uint64("previous", previous),
		slog.Uint64("view_count", newCount),
		slog.Uint64("price", update.Price))
	e.emitter.Emit(events.OracleUpdated{
		Token:         token,
		PreviousViews: previous,
		Views:         newCount,
		Supply:        supply,
		Price:         update.Price,
		UpdatedAt:     oracle.LastUpdated,
	})
	return update, nil
}
