package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	coreerrors "hashmelody/core/errors"
	"hashmelody/core/events"
	"hashmelody/native/mintauth"
	"hashmelody/native/oracle"
	"hashmelody/native/vault"
	"hashmelody/observability/metrics"
	"hashmelody/storage"
)

// Options configures the ledger engines owned by a Node.
type Options struct {
	// MintSecret is the 32-byte key issuance capabilities are derived from.
	MintSecret             []byte
	PriceParams            oracle.PriceParams
	LiquidityThreshold     uint64
	BootstrapBaseUnits     uint64
	BootstrapAllocationBps uint64
	Logger                 *slog.Logger
	// Now overrides the ledger clock; nil means wall clock seconds.
	Now func() int64
}

// DefaultOptions returns the production defaults with the supplied secret.
func DefaultOptions(secret []byte) Options {
	return Options{
		MintSecret:             secret,
		PriceParams:            oracle.DefaultParams(),
		LiquidityThreshold:     vault.DefaultLiquidityThreshold,
		BootstrapBaseUnits:     mintauth.DefaultBaseUnits,
		BootstrapAllocationBps: mintauth.DefaultAllocationBps,
	}
}

// Node is the central controller. It serialises every state transition,
// journals its writes and commits them atomically before publishing events.
type Node struct {
	db      storage.Database
	opts    Options
	logger  *slog.Logger
	metrics *metrics.LedgerMetrics
	events  events.Fanout
	stateMu sync.Mutex
	emitMu  sync.Mutex // orders event delivery outside stateMu
}

// NewNode wires a node on top of db.
func NewNode(db storage.Database, opts Options) (*Node, error) {
	if db == nil {
		return nil, errors.New("core: database required")
	}
	if len(opts.MintSecret) != 32 {
		return nil, fmt.Errorf("core: mint secret must be 32 bytes, got %d", len(opts.MintSecret))
	}
	if opts.LiquidityThreshold == 0 {
		return nil, errors.New("core: liquidity threshold must be positive")
	}
	if opts.BootstrapBaseUnits == 0 && opts.BootstrapAllocationBps == 0 {
		opts.BootstrapBaseUnits = mintauth.DefaultBaseUnits
		opts.BootstrapAllocationBps = mintauth.DefaultAllocationBps
	}
	if opts.Now == nil {
		opts.Now = func() int64 { return time.Now().Unix() }
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	n := &Node{
		db:      db,
		opts:    opts,
		logger:  logger.With(slog.String("component", "ledger")),
		metrics: metrics.Ledger(),
	}
	n.events.Subscribe(n.metrics)
	return n, nil
}

// Subscribe registers dst for every committed event.
func (n *Node) Subscribe(dst events.Emitter) {
	n.events.Subscribe(dst)
}

// apply runs fn as one transition. Writes and events only become visible if
// fn succeeds and the journal commits. Subscribers run after stateMu is
// released, in commit order.
func (n *Node) apply(ctx context.Context, operation string, fn func(tx *transition) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.stateMu.Lock()
	locked := true
	defer func() {
		if locked {
			n.stateMu.Unlock()
		}
	}()

	start := time.Now()
	tx := n.newTransition(true)
	err := fn(tx)
	if err == nil {
		err = tx.overlay.Commit()
	}
	n.metrics.ObserveTransition(operation, err, time.Since(start))
	if err != nil {
		tx.overlay.Discard()
		n.logger.Warn("transition aborted",
			slog.String("operation", operation),
			slog.String("category", coreerrors.Label(err)),
			slog.Any("error", err))
		return err
	}
	if tx.events.Len() == 0 {
		return nil
	}
	n.emitMu.Lock()
	defer n.emitMu.Unlock()
	n.stateMu.Unlock()
	locked = false
	tx.events.FlushTo(&n.events)
	return nil
}

// view runs fn against the committed state. Writes are discarded.
func (n *Node) view(fn func(tx *transition) error) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	tx := n.newTransition(false)
	defer tx.overlay.Discard()
	return fn(tx)
}
