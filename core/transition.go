package core

import (
	"hashmelody/core/events"
	nhbstate "hashmelody/core/state"
	"hashmelody/native/metadata"
	"hashmelody/native/mintauth"
	"hashmelody/native/oracle"
	"hashmelody/native/purchase"
	"hashmelody/native/registry"
	"hashmelody/native/vault"
)

// transition bundles the engines configured against one journaled view of
// state.
type transition struct {
	overlay  *nhbstate.Overlay
	manager  *nhbstate.Manager
	events   *events.Buffer
	registry *registry.Engine
	oracle   *oracle.Engine
	vaults   *vault.Engine
	mint     *mintauth.Engine
	metadata *metadata.Engine
	purchase *purchase.Engine
}

func (n *Node) newTransition(withEvents bool) *transition {
	overlay := nhbstate.NewOverlay(n.db)
	manager := nhbstate.NewManager(overlay)
	tx := &transition{
		overlay: overlay,
		manager: manager,
		events:  &events.Buffer{},
	}
	var emitter events.Emitter = events.NoopEmitter{}
	if withEvents {
		emitter = tx.events
	}
	logger := n.logger

	tx.registry = registry.NewEngine()
	tx.registry.SetState(manager)
	tx.registry.SetEmitter(emitter)
	tx.registry.SetLogger(logger)
	tx.registry.SetNowFunc(n.opts.Now)

	tx.oracle = oracle.NewEngine()
	tx.oracle.SetState(manager)
	tx.oracle.SetEmitter(emitter)
	tx.oracle.SetLogger(logger)
	tx.oracle.SetNowFunc(n.opts.Now)
	tx.oracle.SetDefaultParams(n.opts.PriceParams)

	tx.vaults = vault.NewEngine()
	tx.vaults.SetState(manager)
	tx.vaults.SetEmitter(emitter)
	tx.vaults.SetLogger(logger)
	tx.vaults.SetNowFunc(n.opts.Now)
	tx.vaults.SetDefaultThreshold(n.opts.LiquidityThreshold)

	tx.mint = mintauth.NewEngine()
	tx.mint.SetState(manager)
	tx.mint.SetEmitter(emitter)
	tx.mint.SetLogger(logger)
	tx.mint.SetNowFunc(n.opts.Now)
	tx.mint.SetBootstrap(n.opts.BootstrapBaseUnits, n.opts.BootstrapAllocationBps)
	// NewNode validated the length.
	_ = tx.mint.SetSecret(n.opts.MintSecret)

	tx.metadata = metadata.NewEngine()
	tx.metadata.SetState(manager)
	tx.metadata.SetEmitter(emitter)
	tx.metadata.SetLogger(logger)
	tx.metadata.SetNowFunc(n.opts.Now)

	tx.purchase = purchase.NewEngine()
	tx.purchase.SetState(manager)
	tx.purchase.SetOracle(tx.oracle)
	tx.purchase.SetVaults(tx.vaults)
	tx.purchase.SetIssuer(tx.mint)
	tx.purchase.SetEmitter(emitter)
	tx.purchase.SetLogger(logger)
	tx.purchase.SetNowFunc(n.opts.Now)
	return tx
}
