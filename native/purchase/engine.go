package purchase

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"hashmelody/core/events"
	"hashmelody/core/types"
	"hashmelody/crypto"
	"hashmelody/native/bank"
	"hashmelody/native/metadata"
	"hashmelody/native/mintauth"
	"hashmelody/native/oracle"
	"hashmelody/native/registry"
	"hashmelody/native/vault"
)

var receiptNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("hashmelody.purchase.receipt"))

type engineState interface {
	RegistryGet() (*registry.Registry, bool, error)
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
	TokenMetadataID(token [20]byte) (uint64, bool, error)
	MetadataGet(token [20]byte, id uint64) (*metadata.Metadata, bool, error)
}

type priceSource interface {
	Quote(token [20]byte) (oracle.Quote, error)
}

type vaultKeeper interface {
	Get(token [20]byte) (*vault.Vault, error)
	Credit(token [20]byte, amount uint64) (*vault.Vault, bool, error)
}

// Issuer credits purchased units through a token's mint authority.
type Issuer interface {
	Capability(token [20]byte) (mintauth.Capability, error)
	Issue(capability mintauth.Capability, token [20]byte, allocations []mintauth.Allocation) (uint64, error)
}

// Engine executes token purchases.
type Engine struct {
	state   engineState
	oracle  priceSource
	vaults  vaultKeeper
	issuer  Issuer
	emitter events.Emitter
	logger  *slog.Logger
	nowFn   func() int64
}

// NewEngine constructs a purchase engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetOracle configures the price source.
func (e *Engine) SetOracle(source priceSource) { e.oracle = source }

// SetVaults configures the vault keeper credited with net proceeds.
func (e *Engine) SetVaults(keeper vaultKeeper) { e.vaults = keeper }

// SetIssuer configures the issuance collaborator.
func (e *Engine) SetIssuer(issuer Issuer) { e.issuer = issuer }

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

func (e *Engine) tokenName(token [20]byte) string {
	id, ok, err := e.state.TokenMetadataID(token)
	if err != nil || !ok {
		return ""
	}
	record, ok, err := e.state.MetadataGet(token, id)
	if err != nil || !ok || record == nil {
		return ""
	}
	return record.Name
}

func receiptID(r *Receipt) string {
	var buf [20 + 20 + 8*4]byte
	copy(buf[:20], r.Token[:])
	copy(buf[20:40], r.Buyer[:])
	binary.BigEndian.PutUint64(buf[40:], r.Amount)
	binary.BigEndian.PutUint64(buf[48:], r.SupplyBefore)
	binary.BigEndian.PutUint64(buf[56:], r.TotalCollected)
	binary.BigEndian.PutUint64(buf[64:], uint64(r.Timestamp))
	return uuid.NewSHA1(receiptNamespace, buf[:]).String()
}

// Purchase buys amount units of token for buyer at the current curve price.
// Every check runs before the first transfer; a failure after that point must
// be rolled back by the enclosing transaction.
func (e *Engine) Purchase(buyer, token [20]byte, amount uint64) (*Receipt, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.oracle == nil || e.vaults == nil || e.issuer == nil {
		return nil, errNoCollaborators
	}
	if amount == 0 {
		return nil, ErrZeroAmount
	}
	reg, ok, err := e.state.RegistryGet()
	if err != nil {
		return nil, err
	}
	if !ok || reg == nil {
		return nil, ErrRegistryMissing
	}
	tokenVault, err := e.vaults.Get(token)
	if err != nil {
		return nil, err
	}
	if !tokenVault.Bound() {
		return nil, vault.ErrWalletNotBound
	}

	quote, err := e.oracle.Quote(token)
	if err != nil {
		return nil, err
	}
	supply := quote.Supply
	if supply > math.MaxUint64-amount {
		return nil, fmt.Errorf("%w: supply %d, amount %d, views %d", ErrSupplyOverflow, supply, amount, quote.ViewCount)
	}
	totalCost, err := TotalCost(quote.Price, amount)
	if err != nil {
		return nil, fmt.Errorf("%w (supply %d, views %d)", err, supply, quote.ViewCount)
	}
	fee, net := SplitFee(totalCost)

	balance, err := bank.Balance(e.state, buyer)
	if err != nil {
		return nil, err
	}
	if balance < totalCost {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, balance, totalCost)
	}
	if err := tokenVault.CheckCredit(net); err != nil {
		return nil, err
	}

	if err := bank.Transfer(e.state, buyer, reg.TreasuryWallet, fee); err != nil {
		return nil, err
	}
	if err := bank.Transfer(e.state, buyer, tokenVault.CollectionWallet, net); err != nil {
		return nil, err
	}
	credited, ready, err := e.vaults.Credit(token, net)
	if err != nil {
		return nil, err
	}
	capability, err := e.issuer.Capability(token)
	if err != nil {
		return nil, err
	}
	supplyAfter, err := e.issuer.Issue(capability, token, []mintauth.Allocation{{Account: buyer, Amount: amount, Reason: "purchase"}})
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{
		Token:          token,
		Buyer:          buyer,
		Amount:         amount,
		Price:          quote.Price,
		TotalCost:      totalCost,
		PlatformFee:    fee,
		VaultAmount:    net,
		SupplyBefore:   supply,
		SupplyAfter:    supplyAfter,
		TotalCollected: credited.TotalCollected,
		LiquidityReady: ready,
		Timestamp:      e.now(),
	}
	receipt.ID = receiptID(receipt)

	e.logger.Info("token purchased",
		slog.String("receipt", receipt.ID),
		slog.String("token", crypto.FormatToken(token)),
		slog.String("token_name", e.tokenName(token)),
		slog.String("buyer", crypto.FormatAccount(buyer)),
		slog.Uint64("amount", amount),
		slog.Uint64("price", quote.Price),
		slog.Uint64("total_cost", totalCost),
		slog.Uint64("platform_fee", fee),
		slog.Uint64("vault_amount", net),
		slog.Uint64("supply", supplyAfter),
		slog.Uint64("total_collected", credited.TotalCollected))
	e.emitter.Emit(events.TokenPurchased{
		ReceiptID:      receipt.ID,
		Token:          token,
		Buyer:          buyer,
		Amount:         amount,
		Price:          quote.Price,
		TotalCost:      totalCost,
		PlatformFee:    fee,
		VaultAmount:    net,
		Supply:         supplyAfter,
		TotalCollected: credited.TotalCollected,
		Timestamp:      receipt.Timestamp,
	})
	return receipt, nil
}
