package core

import (
	"context"
	"errors"
	"fmt"

	coreerrors "hashmelody/core/errors"
	"hashmelody/native/bank"
	"hashmelody/native/mintauth"
	"hashmelody/native/oracle"
	"hashmelody/native/purchase"
	"hashmelody/native/registry"
	"hashmelody/native/vault"
)

var (
	// ErrZeroToken is returned when a token identifier is left unset.
	ErrZeroToken = fmt.Errorf("%w: core: token identifier must not be zero", coreerrors.ErrValidation)
	// ErrTokenExists is returned when CreateToken targets a token that has
	// already been bootstrapped.
	ErrTokenExists = fmt.Errorf("%w: core: token already created", coreerrors.ErrValidation)
)

// TokenRequest describes a new token.
type TokenRequest struct {
	Token            [20]byte
	Creator          [20]byte
	CollectionWallet [20]byte
	MetadataID       uint64
	Name             string
	URI              string
}

// TokenSetup is the outcome of CreateToken.
type TokenSetup struct {
	Authority *mintauth.Authority
	Oracle    *oracle.Oracle
	Vault     *vault.Vault
	Bootstrap *mintauth.Bootstrap
}

// InitializePlatform creates the platform registry with caller as admin.
func (n *Node) InitializePlatform(ctx context.Context, caller, treasury, oracleAuthority [20]byte) (*registry.Registry, error) {
	var out *registry.Registry
	err := n.apply(ctx, "registry_initialize", func(tx *transition) error {
		reg, err := tx.registry.Initialize(caller, treasury, oracleAuthority)
		out = reg
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdatePlatform rotates the treasury wallet and optionally the oracle
// authority.
func (n *Node) UpdatePlatform(ctx context.Context, caller, treasury [20]byte, oracleAuthority *[20]byte) (*registry.Registry, error) {
	var out *registry.Registry
	err := n.apply(ctx, "registry_update", func(tx *transition) error {
		reg, err := tx.registry.Update(caller, treasury, oracleAuthority)
		out = reg
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateToken records metadata, creates the mint authority, oracle and vault,
// binds the collection wallet and issues the bootstrap allocations to the
// creator and the platform treasury. Either every step lands or none does.
func (n *Node) CreateToken(ctx context.Context, req TokenRequest) (*TokenSetup, error) {
	if req.Token == ([20]byte{}) {
		return nil, ErrZeroToken
	}
	var out *TokenSetup
	err := n.apply(ctx, "token_create", func(tx *transition) error {
		reg, err := tx.registry.Get()
		if err != nil {
			return err
		}
		if _, ok, err := tx.manager.MintBootstrapGet(req.Token); err != nil {
			return err
		} else if ok {
			return ErrTokenExists
		}
		if _, _, err := tx.metadata.Create(req.Token, req.MetadataID, req.Name, req.URI); err != nil {
			return err
		}
		authority, _, err := tx.mint.Ensure(req.Token)
		if err != nil {
			return err
		}
		orc, _, err := tx.oracle.Initialize(req.Token)
		if err != nil {
			return err
		}
		if _, _, err := tx.vaults.Initialize(req.Token); err != nil {
			return err
		}
		v, err := tx.vaults.Setup(req.Token, req.CollectionWallet)
		if err != nil {
			return err
		}
		boot, err := tx.mint.Bootstrap(req.Token, req.Creator, reg.TreasuryWallet)
		if err != nil {
			return err
		}
		if err := tx.manager.TokenIndexAdd(req.Token); err != nil {
			return err
		}
		out = &TokenSetup{Authority: authority, Oracle: orc, Vault: v, Bootstrap: boot}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateViewCount records a new cumulative view count reported by caller.
func (n *Node) UpdateViewCount(ctx context.Context, caller, token [20]byte, views uint64) (*oracle.Update, error) {
	var out *oracle.Update
	err := n.apply(ctx, "oracle_update", func(tx *transition) error {
		update, err := tx.oracle.UpdateViewCount(caller, token, views)
		out = update
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Purchase buys amount base units of token for buyer.
func (n *Node) Purchase(ctx context.Context, buyer, token [20]byte, amount uint64) (*purchase.Receipt, error) {
	var out *purchase.Receipt
	err := n.apply(ctx, "purchase", func(tx *transition) error {
		receipt, err := tx.purchase.Purchase(buyer, token, amount)
		out = receipt
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetLiquidityPool records the liquidity pool reference of token.
func (n *Node) SetLiquidityPool(ctx context.Context, caller, token, pool [20]byte) (*vault.Vault, error) {
	var out *vault.Vault
	err := n.apply(ctx, "vault_set_pool", func(tx *transition) error {
		v, err := tx.vaults.SetLiquidityPool(caller, token, pool)
		out = v
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Credit adds native currency to addr. It is used by genesis and local
// tooling to fund accounts.
func (n *Node) Credit(ctx context.Context, addr [20]byte, amount uint64) (uint64, error) {
	var balance uint64
	err := n.apply(ctx, "credit", func(tx *transition) error {
		updated, err := bank.Credit(tx.manager, addr, amount)
		balance = updated
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Registry returns the platform registry.
func (n *Node) Registry() (*registry.Registry, error) {
	var out *registry.Registry
	err := n.view(func(tx *transition) error {
		reg, err := tx.registry.Get()
		out = reg
		return err
	})
	return out, err
}

// Price quotes the current unit price of token.
func (n *Node) Price(token [20]byte) (oracle.Quote, error) {
	var out oracle.Quote
	err := n.view(func(tx *transition) error {
		quote, err := tx.oracle.Quote(token)
		out = quote
		return err
	})
	return out, err
}

// Oracle returns the oracle record of token.
func (n *Node) Oracle(token [20]byte) (*oracle.Oracle, error) {
	var out *oracle.Oracle
	err := n.view(func(tx *transition) error {
		o, err := tx.oracle.Get(token)
		out = o
		return err
	})
	return out, err
}

// Vault returns the vault record of token.
func (n *Node) Vault(token [20]byte) (*vault.Vault, error) {
	var out *vault.Vault
	err := n.view(func(tx *transition) error {
		v, err := tx.vaults.Get(token)
		out = v
		return err
	})
	return out, err
}

// VaultBalance returns the live balance of the collection wallet of token.
func (n *Node) VaultBalance(token [20]byte) (uint64, error) {
	var out uint64
	err := n.view(func(tx *transition) error {
		balance, err := tx.vaults.Balance(token)
		out = balance
		return err
	})
	return out, err
}

// Balance returns the native balance of addr.
func (n *Node) Balance(addr [20]byte) (uint64, error) {
	var out uint64
	err := n.view(func(tx *transition) error {
		balance, err := bank.Balance(tx.manager, addr)
		out = balance
		return err
	})
	return out, err
}

// TokenBalance returns the amount of token held by holder.
func (n *Node) TokenBalance(token, holder [20]byte) (uint64, error) {
	var out uint64
	err := n.view(func(tx *transition) error {
		balance, err := tx.manager.TokenBalance(token, holder)
		out = balance
		return err
	})
	return out, err
}

// TokenSupply returns the circulating supply of token.
func (n *Node) TokenSupply(token [20]byte) (uint64, error) {
	var out uint64
	err := n.view(func(tx *transition) error {
		supply, err := tx.manager.TokenSupply(token)
		out = supply
		return err
	})
	return out, err
}

// Tokens lists every created token in creation order.
func (n *Node) Tokens() ([][20]byte, error) {
	var out [][20]byte
	err := n.view(func(tx *transition) error {
		list, err := tx.manager.TokenIndex()
		out = list
		return err
	})
	return out, err
}

// IsNotFound reports whether err means the requested record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, oracle.ErrOracleNotFound) ||
		errors.Is(err, vault.ErrVaultNotFound) ||
		errors.Is(err, registry.ErrNotInitialized)
}
