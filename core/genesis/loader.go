package genesis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"hashmelody/core"
	"hashmelody/crypto"
)

// ErrAlreadyApplied is returned when the ledger already holds a platform
// registry.
var ErrAlreadyApplied = errors.New("genesis: ledger already initialised")

// Apply seeds node with spec. The registry is created first, then native
// allocations in address order, then tokens in declaration order. A ledger
// that already has a registry is left untouched.
func Apply(ctx context.Context, node *core.Node, spec *GenesisSpec, logger *slog.Logger) error {
	if spec == nil {
		return fmt.Errorf("genesis spec must not be nil")
	}
	if node == nil {
		return fmt.Errorf("node must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := node.Registry(); err == nil {
		return ErrAlreadyApplied
	} else if !core.IsNotFound(err) {
		return fmt.Errorf("inspect registry: %w", err)
	}

	p := spec.platform
	if _, err := node.InitializePlatform(ctx, p.admin, p.treasury, p.oracle); err != nil {
		return fmt.Errorf("initialise platform: %w", err)
	}
	for _, alloc := range spec.alloc {
		if _, err := node.Credit(ctx, alloc.account, alloc.amount); err != nil {
			return fmt.Errorf("alloc %s: %w", crypto.FormatAccount(alloc.account), err)
		}
	}
	for _, entry := range spec.tokens {
		_, err := node.CreateToken(ctx, core.TokenRequest{
			Token:            entry.token,
			Creator:          entry.creator,
			CollectionWallet: entry.wallet,
			MetadataID:       entry.spec.MetadataID,
			Name:             entry.spec.Name,
			URI:              entry.spec.URI,
		})
		if err != nil {
			return fmt.Errorf("token %s: %w", entry.spec.Token, err)
		}
		if entry.spec.Views > 0 {
			if _, err := node.UpdateViewCount(ctx, p.oracle, entry.token, entry.spec.Views); err != nil {
				return fmt.Errorf("token %s views: %w", entry.spec.Token, err)
			}
		}
	}
	logger.Info("genesis applied",
		slog.Int("accounts", len(spec.alloc)),
		slog.Int("tokens", len(spec.tokens)))
	return nil
}
