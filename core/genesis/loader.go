package genesis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"pairamm/core"
	"pairamm/core/state"
	"pairamm/native/amm"
)

// Result reports what Apply changed.
type Result struct {
	TokensRegistered int
	BalancesSeeded   int
	PoolsInitialised []string
}

// Apply brings the executor's state in line with spec. Tokens and vault
// custody are ensured on every start; balances are only minted into a fresh
// ledger; pools that already exist are left untouched.
func Apply(ctx context.Context, exec *core.Executor, spec *Spec, logger *slog.Logger) (*Result, error) {
	if exec == nil {
		return nil, fmt.Errorf("executor must not be nil")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	result := &Result{}

	err := exec.Update(ctx, func(m *state.Manager) error {
		existing, err := m.TokenList()
		if err != nil {
			return err
		}
		fresh := len(existing) == 0

		// 1) Tokens (sorted)
		for _, token := range spec.Tokens {
			meta, err := m.Token(token.Symbol)
			if err != nil {
				return err
			}
			if meta != nil {
				continue
			}
			if err := m.RegisterToken(token.Symbol, token.Name, token.Decimals); err != nil {
				return fmt.Errorf("register token %q: %w", token.Symbol, err)
			}
			result.TokensRegistered++
		}

		// 2) Balances (owner, then symbol)
		if fresh {
			for _, balance := range spec.Balances {
				if err := m.Mint(balance.Token, balance.Owner, balance.Amount); err != nil {
					return fmt.Errorf("balance %s/%s: %w", balance.Owner.Hex(), balance.Token, err)
				}
				result.BalancesSeeded++
			}
		}

		// 3) Vault custody
		for _, pool := range spec.Pools {
			for _, vault := range []struct {
				name string
				addr ethcommon.Address
			}{{"vaultA", pool.Params.VaultA}, {"vaultB", pool.Params.VaultB}} {
				if err := m.SetCustodian(vault.addr, pool.Params.VaultAuthority); err != nil {
					return fmt.Errorf("pool %s %s custody: %w", pool.ID, vault.name, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 4) Pools (sorted by id)
	for _, pool := range spec.Pools {
		_, err := exec.Pool(pool.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, amm.ErrPoolNotInitialised) {
			return nil, fmt.Errorf("load pool %s: %w", pool.ID, err)
		}
		if _, _, err := exec.InitializePool(ctx, pool.ID, pool.Authority, pool.Params); err != nil {
			return nil, fmt.Errorf("initialise pool %s: %w", pool.ID, err)
		}
		result.PoolsInitialised = append(result.PoolsInitialised, pool.ID)
		logger.Info("pool initialised", "pool", pool.ID, "tokenA", pool.Params.TokenA, "tokenB", pool.Params.TokenB)
	}
	return result, nil
}
