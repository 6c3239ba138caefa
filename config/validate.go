package config

import (
	"fmt"
	"strings"

	"pairamm/core/genesis"
	"pairamm/storage"
)

// Validate checks cross-section consistency: unique tokens and pools, pools
// referencing registered tokens, and well-formed seed balances.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case "", storage.BackendLevelDB, storage.BackendBolt:
	default:
		return fmt.Errorf("storage backend %q not supported", c.StorageBackend)
	}

	tokens := make(map[string]struct{}, len(c.Tokens))
	for _, token := range c.Tokens {
		symbol := strings.ToUpper(strings.TrimSpace(token.Symbol))
		if symbol == "" {
			return fmt.Errorf("tokens: symbol required")
		}
		if _, dup := tokens[symbol]; dup {
			return fmt.Errorf("tokens: duplicate symbol %s", symbol)
		}
		tokens[symbol] = struct{}{}
	}

	for _, balance := range c.Balances {
		symbol := strings.ToUpper(strings.TrimSpace(balance.Token))
		if _, ok := tokens[symbol]; !ok {
			return fmt.Errorf("balances: token %q not registered", balance.Token)
		}
		if _, err := genesis.ParseAccount(balance.Owner); err != nil {
			return fmt.Errorf("balances: owner %q: %w", balance.Owner, err)
		}
	}

	pools := make(map[string]struct{}, len(c.Pools))
	for _, pool := range c.Pools {
		id := pool.ID
		if id == "" {
			return fmt.Errorf("pools: id required")
		}
		if _, dup := pools[id]; dup {
			return fmt.Errorf("pools: duplicate id %s", id)
		}
		pools[id] = struct{}{}
		if _, err := pool.Parameters(); err != nil {
			return fmt.Errorf("pools: %w", err)
		}
		if _, err := pool.AuthorityAddress(); err != nil {
			return fmt.Errorf("pools: %s: %w", id, err)
		}
		for _, symbol := range []string{pool.TokenA, pool.TokenB} {
			if _, ok := tokens[symbol]; !ok {
				return fmt.Errorf("pools: %s: token %s not registered", id, symbol)
			}
		}
	}
	if _, err := c.Genesis(); err != nil {
		return fmt.Errorf("genesis: %w", err)
	}
	return nil
}

// Genesis converts the token, balance and pool sections into the spec applied
// at start-up.
func (c *Config) Genesis() (*genesis.Spec, error) {
	spec := &genesis.Spec{}
	for _, token := range c.Tokens {
		spec.Tokens = append(spec.Tokens, genesis.TokenSpec{
			Symbol:   token.Symbol,
			Name:     token.Name,
			Decimals: token.Decimals,
		})
	}
	for _, balance := range c.Balances {
		owner, err := genesis.ParseAccount(balance.Owner)
		if err != nil {
			return nil, fmt.Errorf("balances: owner %q: %w", balance.Owner, err)
		}
		spec.Balances = append(spec.Balances, genesis.BalanceSpec{
			Token:  balance.Token,
			Owner:  owner,
			Amount: balance.Amount,
		})
	}
	for _, pool := range c.Pools {
		params, err := pool.Parameters()
		if err != nil {
			return nil, err
		}
		authority, err := pool.AuthorityAddress()
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", pool.ID, err)
		}
		spec.Pools = append(spec.Pools, genesis.PoolSpec{ID: pool.ID, Authority: authority, Params: params})
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}
