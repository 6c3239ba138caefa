package genesis

import (
	"fmt"
	"sort"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"pairamm/native/amm"
)

// Spec is the initial ledger and pool set applied when a node starts.
type Spec struct {
	Tokens   []TokenSpec
	Balances []BalanceSpec
	Pools    []PoolSpec
}

type TokenSpec struct {
	Symbol   string
	Name     string
	Decimals uint8
}

// BalanceSpec mints Amount of Token to Owner on a fresh ledger.
type BalanceSpec struct {
	Token  string
	Owner  ethcommon.Address
	Amount uint64
}

type PoolSpec struct {
	ID        string
	Authority ethcommon.Address
	Params    amm.InitParams
}

func normaliseSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Validate checks the spec is self-consistent and sorts every section so the
// resulting state does not depend on declaration order.
func (s *Spec) Validate() error {
	if s == nil {
		return fmt.Errorf("genesis spec must not be nil")
	}
	tokens := make(map[string]struct{}, len(s.Tokens))
	for i := range s.Tokens {
		symbol := normaliseSymbol(s.Tokens[i].Symbol)
		if symbol == "" {
			return fmt.Errorf("tokens[%d]: symbol required", i)
		}
		if _, dup := tokens[symbol]; dup {
			return fmt.Errorf("tokens[%d]: duplicate symbol %s", i, symbol)
		}
		tokens[symbol] = struct{}{}
		s.Tokens[i].Symbol = symbol
	}
	for i := range s.Balances {
		symbol := normaliseSymbol(s.Balances[i].Token)
		if _, ok := tokens[symbol]; !ok {
			return fmt.Errorf("balances[%d]: token %q not declared", i, s.Balances[i].Token)
		}
		if s.Balances[i].Owner == (ethcommon.Address{}) {
			return fmt.Errorf("balances[%d]: owner required", i)
		}
		s.Balances[i].Token = symbol
	}
	owners := make(map[ethcommon.Address]struct{}, len(s.Balances))
	for _, balance := range s.Balances {
		owners[balance.Owner] = struct{}{}
	}
	pools := make(map[string]struct{}, len(s.Pools))
	vaults := make(map[ethcommon.Address]string, 2*len(s.Pools))
	for i, pool := range s.Pools {
		id := strings.TrimSpace(pool.ID)
		if id == "" {
			return fmt.Errorf("pools[%d]: id required", i)
		}
		if _, dup := pools[id]; dup {
			return fmt.Errorf("pools[%d]: duplicate id %s", i, id)
		}
		pools[id] = struct{}{}
		if err := pool.Params.Validate(); err != nil {
			return fmt.Errorf("pool %s: %w", id, err)
		}
		for _, symbol := range []string{pool.Params.TokenA, pool.Params.TokenB} {
			if _, ok := tokens[normaliseSymbol(symbol)]; !ok {
				return fmt.Errorf("pool %s: token %s not declared", id, symbol)
			}
		}
		// A vault holds exactly one pool's reserves and nothing else.
		for _, vault := range []ethcommon.Address{pool.Params.VaultA, pool.Params.VaultB} {
			if other, taken := vaults[vault]; taken {
				return fmt.Errorf("pool %s: vault %s already used by pool %s", id, vault.Hex(), other)
			}
			if vault == pool.Params.VaultAuthority || vault == pool.Authority {
				return fmt.Errorf("pool %s: vault %s must differ from the pool and vault authorities", id, vault.Hex())
			}
			if _, seeded := owners[vault]; seeded {
				return fmt.Errorf("pool %s: vault %s must not hold a seeded balance", id, vault.Hex())
			}
			vaults[vault] = id
		}
		s.Pools[i].ID = id
	}

	sort.Slice(s.Tokens, func(i, j int) bool { return s.Tokens[i].Symbol < s.Tokens[j].Symbol })
	sort.SliceStable(s.Balances, func(i, j int) bool {
		a, b := s.Balances[i], s.Balances[j]
		if a.Owner != b.Owner {
			return a.Owner.Hex() < b.Owner.Hex()
		}
		return a.Token < b.Token
	})
	sort.Slice(s.Pools, func(i, j int) bool { return s.Pools[i].ID < s.Pools[j].ID })
	return nil
}
