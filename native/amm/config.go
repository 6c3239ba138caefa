package amm

import (
	"fmt"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Config is the operator-facing description of a pool as it appears in the
// node's TOML file. Addresses are hex encoded.
type Config struct {
	ID                string `toml:"ID"`
	Authority         string `toml:"Authority"`
	TokenA            string `toml:"TokenA"`
	TokenB            string `toml:"TokenB"`
	VaultA            string `toml:"VaultA"`
	VaultB            string `toml:"VaultB"`
	VaultAuthority    string `toml:"VaultAuthority"`
	FeeBps            uint16 `toml:"FeeBps"`
	MaxTradeSize      uint64 `toml:"MaxTradeSize"`
	DailyVolumeLimit  uint64 `toml:"DailyVolumeLimit"`
	MaxSlippageBps    uint16 `toml:"MaxSlippageBps"`
	MaxDeviationBps   uint16 `toml:"MaxDeviationBps"`
	DeviationGuard    bool   `toml:"DeviationGuard"`
	TWAPWindowSeconds int64  `toml:"TWAPWindowSeconds"`
}

// Normalise trims whitespace, upper-cases token symbols and applies defaults.
func (c Config) Normalise() Config {
	cfg := c
	cfg.ID = strings.TrimSpace(c.ID)
	cfg.Authority = strings.TrimSpace(c.Authority)
	cfg.TokenA = strings.ToUpper(strings.TrimSpace(c.TokenA))
	cfg.TokenB = strings.ToUpper(strings.TrimSpace(c.TokenB))
	cfg.VaultA = strings.TrimSpace(c.VaultA)
	cfg.VaultB = strings.TrimSpace(c.VaultB)
	cfg.VaultAuthority = strings.TrimSpace(c.VaultAuthority)
	if cfg.TWAPWindowSeconds <= 0 {
		cfg.TWAPWindowSeconds = DefaultTWAPWindowSeconds
	}
	return cfg
}

// Parameters converts the textual configuration into validated init
// parameters.
func (c Config) Parameters() (InitParams, error) {
	n := c.Normalise()
	params := InitParams{
		TokenA:           n.TokenA,
		TokenB:           n.TokenB,
		FeeBps:           n.FeeBps,
		MaxTradeSize:     n.MaxTradeSize,
		DailyVolumeLimit: n.DailyVolumeLimit,
		MaxSlippageBps:   n.MaxSlippageBps,
		MaxDeviationBps:  n.MaxDeviationBps,
		DeviationGuard:   n.DeviationGuard,
		TWAPWindow:       n.TWAPWindowSeconds,
	}
	var err error
	if params.VaultA, err = parseAddress("VaultA", n.VaultA); err != nil {
		return params, err
	}
	if params.VaultB, err = parseAddress("VaultB", n.VaultB); err != nil {
		return params, err
	}
	if params.VaultAuthority, err = parseAddress("VaultAuthority", n.VaultAuthority); err != nil {
		return params, err
	}
	if err := params.Validate(); err != nil {
		return params, fmt.Errorf("amm: pool %q: %w", n.ID, err)
	}
	return params, nil
}

// AuthorityAddress parses the configured pool authority.
func (c Config) AuthorityAddress() (ethcommon.Address, error) {
	return parseAddress("Authority", strings.TrimSpace(c.Authority))
}

func parseAddress(field, value string) (ethcommon.Address, error) {
	if !ethcommon.IsHexAddress(value) {
		return ethcommon.Address{}, fmt.Errorf("%w: invalid %s %q", ErrInvalidParameter, field, value)
	}
	return ethcommon.HexToAddress(value), nil
}
