package amm

import (
	"fmt"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	// MaxFeeBps caps the trading fee at 1%.
	MaxFeeBps = 100
	// MaxSlippageBps caps the configurable slippage tolerance at 10%.
	MaxSlippageBps = 1000
	// DefaultTWAPWindowSeconds is applied when a pool is initialised without an explicit window.
	DefaultTWAPWindowSeconds = 15 * 60
	// VolumeBucketSeconds is the length of the daily volume bucket.
	VolumeBucketSeconds = 86_400
)

// Direction selects which reserve receives the swap input.
type Direction uint8

const (
	DirectionAToB Direction = iota + 1
	DirectionBToA
)

func (d Direction) Valid() bool {
	return d == DirectionAToB || d == DirectionBToA
}

func (d Direction) String() string {
	switch d {
	case DirectionAToB:
		return "a_to_b"
	case DirectionBToA:
		return "b_to_a"
	default:
		return "unknown"
	}
}

// ParseDirection accepts the canonical labels plus a few common spellings.
func ParseDirection(value string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "a_to_b", "a->b", "ab":
		return DirectionAToB, nil
	case "b_to_a", "b->a", "ba":
		return DirectionBToA, nil
	default:
		return 0, fmt.Errorf("%w: direction %q", ErrInvalidParameter, value)
	}
}

// Pool is the reserve, parameter and TWAP state of one trading pair. The
// engine treats token and vault handles as opaque identities.
type Pool struct {
	ID             string
	Authority      ethcommon.Address
	TokenA         string
	TokenB         string
	VaultA         ethcommon.Address
	VaultB         ethcommon.Address
	VaultAuthority ethcommon.Address

	ReserveA       uint64
	ReserveB       uint64
	TotalLiquidity uint64

	FeeBps           uint16
	MaxTradeSize     uint64
	DailyVolumeLimit uint64
	MaxSlippageBps   uint16
	MaxDeviationBps  uint16
	DeviationGuard   bool

	TradingPaused   bool
	DailyVolume     uint64
	LastVolumeReset int64

	TWAPWindow       int64
	PriceCumulativeA uint256.Int
	PriceCumulativeB uint256.Int
	LastTWAPUpdate   int64
	TWAPA            uint64
	TWAPB            uint64
}

// Clone returns an independent copy; every field is a value type.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// HasLiquidity reports whether both reserves can be divided by.
func (p *Pool) HasLiquidity() bool {
	return p != nil && p.ReserveA > 0 && p.ReserveB > 0
}

// reserves returns (in, out) for the given direction.
func (p *Pool) reserves(dir Direction) (uint64, uint64) {
	if dir == DirectionAToB {
		return p.ReserveA, p.ReserveB
	}
	return p.ReserveB, p.ReserveA
}

func (p *Pool) setReserves(dir Direction, in, out uint64) {
	if dir == DirectionAToB {
		p.ReserveA, p.ReserveB = in, out
		return
	}
	p.ReserveB, p.ReserveA = in, out
}

type side struct {
	token string
	vault ethcommon.Address
}

func (p *Pool) sides(dir Direction) (side, side) {
	a := side{token: p.TokenA, vault: p.VaultA}
	b := side{token: p.TokenB, vault: p.VaultB}
	if dir == DirectionAToB {
		return a, b
	}
	return b, a
}

// TraderRecord remembers the last tick at which a trader swapped against a pool.
type TraderRecord struct {
	LastTradeTick uint64
}

// InitParams configures a new pool.
type InitParams struct {
	TokenA           string
	TokenB           string
	VaultA           ethcommon.Address
	VaultB           ethcommon.Address
	VaultAuthority   ethcommon.Address
	FeeBps           uint16
	MaxTradeSize     uint64
	DailyVolumeLimit uint64
	MaxSlippageBps   uint16
	MaxDeviationBps  uint16
	DeviationGuard   bool
	TWAPWindow       int64
}

// Validate checks the bounds enforced at initialisation.
func (p InitParams) Validate() error {
	if p.FeeBps > MaxFeeBps {
		return ErrFeeTooHigh
	}
	if p.MaxSlippageBps > MaxSlippageBps {
		return ErrSlippageTooHigh
	}
	if p.MaxDeviationBps > basisPoints {
		return fmt.Errorf("%w: max deviation %d bps exceeds %d", ErrInvalidParameter, p.MaxDeviationBps, basisPoints)
	}
	if strings.TrimSpace(p.TokenA) == "" || strings.TrimSpace(p.TokenB) == "" {
		return fmt.Errorf("%w: token symbols required", ErrInvalidParameter)
	}
	if strings.EqualFold(strings.TrimSpace(p.TokenA), strings.TrimSpace(p.TokenB)) {
		return fmt.Errorf("%w: tokens must differ", ErrInvalidParameter)
	}
	if p.VaultA == (ethcommon.Address{}) || p.VaultB == (ethcommon.Address{}) || p.VaultA == p.VaultB {
		return fmt.Errorf("%w: vaults must be distinct and non-zero", ErrInvalidParameter)
	}
	if p.VaultAuthority == (ethcommon.Address{}) {
		return fmt.Errorf("%w: vault authority required", ErrInvalidParameter)
	}
	if p.TWAPWindow < 0 {
		return fmt.Errorf("%w: negative twap window", ErrInvalidParameter)
	}
	return nil
}

// ParamUpdate carries an optional subset of risk parameters. Nil fields are
// left unchanged.
type ParamUpdate struct {
	MaxTradeSize     *uint64
	DailyVolumeLimit *uint64
	MaxSlippageBps   *uint16
	MaxDeviationBps  *uint16
	DeviationGuard   *bool
}

// Empty reports whether the update would change nothing.
func (u ParamUpdate) Empty() bool {
	return u.MaxTradeSize == nil && u.DailyVolumeLimit == nil && u.MaxSlippageBps == nil &&
		u.MaxDeviationBps == nil && u.DeviationGuard == nil
}

// Status is the read-only view exposed to governance, emergency and oracle
// collaborators.
type Status struct {
	PoolID         string
	TradingPaused  bool
	ReserveA       uint64
	ReserveB       uint64
	TotalLiquidity uint64
	TWAPA          uint64
	TWAPB          uint64
	DailyVolume    uint64
	LastTWAPUpdate int64
}

// SwapQuote is the priced outcome of a swap before any guard or transfer.
type SwapQuote struct {
	Direction   Direction
	AmountIn    uint64
	Fee         uint64
	AmountInNet uint64
	AmountOut   uint64
	// MinAmountOut is AmountOut reduced by the pool's slippage tolerance; a
	// reasonable default for callers that do not pick their own bound.
	MinAmountOut uint64
}

// SwapResult summarises an executed swap.
type SwapResult struct {
	SwapQuote
	ReserveA uint64
	ReserveB uint64
}

// LiquidityResult summarises an executed deposit.
type LiquidityResult struct {
	UnitsMinted    uint64
	ReserveA       uint64
	ReserveB       uint64
	TotalLiquidity uint64
}
