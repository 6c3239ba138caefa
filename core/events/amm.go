package events

import (
	"strconv"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"pairamm/core/types"
)

const (
	// TypePoolInitialized is emitted once when a pool record is created.
	TypePoolInitialized = "amm.initialized"
	// TypeLiquidityAdded is emitted whenever a deposit mints liquidity units.
	TypeLiquidityAdded = "amm.liquidity_added"
	// TypeSwapExecuted is emitted for every settled swap.
	TypeSwapExecuted = "amm.swap"
	// TypeTradingPaused is emitted when the pool authority halts trading.
	TypeTradingPaused = "amm.trading_paused"
	// TypeTradingResumed is emitted when the pool authority resumes trading.
	TypeTradingResumed = "amm.trading_resumed"
	// TypeParametersUpdated is emitted when risk parameters change.
	TypeParametersUpdated = "amm.parameters_updated"
)

type PoolInitialized struct {
	PoolID    string
	Authority ethcommon.Address
	TokenA    string
	TokenB    string
	FeeBps    uint16
}

func (PoolInitialized) EventType() string { return TypePoolInitialized }

func (e PoolInitialized) Event() *types.Event {
	return &types.Event{
		Type: TypePoolInitialized,
		Attributes: map[string]string{
			"poolId":    strings.TrimSpace(e.PoolID),
			"authority": addressString(e.Authority),
			"tokenA":    normalizeAsset(e.TokenA),
			"tokenB":    normalizeAsset(e.TokenB),
			"feeBps":    strconv.FormatUint(uint64(e.FeeBps), 10),
		},
	}
}

type LiquidityAdded struct {
	PoolID      string
	Trader      ethcommon.Address
	AmountA     uint64
	AmountB     uint64
	UnitsMinted uint64
}

func (LiquidityAdded) EventType() string { return TypeLiquidityAdded }

func (e LiquidityAdded) Event() *types.Event {
	return &types.Event{
		Type: TypeLiquidityAdded,
		Attributes: map[string]string{
			"poolId":      strings.TrimSpace(e.PoolID),
			"trader":      addressString(e.Trader),
			"amountA":     strconv.FormatUint(e.AmountA, 10),
			"amountB":     strconv.FormatUint(e.AmountB, 10),
			"unitsMinted": strconv.FormatUint(e.UnitsMinted, 10),
		},
	}
}

type SwapExecuted struct {
	PoolID    string
	Trader    ethcommon.Address
	AmountIn  uint64
	AmountOut uint64
	Fee       uint64
	Direction string
}

func (SwapExecuted) EventType() string { return TypeSwapExecuted }

func (e SwapExecuted) Event() *types.Event {
	return &types.Event{
		Type: TypeSwapExecuted,
		Attributes: map[string]string{
			"poolId":    strings.TrimSpace(e.PoolID),
			"trader":    addressString(e.Trader),
			"amountIn":  strconv.FormatUint(e.AmountIn, 10),
			"amountOut": strconv.FormatUint(e.AmountOut, 10),
			"fee":       strconv.FormatUint(e.Fee, 10),
			"direction": strings.TrimSpace(e.Direction),
		},
	}
}

type TradingPaused struct {
	PoolID    string
	Authority ethcommon.Address
}

func (TradingPaused) EventType() string { return TypeTradingPaused }

func (e TradingPaused) Event() *types.Event {
	return &types.Event{
		Type: TypeTradingPaused,
		Attributes: map[string]string{
			"poolId":    strings.TrimSpace(e.PoolID),
			"authority": addressString(e.Authority),
		},
	}
}

type TradingResumed struct {
	PoolID    string
	Authority ethcommon.Address
}

func (TradingResumed) EventType() string { return TypeTradingResumed }

func (e TradingResumed) Event() *types.Event {
	return &types.Event{
		Type: TypeTradingResumed,
		Attributes: map[string]string{
			"poolId":    strings.TrimSpace(e.PoolID),
			"authority": addressString(e.Authority),
		},
	}
}

type ParametersUpdated struct {
	PoolID           string
	Authority        ethcommon.Address
	MaxTradeSize     uint64
	DailyVolumeLimit uint64
	MaxSlippageBps   uint16
	MaxDeviationBps  uint16
	DeviationGuard   bool
}

func (ParametersUpdated) EventType() string { return TypeParametersUpdated }

func (e ParametersUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeParametersUpdated,
		Attributes: map[string]string{
			"poolId":           strings.TrimSpace(e.PoolID),
			"authority":        addressString(e.Authority),
			"maxTradeSize":     strconv.FormatUint(e.MaxTradeSize, 10),
			"dailyVolumeLimit": strconv.FormatUint(e.DailyVolumeLimit, 10),
			"maxSlippageBps":   strconv.FormatUint(uint64(e.MaxSlippageBps), 10),
			"maxDeviationBps":  strconv.FormatUint(uint64(e.MaxDeviationBps), 10),
			"deviationGuard":   strconv.FormatBool(e.DeviationGuard),
		},
	}
}
