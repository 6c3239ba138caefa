package amm

import (
	ethcommon "github.com/ethereum/go-ethereum/common"

	"pairamm/core/events"
	nativecommon "pairamm/native/common"
)

// liquidityToMint sizes a deposit. The first deposit mints the geometric mean
// of the two amounts, fixing the initial price at amountA:amountB. Later
// deposits mint the smaller of the two proportional shares so an imbalanced
// deposit cannot mint excess units.
func liquidityToMint(p *Pool, amountA, amountB uint64) (uint64, error) {
	if p.TotalLiquidity == 0 {
		return sqrtProduct(amountA, amountB), nil
	}
	if !p.HasLiquidity() {
		return 0, ErrDivisionByZero
	}
	shareA, err := mulDiv(amountA, p.TotalLiquidity, p.ReserveA)
	if err != nil {
		return 0, err
	}
	shareB, err := mulDiv(amountB, p.TotalLiquidity, p.ReserveB)
	if err != nil {
		return 0, err
	}
	return min(shareA, shareB), nil
}

// AddLiquidity deposits both tokens into the vaults and mints liquidity units.
func (e *Engine) AddLiquidity(trader ethcommon.Address, amountA, amountB, minUnits uint64) (*LiquidityResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	if pool.TradingPaused {
		return nil, ErrTradingPaused
	}
	if amountA == 0 || amountB == 0 {
		return nil, ErrInvalidAmount
	}

	units, err := liquidityToMint(pool, amountA, amountB)
	if err != nil {
		return nil, err
	}
	if units < minUnits {
		return nil, limitError(LimitCodeSlippage, ErrSlippageExceeded, minUnits, units)
	}

	next := pool.Clone()
	if err := next.creditDeposit(amountA, amountB, units); err != nil {
		return nil, err
	}

	if err := e.transfer("deposit token a", pool.TokenA, trader, pool.VaultA, trader, amountA); err != nil {
		return nil, err
	}
	if err := e.transfer("deposit token b", pool.TokenB, trader, pool.VaultB, trader, amountB); err != nil {
		return nil, err
	}

	if err := next.refreshTWAP(e.now()); err != nil {
		return nil, err
	}
	if err := e.state.PutPool(next); err != nil {
		return nil, err
	}

	e.emitter.Emit(events.LiquidityAdded{
		PoolID:      next.ID,
		Trader:      trader,
		AmountA:     amountA,
		AmountB:     amountB,
		UnitsMinted: units,
	})
	e.logger.Debug("amm liquidity added", "pool", next.ID, "trader", trader.Hex(),
		"amountA", amountA, "amountB", amountB, "units", units)

	return &LiquidityResult{
		UnitsMinted:    units,
		ReserveA:       next.ReserveA,
		ReserveB:       next.ReserveB,
		TotalLiquidity: next.TotalLiquidity,
	}, nil
}
