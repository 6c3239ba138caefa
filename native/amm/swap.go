package amm

import (
	ethcommon "github.com/ethereum/go-ethereum/common"

	"pairamm/core/events"
	nativecommon "pairamm/native/common"
)

// quoteSwap prices amountIn against the constant-product curve.
//
// The post-trade output reserve is rounded up, so the trader receives the
// rounded-down amount and in*out never decreases. Rounding the reserve down
// instead would leak one unit per trade to the trader.
func quoteSwap(p *Pool, amountIn uint64, dir Direction) (SwapQuote, error) {
	quote := SwapQuote{Direction: dir, AmountIn: amountIn}
	if !dir.Valid() {
		return quote, ErrInvalidParameter
	}
	if amountIn == 0 {
		return quote, ErrInvalidAmount
	}
	if !p.HasLiquidity() {
		return quote, ErrInsufficientLiquidity
	}
	fee, err := bpsOf(amountIn, p.FeeBps)
	if err != nil {
		return quote, err
	}
	net, err := subU64(amountIn, fee)
	if err != nil {
		return quote, err
	}
	in, out := p.reserves(dir)
	newIn, err := addU64(in, net)
	if err != nil {
		return quote, err
	}
	newOut, err := mulDivUp(in, out, newIn)
	if err != nil {
		return quote, err
	}
	amountOut, err := subU64(out, newOut)
	if err != nil {
		return quote, err
	}
	tolerance, err := bpsOf(amountOut, p.MaxSlippageBps)
	if err != nil {
		return quote, err
	}
	quote.Fee = fee
	quote.AmountInNet = net
	quote.AmountOut = amountOut
	quote.MinAmountOut = amountOut - tolerance
	return quote, nil
}

// QuoteSwap prices a swap against the current reserves without running the
// risk guards or changing state.
func (e *Engine) QuoteSwap(amountIn uint64, dir Direction) (SwapQuote, error) {
	if err := e.ready(); err != nil {
		return SwapQuote{}, err
	}
	pool, err := e.loadPool()
	if err != nil {
		return SwapQuote{}, err
	}
	return quoteSwap(pool, amountIn, dir)
}

// Swap exchanges amountIn of the input side for at least minAmountOut of the
// other side. Guards run in a fixed order and the first failure wins: pause,
// amount, trade size, repeat trade, daily volume.
func (e *Engine) Swap(trader ethcommon.Address, amountIn, minAmountOut uint64, dir Direction) (*SwapResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if !dir.Valid() {
		return nil, ErrInvalidParameter
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
	if amountIn == 0 {
		return nil, ErrInvalidAmount
	}
	if err := checkTradeSize(pool, amountIn); err != nil {
		return nil, err
	}
	record, err := e.state.GetTrader(pool.ID, trader)
	if err != nil {
		return nil, err
	}
	if err := checkRepeatTrade(record, e.tick); err != nil {
		return nil, err
	}

	now := e.now()
	next := pool.Clone()
	rollDailyVolume(next, now)
	if err := checkDailyVolume(next, amountIn); err != nil {
		return nil, err
	}

	quote, err := quoteSwap(next, amountIn, dir)
	if err != nil {
		return nil, err
	}
	if err := checkSlippage(quote.AmountOut, minAmountOut); err != nil {
		return nil, err
	}

	if err := next.settleSwap(dir, amountIn, quote.AmountOut); err != nil {
		return nil, err
	}
	if err := next.recordVolume(amountIn); err != nil {
		return nil, err
	}
	if err := checkDeviation(next, dir); err != nil {
		return nil, err
	}

	inSide, outSide := pool.sides(dir)
	if err := e.transfer("swap input", inSide.token, trader, inSide.vault, trader, amountIn); err != nil {
		return nil, err
	}
	if err := e.transfer("swap output", outSide.token, outSide.vault, trader, pool.VaultAuthority, quote.AmountOut); err != nil {
		return nil, err
	}

	if err := next.refreshTWAP(now); err != nil {
		return nil, err
	}
	if err := e.state.PutPool(next); err != nil {
		return nil, err
	}
	if err := e.state.PutTrader(pool.ID, trader, &TraderRecord{LastTradeTick: e.tick}); err != nil {
		return nil, err
	}

	e.emitter.Emit(events.SwapExecuted{
		PoolID:    next.ID,
		Trader:    trader,
		AmountIn:  amountIn,
		AmountOut: quote.AmountOut,
		Fee:       quote.Fee,
		Direction: dir.String(),
	})
	e.logger.Debug("amm swap executed", "pool", next.ID, "trader", trader.Hex(), "direction", dir.String(),
		"amountIn", amountIn, "amountOut", quote.AmountOut, "fee", quote.Fee, "tick", e.tick)

	return &SwapResult{
		SwapQuote: quote,
		ReserveA:  next.ReserveA,
		ReserveB:  next.ReserveB,
	}, nil
}
