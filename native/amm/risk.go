package amm

import (
	"math"

	"github.com/holiman/uint256"
)

func checkTradeSize(p *Pool, amountIn uint64) error {
	if amountIn > p.MaxTradeSize {
		return limitError(LimitCodeTradeSize, ErrTradeSizeTooLarge, p.MaxTradeSize, amountIn)
	}
	return nil
}

// checkRepeatTrade blocks a second swap by the same trader within one tick.
// It does not look at other traders acting in the same tick. A trader without
// a record has never swapped and always passes.
func checkRepeatTrade(record *TraderRecord, tick uint64) error {
	if record == nil {
		return nil
	}
	if record.LastTradeTick == tick {
		return limitError(LimitCodeFlashLoan, ErrFlashLoanDetected, record.LastTradeTick, tick)
	}
	return nil
}

// rollDailyVolume resets the bucket once a full day has passed since the last
// reset, anchoring the new bucket at now. It is not a sliding window.
func rollDailyVolume(p *Pool, now int64) {
	if now-p.LastVolumeReset >= VolumeBucketSeconds {
		p.DailyVolume = 0
		p.LastVolumeReset = now
	}
}

func checkDailyVolume(p *Pool, amountIn uint64) error {
	projected, err := addU64(p.DailyVolume, amountIn)
	if err != nil {
		return err
	}
	if projected > p.DailyVolumeLimit {
		return limitError(LimitCodeDailyVolume, ErrDailyVolumeLimitExceeded, p.DailyVolumeLimit, projected)
	}
	return nil
}

func checkSlippage(amountOut, minAmountOut uint64) error {
	if amountOut < minAmountOut {
		return limitError(LimitCodeSlippage, ErrSlippageExceeded, minAmountOut, amountOut)
	}
	return nil
}

// checkDeviation compares the post-trade spot price of the input side with its
// published TWAP. It only runs when the pool opted into the deviation guard and
// a TWAP has been published.
func checkDeviation(p *Pool, dir Direction) error {
	if !p.DeviationGuard {
		return nil
	}
	twap := p.twapFor(dir)
	if twap == 0 {
		return nil
	}
	in, out := p.reserves(dir)
	spot, err := spotPrice(out, in)
	if err != nil {
		return err
	}
	reference := uint256.NewInt(twap)
	diff := new(uint256.Int)
	if spot.Gt(reference) {
		diff.Sub(spot, reference)
	} else {
		diff.Sub(reference, spot)
	}
	diff.Mul(diff, uint256.NewInt(basisPoints))
	diff.Div(diff, reference)
	deviation := uint64(math.MaxUint64)
	if diff.IsUint64() {
		deviation = diff.Uint64()
	}
	if deviation > uint64(p.MaxDeviationBps) {
		return limitError(LimitCodeDeviation, ErrPriceDeviation, uint64(p.MaxDeviationBps), deviation)
	}
	return nil
}
