package amm

// The reserve ledger mutations below are applied to a cloned Pool. The engine
// only persists the clone once every transfer for the operation succeeded, so
// a failure at any step leaves the stored record untouched.

func (p *Pool) creditDeposit(amountA, amountB, units uint64) error {
	reserveA, err := addU64(p.ReserveA, amountA)
	if err != nil {
		return err
	}
	reserveB, err := addU64(p.ReserveB, amountB)
	if err != nil {
		return err
	}
	total, err := addU64(p.TotalLiquidity, units)
	if err != nil {
		return err
	}
	p.ReserveA, p.ReserveB, p.TotalLiquidity = reserveA, reserveB, total
	return nil
}

// settleSwap books the full input (fee included) into the input reserve and
// releases the output from the other side.
func (p *Pool) settleSwap(dir Direction, amountIn, amountOut uint64) error {
	in, out := p.reserves(dir)
	newIn, err := addU64(in, amountIn)
	if err != nil {
		return err
	}
	newOut, err := subU64(out, amountOut)
	if err != nil {
		return err
	}
	if newOut == 0 {
		return ErrInsufficientLiquidity
	}
	p.setReserves(dir, newIn, newOut)
	return nil
}

func (p *Pool) recordVolume(amount uint64) error {
	volume, err := addU64(p.DailyVolume, amount)
	if err != nil {
		return err
	}
	p.DailyVolume = volume
	return nil
}

// Status returns the collaborator view of the pool.
func (p *Pool) Status() Status {
	if p == nil {
		return Status{}
	}
	return Status{
		PoolID:         p.ID,
		TradingPaused:  p.TradingPaused,
		ReserveA:       p.ReserveA,
		ReserveB:       p.ReserveB,
		TotalLiquidity: p.TotalLiquidity,
		TWAPA:          p.TWAPA,
		TWAPB:          p.TWAPB,
		DailyVolume:    p.DailyVolume,
		LastTWAPUpdate: p.LastTWAPUpdate,
	}
}
