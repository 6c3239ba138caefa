package amm

import "github.com/holiman/uint256"

// refreshTWAP folds the current spot prices into the cumulative accumulators.
//
// The average is event driven: it only advances when an operation touches the
// pool, so one sample spans whatever time elapsed since the previous published
// average. elapsed is always measured from LastTWAPUpdate, which only moves
// when a full window has passed and the average is published.
func (p *Pool) refreshTWAP(now int64) error {
	elapsed := now - p.LastTWAPUpdate
	if elapsed <= 0 || !p.HasLiquidity() {
		return nil
	}
	priceA, err := spotPrice(p.ReserveB, p.ReserveA)
	if err != nil {
		return err
	}
	priceB, err := spotPrice(p.ReserveA, p.ReserveB)
	if err != nil {
		return err
	}
	span := uint256.NewInt(uint64(elapsed))

	cumA, err := accumulate(&p.PriceCumulativeA, priceA, span)
	if err != nil {
		return err
	}
	cumB, err := accumulate(&p.PriceCumulativeB, priceB, span)
	if err != nil {
		return err
	}

	if elapsed < p.TWAPWindow {
		p.PriceCumulativeA, p.PriceCumulativeB = *cumA, *cumB
		return nil
	}
	twapA, err := narrow(new(uint256.Int).Div(cumA, span))
	if err != nil {
		return err
	}
	twapB, err := narrow(new(uint256.Int).Div(cumB, span))
	if err != nil {
		return err
	}
	p.TWAPA, p.TWAPB = twapA, twapB
	p.PriceCumulativeA.Clear()
	p.PriceCumulativeB.Clear()
	p.LastTWAPUpdate = now
	return nil
}

func accumulate(cumulative, price, span *uint256.Int) (*uint256.Int, error) {
	term, overflow := new(uint256.Int).MulOverflow(price, span)
	if overflow {
		return nil, ErrOverflow
	}
	sum, overflow := new(uint256.Int).AddOverflow(cumulative, term)
	if overflow {
		return nil, ErrOverflow
	}
	return sum, nil
}

// twapFor returns the published average price of the input side of dir.
func (p *Pool) twapFor(dir Direction) uint64 {
	if dir == DirectionAToB {
		return p.TWAPA
	}
	return p.TWAPB
}
