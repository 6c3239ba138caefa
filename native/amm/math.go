package amm

import (
	"math/bits"

	"github.com/holiman/uint256"
)

const (
	basisPoints    = 10_000
	pricePrecision = 1_000_000
)

func addU64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

func subU64(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrOverflow
	}
	return diff, nil
}

// mulWide returns a*b without loss; the product of two 64-bit values always
// fits in 128 bits.
func mulWide(a, b uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
}

func narrow(v *uint256.Int) (uint64, error) {
	if !v.IsUint64() {
		return 0, ErrOverflow
	}
	return v.Uint64(), nil
}

// mulDiv computes floor(a*b/d) with a 128-bit intermediate.
func mulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrDivisionByZero
	}
	q := new(uint256.Int).Div(mulWide(a, b), uint256.NewInt(d))
	return narrow(q)
}

// mulDivUp computes ceil(a*b/d) with a 128-bit intermediate.
func mulDivUp(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrDivisionByZero
	}
	num := mulWide(a, b)
	den := uint256.NewInt(d)
	q, r := new(uint256.Int).DivMod(num, den, new(uint256.Int))
	if !r.IsZero() {
		q.AddUint64(q, 1)
	}
	return narrow(q)
}

// sqrtProduct returns floor(sqrt(a*b)). The result always fits in 64 bits.
func sqrtProduct(a, b uint64) uint64 {
	return new(uint256.Int).Sqrt(mulWide(a, b)).Uint64()
}

// spotPrice returns numerator * 1e6 / denominator as a wide value.
func spotPrice(numerator, denominator uint64) (*uint256.Int, error) {
	if denominator == 0 {
		return nil, ErrDivisionByZero
	}
	scaled := mulWide(numerator, pricePrecision)
	return scaled.Div(scaled, uint256.NewInt(denominator)), nil
}

func bpsOf(amount uint64, bps uint16) (uint64, error) {
	return mulDiv(amount, uint64(bps), basisPoints)
}
