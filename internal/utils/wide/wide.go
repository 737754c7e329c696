// Package wide holds u64 arithmetic with 128-bit intermediates.
package wide

import (
	"errors"
	"math/bits"
)

var (
	ErrDivideByZero = errors.New("division by zero")
	ErrOverflow     = errors.New("u64 overflow")
)

// MulDiv returns floor(a*b/d) computed with a 128-bit product.
func MulDiv(a, b, d uint64) (uint64, error) {
	q, _, err := mulDivRem(a, b, d)
	return q, err
}

// MulDivCeil returns ceil(a*b/d).
func MulDivCeil(a, b, d uint64) (uint64, error) {
	q, rem, err := mulDivRem(a, b, d)
	if err != nil {
		return 0, err
	}
	if rem > 0 {
		if q == ^uint64(0) {
			return 0, ErrOverflow
		}
		q++
	}
	return q, nil
}

// Add returns a+b or ErrOverflow.
func Add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

func mulDivRem(a, b, d uint64) (uint64, uint64, error) {
	if d == 0 {
		return 0, 0, ErrDivideByZero
	}
	hi, lo := bits.Mul64(a, b)
	// bits.Div64 panics when the quotient does not fit.
	if hi >= d {
		return 0, 0, ErrOverflow
	}
	q, rem := bits.Div64(hi, lo, d)
	return q, rem, nil
}
