// Package fullmath provides 256-bit multiply/divide with a full 512-bit
// intermediate product, so a*b/denominator is exact whenever the final
// quotient fits in 256 bits.
package fullmath

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	// ErrDenominatorZero is returned when the denominator is zero.
	ErrDenominatorZero = errors.New("denominator must be greater than zero")
	// ErrOverflow is returned when the true quotient does not fit in 256 bits.
	ErrOverflow = errors.New("mulDiv overflow")

	one = uint256.NewInt(1)

	// Q128 is 2^128, the scaling factor for Q128.128 fee growth counters.
	Q128 = new(uint256.Int).Lsh(one, 128)
)

// MulDiv computes floor(a * b / denominator) with full intermediate precision.
func MulDiv(a, b, denominator *uint256.Int) (*uint256.Int, error) {
	if denominator.IsZero() {
		return nil, ErrDenominatorZero
	}
	result, overflow := new(uint256.Int).MulDivOverflow(a, b, denominator)
	if overflow {
		return nil, ErrOverflow
	}
	return result, nil
}

// MulDivRoundingUp computes ceil(a * b / denominator) with full intermediate
// precision.
func MulDivRoundingUp(a, b, denominator *uint256.Int) (*uint256.Int, error) {
	result, err := MulDiv(a, b, denominator)
	if err != nil {
		return nil, err
	}
	rem := new(uint256.Int).MulMod(a, b, denominator)
	if !rem.IsZero() {
		if result.Eq(uint256MaxValue) {
			return nil, ErrOverflow
		}
		result.Add(result, one)
	}
	return result, nil
}

// DivRoundingUp computes ceil(x / y).
func DivRoundingUp(x, y *uint256.Int) (*uint256.Int, error) {
	if y.IsZero() {
		return nil, ErrDenominatorZero
	}
	result := new(uint256.Int).Div(x, y)
	if !new(uint256.Int).Mod(x, y).IsZero() {
		result.Add(result, one)
	}
	return result, nil
}

var uint256MaxValue = new(uint256.Int).Not(new(uint256.Int))
