// Package sqrtpricemath computes token deltas and next sqrt prices for moves
// within a single price range.
//
// Rounding always favors the pool: amounts the pool receives round up, amounts
// the pool pays round down.
package sqrtpricemath

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/defistate/clamm-go/fullmath"
)

var (
	// Q96 is the UQ64.96 fixed-point number representing 1.
	Q96 = new(uint256.Int).Lsh(uint256.NewInt(1), 96)
	// Resolution is the number of fractional bits in the Q96 format.
	Resolution = uint(96)

	ErrLiquidityZero = errors.New("liquidity must be greater than zero")
	ErrSqrtPriceZero = errors.New("sqrt price must be greater than zero")
	// ErrPriceOverflow is returned when the next sqrt price does not fit in 160 bits
	// or its computation overflows.
	ErrPriceOverflow = errors.New("sqrt price overflow")
	// ErrAmountTooLarge is returned when removing more of a token than the
	// current range holds.
	ErrAmountTooLarge = errors.New("amount exceeds range reserves")
)

// GetNextSqrtPriceFromAmount0RoundingUp calculates the next sqrt price given a
// delta of token0. Rounds up so the pool's price moves far enough in the
// pool's favor for either direction of the delta.
func GetNextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amount *uint256.Int, add bool) (*uint256.Int, error) {
	if amount.IsZero() {
		return sqrtPX96.Clone(), nil
	}

	numerator1 := new(uint256.Int).Lsh(liquidity, Resolution)

	if add {
		product, overflow := new(uint256.Int).MulOverflow(amount, sqrtPX96)
		if !overflow {
			denominator, carry := new(uint256.Int).AddOverflow(numerator1, product)
			if !carry {
				return fullmath.MulDivRoundingUp(numerator1, sqrtPX96, denominator)
			}
		}
		// Overflow path: liquidity / (liquidity / sqrtP + amount), exact
		// because the truncated division only drops sub-unit precision.
		denominator := new(uint256.Int).Div(numerator1, sqrtPX96)
		denominator.Add(denominator, amount)
		return fullmath.DivRoundingUp(numerator1, denominator)
	}

	product, overflow := new(uint256.Int).MulOverflow(amount, sqrtPX96)
	if overflow || !numerator1.Gt(product) {
		return nil, ErrAmountTooLarge
	}
	denominator := new(uint256.Int).Sub(numerator1, product)
	next, err := fullmath.MulDivRoundingUp(numerator1, sqrtPX96, denominator)
	if err != nil {
		return nil, ErrPriceOverflow
	}
	if next.BitLen() > 160 {
		return nil, ErrPriceOverflow
	}
	return next, nil
}

// GetNextSqrtPriceFromAmount1RoundingDown calculates the next sqrt price given
// a delta of token1. Rounds down, again in the pool's favor.
func GetNextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amount *uint256.Int, add bool) (*uint256.Int, error) {
	if add {
		quotient, err := fullmath.MulDiv(amount, Q96, liquidity)
		if err != nil {
			return nil, ErrPriceOverflow
		}
		next, carry := new(uint256.Int).AddOverflow(sqrtPX96, quotient)
		if carry || next.BitLen() > 160 {
			return nil, ErrPriceOverflow
		}
		return next, nil
	}

	quotient, err := fullmath.MulDivRoundingUp(amount, Q96, liquidity)
	if err != nil {
		return nil, ErrPriceOverflow
	}
	if !sqrtPX96.Gt(quotient) {
		return nil, ErrAmountTooLarge
	}
	return new(uint256.Int).Sub(sqrtPX96, quotient), nil
}

// GetNextSqrtPriceFromInput calculates the price after receiving amountIn of
// token0 (zeroForOne) or token1 (!zeroForOne).
func GetNextSqrtPriceFromInput(sqrtPX96, liquidity, amountIn *uint256.Int, zeroForOne bool) (*uint256.Int, error) {
	if sqrtPX96.IsZero() {
		return nil, ErrSqrtPriceZero
	}
	if liquidity.IsZero() {
		return nil, ErrLiquidityZero
	}
	if zeroForOne {
		return GetNextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amountIn, true)
	}
	return GetNextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amountIn, true)
}

// GetNextSqrtPriceFromOutput calculates the price after paying out amountOut of
// token1 (zeroForOne) or token0 (!zeroForOne).
func GetNextSqrtPriceFromOutput(sqrtPX96, liquidity, amountOut *uint256.Int, zeroForOne bool) (*uint256.Int, error) {
	if sqrtPX96.IsZero() {
		return nil, ErrSqrtPriceZero
	}
	if liquidity.IsZero() {
		return nil, ErrLiquidityZero
	}
	if zeroForOne {
		return GetNextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amountOut, false)
	}
	return GetNextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amountOut, false)
}

// GetAmount0Delta calculates liquidity * (sqrtB - sqrtA) / (sqrtA * sqrtB),
// the token0 amount covering the range between two prices.
func GetAmount0Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	if sqrtRatioAX96.Gt(sqrtRatioBX96) {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	if sqrtRatioAX96.IsZero() {
		return nil, ErrSqrtPriceZero
	}

	numerator1 := new(uint256.Int).Lsh(liquidity, Resolution)
	numerator2 := new(uint256.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)

	if roundUp {
		term, err := fullmath.MulDivRoundingUp(numerator1, numerator2, sqrtRatioBX96)
		if err != nil {
			return nil, err
		}
		return fullmath.DivRoundingUp(term, sqrtRatioAX96)
	}
	term, err := fullmath.MulDiv(numerator1, numerator2, sqrtRatioBX96)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Div(term, sqrtRatioAX96), nil
}

// GetAmount1Delta calculates liquidity * (sqrtB - sqrtA), the token1 amount
// covering the range between two prices.
func GetAmount1Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	if sqrtRatioAX96.Gt(sqrtRatioBX96) {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	numerator := new(uint256.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)
	if roundUp {
		return fullmath.MulDivRoundingUp(liquidity, numerator, Q96)
	}
	return fullmath.MulDiv(liquidity, numerator, Q96)
}
