// Package swapmath computes the result of a swap within a single tick range.
package swapmath

import (
	"github.com/holiman/uint256"

	"github.com/defistate/clamm-go/fullmath"
	"github.com/defistate/clamm-go/sqrtpricemath"
)

// feeDenominator is the denominator for fee calculations, representing 100% or 1,000,000 pips.
var feeDenominator = uint256.NewInt(1_000_000)

// ComputeSwapStep determines the next price, the amounts swapped, and the fee
// taken for a single step bounded by sqrtRatioTargetX96.
//
// amountRemaining is signed (two's complement): non-negative means exact
// input, negative means exact output. The step either consumes the remaining
// amount or reaches the target price, whichever comes first.
func ComputeSwapStep(
	sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, amountRemaining *uint256.Int,
	feePips uint32,
) (sqrtRatioNextX96, amountIn, amountOut, feeAmount *uint256.Int, err error) {
	zeroForOne := sqrtRatioCurrentX96.Cmp(sqrtRatioTargetX96) >= 0
	exactIn := amountRemaining.Sign() >= 0

	amountIn = new(uint256.Int)
	amountOut = new(uint256.Int)
	feeAmount = new(uint256.Int)
	fee := uint256.NewInt(uint64(feePips))
	oneLessFee := new(uint256.Int).Sub(feeDenominator, fee)

	var amountRemainingAbs *uint256.Int
	if exactIn {
		amountRemainingLessFee, mdErr := fullmath.MulDiv(amountRemaining, oneLessFee, feeDenominator)
		if mdErr != nil {
			return nil, nil, nil, nil, mdErr
		}
		if zeroForOne {
			amountIn, err = sqrtpricemath.GetAmount0Delta(sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, true)
		} else {
			amountIn, err = sqrtpricemath.GetAmount1Delta(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, true)
		}
		if err != nil {
			return nil, nil, nil, nil, err
		}

		if amountRemainingLessFee.Cmp(amountIn) >= 0 {
			sqrtRatioNextX96 = sqrtRatioTargetX96.Clone()
		} else {
			sqrtRatioNextX96, err = sqrtpricemath.GetNextSqrtPriceFromInput(sqrtRatioCurrentX96, liquidity, amountRemainingLessFee, zeroForOne)
			if err != nil {
				return nil, nil, nil, nil, err
			}
		}
	} else {
		amountRemainingAbs = new(uint256.Int).Neg(amountRemaining)

		if zeroForOne {
			amountOut, err = sqrtpricemath.GetAmount1Delta(sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, false)
		} else {
			amountOut, err = sqrtpricemath.GetAmount0Delta(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, false)
		}
		if err != nil {
			return nil, nil, nil, nil, err
		}

		if amountRemainingAbs.Cmp(amountOut) >= 0 {
			sqrtRatioNextX96 = sqrtRatioTargetX96.Clone()
		} else {
			sqrtRatioNextX96, err = sqrtpricemath.GetNextSqrtPriceFromOutput(sqrtRatioCurrentX96, liquidity, amountRemainingAbs, zeroForOne)
			if err != nil {
				return nil, nil, nil, nil, err
			}
		}
	}

	max := sqrtRatioTargetX96.Eq(sqrtRatioNextX96)

	// Recalculate the amounts from the actual price movement.
	if zeroForOne {
		if !(max && exactIn) {
			amountIn, err = sqrtpricemath.GetAmount0Delta(sqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, true)
			if err != nil {
				return nil, nil, nil, nil, err
			}
		}
		if !(max && !exactIn) {
			amountOut, err = sqrtpricemath.GetAmount1Delta(sqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, false)
			if err != nil {
				return nil, nil, nil, nil, err
			}
		}
	} else {
		if !(max && exactIn) {
			amountIn, err = sqrtpricemath.GetAmount1Delta(sqrtRatioCurrentX96, sqrtRatioNextX96, liquidity, true)
			if err != nil {
				return nil, nil, nil, nil, err
			}
		}
		if !(max && !exactIn) {
			amountOut, err = sqrtpricemath.GetAmount0Delta(sqrtRatioCurrentX96, sqrtRatioNextX96, liquidity, false)
			if err != nil {
				return nil, nil, nil, nil, err
			}
		}
	}

	// An exact-output step never pays out more than requested.
	if !exactIn && amountOut.Gt(amountRemainingAbs) {
		amountOut = amountRemainingAbs.Clone()
	}

	if exactIn && !sqrtRatioNextX96.Eq(sqrtRatioTargetX96) {
		// The target was not reached, so the whole leftover input is the fee.
		feeAmount = new(uint256.Int).Sub(amountRemaining, amountIn)
	} else {
		feeAmount, err = fullmath.MulDivRoundingUp(amountIn, fee, oneLessFee)
		if err != nil {
			return nil, nil, nil, nil, err
		}
	}

	return sqrtRatioNextX96, amountIn, amountOut, feeAmount, nil
}
