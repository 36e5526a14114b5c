package pool

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/defistate/clamm-go/fullmath"
	"github.com/defistate/clamm-go/liquiditymath"
	"github.com/defistate/clamm-go/swapmath"
	"github.com/defistate/clamm-go/tickmath"
)

// swapCache holds values fixed for the whole swap. The latest observation is
// materialized lazily, on the first initialized tick crossing.
type swapCache struct {
	liquidityStart                    *uint256.Int
	blockTimestamp                    uint32
	feeProtocol                       uint8
	secondsPerLiquidityCumulativeX128 *uint256.Int
	tickCumulative                    int64
	computedLatestObservation         bool
}

// swapState is the running state of the tick-walking loop.
type swapState struct {
	amountSpecifiedRemaining *uint256.Int // signed
	amountCalculated         *uint256.Int // signed
	sqrtPriceX96             *uint256.Int
	tick                     int32
	feeGrowthGlobalX128      *uint256.Int // input token only
	protocolFee              *uint256.Int
	liquidity                *uint256.Int
}

// Swap trades token0 for token1 (zeroForOne) or the reverse. amountSpecified
// is signed: positive requests an exact input, negative an exact output. The
// returned deltas are signed from the pool's perspective: positive amounts are
// owed to the pool, negative amounts were paid out.
//
// The output is transferred before the callback; the callback must pay the
// input before returning or the whole call rolls back.
func (p *Pool) Swap(sender, recipient common.Address, zeroForOne bool, amountSpecified, sqrtPriceLimitX96 *uint256.Int, callback SwapCallback, data []byte) (amount0, amount1 *uint256.Int, err error) {
	err = p.atomic("swap", func() error {
		if amountSpecified.IsZero() {
			return ErrAmountSpecifiedZero
		}
		if zeroForOne {
			if !sqrtPriceLimitX96.Lt(p.sqrtPriceX96) || !sqrtPriceLimitX96.Gt(tickmath.MIN_SQRT_RATIO) {
				return ErrSqrtPriceLimit
			}
		} else {
			if !sqrtPriceLimitX96.Gt(p.sqrtPriceX96) || !sqrtPriceLimitX96.Lt(tickmath.MAX_SQRT_RATIO) {
				return ErrSqrtPriceLimit
			}
		}

		startTick := p.tick
		cache := swapCache{
			liquidityStart: p.liquidity.Clone(),
			blockTimestamp: p.cfg.Clock(),
		}
		if zeroForOne {
			cache.feeProtocol = p.feeProtocol % 16
		} else {
			cache.feeProtocol = p.feeProtocol >> 4
		}

		exactInput := amountSpecified.Sign() > 0

		state := swapState{
			amountSpecifiedRemaining: amountSpecified.Clone(),
			amountCalculated:         new(uint256.Int),
			sqrtPriceX96:             p.sqrtPriceX96.Clone(),
			tick:                     startTick,
			protocolFee:              new(uint256.Int),
			liquidity:                cache.liquidityStart.Clone(),
		}
		if zeroForOne {
			state.feeGrowthGlobalX128 = p.feeGrowthGlobal0X128.Clone()
		} else {
			state.feeGrowthGlobalX128 = p.feeGrowthGlobal1X128.Clone()
		}

		var crossings int
		for !state.amountSpecifiedRemaining.IsZero() && !state.sqrtPriceX96.Eq(sqrtPriceLimitX96) {
			sqrtPriceStartX96 := state.sqrtPriceX96.Clone()

			tickNext, initialized := p.tickBitmap.NextInitializedTickWithinOneWord(
				state.tick, p.cfg.TickSpacing, zeroForOne)
			if tickNext < tickmath.MIN_TICK {
				tickNext = tickmath.MIN_TICK
			} else if tickNext > tickmath.MAX_TICK {
				tickNext = tickmath.MAX_TICK
			}

			sqrtPriceNextX96, err := tickmath.GetSqrtRatioAtTick(tickNext)
			if err != nil {
				return err
			}

			// Step no further than the price limit.
			target := sqrtPriceNextX96
			if zeroForOne {
				if sqrtPriceNextX96.Lt(sqrtPriceLimitX96) {
					target = sqrtPriceLimitX96
				}
			} else {
				if sqrtPriceNextX96.Gt(sqrtPriceLimitX96) {
					target = sqrtPriceLimitX96
				}
			}

			var amountIn, amountOut, feeAmount *uint256.Int
			state.sqrtPriceX96, amountIn, amountOut, feeAmount, err = swapmath.ComputeSwapStep(
				state.sqrtPriceX96, target, state.liquidity, state.amountSpecifiedRemaining, p.cfg.Fee)
			if err != nil {
				return err
			}

			if exactInput {
				consumed := new(uint256.Int).Add(amountIn, feeAmount)
				state.amountSpecifiedRemaining.Sub(state.amountSpecifiedRemaining, consumed)
				state.amountCalculated.Sub(state.amountCalculated, amountOut)
			} else {
				state.amountSpecifiedRemaining.Add(state.amountSpecifiedRemaining, amountOut)
				paid := new(uint256.Int).Add(amountIn, feeAmount)
				state.amountCalculated.Add(state.amountCalculated, paid)
			}

			if cache.feeProtocol > 0 {
				delta := new(uint256.Int).Div(feeAmount, uint256.NewInt(uint64(cache.feeProtocol)))
				feeAmount.Sub(feeAmount, delta)
				state.protocolFee.Add(state.protocolFee, delta)
			}

			if !state.liquidity.IsZero() {
				growth, err := fullmath.MulDiv(feeAmount, fullmath.Q128, state.liquidity)
				if err != nil {
					return err
				}
				state.feeGrowthGlobalX128.Add(state.feeGrowthGlobalX128, growth)
			}

			if state.sqrtPriceX96.Eq(sqrtPriceNextX96) {
				if initialized {
					// The cumulatives at the swap's timestamp are needed for
					// every crossing; compute them once.
					if !cache.computedLatestObservation {
						cache.tickCumulative, cache.secondsPerLiquidityCumulativeX128, err =
							p.observations.ObserveSingle(cache.blockTimestamp, 0, startTick, cache.liquidityStart)
						if err != nil {
							return err
						}
						cache.computedLatestObservation = true
					}

					var liquidityNet *uint256.Int
					if zeroForOne {
						liquidityNet = p.ticks.Cross(tickNext,
							state.feeGrowthGlobalX128, p.feeGrowthGlobal1X128,
							cache.secondsPerLiquidityCumulativeX128, cache.tickCumulative, cache.blockTimestamp)
						liquidityNet.Neg(liquidityNet)
					} else {
						liquidityNet = p.ticks.Cross(tickNext,
							p.feeGrowthGlobal0X128, state.feeGrowthGlobalX128,
							cache.secondsPerLiquidityCumulativeX128, cache.tickCumulative, cache.blockTimestamp)
					}
					state.liquidity, err = liquiditymath.AddDelta(state.liquidity, liquidityNet)
					if err != nil {
						return err
					}
					crossings++
				}

				if zeroForOne {
					state.tick = tickNext - 1
				} else {
					state.tick = tickNext
				}
			} else if !state.sqrtPriceX96.Eq(sqrtPriceStartX96) {
				state.tick, err = tickmath.GetTickAtSqrtRatio(state.sqrtPriceX96)
				if err != nil {
					return err
				}
			}
		}

		if state.tick != startTick {
			p.observations.Write(cache.blockTimestamp, startTick, cache.liquidityStart)
			p.tick = state.tick
		}
		p.sqrtPriceX96 = state.sqrtPriceX96
		p.liquidity = state.liquidity

		if zeroForOne {
			p.feeGrowthGlobal0X128 = state.feeGrowthGlobalX128
			p.protocolFees0.Add(p.protocolFees0, state.protocolFee)
		} else {
			p.feeGrowthGlobal1X128 = state.feeGrowthGlobalX128
			p.protocolFees1.Add(p.protocolFees1, state.protocolFee)
		}

		settled := new(uint256.Int).Sub(amountSpecified, state.amountSpecifiedRemaining)
		if zeroForOne == exactInput {
			amount0 = settled
			amount1 = state.amountCalculated
		} else {
			amount0 = state.amountCalculated
			amount1 = settled
		}

		if zeroForOne {
			if amount1.Sign() < 0 {
				out := new(uint256.Int).Neg(amount1)
				if err := p.cfg.Token1.Transfer(p.cfg.Address, recipient, out); err != nil {
					return err
				}
			}
			balance0Before := p.balance0()
			if err := callback.SwapCallback(amount0.Clone(), amount1.Clone(), data); err != nil {
				return err
			}
			owed := new(uint256.Int).Add(balance0Before, amount0)
			if p.balance0().Lt(owed) {
				return ErrInsufficientInputAmount
			}
		} else {
			if amount0.Sign() < 0 {
				out := new(uint256.Int).Neg(amount0)
				if err := p.cfg.Token0.Transfer(p.cfg.Address, recipient, out); err != nil {
					return err
				}
			}
			balance1Before := p.balance1()
			if err := callback.SwapCallback(amount0.Clone(), amount1.Clone(), data); err != nil {
				return err
			}
			owed := new(uint256.Int).Add(balance1Before, amount1)
			if p.balance1().Lt(owed) {
				return ErrInsufficientInputAmount
			}
		}

		p.emit(SwapEvent{
			Sender: sender, Recipient: recipient,
			Amount0: amount0.Clone(), Amount1: amount1.Clone(),
			SqrtPriceX96: p.sqrtPriceX96.Clone(),
			Liquidity:    p.liquidity.Clone(),
			Tick:         p.tick,
		})
		p.cfg.Metrics.swap()
		p.cfg.Metrics.crossed(float64(crossings))
		p.cfg.Logger.Debug("swap",
			"pool", p.cfg.Address, "zeroForOne", zeroForOne,
			"amount0", amount0.String(), "amount1", amount1.String(),
			"tick", p.tick,
		)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}
