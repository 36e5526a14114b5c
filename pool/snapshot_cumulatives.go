package pool

import "github.com/holiman/uint256"

var splMask160 = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 160), 1)

// SnapshotCumulativesInside returns the tick-cumulative, seconds-per-liquidity
// and seconds counters accumulated while the price was inside the range. The
// values are only meaningful as differences between two snapshots taken while
// both boundary ticks stay initialized.
func (p *Pool) SnapshotCumulativesInside(tickLower, tickUpper int32) (tickCumulativeInside int64, secondsPerLiquidityInsideX128 *uint256.Int, secondsInside uint32, err error) {
	if err = p.checkTicks(tickLower, tickUpper); err != nil {
		return 0, nil, 0, err
	}

	lower, lowerOK := p.ticks[tickLower]
	upper, upperOK := p.ticks[tickUpper]
	if !lowerOK || !upperOK || !lower.Initialized || !upper.Initialized {
		return 0, nil, 0, ErrTickNotInitialized
	}

	switch {
	case p.tick < tickLower:
		tickCumulativeInside = lower.TickCumulativeOutside - upper.TickCumulativeOutside
		secondsPerLiquidityInsideX128 = new(uint256.Int).Sub(
			lower.SecondsPerLiquidityOutsideX128, upper.SecondsPerLiquidityOutsideX128)
		secondsInside = lower.SecondsOutside - upper.SecondsOutside
	case p.tick < tickUpper:
		time := p.cfg.Clock()
		tickCumulative, secondsPerLiquidityCumulativeX128, oerr := p.observations.ObserveSingle(
			time, 0, p.tick, p.liquidity)
		if oerr != nil {
			return 0, nil, 0, oerr
		}
		tickCumulativeInside = tickCumulative - lower.TickCumulativeOutside - upper.TickCumulativeOutside
		secondsPerLiquidityInsideX128 = new(uint256.Int).Sub(
			secondsPerLiquidityCumulativeX128, lower.SecondsPerLiquidityOutsideX128)
		secondsPerLiquidityInsideX128.Sub(secondsPerLiquidityInsideX128, upper.SecondsPerLiquidityOutsideX128)
		secondsInside = time - lower.SecondsOutside - upper.SecondsOutside
	default:
		tickCumulativeInside = upper.TickCumulativeOutside - lower.TickCumulativeOutside
		secondsPerLiquidityInsideX128 = new(uint256.Int).Sub(
			upper.SecondsPerLiquidityOutsideX128, lower.SecondsPerLiquidityOutsideX128)
		secondsInside = upper.SecondsOutside - lower.SecondsOutside
	}
	secondsPerLiquidityInsideX128.And(secondsPerLiquidityInsideX128, splMask160)
	return tickCumulativeInside, secondsPerLiquidityInsideX128, secondsInside, nil
}
