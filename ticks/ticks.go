// Package ticks holds the per-tick state machine: gross and net liquidity plus
// the "outside" growth snapshots whose interpretation flips on every crossing.
package ticks

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/defistate/clamm-go/liquiditymath"
	"github.com/defistate/clamm-go/tickmath"
)

// ErrLiquidityGrossOverflow is the terminal code LO: a tick's gross liquidity
// exceeding the per-tick cap.
var ErrLiquidityGrossOverflow = errors.New("LO")

// Info is the state stored for an initialized tick.
type Info struct {
	// LiquidityGross is the total position liquidity referencing this tick as
	// an endpoint.
	LiquidityGross *uint256.Int
	// LiquidityNet is the signed (two's complement) liquidity added when the
	// tick is crossed left to right.
	LiquidityNet *uint256.Int
	// The *Outside* fields hold "the value of the global counter on the far
	// side of this tick relative to the current tick". They are only
	// meaningful relative to a particular crossing history, never absolutely.
	FeeGrowthOutside0X128          *uint256.Int
	FeeGrowthOutside1X128          *uint256.Int
	TickCumulativeOutside          int64
	SecondsPerLiquidityOutsideX128 *uint256.Int
	SecondsOutside                 uint32
	Initialized                    bool
}

func newInfo() *Info {
	return &Info{
		LiquidityGross:                 new(uint256.Int),
		LiquidityNet:                   new(uint256.Int),
		FeeGrowthOutside0X128:          new(uint256.Int),
		FeeGrowthOutside1X128:          new(uint256.Int),
		SecondsPerLiquidityOutsideX128: new(uint256.Int),
	}
}

func (i *Info) Clone() *Info {
	return &Info{
		LiquidityGross:                 i.LiquidityGross.Clone(),
		LiquidityNet:                   i.LiquidityNet.Clone(),
		FeeGrowthOutside0X128:          i.FeeGrowthOutside0X128.Clone(),
		FeeGrowthOutside1X128:          i.FeeGrowthOutside1X128.Clone(),
		TickCumulativeOutside:          i.TickCumulativeOutside,
		SecondsPerLiquidityOutsideX128: i.SecondsPerLiquidityOutsideX128.Clone(),
		SecondsOutside:                 i.SecondsOutside,
		Initialized:                    i.Initialized,
	}
}

// Map is the tick table. A missing entry reads as all zeroes.
type Map map[int32]*Info

func New() Map {
	return make(Map)
}

// Get returns the tick entry, creating it if absent.
func (m Map) Get(tick int32) *Info {
	if info, ok := m[tick]; ok {
		return info
	}
	info := newInfo()
	m[tick] = info
	return info
}

// MaxLiquidityPerTick derives the anti-overflow cap for a tick spacing: the
// maximum u128 spread evenly over every initializable tick.
func MaxLiquidityPerTick(tickSpacing int32) *uint256.Int {
	minTick := (tickmath.MIN_TICK / tickSpacing) * tickSpacing
	maxTick := (tickmath.MAX_TICK / tickSpacing) * tickSpacing
	numTicks := uint64((maxTick-minTick)/tickSpacing) + 1
	return new(uint256.Int).Div(liquiditymath.MaxUint128, uint256.NewInt(numTicks))
}

// Update applies a signed liquidity delta to the tick and reports whether the
// tick flipped between initialized and uninitialized.
//
// When a tick at or below the current tick is initialized for the first time,
// the global counters are snapshotted into the Outside fields; ticks above the
// current tick keep zero snapshots, consistent with "all growth happened below".
func (m Map) Update(
	tick, tickCurrent int32,
	liquidityDelta *uint256.Int,
	feeGrowthGlobal0X128, feeGrowthGlobal1X128 *uint256.Int,
	secondsPerLiquidityCumulativeX128 *uint256.Int,
	tickCumulative int64,
	time uint32,
	upper bool,
	maxLiquidity *uint256.Int,
) (flipped bool, err error) {
	info := m.Get(tick)

	liquidityGrossBefore := info.LiquidityGross
	liquidityGrossAfter, err := liquiditymath.AddDelta(liquidityGrossBefore, liquidityDelta)
	if err != nil {
		return false, err
	}
	if liquidityGrossAfter.Gt(maxLiquidity) {
		return false, ErrLiquidityGrossOverflow
	}

	flipped = liquidityGrossAfter.IsZero() != liquidityGrossBefore.IsZero()

	if liquidityGrossBefore.IsZero() {
		if tick <= tickCurrent {
			info.FeeGrowthOutside0X128 = feeGrowthGlobal0X128.Clone()
			info.FeeGrowthOutside1X128 = feeGrowthGlobal1X128.Clone()
			info.SecondsPerLiquidityOutsideX128 = secondsPerLiquidityCumulativeX128.Clone()
			info.TickCumulativeOutside = tickCumulative
			info.SecondsOutside = time
		}
		info.Initialized = true
	}

	info.LiquidityGross = liquidityGrossAfter
	if upper {
		info.LiquidityNet = new(uint256.Int).Sub(info.LiquidityNet, liquidityDelta)
	} else {
		info.LiquidityNet = new(uint256.Int).Add(info.LiquidityNet, liquidityDelta)
	}
	return flipped, nil
}

// Clear removes the tick entry entirely.
func (m Map) Clear(tick int32) {
	delete(m, tick)
}

// Cross reflects the tick's Outside counters against the current globals and
// returns the signed liquidity to apply when moving left to right.
func (m Map) Cross(
	tick int32,
	feeGrowthGlobal0X128, feeGrowthGlobal1X128 *uint256.Int,
	secondsPerLiquidityCumulativeX128 *uint256.Int,
	tickCumulative int64,
	time uint32,
) *uint256.Int {
	info := m.Get(tick)
	info.FeeGrowthOutside0X128 = new(uint256.Int).Sub(feeGrowthGlobal0X128, info.FeeGrowthOutside0X128)
	info.FeeGrowthOutside1X128 = new(uint256.Int).Sub(feeGrowthGlobal1X128, info.FeeGrowthOutside1X128)
	info.SecondsPerLiquidityOutsideX128 = new(uint256.Int).Sub(secondsPerLiquidityCumulativeX128, info.SecondsPerLiquidityOutsideX128)
	info.TickCumulativeOutside = tickCumulative - info.TickCumulativeOutside
	info.SecondsOutside = time - info.SecondsOutside
	return info.LiquidityNet.Clone()
}

// FeeGrowthInside derives the fee growth inside the range from the identity
// inside = global - below - above. All subtraction is wrap-around.
func (m Map) FeeGrowthInside(
	tickLower, tickUpper, tickCurrent int32,
	feeGrowthGlobal0X128, feeGrowthGlobal1X128 *uint256.Int,
) (inside0, inside1 *uint256.Int) {
	lower := m.read(tickLower)
	upper := m.read(tickUpper)

	var below0, below1 *uint256.Int
	if tickCurrent >= tickLower {
		below0 = lower.FeeGrowthOutside0X128.Clone()
		below1 = lower.FeeGrowthOutside1X128.Clone()
	} else {
		below0 = new(uint256.Int).Sub(feeGrowthGlobal0X128, lower.FeeGrowthOutside0X128)
		below1 = new(uint256.Int).Sub(feeGrowthGlobal1X128, lower.FeeGrowthOutside1X128)
	}

	var above0, above1 *uint256.Int
	if tickCurrent < tickUpper {
		above0 = upper.FeeGrowthOutside0X128.Clone()
		above1 = upper.FeeGrowthOutside1X128.Clone()
	} else {
		above0 = new(uint256.Int).Sub(feeGrowthGlobal0X128, upper.FeeGrowthOutside0X128)
		above1 = new(uint256.Int).Sub(feeGrowthGlobal1X128, upper.FeeGrowthOutside1X128)
	}

	inside0 = new(uint256.Int).Sub(feeGrowthGlobal0X128, below0)
	inside0.Sub(inside0, above0)
	inside1 = new(uint256.Int).Sub(feeGrowthGlobal1X128, below1)
	inside1.Sub(inside1, above1)
	return inside0, inside1
}

// read is a non-allocating lookup that never creates an entry.
func (m Map) read(tick int32) *Info {
	if info, ok := m[tick]; ok {
		return info
	}
	return zeroInfo
}

var zeroInfo = newInfo()

// Clone returns a deep copy of the tick table.
func (m Map) Clone() Map {
	c := make(Map, len(m))
	for tick, info := range m {
		c[tick] = info.Clone()
	}
	return c
}
