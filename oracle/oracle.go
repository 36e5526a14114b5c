// Package oracle implements the cumulative-observation ring buffer backing
// time-weighted price queries. Timestamps are uint32 and allowed to wrap;
// every comparison is made relative to the current time.
package oracle

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	// ErrUninitialized is the terminal code I: reading the oracle before the
	// first observation was written.
	ErrUninitialized = errors.New("I")
	// ErrOld is the terminal code OLD: asking for a time before the oldest
	// retained observation.
	ErrOld = errors.New("OLD")
)

// mask160 truncates seconds-per-liquidity accumulators to their 160-bit ring.
var mask160 = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 160), 1)

// Observation is a single accumulator checkpoint.
type Observation struct {
	BlockTimestamp                    uint32
	TickCumulative                    int64
	SecondsPerLiquidityCumulativeX128 *uint256.Int
	Initialized                       bool
}

func (o Observation) clone() Observation {
	c := o
	if o.SecondsPerLiquidityCumulativeX128 != nil {
		c.SecondsPerLiquidityCumulativeX128 = o.SecondsPerLiquidityCumulativeX128.Clone()
	}
	return c
}

// transform extends last to the given time. Zero liquidity accrues
// seconds-per-liquidity as if one unit were active, so time never stalls.
func transform(last Observation, time uint32, tick int32, liquidity *uint256.Int) Observation {
	delta := time - last.BlockTimestamp
	liq := liquidity
	if liq.IsZero() {
		liq = one
	}
	splDelta := new(uint256.Int).Lsh(uint256.NewInt(uint64(delta)), 128)
	splDelta.Div(splDelta, liq)
	spl := new(uint256.Int).Add(last.SecondsPerLiquidityCumulativeX128, splDelta)
	spl.And(spl, mask160)
	return Observation{
		BlockTimestamp:                    time,
		TickCumulative:                    last.TickCumulative + int64(tick)*int64(delta),
		SecondsPerLiquidityCumulativeX128: spl,
		Initialized:                       true,
	}
}

var one = uint256.NewInt(1)

// Ring is the observation buffer plus its cursor state.
type Ring struct {
	Observations    []Observation
	Index           uint16
	Cardinality     uint16
	CardinalityNext uint16
}

// NewRing allocates an empty, uninitialized ring.
func NewRing() *Ring {
	return &Ring{Observations: make([]Observation, 1)}
}

// Initialize writes the first observation at the given time.
func (r *Ring) Initialize(time uint32) {
	r.Observations[0] = Observation{
		BlockTimestamp:                    time,
		SecondsPerLiquidityCumulativeX128: new(uint256.Int),
		Initialized:                       true,
	}
	r.Index = 0
	r.Cardinality = 1
	r.CardinalityNext = 1
}

// Write records an observation for the given time if one does not already
// exist. At most one observation is kept per timestamp. Growing from
// CardinalityNext takes effect when the cursor wraps past the old end.
func (r *Ring) Write(time uint32, tick int32, liquidity *uint256.Int) {
	last := r.Observations[r.Index]
	if last.BlockTimestamp == time {
		return
	}

	cardinality := r.Cardinality
	if r.CardinalityNext > cardinality && r.Index == cardinality-1 {
		cardinality = r.CardinalityNext
	}

	index := (r.Index + 1) % cardinality
	r.Observations[index] = transform(last, time, tick, liquidity)
	r.Index = index
	r.Cardinality = cardinality
}

// Grow raises the target cardinality, pre-touching the new slots so their
// writes later cost the same as overwrites.
func (r *Ring) Grow(next uint16) uint16 {
	if next <= r.CardinalityNext {
		return r.CardinalityNext
	}
	for uint16(len(r.Observations)) < next {
		r.Observations = append(r.Observations, Observation{
			BlockTimestamp:                    1,
			SecondsPerLiquidityCumulativeX128: new(uint256.Int),
		})
	}
	r.CardinalityNext = next
	return next
}

// lte reports a <= b in wrapping time, anchored at the current time: both
// operands are shifted so that anything more than 2^32 seconds old cannot
// exist by construction.
func lte(time, a, b uint32) bool {
	if a <= time && b <= time {
		return a <= b
	}
	aAdj := uint64(a)
	if a <= time {
		aAdj += 1 << 32
	}
	bAdj := uint64(b)
	if b <= time {
		bAdj += 1 << 32
	}
	return aAdj <= bAdj
}

// binarySearch locates the pair of observations straddling the target time.
// The caller guarantees the target is within the retained window.
func (r *Ring) binarySearch(time, target uint32) (beforeOrAt, atOrAfter Observation) {
	l := uint32(r.Index+1) % uint32(r.Cardinality)
	rr := l + uint32(r.Cardinality) - 1

	for {
		i := (l + rr) / 2
		beforeOrAt = r.Observations[i%uint32(r.Cardinality)]
		if !beforeOrAt.Initialized {
			l = i + 1
			continue
		}
		atOrAfter = r.Observations[(i+1)%uint32(r.Cardinality)]

		targetAtOrAfter := lte(time, beforeOrAt.BlockTimestamp, target)
		if targetAtOrAfter && lte(time, target, atOrAfter.BlockTimestamp) {
			return beforeOrAt, atOrAfter
		}
		if !targetAtOrAfter {
			rr = i - 1
		} else {
			l = i + 1
		}
	}
}

// getSurroundingObservations returns observations bracketing the target,
// synthesizing the upper bound from live state when the target is newer than
// the latest checkpoint.
func (r *Ring) getSurroundingObservations(time, target uint32, tick int32, liquidity *uint256.Int) (beforeOrAt, atOrAfter Observation, err error) {
	beforeOrAt = r.Observations[r.Index]

	if lte(time, beforeOrAt.BlockTimestamp, target) {
		if beforeOrAt.BlockTimestamp == target {
			return beforeOrAt, atOrAfter, nil
		}
		return beforeOrAt, transform(beforeOrAt, target, tick, liquidity), nil
	}

	oldest := r.Observations[(r.Index+1)%r.Cardinality]
	if !oldest.Initialized {
		oldest = r.Observations[0]
	}
	if !lte(time, oldest.BlockTimestamp, target) {
		return beforeOrAt, atOrAfter, ErrOld
	}

	beforeOrAt, atOrAfter = r.binarySearch(time, target)
	return beforeOrAt, atOrAfter, nil
}

// ObserveSingle returns the accumulator values as of secondsAgo before the
// given time, interpolating linearly between checkpoints when the target falls
// strictly between two of them.
func (r *Ring) ObserveSingle(time uint32, secondsAgo uint32, tick int32, liquidity *uint256.Int) (tickCumulative int64, secondsPerLiquidityCumulativeX128 *uint256.Int, err error) {
	if secondsAgo == 0 {
		last := r.Observations[r.Index]
		if last.BlockTimestamp != time {
			last = transform(last, time, tick, liquidity)
		}
		return last.TickCumulative, last.SecondsPerLiquidityCumulativeX128.Clone(), nil
	}

	target := time - secondsAgo
	beforeOrAt, atOrAfter, err := r.getSurroundingObservations(time, target, tick, liquidity)
	if err != nil {
		return 0, nil, err
	}

	switch {
	case target == beforeOrAt.BlockTimestamp:
		return beforeOrAt.TickCumulative, beforeOrAt.SecondsPerLiquidityCumulativeX128.Clone(), nil
	case target == atOrAfter.BlockTimestamp:
		return atOrAfter.TickCumulative, atOrAfter.SecondsPerLiquidityCumulativeX128.Clone(), nil
	default:
		delta := atOrAfter.BlockTimestamp - beforeOrAt.BlockTimestamp
		targetDelta := target - beforeOrAt.BlockTimestamp

		tickCumulative = beforeOrAt.TickCumulative +
			(atOrAfter.TickCumulative-beforeOrAt.TickCumulative)/int64(delta)*int64(targetDelta)

		splDelta := new(uint256.Int).Sub(
			atOrAfter.SecondsPerLiquidityCumulativeX128,
			beforeOrAt.SecondsPerLiquidityCumulativeX128,
		)
		splDelta.And(splDelta, mask160)
		splDelta.Mul(splDelta, uint256.NewInt(uint64(targetDelta)))
		splDelta.Div(splDelta, uint256.NewInt(uint64(delta)))
		spl := new(uint256.Int).Add(beforeOrAt.SecondsPerLiquidityCumulativeX128, splDelta)
		spl.And(spl, mask160)
		return tickCumulative, spl, nil
	}
}

// Observe answers a batch of ObserveSingle queries against the same time.
func (r *Ring) Observe(time uint32, secondsAgos []uint32, tick int32, liquidity *uint256.Int) ([]int64, []*uint256.Int, error) {
	if r.Cardinality == 0 {
		return nil, nil, ErrUninitialized
	}
	tickCumulatives := make([]int64, len(secondsAgos))
	spls := make([]*uint256.Int, len(secondsAgos))
	for i, secondsAgo := range secondsAgos {
		var err error
		tickCumulatives[i], spls[i], err = r.ObserveSingle(time, secondsAgo, tick, liquidity)
		if err != nil {
			return nil, nil, err
		}
	}
	return tickCumulatives, spls, nil
}

// Clone returns a deep copy of the ring.
func (r *Ring) Clone() *Ring {
	c := &Ring{
		Observations:    make([]Observation, len(r.Observations)),
		Index:           r.Index,
		Cardinality:     r.Cardinality,
		CardinalityNext: r.CardinalityNext,
	}
	for i, o := range r.Observations {
		c.Observations[i] = o.clone()
	}
	return c
}
