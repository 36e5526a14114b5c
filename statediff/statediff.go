// Package statediff captures comparable snapshots of pool state and computes
// field-level diffs between them. Diffs are both a reporting format and a
// replayable patch: Apply rebuilds a later view from an earlier one.
package statediff

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/defistate/clamm-go/pool"
)

var (
	// ErrAddressMismatch means the diff was produced for a different pool.
	ErrAddressMismatch = errors.New("diff does not belong to this pool")
	// ErrStaleBase means a field's current value does not match the diff's
	// recorded old value.
	ErrStaleBase = errors.New("diff base does not match view")
)

// PoolView is an immutable snapshot of the externally visible pool state.
type PoolView struct {
	Address                    common.Address `json:"address"`
	SqrtPriceX96               *uint256.Int   `json:"sqrtPriceX96"`
	Tick                       int32          `json:"tick"`
	Liquidity                  *uint256.Int   `json:"liquidity"`
	FeeGrowthGlobal0X128       *uint256.Int   `json:"feeGrowthGlobal0X128"`
	FeeGrowthGlobal1X128       *uint256.Int   `json:"feeGrowthGlobal1X128"`
	ProtocolFees0              *uint256.Int   `json:"protocolFees0"`
	ProtocolFees1              *uint256.Int   `json:"protocolFees1"`
	ObservationIndex           uint16         `json:"observationIndex"`
	ObservationCardinality     uint16         `json:"observationCardinality"`
	ObservationCardinalityNext uint16         `json:"observationCardinalityNext"`
}

// Capture snapshots the pool.
func Capture(p *pool.Pool) PoolView {
	slot0 := p.Slot0()
	fees := p.ProtocolFees()
	return PoolView{
		Address:                    p.Address(),
		SqrtPriceX96:               slot0.SqrtPriceX96,
		Tick:                       slot0.Tick,
		Liquidity:                  p.Liquidity(),
		FeeGrowthGlobal0X128:       p.FeeGrowthGlobal0X128(),
		FeeGrowthGlobal1X128:       p.FeeGrowthGlobal1X128(),
		ProtocolFees0:              fees.Token0,
		ProtocolFees1:              fees.Token1,
		ObservationIndex:           slot0.ObservationIndex,
		ObservationCardinality:     slot0.ObservationCardinality,
		ObservationCardinalityNext: slot0.ObservationCardinalityNext,
	}
}

// FieldChange records one field's transition.
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// PoolDiff is the set of fields that changed between two views of one pool.
type PoolDiff struct {
	Address common.Address `json:"address"`
	Changes []FieldChange  `json:"changes"`
}

// Empty reports whether the diff carries no changes.
func (d *PoolDiff) Empty() bool { return d == nil || len(d.Changes) == 0 }

// fields enumerates the diffable fields in a stable order.
func (v PoolView) fields() []FieldChange {
	return []FieldChange{
		{Field: "sqrtPriceX96", New: v.SqrtPriceX96.Dec()},
		{Field: "tick", New: fmt.Sprintf("%d", v.Tick)},
		{Field: "liquidity", New: v.Liquidity.Dec()},
		{Field: "feeGrowthGlobal0X128", New: v.FeeGrowthGlobal0X128.Dec()},
		{Field: "feeGrowthGlobal1X128", New: v.FeeGrowthGlobal1X128.Dec()},
		{Field: "protocolFees0", New: v.ProtocolFees0.Dec()},
		{Field: "protocolFees1", New: v.ProtocolFees1.Dec()},
		{Field: "observationIndex", New: fmt.Sprintf("%d", v.ObservationIndex)},
		{Field: "observationCardinality", New: fmt.Sprintf("%d", v.ObservationCardinality)},
		{Field: "observationCardinalityNext", New: fmt.Sprintf("%d", v.ObservationCardinalityNext)},
	}
}

// Diff compares two views of the same pool and returns the changed fields,
// or a diff with no changes when the views are identical.
func Diff(old, new PoolView) (*PoolDiff, error) {
	if old.Address != new.Address {
		return nil, ErrAddressMismatch
	}
	oldFields := old.fields()
	newFields := new.fields()

	diff := &PoolDiff{Address: new.Address}
	for i, nf := range newFields {
		if oldFields[i].New != nf.New {
			diff.Changes = append(diff.Changes, FieldChange{
				Field: nf.Field,
				Old:   oldFields[i].New,
				New:   nf.New,
			})
		}
	}
	return diff, nil
}

// Apply replays a diff onto a base view, producing the later view. The base is
// not mutated. Every changed field's old value must match the base, so replays
// against the wrong starting point fail instead of silently diverging.
func Apply(base PoolView, diff *PoolDiff) (PoolView, error) {
	if diff == nil {
		return base, nil
	}
	if base.Address != diff.Address {
		return PoolView{}, ErrAddressMismatch
	}

	next := base
	for _, change := range diff.Changes {
		if err := next.set(change); err != nil {
			return PoolView{}, err
		}
	}
	return next, nil
}

func (v *PoolView) set(change FieldChange) error {
	switch change.Field {
	case "sqrtPriceX96":
		return setUint256(&v.SqrtPriceX96, change)
	case "tick":
		return setInt32(&v.Tick, change)
	case "liquidity":
		return setUint256(&v.Liquidity, change)
	case "feeGrowthGlobal0X128":
		return setUint256(&v.FeeGrowthGlobal0X128, change)
	case "feeGrowthGlobal1X128":
		return setUint256(&v.FeeGrowthGlobal1X128, change)
	case "protocolFees0":
		return setUint256(&v.ProtocolFees0, change)
	case "protocolFees1":
		return setUint256(&v.ProtocolFees1, change)
	case "observationIndex":
		return setUint16(&v.ObservationIndex, change)
	case "observationCardinality":
		return setUint16(&v.ObservationCardinality, change)
	case "observationCardinalityNext":
		return setUint16(&v.ObservationCardinalityNext, change)
	default:
		return fmt.Errorf("unknown field %q", change.Field)
	}
}

func setUint256(field **uint256.Int, change FieldChange) error {
	if (*field).Dec() != change.Old {
		return fmt.Errorf("%w: field %s has %s, diff expects %s",
			ErrStaleBase, change.Field, (*field).Dec(), change.Old)
	}
	value, err := uint256.FromDecimal(change.New)
	if err != nil {
		return fmt.Errorf("field %s: %w", change.Field, err)
	}
	*field = value
	return nil
}

func setInt32(field *int32, change FieldChange) error {
	if fmt.Sprintf("%d", *field) != change.Old {
		return fmt.Errorf("%w: field %s has %d, diff expects %s",
			ErrStaleBase, change.Field, *field, change.Old)
	}
	var value int32
	if _, err := fmt.Sscanf(change.New, "%d", &value); err != nil {
		return fmt.Errorf("field %s: %w", change.Field, err)
	}
	*field = value
	return nil
}

func setUint16(field *uint16, change FieldChange) error {
	if fmt.Sprintf("%d", *field) != change.Old {
		return fmt.Errorf("%w: field %s has %d, diff expects %s",
			ErrStaleBase, change.Field, *field, change.Old)
	}
	var value uint16
	if _, err := fmt.Sscanf(change.New, "%d", &value); err != nil {
		return fmt.Errorf("field %s: %w", change.Field, err)
	}
	*field = value
	return nil
}
