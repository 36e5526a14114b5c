// Package positions tracks per-owner liquidity ranges and their accrued,
// uncollected fees.
package positions

import (
	"encoding/binary"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/defistate/clamm-go/fullmath"
	"github.com/defistate/clamm-go/liquiditymath"
)

// ErrNoPosition is the terminal code NP: a poke or burn against a position
// that holds no liquidity and never has.
var ErrNoPosition = errors.New("NP")

// Info is the state of a single (owner, tickLower, tickUpper) position.
type Info struct {
	Liquidity *uint256.Int
	// FeeGrowthInside*LastX128 are the inside-growth counters as of the last
	// update, the subtrahend of the next fee accrual.
	FeeGrowthInside0LastX128 *uint256.Int
	FeeGrowthInside1LastX128 *uint256.Int
	// TokensOwed* are collectable balances, saturating at u128 max.
	TokensOwed0 *uint256.Int
	TokensOwed1 *uint256.Int
}

func newInfo() *Info {
	return &Info{
		Liquidity:                new(uint256.Int),
		FeeGrowthInside0LastX128: new(uint256.Int),
		FeeGrowthInside1LastX128: new(uint256.Int),
		TokensOwed0:              new(uint256.Int),
		TokensOwed1:              new(uint256.Int),
	}
}

func (i *Info) Clone() *Info {
	return &Info{
		Liquidity:                i.Liquidity.Clone(),
		FeeGrowthInside0LastX128: i.FeeGrowthInside0LastX128.Clone(),
		FeeGrowthInside1LastX128: i.FeeGrowthInside1LastX128.Clone(),
		TokensOwed0:              i.TokensOwed0.Clone(),
		TokensOwed1:              i.TokensOwed1.Clone(),
	}
}

// Key derives the position identifier from the owner and tick bounds. Ticks
// are serialized big-endian so distinct ranges never collide.
func Key(owner common.Address, tickLower, tickUpper int32) common.Hash {
	var buf [28]byte
	copy(buf[:20], owner.Bytes())
	binary.BigEndian.PutUint32(buf[20:24], uint32(tickLower))
	binary.BigEndian.PutUint32(buf[24:28], uint32(tickUpper))
	return crypto.Keccak256Hash(buf[:])
}

// Map is the position table keyed by Key.
type Map map[common.Hash]*Info

func New() Map {
	return make(Map)
}

// Get returns the position entry, creating it if absent.
func (m Map) Get(owner common.Address, tickLower, tickUpper int32) *Info {
	k := Key(owner, tickLower, tickUpper)
	if info, ok := m[k]; ok {
		return info
	}
	info := newInfo()
	m[k] = info
	return info
}

// Update applies a signed liquidity delta and settles fees against the given
// inside-growth counters. The growth delta is computed with wrap-around
// subtraction, so counters that overflowed u256 since the last touch still
// yield the right owed amount.
func (i *Info) Update(liquidityDelta, feeGrowthInside0X128, feeGrowthInside1X128 *uint256.Int) error {
	var liquidityNext *uint256.Int
	if liquidityDelta.IsZero() {
		if i.Liquidity.IsZero() {
			return ErrNoPosition
		}
		liquidityNext = i.Liquidity
	} else {
		var err error
		liquidityNext, err = liquiditymath.AddDelta(i.Liquidity, liquidityDelta)
		if err != nil {
			return err
		}
	}

	delta0 := new(uint256.Int).Sub(feeGrowthInside0X128, i.FeeGrowthInside0LastX128)
	delta1 := new(uint256.Int).Sub(feeGrowthInside1X128, i.FeeGrowthInside1LastX128)
	owed0 := owedFees(delta0, i.Liquidity)
	owed1 := owedFees(delta1, i.Liquidity)

	i.Liquidity = liquidityNext
	i.FeeGrowthInside0LastX128 = feeGrowthInside0X128.Clone()
	i.FeeGrowthInside1LastX128 = feeGrowthInside1X128.Clone()
	if !owed0.IsZero() {
		i.TokensOwed0.Add(i.TokensOwed0, owed0)
		if i.TokensOwed0.Gt(liquiditymath.MaxUint128) {
			i.TokensOwed0.Set(liquiditymath.MaxUint128)
		}
	}
	if !owed1.IsZero() {
		i.TokensOwed1.Add(i.TokensOwed1, owed1)
		if i.TokensOwed1.Gt(liquiditymath.MaxUint128) {
			i.TokensOwed1.Set(liquiditymath.MaxUint128)
		}
	}
	return nil
}

// owedFees converts a growth delta into token amounts. Overflow past u256
// saturates; the owed balance clamps to u128 anyway.
func owedFees(deltaX128, liquidity *uint256.Int) *uint256.Int {
	owed, err := fullmath.MulDiv(deltaX128, liquidity, fullmath.Q128)
	if err != nil {
		return liquiditymath.MaxUint128.Clone()
	}
	return owed
}

// Clone returns a deep copy of the position table.
func (m Map) Clone() Map {
	c := make(Map, len(m))
	for k, info := range m {
		c[k] = info.Clone()
	}
	return c
}
