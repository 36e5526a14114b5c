package liquiditymath

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	// MaxUint128 is the maximum value a liquidity amount may take (2^128 - 1).
	MaxUint128 = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 128), 1)

	// ErrLiquiditySub is the terminal code LS: removing more liquidity than is held.
	ErrLiquiditySub = errors.New("LS")
	// ErrLiquidityAdd is the terminal code LA: liquidity exceeding 2^128 - 1.
	ErrLiquidityAdd = errors.New("LA")
)

// AddDelta adds a signed (two's complement) liquidity delta to an unsigned
// u128 liquidity value.
func AddDelta(x, y *uint256.Int) (*uint256.Int, error) {
	z := new(uint256.Int).Add(x, y)
	if y.Sign() < 0 {
		// y is negative: the wrapped sum underflowed iff it grew.
		if z.Gt(x) {
			return nil, ErrLiquiditySub
		}
		return z, nil
	}
	if z.Gt(MaxUint128) {
		return nil, ErrLiquidityAdd
	}
	return z, nil
}
