// Package tickmath maps between ticks and Q64.96 sqrt prices.
//
// price(tick) = 1.0001^tick, and the pool works in sqrt(price) * 2^96, so the
// two directions here are GetSqrtRatioAtTick and GetTickAtSqrtRatio. The pair
// is a bijection on the tick grid: GetTickAtSqrtRatio(GetSqrtRatioAtTick(t)) == t
// for every t in [MIN_TICK, MAX_TICK].
package tickmath

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

var (
	// MIN_TICK is the minimum tick that may be passed to GetSqrtRatioAtTick.
	MIN_TICK = int32(-887272)
	// MAX_TICK is the maximum tick that may be passed to GetSqrtRatioAtTick.
	MAX_TICK = int32(887272)

	// MIN_SQRT_RATIO is the value of GetSqrtRatioAtTick(MIN_TICK).
	MIN_SQRT_RATIO = uint256.NewInt(4295128739)
	// MAX_SQRT_RATIO is the value of GetSqrtRatioAtTick(MAX_TICK).
	MAX_SQRT_RATIO = uint256.MustFromBig(fromDec("1461446703485210103287273052203988822378723970342"))

	// ErrTickOutOfBounds is the terminal code T: a tick outside [MIN_TICK, MAX_TICK].
	ErrTickOutOfBounds = errors.New("T")
	// ErrSqrtPriceOutOfBounds is the terminal code R: a sqrt price outside
	// [MIN_SQRT_RATIO, MAX_SQRT_RATIO).
	ErrSqrtPriceOutOfBounds = errors.New("R")

	one        = uint256.NewInt(1)
	maxUint256 = new(uint256.Int).Not(new(uint256.Int))

	// Constants for GetSqrtRatioAtTick, pre-parsed from hex.
	// Each entry approximates sqrt(1.0001^2^i) in UQ128.128, plus a mask.
	ratioConstants = [22]*uint256.Int{
		uint256.MustFromBig(fromHex("0xfffcb933bd6fad37aa2d162d1a594001")),  // sqrt(1.0001^1)
		uint256.MustFromBig(fromHex("0x100000000000000000000000000000000")), // 1 in UQ128.128
		uint256.MustFromBig(fromHex("0xfff97272373d413259a46990580e213a")),  // sqrt(1.0001^2)
		uint256.MustFromBig(fromHex("0xfff2e50f5f656932ef12357cf3c7fdcc")),  // sqrt(1.0001^4)
		uint256.MustFromBig(fromHex("0xffe5caca7e10e4e61c3624eaa0941cd0")),  // sqrt(1.0001^8)
		uint256.MustFromBig(fromHex("0xffcb9843d60f6159c9db58835c926644")),  // sqrt(1.0001^16)
		uint256.MustFromBig(fromHex("0xff973b41fa98c081472e6896dfb254c0")),  // sqrt(1.0001^32)
		uint256.MustFromBig(fromHex("0xff2ea16466c96a3843ec78b326b52861")),  // sqrt(1.0001^64)
		uint256.MustFromBig(fromHex("0xfe5dee046a99a2a811c461f1969c3053")),  // sqrt(1.0001^128)
		uint256.MustFromBig(fromHex("0xfcbe86c7900a88aedcffc83b479aa3a4")),  // sqrt(1.0001^256)
		uint256.MustFromBig(fromHex("0xf987a7253ac413176f2b074cf7815e54")),  // sqrt(1.0001^512)
		uint256.MustFromBig(fromHex("0xf3392b0822b70005940c7a398e4b70f3")),  // sqrt(1.0001^1024)
		uint256.MustFromBig(fromHex("0xe7159475a2c29b7443b29c7fa6e889d9")),  // sqrt(1.0001^2048)
		uint256.MustFromBig(fromHex("0xd097f3bdfd2022b8845ad8f792aa5825")),  // sqrt(1.0001^4096)
		uint256.MustFromBig(fromHex("0xa9f746462d870fdf8a65dc1f90e061e5")),  // sqrt(1.0001^8192)
		uint256.MustFromBig(fromHex("0x70d869a156d2a1b890bb3df62baf32f7")),  // sqrt(1.0001^16384)
		uint256.MustFromBig(fromHex("0x31be135f97d08fd981231505542fcfa6")),  // sqrt(1.0001^32768)
		uint256.MustFromBig(fromHex("0x9aa508b5b7a84e1c677de54f3e99bc9")),   // sqrt(1.0001^65536)
		uint256.MustFromBig(fromHex("0x5d6af8dedb81196699c329225ee604")),    // sqrt(1.0001^131072)
		uint256.MustFromBig(fromHex("0x2216e584f5fa1ea926041bedfe98")),      // sqrt(1.0001^262144)
		uint256.MustFromBig(fromHex("0x48a170391f7dc42444e8fa2")),           // sqrt(1.0001^524288)
		uint256.MustFromBig(fromHex("0xffffffff")),                          // mask for rounding
	}
)

// GetSqrtRatioAtTick calculates sqrt(1.0001^tick) * 2^96, rounded up.
func GetSqrtRatioAtTick(tick int32) (*uint256.Int, error) {
	if tick < MIN_TICK || tick > MAX_TICK {
		return nil, ErrTickOutOfBounds
	}

	absTick := tick
	if tick < 0 {
		absTick = -tick
	}

	// Initialize the ratio from the least significant bit of absTick, then
	// fold in one constant per remaining set bit.
	ratio := new(uint256.Int)
	if (absTick & 0x1) != 0 {
		ratio.Set(ratioConstants[0])
	} else {
		ratio.Set(ratioConstants[1])
	}
	for i := 2; i < 21; i++ {
		if (absTick & (1 << (i - 1))) != 0 {
			ratio.Mul(ratio, ratioConstants[i]).Rsh(ratio, 128)
		}
	}

	// Positive ticks take the reciprocal of the accumulated product.
	if tick > 0 {
		ratio.Div(maxUint256, ratio)
	}

	// Downshift from Q128.128 to Q64.96, rounding up.
	rem := new(uint256.Int).And(ratio, ratioConstants[21])
	ratio.Rsh(ratio, 32)
	if !rem.IsZero() {
		ratio.Add(ratio, one)
	}
	return ratio, nil
}

// GetTickAtSqrtRatio returns the greatest tick t such that
// GetSqrtRatioAtTick(t) <= sqrtPriceX96. It binary-searches the tick range,
// which makes the round-trip property hold by construction.
func GetTickAtSqrtRatio(sqrtPriceX96 *uint256.Int) (int32, error) {
	if sqrtPriceX96.Lt(MIN_SQRT_RATIO) || !sqrtPriceX96.Lt(MAX_SQRT_RATIO) {
		return 0, ErrSqrtPriceOutOfBounds
	}

	low := MIN_TICK
	high := MAX_TICK
	var tick int32
	for low <= high {
		mid := (low + high) / 2
		sqrtRatio, err := GetSqrtRatioAtTick(mid)
		if err != nil {
			return 0, err // unreachable within the valid range
		}
		if sqrtRatio.Cmp(sqrtPriceX96) <= 0 {
			// mid is a candidate; try to find a larger tick that still fits.
			tick = mid
			low = mid + 1
		} else {
			high = mid - 1
		}
	}
	return tick, nil
}

// Helper to create a big.Int from a hex string.
func fromHex(s string) *big.Int {
	n, _ := new(big.Int).SetString(s[2:], 16)
	return n
}

// Helper to create a big.Int from a decimal string.
func fromDec(s string) *big.Int {
	n, _ := new(big.Int).SetString(s, 10)
	return n
}
