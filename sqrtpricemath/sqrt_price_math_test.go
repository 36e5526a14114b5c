package sqrtpricemath

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func q96Times(n, d uint64) *uint256.Int {
	x := new(uint256.Int).Mul(Q96, uint256.NewInt(n))
	return x.Div(x, uint256.NewInt(d))
}

func TestGetNextSqrtPriceFromInput(t *testing.T) {
	t.Run("rejects zero price", func(t *testing.T) {
		_, err := GetNextSqrtPriceFromInput(new(uint256.Int), uint256.NewInt(1), uint256.NewInt(1), true)
		assert.ErrorIs(t, err, ErrSqrtPriceZero)
	})

	t.Run("rejects zero liquidity", func(t *testing.T) {
		_, err := GetNextSqrtPriceFromInput(Q96, new(uint256.Int), uint256.NewInt(1), true)
		assert.ErrorIs(t, err, ErrLiquidityZero)
	})

	t.Run("zero amount is identity", func(t *testing.T) {
		for _, zeroForOne := range []bool{true, false} {
			next, err := GetNextSqrtPriceFromInput(Q96, uint256.NewInt(1000), new(uint256.Int), zeroForOne)
			require.NoError(t, err)
			assert.True(t, Q96.Eq(next))
		}
	})

	t.Run("token0 input halves price at matching size", func(t *testing.T) {
		// L = 1000 at price 1: adding 1000 token0 doubles the virtual token0
		// reserve, halving the sqrt price... squared. sqrtP' = L*sqrtP/(L + dx*sqrtP/2^96).
		next, err := GetNextSqrtPriceFromInput(Q96, uint256.NewInt(1000), uint256.NewInt(1000), true)
		require.NoError(t, err)
		assert.True(t, q96Times(1, 2).Eq(next), "got %s", next)
	})

	t.Run("token1 input raises price exactly", func(t *testing.T) {
		// sqrtP' = sqrtP + dy*2^96/L: 500 token1 on L=1000 adds half.
		next, err := GetNextSqrtPriceFromInput(Q96, uint256.NewInt(1000), uint256.NewInt(500), false)
		require.NoError(t, err)
		assert.True(t, q96Times(3, 2).Eq(next), "got %s", next)
	})

	t.Run("price never moves through zero", func(t *testing.T) {
		// A huge token0 input pushes the price toward zero but must stay
		// positive.
		huge := new(uint256.Int).Lsh(uint256.NewInt(1), 128)
		next, err := GetNextSqrtPriceFromInput(Q96, uint256.NewInt(1), huge, true)
		require.NoError(t, err)
		assert.False(t, next.IsZero())
	})
}

func TestGetNextSqrtPriceFromOutput(t *testing.T) {
	t.Run("token1 output lowers price exactly", func(t *testing.T) {
		next, err := GetNextSqrtPriceFromOutput(Q96, uint256.NewInt(1000), uint256.NewInt(500), true)
		require.NoError(t, err)
		assert.True(t, q96Times(1, 2).Eq(next), "got %s", next)
	})

	t.Run("token0 output raises price", func(t *testing.T) {
		// Removing 500 token0 from L=1000 at price 1 doubles the sqrt price.
		next, err := GetNextSqrtPriceFromOutput(Q96, uint256.NewInt(1000), uint256.NewInt(500), false)
		require.NoError(t, err)
		assert.True(t, q96Times(2, 1).Eq(next), "got %s", next)
	})

	t.Run("cannot withdraw more token1 than the range holds", func(t *testing.T) {
		_, err := GetNextSqrtPriceFromOutput(Q96, uint256.NewInt(1), new(uint256.Int).Lsh(uint256.NewInt(1), 100), true)
		assert.Error(t, err)
	})
}

func TestGetAmount0Delta(t *testing.T) {
	t.Run("exact over doubling range", func(t *testing.T) {
		// amount0 = L*(b-a)*2^96/(a*b) with a=1, b=2 in Q96: exactly L/2.
		amount, err := GetAmount0Delta(Q96, q96Times(2, 1), uint256.NewInt(1000), true)
		require.NoError(t, err)
		assert.True(t, uint256.NewInt(500).Eq(amount), "got %s", amount)

		down, err := GetAmount0Delta(Q96, q96Times(2, 1), uint256.NewInt(1000), false)
		require.NoError(t, err)
		assert.True(t, amount.Eq(down), "exact division must not round")
	})

	t.Run("operand order does not matter", func(t *testing.T) {
		a, err := GetAmount0Delta(Q96, q96Times(2, 1), uint256.NewInt(12345), true)
		require.NoError(t, err)
		b, err := GetAmount0Delta(q96Times(2, 1), Q96, uint256.NewInt(12345), true)
		require.NoError(t, err)
		assert.True(t, a.Eq(b))
	})

	t.Run("rounding up exceeds rounding down by at most one", func(t *testing.T) {
		up, err := GetAmount0Delta(Q96, q96Times(3, 1), uint256.NewInt(7777), true)
		require.NoError(t, err)
		down, err := GetAmount0Delta(Q96, q96Times(3, 1), uint256.NewInt(7777), false)
		require.NoError(t, err)
		diff := new(uint256.Int).Sub(up, down)
		assert.True(t, diff.LtUint64(2))
	})

	t.Run("zero liquidity", func(t *testing.T) {
		amount, err := GetAmount0Delta(Q96, q96Times(2, 1), new(uint256.Int), true)
		require.NoError(t, err)
		assert.True(t, amount.IsZero())
	})
}

func TestGetAmount1Delta(t *testing.T) {
	t.Run("exact over doubling range", func(t *testing.T) {
		// amount1 = L*(b-a)/2^96 with a=1, b=2 in Q96: exactly L.
		amount, err := GetAmount1Delta(Q96, q96Times(2, 1), uint256.NewInt(1000), true)
		require.NoError(t, err)
		assert.True(t, uint256.NewInt(1000).Eq(amount), "got %s", amount)
	})

	t.Run("rounding up exceeds rounding down by at most one", func(t *testing.T) {
		upper := new(uint256.Int).AddUint64(Q96, 12345)
		up, err := GetAmount1Delta(Q96, upper, uint256.NewInt(999983), true)
		require.NoError(t, err)
		down, err := GetAmount1Delta(Q96, upper, uint256.NewInt(999983), false)
		require.NoError(t, err)
		diff := new(uint256.Int).Sub(up, down)
		assert.True(t, diff.LtUint64(2))
	})
}

func TestNextPriceRoundTrip(t *testing.T) {
	// Moving the price with an input amount and recomputing the amount from
	// the two prices must reproduce at most the original amount.
	liquidity := uint256.NewInt(1_000_000_000)
	amountIn := uint256.NewInt(123_457)

	next, err := GetNextSqrtPriceFromInput(Q96, liquidity, amountIn, true)
	require.NoError(t, err)
	require.True(t, next.Lt(Q96))

	recomputed, err := GetAmount0Delta(next, Q96, liquidity, true)
	require.NoError(t, err)
	assert.False(t, recomputed.Gt(amountIn), "pool may not owe more than was paid")
}
