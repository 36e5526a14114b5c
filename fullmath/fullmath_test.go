package fullmath

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var maxUint256 = new(uint256.Int).Not(new(uint256.Int))

func TestMulDiv(t *testing.T) {
	q128 := new(uint256.Int).Lsh(uint256.NewInt(1), 128)

	testCases := []struct {
		name        string
		a, b, denom *uint256.Int
		expected    *uint256.Int
		err         error
	}{
		{"Simple", uint256.NewInt(6), uint256.NewInt(7), uint256.NewInt(2), uint256.NewInt(21), nil},
		{"Rounds down", uint256.NewInt(7), uint256.NewInt(3), uint256.NewInt(2), uint256.NewInt(10), nil},
		{"Intermediate overflow survives", q128, q128, q128, q128.Clone(), nil},
		{"Max times one", maxUint256, uint256.NewInt(1), uint256.NewInt(1), maxUint256.Clone(), nil},
		{"Zero numerator", new(uint256.Int), q128, q128, new(uint256.Int), nil},
		{"Denominator zero", uint256.NewInt(5), uint256.NewInt(5), new(uint256.Int), nil, ErrDenominatorZero},
		{"Result overflow", maxUint256, maxUint256, uint256.NewInt(1), nil, ErrOverflow},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := MulDiv(tc.a, tc.b, tc.denom)
			if tc.err != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.err)
			} else {
				require.NoError(t, err)
				assert.True(t, tc.expected.Eq(result), "expected %s, got %s", tc.expected, result)
			}
		})
	}
}

func TestMulDivRoundingUp(t *testing.T) {
	testCases := []struct {
		name        string
		a, b, denom *uint256.Int
		expected    *uint256.Int
		err         error
	}{
		{"Exact", uint256.NewInt(6), uint256.NewInt(4), uint256.NewInt(8), uint256.NewInt(3), nil},
		{"Rounds up", uint256.NewInt(7), uint256.NewInt(3), uint256.NewInt(2), uint256.NewInt(11), nil},
		{"Denominator zero", uint256.NewInt(5), uint256.NewInt(5), new(uint256.Int), nil, ErrDenominatorZero},
		{"Overflow after rounding", maxUint256, maxUint256, new(uint256.Int).SubUint64(maxUint256, 1), nil, ErrOverflow},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := MulDivRoundingUp(tc.a, tc.b, tc.denom)
			if tc.err != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.err)
			} else {
				require.NoError(t, err)
				assert.True(t, tc.expected.Eq(result), "expected %s, got %s", tc.expected, result)
			}
		})
	}
}

func TestDivRoundingUp(t *testing.T) {
	testCases := []struct {
		name     string
		x, y     *uint256.Int
		expected *uint256.Int
		err      error
	}{
		{"Exact", uint256.NewInt(10), uint256.NewInt(5), uint256.NewInt(2), nil},
		{"Rounds up", uint256.NewInt(10), uint256.NewInt(3), uint256.NewInt(4), nil},
		{"Zero numerator", new(uint256.Int), uint256.NewInt(3), new(uint256.Int), nil},
		{"Division by zero", uint256.NewInt(10), new(uint256.Int), nil, ErrDenominatorZero},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := DivRoundingUp(tc.x, tc.y)
			if tc.err != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.err)
			} else {
				require.NoError(t, err)
				assert.True(t, tc.expected.Eq(result), "expected %s, got %s", tc.expected, result)
			}
		})
	}
}

// TestMulDiv_Invariant checks MulDiv against big.Int reference arithmetic on
// random inputs.
func TestMulDiv_Invariant(t *testing.T) {
	for i := 0; i < 256; i++ {
		a := randomUint256(t)
		b := randomUint256(t)
		denom := randomUint256(t)
		if denom.IsZero() {
			continue
		}

		expected := new(big.Int).Mul(a.ToBig(), b.ToBig())
		expected.Div(expected, denom.ToBig())

		result, err := MulDiv(a, b, denom)
		if expected.BitLen() > 256 {
			assert.ErrorIs(t, err, ErrOverflow)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, expected.String(), result.Dec())

		// Rounding up differs from rounding down by at most one.
		up, err := MulDivRoundingUp(a, b, denom)
		require.NoError(t, err)
		diff := new(uint256.Int).Sub(up, result)
		assert.True(t, diff.LtUint64(2))
	}
}

func randomUint256(t *testing.T) *uint256.Int {
	t.Helper()
	var buf [32]byte
	_, err := rand.Read(buf[:])
	require.NoError(t, err)
	return new(uint256.Int).SetBytes(buf[:])
}
