package bitmath

import (
	"crypto/rand"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMostSignificantBit(t *testing.T) {
	testCases := []struct {
		name     string
		input    *uint256.Int
		expected uint8
		err      error
	}{
		{"Input 1", uint256.NewInt(1), 0, nil},
		{"Input 2", uint256.NewInt(2), 1, nil},
		{"Input 3", uint256.NewInt(3), 1, nil},
		{"Input 255", uint256.NewInt(255), 7, nil},
		{"Input 256", uint256.NewInt(256), 8, nil},
		{"Large Number (2^128 - 1)", new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 128), 1), 127, nil},
		{"Large Number (2^128)", new(uint256.Int).Lsh(uint256.NewInt(1), 128), 128, nil},
		{"Max uint256", new(uint256.Int).Not(new(uint256.Int)), 255, nil},
		{"Error on Zero", new(uint256.Int), 0, ErrInputIsZero},
		{"Error on Nil", nil, 0, ErrInputIsNil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := MostSignificantBit(tc.input)
			if tc.err != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expected, result)
			}
		})
	}
}

func TestLeastSignificantBit(t *testing.T) {
	testCases := []struct {
		name     string
		input    *uint256.Int
		expected uint8
		err      error
	}{
		{"Input 1", uint256.NewInt(1), 0, nil},
		{"Input 2", uint256.NewInt(2), 1, nil},
		{"Input 3", uint256.NewInt(3), 0, nil},
		{"Input 8", uint256.NewInt(8), 3, nil},
		{"Input 10", uint256.NewInt(10), 1, nil},
		{"Large Number (2^128)", new(uint256.Int).Lsh(uint256.NewInt(1), 128), 128, nil},
		{"Large Number (2^128 + 2^64)", new(uint256.Int).Or(
			new(uint256.Int).Lsh(uint256.NewInt(1), 128),
			new(uint256.Int).Lsh(uint256.NewInt(1), 64)), 64, nil},
		{"Error on Zero", new(uint256.Int), 0, ErrInputIsZero},
		{"Error on Nil", nil, 0, ErrInputIsNil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := LeastSignificantBit(tc.input)
			if tc.err != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expected, result)
			}
		})
	}
}

func TestMostSignificantBit_Invariant(t *testing.T) {
	for i := 0; i < 256; i++ {
		x := randomUint256(t)
		if x.IsZero() {
			continue
		}

		msb, err := MostSignificantBit(x)
		require.NoError(t, err)

		// x >= 2^msb and (msb == 255 or x < 2^(msb+1))
		lower := new(uint256.Int).Lsh(uint256.NewInt(1), uint(msb))
		assert.False(t, x.Lt(lower), "x must be >= 2^msb")
		if msb < 255 {
			upper := new(uint256.Int).Lsh(uint256.NewInt(1), uint(msb)+1)
			assert.True(t, x.Lt(upper), "x must be < 2^(msb+1)")
		}
	}
}

func TestLeastSignificantBit_Invariant(t *testing.T) {
	for i := 0; i < 256; i++ {
		x := randomUint256(t)
		if x.IsZero() {
			continue
		}

		lsb, err := LeastSignificantBit(x)
		require.NoError(t, err)

		mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(lsb))
		assert.False(t, new(uint256.Int).And(x, mask).IsZero(), "bit at lsb must be set")
		if lsb > 0 {
			below := new(uint256.Int).SubUint64(mask, 1)
			assert.True(t, new(uint256.Int).And(x, below).IsZero(), "no bits below lsb may be set")
		}
	}
}

func randomUint256(t *testing.T) *uint256.Int {
	t.Helper()
	var buf [32]byte
	_, err := rand.Read(buf[:])
	require.NoError(t, err)
	return new(uint256.Int).SetBytes(buf[:])
}
