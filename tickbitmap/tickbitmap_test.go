package tickbitmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPosition(t *testing.T) {
	testCases := []struct {
		name    string
		tick    int32
		wordPos int16
		bitPos  uint8
	}{
		{"Zero", 0, 0, 0},
		{"Last bit of word zero", 255, 0, 255},
		{"First bit of word one", 256, 1, 0},
		{"Negative one", -1, -1, 255},
		{"Negative word boundary", -256, -1, 0},
		{"Negative below boundary", -257, -2, 255},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			wordPos, bitPos := Position(tc.tick)
			assert.Equal(t, tc.wordPos, wordPos)
			assert.Equal(t, tc.bitPos, bitPos)
		})
	}
}

func TestFlipTick(t *testing.T) {
	t.Run("rejects unspaced tick", func(t *testing.T) {
		b := New()
		assert.ErrorIs(t, b.FlipTick(1, 60), ErrTickNotSpaced)
	})

	t.Run("flip twice returns to empty", func(t *testing.T) {
		b := New()
		require.NoError(t, b.FlipTick(-240, 60))
		assert.Len(t, b, 1)
		require.NoError(t, b.FlipTick(-240, 60))
		assert.Len(t, b, 0, "empty words must be pruned")
	})

	t.Run("flips are independent per tick", func(t *testing.T) {
		b := New()
		require.NoError(t, b.FlipTick(-240, 60))
		require.NoError(t, b.FlipTick(-180, 60))
		require.NoError(t, b.FlipTick(-240, 60))

		next, initialized := b.NextInitializedTickWithinOneWord(-120, 60, true)
		assert.True(t, initialized)
		assert.Equal(t, int32(-180), next)
	})
}

func TestNextInitializedTickWithinOneWord(t *testing.T) {
	b := New()
	for _, tick := range []int32{-200, 70, 78, 84, 139, 240, 535} {
		require.NoError(t, b.FlipTick(tick, 1))
	}

	t.Run("search right", func(t *testing.T) {
		testCases := []struct {
			name        string
			tick        int32
			next        int32
			initialized bool
		}{
			{"finds next above", 78, 84, true},
			{"starting tick is excluded", 77, 78, true},
			{"skips to word end when empty", 255, 511, false},
			{"stops at word boundary", 254, 255, false},
			{"finds within later word", 535, 767, false},
			{"negative to initialized", -257, -200, true},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				next, initialized := b.NextInitializedTickWithinOneWord(tc.tick, 1, false)
				assert.Equal(t, tc.next, next)
				assert.Equal(t, tc.initialized, initialized)
			})
		}
	})

	t.Run("search left", func(t *testing.T) {
		testCases := []struct {
			name        string
			tick        int32
			next        int32
			initialized bool
		}{
			{"starting tick is included", 78, 78, true},
			{"finds next below", 79, 78, true},
			{"word floor when empty below", 258, 256, false},
			{"exactly at initialized", 256, 256, false},
			{"finds in negative word", -100, -200, true},
			{"negative word floor", -300, -512, false},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				next, initialized := b.NextInitializedTickWithinOneWord(tc.tick, 1, true)
				assert.Equal(t, tc.next, next)
				assert.Equal(t, tc.initialized, initialized)
			})
		}
	})
}

func TestNextInitializedTickWithinOneWord_Spacing(t *testing.T) {
	b := New()
	require.NoError(t, b.FlipTick(120, 60))
	require.NoError(t, b.FlipTick(-120, 60))

	// Compressed words hold ticks divided by spacing, so 120 at spacing 60
	// sits at bit 2 of word 0.
	next, initialized := b.NextInitializedTickWithinOneWord(0, 60, false)
	assert.True(t, initialized)
	assert.Equal(t, int32(120), next)

	next, initialized = b.NextInitializedTickWithinOneWord(0, 60, true)
	assert.False(t, initialized)
	assert.Equal(t, int32(0), next)

	next, initialized = b.NextInitializedTickWithinOneWord(-60, 60, true)
	assert.True(t, initialized)
	assert.Equal(t, int32(-120), next)
}

func TestClone(t *testing.T) {
	b := New()
	require.NoError(t, b.FlipTick(60, 60))

	c := b.Clone()
	require.NoError(t, c.FlipTick(120, 60))

	_, initialized := b.NextInitializedTickWithinOneWord(61, 60, false)
	assert.False(t, initialized, "mutating the clone must not touch the original")
	_, initialized = c.NextInitializedTickWithinOneWord(61, 60, false)
	assert.True(t, initialized)
}
