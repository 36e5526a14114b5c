// Package tickbitmap tracks initialized ticks in a two-level structure: a map
// from word index to a 256-bit word, one bit per initializable tick.
//
// The swap loop uses it to bound each step by the next initialized tick within
// the current word, so a step never silently skips a liquidity change.
package tickbitmap

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/defistate/clamm-go/bitmath"
)

// ErrTickNotSpaced is returned when flipping a tick that is not a multiple of
// the tick spacing.
var ErrTickNotSpaced = errors.New("tick not a multiple of tick spacing")

var (
	one        = uint256.NewInt(1)
	maxUint256 = new(uint256.Int).Not(new(uint256.Int))
)

// Bitmap maps a word position to its 256-bit word. A missing word is all
// zeroes. Bit bitPos of word wordPos corresponds to the compressed tick
// 256*wordPos + bitPos.
type Bitmap map[int16]*uint256.Int

func New() Bitmap {
	return make(Bitmap)
}

// Position locates the word and bit for a compressed tick.
func Position(tick int32) (wordPos int16, bitPos uint8) {
	// Arithmetic shift floors toward negative infinity; the AND is the
	// Euclidean remainder for negative ticks.
	return int16(tick >> 8), uint8(tick & 0xff)
}

// FlipTick toggles the initialized state of the given tick.
func (b Bitmap) FlipTick(tick, tickSpacing int32) error {
	if tick%tickSpacing != 0 {
		return ErrTickNotSpaced
	}
	wordPos, bitPos := Position(tick / tickSpacing)
	mask := new(uint256.Int).Lsh(one, uint(bitPos))
	word, ok := b[wordPos]
	if !ok {
		word = new(uint256.Int)
		b[wordPos] = word
	}
	word.Xor(word, mask)
	if word.IsZero() {
		delete(b, wordPos)
	}
	return nil
}

// Word returns the 256-bit word at the given position. The returned value must
// not be mutated.
func (b Bitmap) Word(wordPos int16) *uint256.Int {
	if word, ok := b[wordPos]; ok {
		return word
	}
	return new(uint256.Int)
}

// NextInitializedTickWithinOneWord returns the next initialized tick contained
// in the same word as the tick one step in the search direction, or the word
// boundary when the word holds no initialized tick past the starting point.
// lte=true searches downward (and includes the starting tick), lte=false
// searches strictly upward.
func (b Bitmap) NextInitializedTickWithinOneWord(tick, tickSpacing int32, lte bool) (next int32, initialized bool) {
	compressed := tick / tickSpacing
	if tick < 0 && tick%tickSpacing != 0 {
		compressed-- // round towards negative infinity
	}

	if lte {
		wordPos, bitPos := Position(compressed)
		// Bits at or below bitPos.
		mask := new(uint256.Int).Rsh(maxUint256, uint(255-bitPos))
		masked := new(uint256.Int).And(b.Word(wordPos), mask)

		if !masked.IsZero() {
			msb, _ := bitmath.MostSignificantBit(masked)
			return (compressed - int32(bitPos-msb)) * tickSpacing, true
		}
		return (compressed - int32(bitPos)) * tickSpacing, false
	}

	// Start from the next tick since the current one is never returned when
	// searching upward.
	wordPos, bitPos := Position(compressed + 1)
	// Bits at or above bitPos.
	mask := new(uint256.Int).Lsh(maxUint256, uint(bitPos))
	masked := new(uint256.Int).And(b.Word(wordPos), mask)

	if !masked.IsZero() {
		lsb, _ := bitmath.LeastSignificantBit(masked)
		return (compressed + 1 + int32(lsb-bitPos)) * tickSpacing, true
	}
	return (compressed + 1 + int32(255-bitPos)) * tickSpacing, false
}

// Clone returns a deep copy of the bitmap.
func (b Bitmap) Clone() Bitmap {
	c := make(Bitmap, len(b))
	for wordPos, word := range b {
		c[wordPos] = word.Clone()
	}
	return c
}
