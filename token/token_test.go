package token

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tokenAddr = common.HexToAddress("0x1000000000000000000000000000000000000001")
	alice     = common.HexToAddress("0xa11ce00000000000000000000000000000000001")
	bob       = common.HexToAddress("0xb0b0000000000000000000000000000000000002")
)

func TestLedger(t *testing.T) {
	t.Run("mint and balance", func(t *testing.T) {
		l := NewLedger(tokenAddr)
		assert.Equal(t, tokenAddr, l.Address())
		assert.True(t, l.BalanceOf(alice).IsZero())

		require.NoError(t, l.Mint(alice, uint256.NewInt(1000)))
		require.NoError(t, l.Mint(alice, uint256.NewInt(500)))
		assert.Equal(t, "1500", l.BalanceOf(alice).Dec())
	})

	t.Run("transfer", func(t *testing.T) {
		l := NewLedger(tokenAddr)
		require.NoError(t, l.Mint(alice, uint256.NewInt(1000)))

		require.NoError(t, l.Transfer(alice, bob, uint256.NewInt(300)))
		assert.Equal(t, "700", l.BalanceOf(alice).Dec())
		assert.Equal(t, "300", l.BalanceOf(bob).Dec())

		assert.ErrorIs(t, l.Transfer(alice, bob, uint256.NewInt(701)), ErrInsufficientBalance)
		assert.ErrorIs(t, l.Transfer(bob, alice, uint256.NewInt(301)), ErrInsufficientBalance)
	})

	t.Run("overflowing mint leaves the balance untouched", func(t *testing.T) {
		l := NewLedger(tokenAddr)
		max := new(uint256.Int).Not(new(uint256.Int))
		require.NoError(t, l.Mint(alice, max))

		assert.ErrorIs(t, l.Mint(alice, uint256.NewInt(5)), ErrBalanceOverflow)
		assert.True(t, max.Eq(l.BalanceOf(alice)), "failed mint must not wrap the balance")
	})

	t.Run("zero transfer always succeeds", func(t *testing.T) {
		l := NewLedger(tokenAddr)
		require.NoError(t, l.Transfer(alice, bob, new(uint256.Int)))
	})

	t.Run("balance copies are isolated", func(t *testing.T) {
		l := NewLedger(tokenAddr)
		require.NoError(t, l.Mint(alice, uint256.NewInt(10)))
		l.BalanceOf(alice).SetUint64(99)
		assert.Equal(t, "10", l.BalanceOf(alice).Dec())
	})
}

func TestSnapshotRestore(t *testing.T) {
	l := NewLedger(tokenAddr)
	require.NoError(t, l.Mint(alice, uint256.NewInt(1000)))

	snap := l.Snapshot()
	require.NoError(t, l.Transfer(alice, bob, uint256.NewInt(999)))
	require.NoError(t, l.Mint(bob, uint256.NewInt(5)))

	l.Restore(snap)
	assert.Equal(t, "1000", l.BalanceOf(alice).Dec())
	assert.True(t, l.BalanceOf(bob).IsZero())

	// The snapshot itself is immune to ledger mutation after restore.
	require.NoError(t, l.Transfer(alice, bob, uint256.NewInt(1)))
	assert.Equal(t, "1000", snap[alice].Dec())
}
