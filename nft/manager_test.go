package nft

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defistate/clamm-go/factory"
	"github.com/defistate/clamm-go/pool"
	"github.com/defistate/clamm-go/tickmath"
	"github.com/defistate/clamm-go/token"
)

var (
	protocolOwner = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	managerAddr   = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	alice         = common.HexToAddress("0xa11ce00000000000000000000000000000000001")
	bob           = common.HexToAddress("0xb0b0000000000000000000000000000000000002")
	carol         = common.HexToAddress("0xca40100000000000000000000000000000000003")
	token0Addr    = common.HexToAddress("0x1000000000000000000000000000000000000001")
	token1Addr    = common.HexToAddress("0x2000000000000000000000000000000000000002")
)

type testEnv struct {
	t       *testing.T
	manager *Manager
	pool    *pool.Pool
	token0  *token.Ledger
	token1  *token.Ledger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	f, err := factory.New(factory.Config{
		Owner: protocolOwner,
		Clock: func() uint32 { return 1000 },
	})
	require.NoError(t, err)

	token0 := token.NewLedger(token0Addr)
	token1 := token.NewLedger(token1Addr)
	funds := new(uint256.Int).Lsh(uint256.NewInt(1), 100)
	for _, account := range []common.Address{alice, bob, carol} {
		require.NoError(t, token0.Mint(account, funds))
		require.NoError(t, token1.Mint(account, funds))
	}

	p, err := f.CreatePool(token0, token1, 3000)
	require.NoError(t, err)
	require.NoError(t, p.Initialize(new(uint256.Int).Lsh(uint256.NewInt(1), 96)))

	return &testEnv{
		t:       t,
		manager: NewManager(f, managerAddr, nil),
		pool:    p,
		token0:  token0,
		token1:  token1,
	}
}

func (e *testEnv) mintParams(recipient common.Address, amount uint64) MintParams {
	return MintParams{
		Payer:     recipient,
		Recipient: recipient,
		Token0:    token0Addr,
		Token1:    token1Addr,
		Fee:       3000,
		TickLower: -60,
		TickUpper: 60,
		Amount:    uint256.NewInt(amount),
	}
}

// trader settles swap callbacks from its own balance so the tests can
// generate fee income for positions.
type trader struct {
	pool *pool.Pool
	from common.Address
}

func (c *trader) SwapCallback(amount0Delta, amount1Delta *uint256.Int, _ []byte) error {
	if amount0Delta.Sign() > 0 {
		return c.pool.Token0().Transfer(c.from, c.pool.Address(), amount0Delta)
	}
	if amount1Delta.Sign() > 0 {
		return c.pool.Token1().Transfer(c.from, c.pool.Address(), amount1Delta)
	}
	return nil
}

// roundTrip swaps down and back up so both tokens accrue fees without
// moving the price out of the [-60, 60) band.
func (e *testEnv) roundTrip(amount uint64) {
	e.t.Helper()
	cb := &trader{pool: e.pool, from: carol}
	down := new(uint256.Int).AddUint64(tickmath.MIN_SQRT_RATIO, 1)
	up := new(uint256.Int).SubUint64(tickmath.MAX_SQRT_RATIO, 1)
	_, amount1, err := e.pool.Swap(carol, carol, true, uint256.NewInt(amount), down, cb, nil)
	require.NoError(e.t, err)
	back := new(uint256.Int).Neg(amount1)
	_, _, err = e.pool.Swap(carol, carol, false, back, up, cb, nil)
	require.NoError(e.t, err)
}

func TestMintToken(t *testing.T) {
	env := newTestEnv(t)

	tokenID, amount0, amount1, err := env.manager.Mint(env.mintParams(alice, 1_000_000))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), tokenID)
	assert.False(t, amount0.IsZero())
	assert.False(t, amount1.IsZero())

	owner, err := env.manager.OwnerOf(tokenID)
	require.NoError(t, err)
	assert.Equal(t, alice, owner)

	record, err := env.manager.Position(tokenID)
	require.NoError(t, err)
	assert.Equal(t, "1000000", record.Liquidity.Dec())
	assert.True(t, record.TokensOwed0.IsZero())

	// The pool position belongs to the manager, not the recipient.
	assert.NotNil(t, env.pool.Position(managerAddr, -60, 60))
	assert.Nil(t, env.pool.Position(alice, -60, 60))

	t.Run("unknown pool", func(t *testing.T) {
		params := env.mintParams(alice, 1000)
		params.Fee = 500
		_, _, _, err := env.manager.Mint(params)
		assert.ErrorIs(t, err, ErrPoolNotFound)
	})
}

func TestIncreaseDecreaseLiquidity(t *testing.T) {
	env := newTestEnv(t)
	tokenID, _, _, err := env.manager.Mint(env.mintParams(alice, 1_000_000))
	require.NoError(t, err)

	t.Run("owner checks", func(t *testing.T) {
		_, _, err := env.manager.IncreaseLiquidity(bob, tokenID, bob, uint256.NewInt(1))
		assert.ErrorIs(t, err, ErrNotTokenOwner)
		_, _, err = env.manager.DecreaseLiquidity(bob, tokenID, uint256.NewInt(1))
		assert.ErrorIs(t, err, ErrNotTokenOwner)
		_, _, err = env.manager.IncreaseLiquidity(alice, 99, alice, uint256.NewInt(1))
		assert.ErrorIs(t, err, ErrInvalidTokenID)
	})

	t.Run("increase", func(t *testing.T) {
		amount0, amount1, err := env.manager.IncreaseLiquidity(alice, tokenID, alice, uint256.NewInt(500_000))
		require.NoError(t, err)
		assert.False(t, amount0.IsZero())
		assert.False(t, amount1.IsZero())

		record, err := env.manager.Position(tokenID)
		require.NoError(t, err)
		assert.Equal(t, "1500000", record.Liquidity.Dec())
	})

	t.Run("decrease beyond holding", func(t *testing.T) {
		_, _, err := env.manager.DecreaseLiquidity(alice, tokenID, uint256.NewInt(2_000_000))
		assert.Error(t, err)
	})

	t.Run("decrease credits principal", func(t *testing.T) {
		amount0, amount1, err := env.manager.DecreaseLiquidity(alice, tokenID, uint256.NewInt(1_500_000))
		require.NoError(t, err)

		record, err := env.manager.Position(tokenID)
		require.NoError(t, err)
		assert.True(t, record.Liquidity.IsZero())
		assert.True(t, amount0.Eq(record.TokensOwed0))
		assert.True(t, amount1.Eq(record.TokensOwed1))
	})
}

func TestCollect(t *testing.T) {
	env := newTestEnv(t)
	tokenID, _, _, err := env.manager.Mint(env.mintParams(alice, 1_000_000))
	require.NoError(t, err)

	env.roundTrip(1_000)

	max := new(uint256.Int).Not(new(uint256.Int))
	bobBefore0 := env.token0.BalanceOf(bob)

	amount0, amount1, err := env.manager.Collect(alice, tokenID, bob, max, max)
	require.NoError(t, err)
	assert.False(t, amount0.IsZero(), "round trip swaps must earn token0 fees")
	assert.False(t, amount1.IsZero(), "round trip swaps must earn token1 fees")

	expected := new(uint256.Int).Add(bobBefore0, amount0)
	assert.True(t, expected.Eq(env.token0.BalanceOf(bob)))

	record, err := env.manager.Position(tokenID)
	require.NoError(t, err)
	assert.True(t, record.TokensOwed0.IsZero())
	assert.True(t, record.TokensOwed1.IsZero())
	assert.Equal(t, "1000000", record.Liquidity.Dec(), "collect leaves liquidity in place")

	t.Run("owner check", func(t *testing.T) {
		_, _, err := env.manager.Collect(bob, tokenID, bob, max, max)
		assert.ErrorIs(t, err, ErrNotTokenOwner)
	})
}

func TestPerTokenFeeIsolation(t *testing.T) {
	env := newTestEnv(t)

	// Two tokens over the same range share one pool position but must not
	// share fee income streams.
	aliceID, _, _, err := env.manager.Mint(env.mintParams(alice, 1_000_000))
	require.NoError(t, err)

	env.roundTrip(1_000)

	bobID, _, _, err := env.manager.Mint(env.mintParams(bob, 1_000_000))
	require.NoError(t, err)

	max := new(uint256.Int).Not(new(uint256.Int))
	bobAmount0, bobAmount1, err := env.manager.Collect(bob, bobID, bob, max, max)
	require.NoError(t, err)
	assert.True(t, bobAmount0.IsZero(), "fees from before bob joined are not his")
	assert.True(t, bobAmount1.IsZero())

	aliceAmount0, _, err := env.manager.Collect(alice, aliceID, alice, max, max)
	require.NoError(t, err)
	assert.False(t, aliceAmount0.IsZero())
}

func TestBurnToken(t *testing.T) {
	env := newTestEnv(t)
	tokenID, _, _, err := env.manager.Mint(env.mintParams(alice, 1_000_000))
	require.NoError(t, err)

	t.Run("rejects while liquidity remains", func(t *testing.T) {
		assert.ErrorIs(t, env.manager.Burn(alice, tokenID), ErrNotCleared)
	})

	_, _, err = env.manager.DecreaseLiquidity(alice, tokenID, uint256.NewInt(1_000_000))
	require.NoError(t, err)

	t.Run("rejects while owed balances remain", func(t *testing.T) {
		assert.ErrorIs(t, env.manager.Burn(alice, tokenID), ErrNotCleared)
	})

	max := new(uint256.Int).Not(new(uint256.Int))
	_, _, err = env.manager.Collect(alice, tokenID, alice, max, max)
	require.NoError(t, err)

	t.Run("owner check", func(t *testing.T) {
		assert.ErrorIs(t, env.manager.Burn(bob, tokenID), ErrNotTokenOwner)
	})

	require.NoError(t, env.manager.Burn(alice, tokenID))
	_, err = env.manager.Position(tokenID)
	assert.ErrorIs(t, err, ErrInvalidTokenID)
}

func TestTransferToken(t *testing.T) {
	env := newTestEnv(t)
	tokenID, _, _, err := env.manager.Mint(env.mintParams(alice, 1_000_000))
	require.NoError(t, err)

	assert.ErrorIs(t, env.manager.Transfer(bob, carol, tokenID), ErrNotTokenOwner)
	require.NoError(t, env.manager.Transfer(alice, bob, tokenID))

	owner, err := env.manager.OwnerOf(tokenID)
	require.NoError(t, err)
	assert.Equal(t, bob, owner)

	// The new owner controls the position now.
	_, _, err = env.manager.DecreaseLiquidity(alice, tokenID, uint256.NewInt(1))
	assert.ErrorIs(t, err, ErrNotTokenOwner)
	_, _, err = env.manager.DecreaseLiquidity(bob, tokenID, uint256.NewInt(1))
	assert.NoError(t, err)
}
