// Package nft wraps pool positions in transferable tokens. The manager holds
// every underlying pool position itself and keeps per-token fee accounting, so
// multiple tokens over the same range stay independent.
package nft

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/defistate/clamm-go/factory"
	"github.com/defistate/clamm-go/fullmath"
	"github.com/defistate/clamm-go/liquiditymath"
	"github.com/defistate/clamm-go/pool"
)

var (
	// ErrInvalidTokenID means the token does not exist or was burned.
	ErrInvalidTokenID = errors.New("invalid token id")
	// ErrNotTokenOwner means the caller does not own the token.
	ErrNotTokenOwner = errors.New("caller does not own the token")
	// ErrPoolNotFound means no pool exists for the requested pair and fee.
	ErrPoolNotFound = errors.New("pool not found")
	// ErrNotCleared means a burn was attempted while liquidity or owed fees
	// remain.
	ErrNotCleared = errors.New("position not cleared")
)

// Position is the manager's record of one token.
type Position struct {
	Owner                    common.Address
	Pool                     *pool.Pool
	TickLower                int32
	TickUpper                int32
	Liquidity                *uint256.Int
	FeeGrowthInside0LastX128 *uint256.Int
	FeeGrowthInside1LastX128 *uint256.Int
	TokensOwed0              *uint256.Int
	TokensOwed1              *uint256.Int
}

// Manager mints and manages position tokens against pools from one factory.
type Manager struct {
	factory *factory.Factory
	address common.Address
	logger  pool.Logger

	nextID    uint64
	positions map[uint64]*Position

	// pendingPayer is set for the duration of a mint or increase so the
	// callback knows whose balance to draw on.
	pendingPayer common.Address
	pendingPool  *pool.Pool
}

// NewManager builds a manager holding pool positions under the given address.
func NewManager(f *factory.Factory, address common.Address, logger pool.Logger) *Manager {
	if logger == nil {
		logger = pool.NopLogger{}
	}
	return &Manager{
		factory:   f,
		address:   address,
		logger:    logger,
		nextID:    1,
		positions: make(map[uint64]*Position),
	}
}

// Address returns the ledger account the manager holds pool positions under.
func (m *Manager) Address() common.Address { return m.address }

// Position returns a copy of the token's record.
func (m *Manager) Position(tokenID uint64) (*Position, error) {
	p, ok := m.positions[tokenID]
	if !ok {
		return nil, ErrInvalidTokenID
	}
	c := *p
	c.Liquidity = p.Liquidity.Clone()
	c.FeeGrowthInside0LastX128 = p.FeeGrowthInside0LastX128.Clone()
	c.FeeGrowthInside1LastX128 = p.FeeGrowthInside1LastX128.Clone()
	c.TokensOwed0 = p.TokensOwed0.Clone()
	c.TokensOwed1 = p.TokensOwed1.Clone()
	return &c, nil
}

// OwnerOf returns the token's owner.
func (m *Manager) OwnerOf(tokenID uint64) (common.Address, error) {
	p, ok := m.positions[tokenID]
	if !ok {
		return common.Address{}, ErrInvalidTokenID
	}
	return p.Owner, nil
}

// Transfer moves token ownership.
func (m *Manager) Transfer(sender, to common.Address, tokenID uint64) error {
	p, ok := m.positions[tokenID]
	if !ok {
		return ErrInvalidTokenID
	}
	if p.Owner != sender {
		return ErrNotTokenOwner
	}
	p.Owner = to
	return nil
}

// MintCallback pays the pool from the pending payer's balances.
func (m *Manager) MintCallback(amount0Owed, amount1Owed *uint256.Int, _ []byte) error {
	if !amount0Owed.IsZero() {
		if err := m.pendingPool.Token0().Transfer(m.pendingPayer, m.pendingPool.Address(), amount0Owed); err != nil {
			return err
		}
	}
	if !amount1Owed.IsZero() {
		if err := m.pendingPool.Token1().Transfer(m.pendingPayer, m.pendingPool.Address(), amount1Owed); err != nil {
			return err
		}
	}
	return nil
}

// MintParams describes a new position token.
type MintParams struct {
	Payer     common.Address
	Recipient common.Address
	Token0    common.Address
	Token1    common.Address
	Fee       uint32
	TickLower int32
	TickUpper int32
	Amount    *uint256.Int
}

// Mint opens a new position and issues a token for it. The payer's balances
// fund the deposit.
func (m *Manager) Mint(params MintParams) (tokenID uint64, amount0, amount1 *uint256.Int, err error) {
	pl := m.factory.GetPool(params.Token0, params.Token1, params.Fee)
	if pl == nil {
		return 0, nil, nil, ErrPoolNotFound
	}

	amount0, amount1, err = m.addLiquidity(pl, params.Payer, params.TickLower, params.TickUpper, params.Amount)
	if err != nil {
		return 0, nil, nil, err
	}

	info := pl.Position(m.address, params.TickLower, params.TickUpper)
	tokenID = m.nextID
	m.nextID++
	m.positions[tokenID] = &Position{
		Owner:                    params.Recipient,
		Pool:                     pl,
		TickLower:                params.TickLower,
		TickUpper:                params.TickUpper,
		Liquidity:                params.Amount.Clone(),
		FeeGrowthInside0LastX128: info.FeeGrowthInside0LastX128,
		FeeGrowthInside1LastX128: info.FeeGrowthInside1LastX128,
		TokensOwed0:              new(uint256.Int),
		TokensOwed1:              new(uint256.Int),
	}
	m.logger.Debug("position token minted",
		"tokenID", tokenID, "pool", pl.Address(),
		"tickLower", params.TickLower, "tickUpper", params.TickUpper,
	)
	return tokenID, amount0, amount1, nil
}

func (m *Manager) addLiquidity(pl *pool.Pool, payer common.Address, tickLower, tickUpper int32, amount *uint256.Int) (amount0, amount1 *uint256.Int, err error) {
	m.pendingPayer = payer
	m.pendingPool = pl
	defer func() {
		m.pendingPayer = common.Address{}
		m.pendingPool = nil
	}()
	return pl.Mint(m.address, m.address, tickLower, tickUpper, amount, m, nil)
}

// IncreaseLiquidity adds liquidity to an existing token, settling its accrued
// fees first.
func (m *Manager) IncreaseLiquidity(sender common.Address, tokenID uint64, payer common.Address, amount *uint256.Int) (amount0, amount1 *uint256.Int, err error) {
	p, ok := m.positions[tokenID]
	if !ok {
		return nil, nil, ErrInvalidTokenID
	}
	if p.Owner != sender {
		return nil, nil, ErrNotTokenOwner
	}

	amount0, amount1, err = m.addLiquidity(p.Pool, payer, p.TickLower, p.TickUpper, amount)
	if err != nil {
		return nil, nil, err
	}

	info := p.Pool.Position(m.address, p.TickLower, p.TickUpper)
	m.settleFees(p, info.FeeGrowthInside0LastX128, info.FeeGrowthInside1LastX128)
	p.Liquidity.Add(p.Liquidity, amount)
	return amount0, amount1, nil
}

// DecreaseLiquidity removes liquidity from the token. The freed principal and
// settled fees become collectable via Collect.
func (m *Manager) DecreaseLiquidity(sender common.Address, tokenID uint64, amount *uint256.Int) (amount0, amount1 *uint256.Int, err error) {
	p, ok := m.positions[tokenID]
	if !ok {
		return nil, nil, ErrInvalidTokenID
	}
	if p.Owner != sender {
		return nil, nil, ErrNotTokenOwner
	}
	if amount.Gt(p.Liquidity) {
		return nil, nil, liquiditymath.ErrLiquiditySub
	}

	amount0, amount1, err = p.Pool.Burn(m.address, p.TickLower, p.TickUpper, amount)
	if err != nil {
		return nil, nil, err
	}

	info := p.Pool.Position(m.address, p.TickLower, p.TickUpper)
	m.settleFees(p, info.FeeGrowthInside0LastX128, info.FeeGrowthInside1LastX128)
	p.TokensOwed0.Add(p.TokensOwed0, amount0)
	p.TokensOwed1.Add(p.TokensOwed1, amount1)
	p.Liquidity.Sub(p.Liquidity, amount)
	return amount0, amount1, nil
}

// Collect transfers the token's owed balances to recipient, capped by the
// requested amounts.
func (m *Manager) Collect(sender common.Address, tokenID uint64, recipient common.Address, amount0Max, amount1Max *uint256.Int) (amount0, amount1 *uint256.Int, err error) {
	p, ok := m.positions[tokenID]
	if !ok {
		return nil, nil, ErrInvalidTokenID
	}
	if p.Owner != sender {
		return nil, nil, ErrNotTokenOwner
	}

	// Poke the pool position so fees accrued since the last touch are
	// reflected before we pull.
	if !p.Liquidity.IsZero() {
		if _, _, err := p.Pool.Burn(m.address, p.TickLower, p.TickUpper, new(uint256.Int)); err != nil {
			return nil, nil, err
		}
		info := p.Pool.Position(m.address, p.TickLower, p.TickUpper)
		m.settleFees(p, info.FeeGrowthInside0LastX128, info.FeeGrowthInside1LastX128)
	}

	collect0 := minUint256(amount0Max, p.TokensOwed0)
	collect1 := minUint256(amount1Max, p.TokensOwed1)

	amount0, amount1, err = p.Pool.Collect(m.address, recipient, p.TickLower, p.TickUpper, collect0, collect1)
	if err != nil {
		return nil, nil, err
	}
	p.TokensOwed0.Sub(p.TokensOwed0, amount0)
	p.TokensOwed1.Sub(p.TokensOwed1, amount1)
	return amount0, amount1, nil
}

// Burn destroys a fully cleared token.
func (m *Manager) Burn(sender common.Address, tokenID uint64) error {
	p, ok := m.positions[tokenID]
	if !ok {
		return ErrInvalidTokenID
	}
	if p.Owner != sender {
		return ErrNotTokenOwner
	}
	if !p.Liquidity.IsZero() || !p.TokensOwed0.IsZero() || !p.TokensOwed1.IsZero() {
		return ErrNotCleared
	}
	delete(m.positions, tokenID)
	return nil
}

// settleFees rolls the per-token fee snapshot forward, crediting the growth
// since the last touch.
func (m *Manager) settleFees(p *Position, inside0, inside1 *uint256.Int) {
	delta0 := new(uint256.Int).Sub(inside0, p.FeeGrowthInside0LastX128)
	delta1 := new(uint256.Int).Sub(inside1, p.FeeGrowthInside1LastX128)
	p.TokensOwed0.Add(p.TokensOwed0, owedFees(delta0, p.Liquidity))
	p.TokensOwed1.Add(p.TokensOwed1, owedFees(delta1, p.Liquidity))
	p.FeeGrowthInside0LastX128 = inside0.Clone()
	p.FeeGrowthInside1LastX128 = inside1.Clone()
}

// owedFees converts a fee growth delta into token amounts, saturating at the
// uint128 cap like the pool's own accounting does.
func owedFees(deltaX128, liquidity *uint256.Int) *uint256.Int {
	owed, err := fullmath.MulDiv(deltaX128, liquidity, fullmath.Q128)
	if err != nil {
		return liquiditymath.MaxUint128.Clone()
	}
	return owed
}

func minUint256(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return a.Clone()
	}
	return b.Clone()
}
