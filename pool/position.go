package pool

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/defistate/clamm-go/liquiditymath"
	"github.com/defistate/clamm-go/positions"
	"github.com/defistate/clamm-go/sqrtpricemath"
	"github.com/defistate/clamm-go/tickmath"
)

// amount0DeltaSigned returns the signed token0 delta for a signed liquidity
// delta: adds round up against the pool, removes round down.
func amount0DeltaSigned(sqrtRatioAX96, sqrtRatioBX96, liquidityDelta *uint256.Int) (*uint256.Int, error) {
	if liquidityDelta.Sign() < 0 {
		amount, err := sqrtpricemath.GetAmount0Delta(
			sqrtRatioAX96, sqrtRatioBX96, new(uint256.Int).Neg(liquidityDelta), false)
		if err != nil {
			return nil, err
		}
		return amount.Neg(amount), nil
	}
	return sqrtpricemath.GetAmount0Delta(sqrtRatioAX96, sqrtRatioBX96, liquidityDelta, true)
}

func amount1DeltaSigned(sqrtRatioAX96, sqrtRatioBX96, liquidityDelta *uint256.Int) (*uint256.Int, error) {
	if liquidityDelta.Sign() < 0 {
		amount, err := sqrtpricemath.GetAmount1Delta(
			sqrtRatioAX96, sqrtRatioBX96, new(uint256.Int).Neg(liquidityDelta), false)
		if err != nil {
			return nil, err
		}
		return amount.Neg(amount), nil
	}
	return sqrtpricemath.GetAmount1Delta(sqrtRatioAX96, sqrtRatioBX96, liquidityDelta, true)
}

// updatePosition settles fees on the position and applies the liquidity delta
// to both endpoint ticks, flipping bitmap bits and clearing emptied ticks.
func (p *Pool) updatePosition(owner common.Address, tickLower, tickUpper int32, liquidityDelta *uint256.Int) (*positions.Info, error) {
	position := p.positions.Get(owner, tickLower, tickUpper)

	var flippedLower, flippedUpper bool
	if !liquidityDelta.IsZero() {
		time := p.cfg.Clock()
		tickCumulative, secondsPerLiquidityCumulativeX128, err := p.observations.ObserveSingle(time, 0, p.tick, p.liquidity)
		if err != nil {
			return nil, err
		}

		flippedLower, err = p.ticks.Update(
			tickLower, p.tick, liquidityDelta,
			p.feeGrowthGlobal0X128, p.feeGrowthGlobal1X128,
			secondsPerLiquidityCumulativeX128, tickCumulative, time,
			false, p.maxLiquidityPerTick,
		)
		if err != nil {
			return nil, err
		}
		flippedUpper, err = p.ticks.Update(
			tickUpper, p.tick, liquidityDelta,
			p.feeGrowthGlobal0X128, p.feeGrowthGlobal1X128,
			secondsPerLiquidityCumulativeX128, tickCumulative, time,
			true, p.maxLiquidityPerTick,
		)
		if err != nil {
			return nil, err
		}

		if flippedLower {
			if err := p.tickBitmap.FlipTick(tickLower, p.cfg.TickSpacing); err != nil {
				return nil, err
			}
		}
		if flippedUpper {
			if err := p.tickBitmap.FlipTick(tickUpper, p.cfg.TickSpacing); err != nil {
				return nil, err
			}
		}
	}

	feeGrowthInside0X128, feeGrowthInside1X128 := p.ticks.FeeGrowthInside(
		tickLower, tickUpper, p.tick, p.feeGrowthGlobal0X128, p.feeGrowthGlobal1X128)

	if err := position.Update(liquidityDelta, feeGrowthInside0X128, feeGrowthInside1X128); err != nil {
		return nil, err
	}

	if liquidityDelta.Sign() < 0 {
		if flippedLower {
			p.ticks.Clear(tickLower)
		}
		if flippedUpper {
			p.ticks.Clear(tickUpper)
		}
	}
	return position, nil
}

// modifyPosition applies a signed liquidity delta to a range and returns the
// signed token amounts the change is worth at the current price.
func (p *Pool) modifyPosition(owner common.Address, tickLower, tickUpper int32, liquidityDelta *uint256.Int) (position *positions.Info, amount0, amount1 *uint256.Int, err error) {
	if err := p.checkTicks(tickLower, tickUpper); err != nil {
		return nil, nil, nil, err
	}

	position, err = p.updatePosition(owner, tickLower, tickUpper, liquidityDelta)
	if err != nil {
		return nil, nil, nil, err
	}

	amount0 = new(uint256.Int)
	amount1 = new(uint256.Int)
	if liquidityDelta.IsZero() {
		return position, amount0, amount1, nil
	}

	sqrtRatioLowerX96, err := tickmath.GetSqrtRatioAtTick(tickLower)
	if err != nil {
		return nil, nil, nil, err
	}
	sqrtRatioUpperX96, err := tickmath.GetSqrtRatioAtTick(tickUpper)
	if err != nil {
		return nil, nil, nil, err
	}

	switch {
	case p.tick < tickLower:
		// Fully above the current price: the range holds only token0.
		amount0, err = amount0DeltaSigned(sqrtRatioLowerX96, sqrtRatioUpperX96, liquidityDelta)
		if err != nil {
			return nil, nil, nil, err
		}
	case p.tick < tickUpper:
		// In range: the active liquidity changes, which is an observable
		// moment for the oracle.
		p.observations.Write(p.cfg.Clock(), p.tick, p.liquidity)

		amount0, err = amount0DeltaSigned(p.sqrtPriceX96, sqrtRatioUpperX96, liquidityDelta)
		if err != nil {
			return nil, nil, nil, err
		}
		amount1, err = amount1DeltaSigned(sqrtRatioLowerX96, p.sqrtPriceX96, liquidityDelta)
		if err != nil {
			return nil, nil, nil, err
		}

		p.liquidity, err = liquiditymath.AddDelta(p.liquidity, liquidityDelta)
		if err != nil {
			return nil, nil, nil, err
		}
	default:
		amount1, err = amount1DeltaSigned(sqrtRatioLowerX96, sqrtRatioUpperX96, liquidityDelta)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	return position, amount0, amount1, nil
}

// Mint adds liquidity to a range for recipient. The callback must pay the
// returned amounts to the pool before it returns.
func (p *Pool) Mint(sender, recipient common.Address, tickLower, tickUpper int32, amount *uint256.Int, callback MintCallback, data []byte) (amount0, amount1 *uint256.Int, err error) {
	err = p.atomic("mint", func() error {
		if amount.IsZero() {
			return ErrZeroLiquidity
		}
		_, amount0, amount1, err = p.modifyPosition(recipient, tickLower, tickUpper, amount)
		if err != nil {
			return err
		}

		var balance0Before, balance1Before *uint256.Int
		if !amount0.IsZero() {
			balance0Before = p.balance0()
		}
		if !amount1.IsZero() {
			balance1Before = p.balance1()
		}
		if err := callback.MintCallback(amount0.Clone(), amount1.Clone(), data); err != nil {
			return err
		}
		if !amount0.IsZero() {
			owed := new(uint256.Int).Add(balance0Before, amount0)
			if p.balance0().Lt(owed) {
				return ErrMint0
			}
		}
		if !amount1.IsZero() {
			owed := new(uint256.Int).Add(balance1Before, amount1)
			if p.balance1().Lt(owed) {
				return ErrMint1
			}
		}

		p.emit(MintEvent{
			Sender: sender, Owner: recipient,
			TickLower: tickLower, TickUpper: tickUpper,
			Amount: amount.Clone(), Amount0: amount0.Clone(), Amount1: amount1.Clone(),
		})
		p.cfg.Metrics.mint()
		p.cfg.Logger.Debug("mint",
			"pool", p.cfg.Address, "owner", recipient,
			"tickLower", tickLower, "tickUpper", tickUpper,
			"amount", amount.String(),
		)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

// Burn removes liquidity from the owner's range. The freed amounts are
// credited to the position's owed balances, collectable via Collect.
func (p *Pool) Burn(owner common.Address, tickLower, tickUpper int32, amount *uint256.Int) (amount0, amount1 *uint256.Int, err error) {
	err = p.atomic("burn", func() error {
		position, amount0Signed, amount1Signed, err := p.modifyPosition(
			owner, tickLower, tickUpper, new(uint256.Int).Neg(amount))
		if err != nil {
			return err
		}

		amount0 = new(uint256.Int).Neg(amount0Signed)
		amount1 = new(uint256.Int).Neg(amount1Signed)
		if !amount0.IsZero() || !amount1.IsZero() {
			position.TokensOwed0.Add(position.TokensOwed0, amount0)
			position.TokensOwed1.Add(position.TokensOwed1, amount1)
		}

		p.emit(BurnEvent{
			Owner: owner, TickLower: tickLower, TickUpper: tickUpper,
			Amount: amount.Clone(), Amount0: amount0.Clone(), Amount1: amount1.Clone(),
		})
		p.cfg.Metrics.burn()
		p.cfg.Logger.Debug("burn",
			"pool", p.cfg.Address, "owner", owner,
			"tickLower", tickLower, "tickUpper", tickUpper,
			"amount", amount.String(),
		)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

// Collect transfers owed fees and burned principal from the owner's position
// to recipient, capped by the requested amounts.
func (p *Pool) Collect(owner, recipient common.Address, tickLower, tickUpper int32, amount0Requested, amount1Requested *uint256.Int) (amount0, amount1 *uint256.Int, err error) {
	err = p.atomic("collect", func() error {
		position := p.positions.Get(owner, tickLower, tickUpper)

		amount0 = uint256Min(amount0Requested, position.TokensOwed0)
		amount1 = uint256Min(amount1Requested, position.TokensOwed1)

		if !amount0.IsZero() {
			position.TokensOwed0.Sub(position.TokensOwed0, amount0)
			if err := p.cfg.Token0.Transfer(p.cfg.Address, recipient, amount0); err != nil {
				return err
			}
		}
		if !amount1.IsZero() {
			position.TokensOwed1.Sub(position.TokensOwed1, amount1)
			if err := p.cfg.Token1.Transfer(p.cfg.Address, recipient, amount1); err != nil {
				return err
			}
		}

		p.emit(CollectEvent{
			Owner: owner, Recipient: recipient,
			TickLower: tickLower, TickUpper: tickUpper,
			Amount0: amount0.Clone(), Amount1: amount1.Clone(),
		})
		p.cfg.Metrics.collect()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

func uint256Min(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return a.Clone()
	}
	return b.Clone()
}
