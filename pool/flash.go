package pool

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/defistate/clamm-go/fullmath"
)

var pipsDenominator = uint256.NewInt(1_000_000)

// Flash lends both principals to recipient for the duration of the callback.
// The callback must return principal plus the swap-fee-rate premium; any
// overpayment is donated to in-range liquidity like an ordinary fee.
func (p *Pool) Flash(sender, recipient common.Address, amount0, amount1 *uint256.Int, callback FlashCallback, data []byte) error {
	return p.atomic("flash", func() error {
		if p.liquidity.IsZero() {
			return ErrZeroLiquidity
		}

		feePips := uint256.NewInt(uint64(p.cfg.Fee))
		fee0, err := fullmath.MulDivRoundingUp(amount0, feePips, pipsDenominator)
		if err != nil {
			return err
		}
		fee1, err := fullmath.MulDivRoundingUp(amount1, feePips, pipsDenominator)
		if err != nil {
			return err
		}

		balance0Before := p.balance0()
		balance1Before := p.balance1()

		if !amount0.IsZero() {
			if err := p.cfg.Token0.Transfer(p.cfg.Address, recipient, amount0); err != nil {
				return err
			}
		}
		if !amount1.IsZero() {
			if err := p.cfg.Token1.Transfer(p.cfg.Address, recipient, amount1); err != nil {
				return err
			}
		}

		if err := callback.FlashCallback(fee0.Clone(), fee1.Clone(), data); err != nil {
			return err
		}

		balance0After := p.balance0()
		balance1After := p.balance1()
		if balance0After.Lt(new(uint256.Int).Add(balance0Before, fee0)) {
			return ErrFlash0
		}
		if balance1After.Lt(new(uint256.Int).Add(balance1Before, fee1)) {
			return ErrFlash1
		}

		paid0 := new(uint256.Int).Sub(balance0After, balance0Before)
		paid1 := new(uint256.Int).Sub(balance1After, balance1Before)

		if !paid0.IsZero() {
			if feeProtocol0 := p.feeProtocol % 16; feeProtocol0 > 0 {
				delta := new(uint256.Int).Div(paid0, uint256.NewInt(uint64(feeProtocol0)))
				paid0.Sub(paid0, delta)
				p.protocolFees0.Add(p.protocolFees0, delta)
			}
			growth, err := fullmath.MulDiv(paid0, fullmath.Q128, p.liquidity)
			if err != nil {
				return err
			}
			p.feeGrowthGlobal0X128.Add(p.feeGrowthGlobal0X128, growth)
		}
		if !paid1.IsZero() {
			if feeProtocol1 := p.feeProtocol >> 4; feeProtocol1 > 0 {
				delta := new(uint256.Int).Div(paid1, uint256.NewInt(uint64(feeProtocol1)))
				paid1.Sub(paid1, delta)
				p.protocolFees1.Add(p.protocolFees1, delta)
			}
			growth, err := fullmath.MulDiv(paid1, fullmath.Q128, p.liquidity)
			if err != nil {
				return err
			}
			p.feeGrowthGlobal1X128.Add(p.feeGrowthGlobal1X128, growth)
		}

		p.emit(FlashEvent{
			Sender: sender, Recipient: recipient,
			Amount0: amount0.Clone(), Amount1: amount1.Clone(),
			Paid0: new(uint256.Int).Sub(balance0After, balance0Before),
			Paid1: new(uint256.Int).Sub(balance1After, balance1Before),
		})
		p.cfg.Metrics.flash()
		return nil
	})
}

// IncreaseObservationCardinalityNext raises the number of observations the
// oracle will retain once the write cursor wraps.
func (p *Pool) IncreaseObservationCardinalityNext(observationCardinalityNext uint16) error {
	return p.atomic("increaseObservationCardinalityNext", func() error {
		old := p.observations.CardinalityNext
		next := p.observations.Grow(observationCardinalityNext)
		if next != old {
			p.emit(IncreaseObservationCardinalityNextEvent{
				ObservationCardinalityNextOld: old,
				ObservationCardinalityNextNew: next,
			})
			p.cfg.Metrics.observationSize(float64(next))
		}
		return nil
	})
}

// SetFeeProtocol sets each direction's protocol fee denominator: 0 disables,
// 4..10 routes 1/n of swap fees to the protocol. Owner only.
func (p *Pool) SetFeeProtocol(sender common.Address, feeProtocol0, feeProtocol1 uint8) error {
	return p.atomic("setFeeProtocol", func() error {
		if err := p.requireOwner(sender); err != nil {
			return err
		}
		if (feeProtocol0 != 0 && (feeProtocol0 < 4 || feeProtocol0 > 10)) ||
			(feeProtocol1 != 0 && (feeProtocol1 < 4 || feeProtocol1 > 10)) {
			return ErrInvalidFeeProtocol
		}
		old := p.feeProtocol
		p.feeProtocol = feeProtocol0 + (feeProtocol1 << 4)
		p.emit(SetFeeProtocolEvent{
			FeeProtocol0Old: old % 16, FeeProtocol1Old: old >> 4,
			FeeProtocol0New: feeProtocol0, FeeProtocol1New: feeProtocol1,
		})
		return nil
	})
}

// CollectProtocol transfers accrued protocol fees to recipient, capped by the
// requested amounts. Owner only. One wei is always left behind per token so
// the storage slot stays warm for the next accrual.
func (p *Pool) CollectProtocol(sender, recipient common.Address, amount0Requested, amount1Requested *uint256.Int) (amount0, amount1 *uint256.Int, err error) {
	err = p.atomic("collectProtocol", func() error {
		if err := p.requireOwner(sender); err != nil {
			return err
		}

		amount0 = uint256Min(amount0Requested, p.protocolFees0)
		amount1 = uint256Min(amount1Requested, p.protocolFees1)

		if !amount0.IsZero() {
			if amount0.Eq(p.protocolFees0) {
				amount0.SubUint64(amount0, 1)
			}
			p.protocolFees0.Sub(p.protocolFees0, amount0)
			if err := p.cfg.Token0.Transfer(p.cfg.Address, recipient, amount0); err != nil {
				return err
			}
		}
		if !amount1.IsZero() {
			if amount1.Eq(p.protocolFees1) {
				amount1.SubUint64(amount1, 1)
			}
			p.protocolFees1.Sub(p.protocolFees1, amount1)
			if err := p.cfg.Token1.Transfer(p.cfg.Address, recipient, amount1); err != nil {
				return err
			}
		}

		p.emit(CollectProtocolEvent{
			Sender: sender, Recipient: recipient,
			Amount0: amount0.Clone(), Amount1: amount1.Clone(),
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

func (p *Pool) requireOwner(sender common.Address) error {
	if p.cfg.Owner == nil || p.cfg.Owner.Owner() != sender {
		return ErrNotOwner
	}
	return nil
}
