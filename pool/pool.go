// Package pool implements a concentrated-liquidity pair: positions over tick
// ranges, a tick-walking swap engine, fee accounting in Q128.128 growth
// counters, flash loans, and a cumulative price oracle.
//
// All external mutators are atomic: a call either commits every side effect
// (pool state, token ledgers, events) or none of them.
package pool

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/defistate/clamm-go/oracle"
	"github.com/defistate/clamm-go/positions"
	"github.com/defistate/clamm-go/tickbitmap"
	"github.com/defistate/clamm-go/tickmath"
	"github.com/defistate/clamm-go/ticks"
	"github.com/defistate/clamm-go/token"
)

// OwnerSource resolves the current protocol owner. The factory implements it
// so ownership transfers take effect in every pool at once.
type OwnerSource interface {
	Owner() common.Address
}

// Config carries everything a pool needs; Token0, Token1 and Clock are
// required, the rest default sensibly.
type Config struct {
	// Address identifies the pool on the token ledgers.
	Address common.Address
	// Token0 and Token1 are the pool's two ledgers, sorted by address.
	Token0 *token.Ledger
	Token1 *token.Ledger
	// Fee is the swap fee in hundredths of a bip (pips).
	Fee uint32
	// TickSpacing is the granularity of usable ticks.
	TickSpacing int32
	// Owner resolves the protocol owner for fee administration. Optional;
	// when nil, owner-only operations are rejected.
	Owner OwnerSource
	// Clock supplies the current time as a wrapping uint32.
	Clock func() uint32
	// Logger receives structured operation logs. Optional.
	Logger Logger
	// Metrics receives operation counters. Optional.
	Metrics *Metrics
}

func (c *Config) validate() error {
	if c.Token0 == nil || c.Token1 == nil {
		return errors.New("both token ledgers are required")
	}
	if c.Token0.Address() == c.Token1.Address() {
		return errors.New("token ledgers must be distinct")
	}
	if c.TickSpacing <= 0 || c.TickSpacing > tickmath.MAX_TICK {
		return errors.New("tick spacing out of range")
	}
	if c.Fee >= 1_000_000 {
		return errors.New("fee must be below 100%")
	}
	if c.Clock == nil {
		return errors.New("clock is required")
	}
	if c.Logger == nil {
		c.Logger = NopLogger{}
	}
	return nil
}

// Slot0 is the packed view of the pool's hot state.
type Slot0 struct {
	SqrtPriceX96               *uint256.Int `json:"sqrtPriceX96"`
	Tick                       int32        `json:"tick"`
	ObservationIndex           uint16       `json:"observationIndex"`
	ObservationCardinality     uint16       `json:"observationCardinality"`
	ObservationCardinalityNext uint16       `json:"observationCardinalityNext"`
	FeeProtocol                uint8        `json:"feeProtocol"`
	Unlocked                   bool         `json:"unlocked"`
}

// ProtocolFees are the owner-collectable fee balances.
type ProtocolFees struct {
	Token0 *uint256.Int `json:"token0"`
	Token1 *uint256.Int `json:"token1"`
}

// Pool is a single fee-tier pair. It is not safe for concurrent use; the
// unlocked flag guards against reentrant calls from callbacks, not against
// goroutines.
type Pool struct {
	cfg Config

	sqrtPriceX96 *uint256.Int
	tick         int32
	feeProtocol  uint8
	unlocked     bool

	feeGrowthGlobal0X128 *uint256.Int
	feeGrowthGlobal1X128 *uint256.Int
	protocolFees0        *uint256.Int
	protocolFees1        *uint256.Int
	liquidity            *uint256.Int

	ticks               ticks.Map
	tickBitmap          tickbitmap.Bitmap
	positions           positions.Map
	observations        *oracle.Ring
	maxLiquidityPerTick *uint256.Int

	events []Event
}

// New builds an uninitialized pool. Mutating calls reject with ErrLocked until
// Initialize sets the starting price.
func New(cfg Config) (*Pool, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Pool{
		cfg:                  cfg,
		sqrtPriceX96:         new(uint256.Int),
		feeGrowthGlobal0X128: new(uint256.Int),
		feeGrowthGlobal1X128: new(uint256.Int),
		protocolFees0:        new(uint256.Int),
		protocolFees1:        new(uint256.Int),
		liquidity:            new(uint256.Int),
		ticks:                ticks.New(),
		tickBitmap:           tickbitmap.New(),
		positions:            positions.New(),
		observations:         oracle.NewRing(),
		maxLiquidityPerTick:  ticks.MaxLiquidityPerTick(cfg.TickSpacing),
	}, nil
}

// Initialize sets the starting price and unlocks the pool.
func (p *Pool) Initialize(sqrtPriceX96 *uint256.Int) error {
	if !p.sqrtPriceX96.IsZero() {
		return ErrAlreadyInitialized
	}
	tick, err := tickmath.GetTickAtSqrtRatio(sqrtPriceX96)
	if err != nil {
		return err
	}
	p.sqrtPriceX96 = sqrtPriceX96.Clone()
	p.tick = tick
	p.observations.Initialize(p.cfg.Clock())
	p.unlocked = true
	p.emit(InitializeEvent{SqrtPriceX96: sqrtPriceX96.Clone(), Tick: tick})
	p.cfg.Logger.Info("pool initialized",
		"pool", p.cfg.Address,
		"sqrtPriceX96", sqrtPriceX96.String(),
		"tick", tick,
	)
	return nil
}

// Address returns the pool's ledger address.
func (p *Pool) Address() common.Address { return p.cfg.Address }

// Token0 returns the ledger of the lower-addressed token.
func (p *Pool) Token0() *token.Ledger { return p.cfg.Token0 }

// Token1 returns the ledger of the higher-addressed token.
func (p *Pool) Token1() *token.Ledger { return p.cfg.Token1 }

// Fee returns the swap fee in pips.
func (p *Pool) Fee() uint32 { return p.cfg.Fee }

// TickSpacing returns the tick granularity.
func (p *Pool) TickSpacing() int32 { return p.cfg.TickSpacing }

// MaxLiquidityPerTick returns the per-tick liquidity cap.
func (p *Pool) MaxLiquidityPerTick() *uint256.Int { return p.maxLiquidityPerTick.Clone() }

// Slot0 returns the hot-state view.
func (p *Pool) Slot0() Slot0 {
	return Slot0{
		SqrtPriceX96:               p.sqrtPriceX96.Clone(),
		Tick:                       p.tick,
		ObservationIndex:           p.observations.Index,
		ObservationCardinality:     p.observations.Cardinality,
		ObservationCardinalityNext: p.observations.CardinalityNext,
		FeeProtocol:                p.feeProtocol,
		Unlocked:                   p.unlocked,
	}
}

// Liquidity returns the liquidity in range at the current price.
func (p *Pool) Liquidity() *uint256.Int { return p.liquidity.Clone() }

// FeeGrowthGlobal0X128 returns the all-time token0 fee growth per unit of
// liquidity, Q128.128, wrapping.
func (p *Pool) FeeGrowthGlobal0X128() *uint256.Int { return p.feeGrowthGlobal0X128.Clone() }

// FeeGrowthGlobal1X128 is the token1 counterpart.
func (p *Pool) FeeGrowthGlobal1X128() *uint256.Int { return p.feeGrowthGlobal1X128.Clone() }

// ProtocolFees returns the owner-collectable balances.
func (p *Pool) ProtocolFees() ProtocolFees {
	return ProtocolFees{Token0: p.protocolFees0.Clone(), Token1: p.protocolFees1.Clone()}
}

// Tick returns a copy of the tick entry, or nil if uninitialized.
func (p *Pool) Tick(tick int32) *ticks.Info {
	if info, ok := p.ticks[tick]; ok {
		return info.Clone()
	}
	return nil
}

// TickBitmap returns a copy of the bitmap word. Absent words read as zero.
func (p *Pool) TickBitmap(wordPos int16) *uint256.Int {
	return p.tickBitmap.Word(wordPos).Clone()
}

// Position returns a copy of the position entry, or nil if it was never
// touched.
func (p *Pool) Position(owner common.Address, tickLower, tickUpper int32) *positions.Info {
	if info, ok := p.positions[positions.Key(owner, tickLower, tickUpper)]; ok {
		return info.Clone()
	}
	return nil
}

// Events returns the committed event history in call order.
func (p *Pool) Events() []Event {
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Observe returns the cumulative tick and seconds-per-liquidity values as of
// each secondsAgo from now.
func (p *Pool) Observe(secondsAgos []uint32) ([]int64, []*uint256.Int, error) {
	return p.observations.Observe(p.cfg.Clock(), secondsAgos, p.tick, p.liquidity)
}

// balance0 and balance1 read the pool's own ledger balances; payment checks
// compare these before and after callbacks.
func (p *Pool) balance0() *uint256.Int { return p.cfg.Token0.BalanceOf(p.cfg.Address) }
func (p *Pool) balance1() *uint256.Int { return p.cfg.Token1.BalanceOf(p.cfg.Address) }

func (p *Pool) emit(e Event) {
	p.events = append(p.events, e)
}

// snapshot captures all mutable state, token ledgers included, so a failed
// call can roll back mid-flight transfers.
type snapshot struct {
	sqrtPriceX96         *uint256.Int
	tick                 int32
	feeProtocol          uint8
	feeGrowthGlobal0X128 *uint256.Int
	feeGrowthGlobal1X128 *uint256.Int
	protocolFees0        *uint256.Int
	protocolFees1        *uint256.Int
	liquidity            *uint256.Int
	ticks                ticks.Map
	tickBitmap           tickbitmap.Bitmap
	positions            positions.Map
	observations         *oracle.Ring
	eventsLen            int
	balances0            map[common.Address]*uint256.Int
	balances1            map[common.Address]*uint256.Int
}

func (p *Pool) takeSnapshot() *snapshot {
	return &snapshot{
		sqrtPriceX96:         p.sqrtPriceX96.Clone(),
		tick:                 p.tick,
		feeProtocol:          p.feeProtocol,
		feeGrowthGlobal0X128: p.feeGrowthGlobal0X128.Clone(),
		feeGrowthGlobal1X128: p.feeGrowthGlobal1X128.Clone(),
		protocolFees0:        p.protocolFees0.Clone(),
		protocolFees1:        p.protocolFees1.Clone(),
		liquidity:            p.liquidity.Clone(),
		ticks:                p.ticks.Clone(),
		tickBitmap:           p.tickBitmap.Clone(),
		positions:            p.positions.Clone(),
		observations:         p.observations.Clone(),
		eventsLen:            len(p.events),
		balances0:            p.cfg.Token0.Snapshot(),
		balances1:            p.cfg.Token1.Snapshot(),
	}
}

func (p *Pool) restore(s *snapshot) {
	p.sqrtPriceX96 = s.sqrtPriceX96
	p.tick = s.tick
	p.feeProtocol = s.feeProtocol
	p.feeGrowthGlobal0X128 = s.feeGrowthGlobal0X128
	p.feeGrowthGlobal1X128 = s.feeGrowthGlobal1X128
	p.protocolFees0 = s.protocolFees0
	p.protocolFees1 = s.protocolFees1
	p.liquidity = s.liquidity
	p.ticks = s.ticks
	p.tickBitmap = s.tickBitmap
	p.positions = s.positions
	p.observations = s.observations
	p.events = p.events[:s.eventsLen]
	p.cfg.Token0.Restore(s.balances0)
	p.cfg.Token1.Restore(s.balances1)
}

// atomic runs fn under the reentrancy lock with all-or-nothing semantics.
func (p *Pool) atomic(op string, fn func() error) error {
	if !p.unlocked {
		return ErrLocked
	}
	p.unlocked = false
	snap := p.takeSnapshot()
	err := fn()
	p.unlocked = true
	if err != nil {
		p.restore(snap)
		p.cfg.Metrics.reverted()
		p.cfg.Logger.Warn("call reverted", "pool", p.cfg.Address, "op", op, "err", err)
	}
	return err
}

func (p *Pool) checkTicks(tickLower, tickUpper int32) error {
	if tickLower >= tickUpper {
		return ErrTickLowerGTUpper
	}
	if tickLower < tickmath.MIN_TICK {
		return ErrTickLowerTooSmall
	}
	if tickUpper > tickmath.MAX_TICK {
		return ErrTickUpperTooLarge
	}
	return nil
}
