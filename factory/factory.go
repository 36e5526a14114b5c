// Package factory creates and indexes pools, one per (token0, token1, fee)
// triple, and administers protocol ownership and fee tiers.
package factory

import (
	"encoding/binary"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/defistate/clamm-go/pool"
	"github.com/defistate/clamm-go/token"
)

var (
	// ErrIdenticalTokens means both sides of the pair are the same token.
	ErrIdenticalTokens = errors.New("pool tokens must be distinct")
	// ErrFeeNotEnabled means the fee tier has no tick spacing registered.
	ErrFeeNotEnabled = errors.New("fee tier not enabled")
	// ErrPoolExists means the (token0, token1, fee) pool was already created.
	ErrPoolExists = errors.New("pool already exists")
	// ErrNotOwner means an owner-only call came from someone else.
	ErrNotOwner = errors.New("caller is not the factory owner")
	// ErrFeeAmountEnabled means the fee tier already has a tick spacing.
	ErrFeeAmountEnabled = errors.New("fee tier already enabled")
	// ErrInvalidFeeAmount means the fee is at or above 100%.
	ErrInvalidFeeAmount = errors.New("fee must be below 100%")
	// ErrInvalidTickSpacing means the tick spacing is outside (0, 16384).
	ErrInvalidTickSpacing = errors.New("tick spacing out of range")
)

// Config carries the factory dependencies. Owner and Clock are required.
type Config struct {
	// Owner is the initial protocol owner.
	Owner common.Address
	// Clock supplies the current time for every pool the factory creates.
	Clock func() uint32
	// Logger receives structured logs. Optional.
	Logger pool.Logger
	// Registry receives pool and factory metrics. Optional.
	Registry prometheus.Registerer
}

func (c *Config) validate() error {
	if c.Owner == (common.Address{}) {
		return errors.New("owner address is required")
	}
	if c.Clock == nil {
		return errors.New("clock is required")
	}
	if c.Logger == nil {
		c.Logger = pool.NopLogger{}
	}
	return nil
}

type poolKey struct {
	token0 common.Address
	token1 common.Address
	fee    uint32
}

// Factory owns the pool index and the fee tier table. It implements
// pool.OwnerSource, so an ownership transfer is visible to every pool
// immediately.
type Factory struct {
	cfg     Config
	owner   common.Address
	tiers   map[uint32]int32
	pools   map[poolKey]*pool.Pool
	metrics *metrics
	events  []pool.Event
}

// New builds a factory with the three standard fee tiers enabled.
func New(cfg Config) (*Factory, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	f := &Factory{
		cfg:   cfg,
		owner: cfg.Owner,
		tiers: map[uint32]int32{
			500:    10,
			3_000:  60,
			10_000: 200,
		},
		pools:   make(map[poolKey]*pool.Pool),
		metrics: newMetrics(cfg.Registry),
	}
	return f, nil
}

// Owner returns the current protocol owner.
func (f *Factory) Owner() common.Address { return f.owner }

// TickSpacingForFee returns the tick spacing of an enabled fee tier, or zero.
func (f *Factory) TickSpacingForFee(fee uint32) int32 { return f.tiers[fee] }

// Events returns the factory's administrative event history.
func (f *Factory) Events() []pool.Event {
	out := make([]pool.Event, len(f.events))
	copy(out, f.events)
	return out
}

// PoolAddress derives the deterministic pool address for a sorted pair and
// fee tier.
func PoolAddress(token0, token1 common.Address, fee uint32) common.Address {
	var buf [44]byte
	copy(buf[:20], token0.Bytes())
	copy(buf[20:40], token1.Bytes())
	binary.BigEndian.PutUint32(buf[40:], fee)
	return common.BytesToAddress(crypto.Keccak256(buf[:])[12:])
}

// CreatePool creates the pool for the pair at the given fee tier. Token order
// does not matter; the pool always sorts by ledger address. The pool is
// returned uninitialized.
func (f *Factory) CreatePool(tokenA, tokenB *token.Ledger, fee uint32) (*pool.Pool, error) {
	if tokenA == nil || tokenB == nil {
		return nil, errors.New("both token ledgers are required")
	}
	if tokenA.Address() == tokenB.Address() {
		return nil, ErrIdenticalTokens
	}
	token0, token1 := tokenA, tokenB
	if token1.Address().Cmp(token0.Address()) < 0 {
		token0, token1 = token1, token0
	}

	tickSpacing, ok := f.tiers[fee]
	if !ok {
		return nil, ErrFeeNotEnabled
	}

	key := poolKey{token0: token0.Address(), token1: token1.Address(), fee: fee}
	if _, exists := f.pools[key]; exists {
		return nil, ErrPoolExists
	}

	address := PoolAddress(key.token0, key.token1, fee)
	p, err := pool.New(pool.Config{
		Address:     address,
		Token0:      token0,
		Token1:      token1,
		Fee:         fee,
		TickSpacing: tickSpacing,
		Owner:       f,
		Clock:       f.cfg.Clock,
		Logger:      f.cfg.Logger,
		Metrics:     f.metrics.forPool(address),
	})
	if err != nil {
		return nil, err
	}

	f.pools[key] = p
	f.metrics.poolCreated()
	f.events = append(f.events, PoolCreatedEvent{
		Token0: key.token0, Token1: key.token1,
		Fee: fee, TickSpacing: tickSpacing, Pool: address,
	})
	f.cfg.Logger.Info("pool created",
		"pool", address, "token0", key.token0, "token1", key.token1,
		"fee", fee, "tickSpacing", tickSpacing,
	)
	return p, nil
}

// GetPool returns the pool for the pair and fee tier in either token order,
// or nil if it was never created.
func (f *Factory) GetPool(tokenA, tokenB common.Address, fee uint32) *pool.Pool {
	token0, token1 := tokenA, tokenB
	if token1.Cmp(token0) < 0 {
		token0, token1 = token1, token0
	}
	return f.pools[poolKey{token0: token0, token1: token1, fee: fee}]
}

// SetOwner transfers protocol ownership. Owner only.
func (f *Factory) SetOwner(sender, newOwner common.Address) error {
	if sender != f.owner {
		return ErrNotOwner
	}
	old := f.owner
	f.owner = newOwner
	f.events = append(f.events, OwnerChangedEvent{OldOwner: old, NewOwner: newOwner})
	f.cfg.Logger.Info("factory owner changed", "oldOwner", old, "newOwner", newOwner)
	return nil
}

// EnableFeeAmount registers a new fee tier. Owner only; a tier can never be
// changed or removed once enabled.
func (f *Factory) EnableFeeAmount(sender common.Address, fee uint32, tickSpacing int32) error {
	if sender != f.owner {
		return ErrNotOwner
	}
	if fee >= 1_000_000 {
		return ErrInvalidFeeAmount
	}
	if tickSpacing <= 0 || tickSpacing >= 16384 {
		return ErrInvalidTickSpacing
	}
	if _, exists := f.tiers[fee]; exists {
		return ErrFeeAmountEnabled
	}
	f.tiers[fee] = tickSpacing
	f.events = append(f.events, FeeAmountEnabledEvent{Fee: fee, TickSpacing: tickSpacing})
	f.cfg.Logger.Info("fee amount enabled", "fee", fee, "tickSpacing", tickSpacing)
	return nil
}
