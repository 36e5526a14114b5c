package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/defistate/clamm-go/factory"
	"github.com/defistate/clamm-go/pool"
	"github.com/defistate/clamm-go/statediff"
	"github.com/defistate/clamm-go/tickmath"
	"github.com/defistate/clamm-go/token"
)

// scenario is the JSON description of a deterministic pool run.
type scenario struct {
	Owner     common.Address    `json:"owner"`
	StartTime uint32            `json:"startTime"`
	Tokens    []scenarioToken   `json:"tokens"`
	FeeTiers  []scenarioFeeTier `json:"feeTiers"`
	Pools     []scenarioPool    `json:"pools"`
	Actions   []scenarioAction  `json:"actions"`
}

type scenarioToken struct {
	Address  common.Address    `json:"address"`
	Balances map[string]string `json:"balances"`
}

type scenarioFeeTier struct {
	Fee         uint32 `json:"fee"`
	TickSpacing int32  `json:"tickSpacing"`
}

type scenarioPool struct {
	TokenA       common.Address `json:"tokenA"`
	TokenB       common.Address `json:"tokenB"`
	Fee          uint32         `json:"fee"`
	SqrtPriceX96 string         `json:"sqrtPriceX96"`
}

type scenarioAction struct {
	Type    string `json:"type"`
	Pool    int    `json:"pool"`
	Advance uint32 `json:"advance"`

	Sender    common.Address `json:"sender"`
	Recipient common.Address `json:"recipient"`

	TickLower int32  `json:"tickLower"`
	TickUpper int32  `json:"tickUpper"`
	Amount    string `json:"amount"`

	ZeroForOne        bool   `json:"zeroForOne"`
	AmountSpecified   string `json:"amountSpecified"`
	SqrtPriceLimitX96 string `json:"sqrtPriceLimitX96"`

	Amount0 string `json:"amount0"`
	Amount1 string `json:"amount1"`

	FeeProtocol0 uint8    `json:"feeProtocol0"`
	FeeProtocol1 uint8    `json:"feeProtocol1"`
	Cardinality  uint16   `json:"cardinality"`
	SecondsAgos  []uint32 `json:"secondsAgos"`
}

// poolResult is the state printed for each pool after the run.
type poolResult struct {
	Address              common.Address    `json:"address"`
	Slot0                pool.Slot0        `json:"slot0"`
	Liquidity            *uint256.Int      `json:"liquidity"`
	FeeGrowthGlobal0X128 *uint256.Int      `json:"feeGrowthGlobal0X128"`
	FeeGrowthGlobal1X128 *uint256.Int      `json:"feeGrowthGlobal1X128"`
	ProtocolFees         pool.ProtocolFees `json:"protocolFees"`
	Events               []eventRecord     `json:"events"`
}

type eventRecord struct {
	Name  string     `json:"name"`
	Event pool.Event `json:"event"`
}

type actionResult struct {
	Index   int                 `json:"index"`
	Type    string              `json:"type"`
	Error   string              `json:"error,omitempty"`
	Amount0 string              `json:"amount0,omitempty"`
	Amount1 string              `json:"amount1,omitempty"`
	Observe []string            `json:"observe,omitempty"`
	Diff    *statediff.PoolDiff `json:"diff,omitempty"`
}

type runResult struct {
	Actions []actionResult `json:"actions"`
	Pools   []poolResult   `json:"pools"`
}

// runner executes a scenario against an in-process factory.
type runner struct {
	factory *factory.Factory
	ledgers map[common.Address]*token.Ledger
	pools   []*pool.Pool
	now     uint32
}

func loadScenario(path string) (*scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s scenario
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if s.StartTime == 0 {
		s.StartTime = 1
	}
	return &s, nil
}

func newRunner(s *scenario, logger pool.Logger, registry prometheus.Registerer) (*runner, error) {
	r := &runner{
		ledgers: make(map[common.Address]*token.Ledger),
		now:     s.StartTime,
	}

	f, err := factory.New(factory.Config{
		Owner:    s.Owner,
		Clock:    func() uint32 { return r.now },
		Logger:   logger,
		Registry: registry,
	})
	if err != nil {
		return nil, err
	}
	r.factory = f

	for _, t := range s.Tokens {
		ledger := token.NewLedger(t.Address)
		for holder, amount := range t.Balances {
			value, err := parseUnsigned(amount)
			if err != nil {
				return nil, fmt.Errorf("token %s balance for %s: %w", t.Address, holder, err)
			}
			if err := ledger.Mint(common.HexToAddress(holder), value); err != nil {
				return nil, err
			}
		}
		r.ledgers[t.Address] = ledger
	}

	for _, tier := range s.FeeTiers {
		if err := f.EnableFeeAmount(s.Owner, tier.Fee, tier.TickSpacing); err != nil {
			return nil, fmt.Errorf("enable fee tier %d: %w", tier.Fee, err)
		}
	}

	for i, sp := range s.Pools {
		tokenA, ok := r.ledgers[sp.TokenA]
		if !ok {
			return nil, fmt.Errorf("pool %d: unknown token %s", i, sp.TokenA)
		}
		tokenB, ok := r.ledgers[sp.TokenB]
		if !ok {
			return nil, fmt.Errorf("pool %d: unknown token %s", i, sp.TokenB)
		}
		p, err := f.CreatePool(tokenA, tokenB, sp.Fee)
		if err != nil {
			return nil, fmt.Errorf("pool %d: %w", i, err)
		}
		if sp.SqrtPriceX96 != "" {
			price, err := parseUnsigned(sp.SqrtPriceX96)
			if err != nil {
				return nil, fmt.Errorf("pool %d price: %w", i, err)
			}
			if err := p.Initialize(price); err != nil {
				return nil, fmt.Errorf("pool %d initialize: %w", i, err)
			}
		}
		r.pools = append(r.pools, p)
	}
	return r, nil
}

func (r *runner) run(s *scenario) (*runResult, error) {
	result := &runResult{}
	for i, action := range s.Actions {
		r.now += action.Advance
		res := actionResult{Index: i, Type: action.Type}

		var before statediff.PoolView
		diffable := action.Type != "advance" && action.Pool >= 0 && action.Pool < len(r.pools)
		if diffable {
			before = statediff.Capture(r.pools[action.Pool])
		}

		amount0, amount1, observed, err := r.apply(action)
		if err != nil {
			res.Error = err.Error()
		}
		if amount0 != nil {
			res.Amount0 = signedString(amount0)
		}
		if amount1 != nil {
			res.Amount1 = signedString(amount1)
		}
		res.Observe = observed

		if diffable {
			diff, derr := statediff.Diff(before, statediff.Capture(r.pools[action.Pool]))
			if derr == nil && !diff.Empty() {
				res.Diff = diff
			}
		}
		result.Actions = append(result.Actions, res)
	}

	for _, p := range r.pools {
		events := p.Events()
		records := make([]eventRecord, len(events))
		for i, e := range events {
			records[i] = eventRecord{Name: e.EventName(), Event: e}
		}
		result.Pools = append(result.Pools, poolResult{
			Address:              p.Address(),
			Slot0:                p.Slot0(),
			Liquidity:            p.Liquidity(),
			FeeGrowthGlobal0X128: p.FeeGrowthGlobal0X128(),
			FeeGrowthGlobal1X128: p.FeeGrowthGlobal1X128(),
			ProtocolFees:         p.ProtocolFees(),
			Events:               records,
		})
	}
	return result, nil
}

func (r *runner) apply(a scenarioAction) (amount0, amount1 *uint256.Int, observed []string, err error) {
	if a.Type == "advance" {
		return nil, nil, nil, nil
	}
	if a.Pool < 0 || a.Pool >= len(r.pools) {
		return nil, nil, nil, fmt.Errorf("unknown pool index %d", a.Pool)
	}
	p := r.pools[a.Pool]

	switch a.Type {
	case "initialize":
		price, perr := parseUnsigned(a.Amount)
		if perr != nil {
			return nil, nil, nil, perr
		}
		return nil, nil, nil, p.Initialize(price)

	case "mint":
		amount, perr := parseUnsigned(a.Amount)
		if perr != nil {
			return nil, nil, nil, perr
		}
		cb := &payerCallback{pool: p, payer: a.Sender}
		amount0, amount1, err = p.Mint(a.Sender, a.Sender, a.TickLower, a.TickUpper, amount, cb, nil)
		return amount0, amount1, nil, err

	case "swap":
		specified, perr := parseSigned(a.AmountSpecified)
		if perr != nil {
			return nil, nil, nil, perr
		}
		limit, perr := parseLimit(a.SqrtPriceLimitX96, a.ZeroForOne)
		if perr != nil {
			return nil, nil, nil, perr
		}
		cb := &payerCallback{pool: p, payer: a.Sender}
		amount0, amount1, err = p.Swap(a.Sender, a.Sender, a.ZeroForOne, specified, limit, cb, nil)
		return amount0, amount1, nil, err

	case "burn":
		amount, perr := parseUnsigned(a.Amount)
		if perr != nil {
			return nil, nil, nil, perr
		}
		amount0, amount1, err = p.Burn(a.Sender, a.TickLower, a.TickUpper, amount)
		return amount0, amount1, nil, err

	case "collect":
		max0, perr := parseUnsignedDefaultMax(a.Amount0)
		if perr != nil {
			return nil, nil, nil, perr
		}
		max1, perr := parseUnsignedDefaultMax(a.Amount1)
		if perr != nil {
			return nil, nil, nil, perr
		}
		amount0, amount1, err = p.Collect(a.Sender, a.Sender, a.TickLower, a.TickUpper, max0, max1)
		return amount0, amount1, nil, err

	case "flash":
		fl0, perr := parseUnsigned(a.Amount0)
		if perr != nil {
			return nil, nil, nil, perr
		}
		fl1, perr := parseUnsigned(a.Amount1)
		if perr != nil {
			return nil, nil, nil, perr
		}
		cb := &flashBorrower{pool: p, borrower: a.Sender, amount0: fl0, amount1: fl1}
		return nil, nil, nil, p.Flash(a.Sender, a.Sender, fl0, fl1, cb, nil)

	case "setFeeProtocol":
		return nil, nil, nil, p.SetFeeProtocol(a.Sender, a.FeeProtocol0, a.FeeProtocol1)

	case "collectProtocol":
		max0, perr := parseUnsignedDefaultMax(a.Amount0)
		if perr != nil {
			return nil, nil, nil, perr
		}
		max1, perr := parseUnsignedDefaultMax(a.Amount1)
		if perr != nil {
			return nil, nil, nil, perr
		}
		amount0, amount1, err = p.CollectProtocol(a.Sender, a.Sender, max0, max1)
		return amount0, amount1, nil, err

	case "increaseCardinality":
		return nil, nil, nil, p.IncreaseObservationCardinalityNext(a.Cardinality)

	case "observe":
		tickCumulatives, spls, oerr := p.Observe(a.SecondsAgos)
		if oerr != nil {
			return nil, nil, nil, oerr
		}
		for i := range tickCumulatives {
			observed = append(observed, fmt.Sprintf("%d:%s", tickCumulatives[i], spls[i].Dec()))
		}
		return nil, nil, observed, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown action type %q", a.Type)
	}
}

// payerCallback settles mint and swap debts from a single payer account.
type payerCallback struct {
	pool  *pool.Pool
	payer common.Address
}

func (c *payerCallback) MintCallback(amount0Owed, amount1Owed *uint256.Int, _ []byte) error {
	if !amount0Owed.IsZero() {
		if err := c.pool.Token0().Transfer(c.payer, c.pool.Address(), amount0Owed); err != nil {
			return err
		}
	}
	if !amount1Owed.IsZero() {
		if err := c.pool.Token1().Transfer(c.payer, c.pool.Address(), amount1Owed); err != nil {
			return err
		}
	}
	return nil
}

func (c *payerCallback) SwapCallback(amount0Delta, amount1Delta *uint256.Int, _ []byte) error {
	if amount0Delta.Sign() > 0 {
		if err := c.pool.Token0().Transfer(c.payer, c.pool.Address(), amount0Delta); err != nil {
			return err
		}
	}
	if amount1Delta.Sign() > 0 {
		if err := c.pool.Token1().Transfer(c.payer, c.pool.Address(), amount1Delta); err != nil {
			return err
		}
	}
	return nil
}

// flashBorrower returns principal plus fee from the borrower's balance.
type flashBorrower struct {
	pool             *pool.Pool
	borrower         common.Address
	amount0, amount1 *uint256.Int
}

func (b *flashBorrower) FlashCallback(fee0, fee1 *uint256.Int, _ []byte) error {
	repay0 := new(uint256.Int).Add(b.amount0, fee0)
	repay1 := new(uint256.Int).Add(b.amount1, fee1)
	if !repay0.IsZero() {
		if err := b.pool.Token0().Transfer(b.borrower, b.pool.Address(), repay0); err != nil {
			return err
		}
	}
	if !repay1.IsZero() {
		if err := b.pool.Token1().Transfer(b.borrower, b.pool.Address(), repay1); err != nil {
			return err
		}
	}
	return nil
}

func parseUnsigned(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	value, ok := new(big.Int).SetString(s, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("invalid unsigned amount %q", s)
	}
	return uint256.MustFromBig(value), nil
}

func parseUnsignedDefaultMax(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int).Not(new(uint256.Int)), nil
	}
	return parseUnsigned(s)
}

func parseSigned(s string) (*uint256.Int, error) {
	negative := strings.HasPrefix(s, "-")
	value, err := parseUnsigned(strings.TrimPrefix(s, "-"))
	if err != nil {
		return nil, err
	}
	if negative {
		value.Neg(value)
	}
	return value, nil
}

// parseLimit defaults an empty limit to the extreme price in the swap's
// direction.
func parseLimit(s string, zeroForOne bool) (*uint256.Int, error) {
	if s == "" {
		if zeroForOne {
			return new(uint256.Int).AddUint64(tickmath.MIN_SQRT_RATIO, 1), nil
		}
		return new(uint256.Int).SubUint64(tickmath.MAX_SQRT_RATIO, 1), nil
	}
	return parseUnsigned(s)
}

func signedString(x *uint256.Int) string {
	if x.Sign() < 0 {
		return "-" + new(uint256.Int).Neg(x).Dec()
	}
	return x.Dec()
}
