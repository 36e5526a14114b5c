package pool

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Event is implemented by every pool lifecycle record. Events are appended in
// call order and survive only for calls that commit.
type Event interface {
	EventName() string
}

type InitializeEvent struct {
	SqrtPriceX96 *uint256.Int `json:"sqrtPriceX96"`
	Tick         int32        `json:"tick"`
}

type MintEvent struct {
	Sender    common.Address `json:"sender"`
	Owner     common.Address `json:"owner"`
	TickLower int32          `json:"tickLower"`
	TickUpper int32          `json:"tickUpper"`
	Amount    *uint256.Int   `json:"amount"`
	Amount0   *uint256.Int   `json:"amount0"`
	Amount1   *uint256.Int   `json:"amount1"`
}

type CollectEvent struct {
	Owner     common.Address `json:"owner"`
	Recipient common.Address `json:"recipient"`
	TickLower int32          `json:"tickLower"`
	TickUpper int32          `json:"tickUpper"`
	Amount0   *uint256.Int   `json:"amount0"`
	Amount1   *uint256.Int   `json:"amount1"`
}

type BurnEvent struct {
	Owner     common.Address `json:"owner"`
	TickLower int32          `json:"tickLower"`
	TickUpper int32          `json:"tickUpper"`
	Amount    *uint256.Int   `json:"amount"`
	Amount0   *uint256.Int   `json:"amount0"`
	Amount1   *uint256.Int   `json:"amount1"`
}

type SwapEvent struct {
	Sender       common.Address `json:"sender"`
	Recipient    common.Address `json:"recipient"`
	Amount0      *uint256.Int   `json:"amount0"` // signed, two's complement
	Amount1      *uint256.Int   `json:"amount1"` // signed, two's complement
	SqrtPriceX96 *uint256.Int   `json:"sqrtPriceX96"`
	Liquidity    *uint256.Int   `json:"liquidity"`
	Tick         int32          `json:"tick"`
}

type FlashEvent struct {
	Sender    common.Address `json:"sender"`
	Recipient common.Address `json:"recipient"`
	Amount0   *uint256.Int   `json:"amount0"`
	Amount1   *uint256.Int   `json:"amount1"`
	Paid0     *uint256.Int   `json:"paid0"`
	Paid1     *uint256.Int   `json:"paid1"`
}

type IncreaseObservationCardinalityNextEvent struct {
	ObservationCardinalityNextOld uint16 `json:"observationCardinalityNextOld"`
	ObservationCardinalityNextNew uint16 `json:"observationCardinalityNextNew"`
}

type SetFeeProtocolEvent struct {
	FeeProtocol0Old uint8 `json:"feeProtocol0Old"`
	FeeProtocol1Old uint8 `json:"feeProtocol1Old"`
	FeeProtocol0New uint8 `json:"feeProtocol0New"`
	FeeProtocol1New uint8 `json:"feeProtocol1New"`
}

type CollectProtocolEvent struct {
	Sender    common.Address `json:"sender"`
	Recipient common.Address `json:"recipient"`
	Amount0   *uint256.Int   `json:"amount0"`
	Amount1   *uint256.Int   `json:"amount1"`
}

func (InitializeEvent) EventName() string { return "Initialize" }
func (MintEvent) EventName() string       { return "Mint" }
func (CollectEvent) EventName() string    { return "Collect" }
func (BurnEvent) EventName() string       { return "Burn" }
func (SwapEvent) EventName() string       { return "Swap" }
func (FlashEvent) EventName() string      { return "Flash" }
func (IncreaseObservationCardinalityNextEvent) EventName() string {
	return "IncreaseObservationCardinalityNext"
}
func (SetFeeProtocolEvent) EventName() string  { return "SetFeeProtocol" }
func (CollectProtocolEvent) EventName() string { return "CollectProtocol" }
