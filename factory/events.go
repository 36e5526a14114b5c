package factory

import "github.com/ethereum/go-ethereum/common"

type OwnerChangedEvent struct {
	OldOwner common.Address `json:"oldOwner"`
	NewOwner common.Address `json:"newOwner"`
}

type PoolCreatedEvent struct {
	Token0      common.Address `json:"token0"`
	Token1      common.Address `json:"token1"`
	Fee         uint32         `json:"fee"`
	TickSpacing int32          `json:"tickSpacing"`
	Pool        common.Address `json:"pool"`
}

type FeeAmountEnabledEvent struct {
	Fee         uint32 `json:"fee"`
	TickSpacing int32  `json:"tickSpacing"`
}

func (OwnerChangedEvent) EventName() string     { return "OwnerChanged" }
func (PoolCreatedEvent) EventName() string      { return "PoolCreated" }
func (FeeAmountEnabledEvent) EventName() string { return "FeeAmountEnabled" }
