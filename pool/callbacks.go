package pool

import "github.com/holiman/uint256"

// MintCallback is invoked after mint amounts are computed and before they are
// verified. The implementation must transfer the owed amounts to the pool on
// its token ledgers.
type MintCallback interface {
	MintCallback(amount0Owed, amount1Owed *uint256.Int, data []byte) error
}

// SwapCallback is invoked after the output transfer and before the input is
// verified. Amounts are signed: positive means owed to the pool.
type SwapCallback interface {
	SwapCallback(amount0Delta, amount1Delta *uint256.Int, data []byte) error
}

// FlashCallback is invoked after both principals are transferred out. The
// implementation must return principal plus fee for each token.
type FlashCallback interface {
	FlashCallback(fee0, fee1 *uint256.Int, data []byte) error
}
