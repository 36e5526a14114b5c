package pool

import "errors"

// Terminal error codes. The short mnemonics are stable API: callers match on
// the error value, logs and test assertions match on the string.
var (
	// ErrLocked means a mutating call arrived while another was in flight, or
	// before Initialize.
	ErrLocked = errors.New("LOK")
	// ErrAlreadyInitialized means Initialize was called twice.
	ErrAlreadyInitialized = errors.New("AI")
	// ErrTickLowerGTUpper means tickLower >= tickUpper.
	ErrTickLowerGTUpper = errors.New("TLU")
	// ErrTickLowerTooSmall means tickLower < the minimum tick.
	ErrTickLowerTooSmall = errors.New("TLM")
	// ErrTickUpperTooLarge means tickUpper > the maximum tick.
	ErrTickUpperTooLarge = errors.New("TUM")
	// ErrAmountSpecifiedZero means a swap was requested for zero.
	ErrAmountSpecifiedZero = errors.New("AS")
	// ErrSqrtPriceLimit means the swap price limit is on the wrong side of the
	// current price or outside the global bounds.
	ErrSqrtPriceLimit = errors.New("SPL")
	// ErrZeroLiquidity means an operation that needs live liquidity (flash,
	// mint amount) got zero.
	ErrZeroLiquidity = errors.New("L")
	// ErrMint0 and ErrMint1 mean the mint callback underpaid token0 or token1.
	ErrMint0 = errors.New("M0")
	ErrMint1 = errors.New("M1")
	// ErrInsufficientInputAmount means the swap callback underpaid the input
	// token.
	ErrInsufficientInputAmount = errors.New("IIA")
	// ErrFlash0 and ErrFlash1 mean the flash callback returned less than
	// principal plus fee.
	ErrFlash0 = errors.New("F0")
	ErrFlash1 = errors.New("F1")
	// ErrNotOwner means a protocol-owner operation came from someone else.
	ErrNotOwner = errors.New("caller is not the protocol owner")
	// ErrInvalidFeeProtocol means a protocol fee denominator outside {0, 4..10}.
	ErrInvalidFeeProtocol = errors.New("protocol fee fraction out of range")
	// ErrTickNotInitialized means a cumulative snapshot was requested over a
	// range whose ticks are not both initialized.
	ErrTickNotInitialized = errors.New("tick range not initialized")
)
