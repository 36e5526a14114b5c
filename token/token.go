// Package token provides an in-process fungible token ledger used to settle
// pool transfers and verify callback payments.
package token

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	// ErrInsufficientBalance is returned when a transfer exceeds the sender's
	// balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrBalanceOverflow is returned when minting would overflow a balance.
	ErrBalanceOverflow = errors.New("balance overflow")
)

// Ledger is a single token's balance table.
type Ledger struct {
	address  common.Address
	balances map[common.Address]*uint256.Int
}

// NewLedger creates an empty ledger for the token at the given address.
func NewLedger(address common.Address) *Ledger {
	return &Ledger{
		address:  address,
		balances: make(map[common.Address]*uint256.Int),
	}
}

// Address returns the token's identifying address.
func (l *Ledger) Address() common.Address {
	return l.address
}

// BalanceOf returns the holder's balance. Unknown holders read as zero.
func (l *Ledger) BalanceOf(holder common.Address) *uint256.Int {
	if bal, ok := l.balances[holder]; ok {
		return bal.Clone()
	}
	return new(uint256.Int)
}

// Mint credits amount to the holder out of thin air. A failed mint leaves the
// balance untouched.
func (l *Ledger) Mint(holder common.Address, amount *uint256.Int) error {
	bal, ok := l.balances[holder]
	if !ok {
		bal = new(uint256.Int)
	}
	sum, overflow := new(uint256.Int).AddOverflow(bal, amount)
	if overflow {
		return ErrBalanceOverflow
	}
	l.balances[holder] = sum
	return nil
}

// Transfer moves amount from one holder to another.
func (l *Ledger) Transfer(from, to common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	fromBal, ok := l.balances[from]
	if !ok || fromBal.Lt(amount) {
		return ErrInsufficientBalance
	}
	fromBal.Sub(fromBal, amount)
	toBal, ok := l.balances[to]
	if !ok {
		toBal = new(uint256.Int)
		l.balances[to] = toBal
	}
	toBal.Add(toBal, amount)
	return nil
}

// Snapshot captures the full balance table for later Restore.
func (l *Ledger) Snapshot() map[common.Address]*uint256.Int {
	snap := make(map[common.Address]*uint256.Int, len(l.balances))
	for holder, bal := range l.balances {
		snap[holder] = bal.Clone()
	}
	return snap
}

// Restore replaces the balance table with a previously taken Snapshot.
func (l *Ledger) Restore(snap map[common.Address]*uint256.Int) {
	l.balances = make(map[common.Address]*uint256.Int, len(snap))
	for holder, bal := range snap {
		l.balances[holder] = bal.Clone()
	}
}
