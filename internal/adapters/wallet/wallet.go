// Package wallet tracks player currency balances.
//
// Debits are atomic per player: two concurrent redemptions can never
// both succeed against a balance that only covers one of them.
package wallet

import (
	"fmt"
	"sync"
)

// ErrInsufficientFunds is returned when a debit exceeds the balance.
var ErrInsufficientFunds = &InsufficientFundsError{}

// InsufficientFundsError carries the amount the failed debit needed.
type InsufficientFundsError struct {
	Required int64
	Balance  int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: need %d, have %d", e.Required, e.Balance)
}

// Is matches any InsufficientFundsError regardless of amounts.
func (e *InsufficientFundsError) Is(target error) bool {
	_, ok := target.(*InsufficientFundsError)
	return ok
}

// Wallet holds balances keyed by player id. Unknown players start at
// the configured initial balance on first touch.
type Wallet struct {
	mu       sync.Mutex
	balances map[string]int64
	initial  int64
}

// Option applies a configuration option to the Wallet.
type Option func(*Wallet)

// WithInitialBalance sets the starting balance for new players.
func WithInitialBalance(coins int64) Option {
	return func(w *Wallet) {
		if coins >= 0 {
			w.initial = coins
		}
	}
}

// New creates an empty wallet store.
func New(opts ...Option) *Wallet {
	w := &Wallet{balances: make(map[string]int64)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Wallet) balanceLocked(playerID string) int64 {
	if _, ok := w.balances[playerID]; !ok {
		w.balances[playerID] = w.initial
	}
	return w.balances[playerID]
}

// Balance returns the player's current balance.
func (w *Wallet) Balance(playerID string) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balanceLocked(playerID)
}

// Debit removes amount from the player's balance, returning the new
// balance. The whole check-and-subtract happens under one lock.
func (w *Wallet) Debit(playerID string, amount int64) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	balance := w.balanceLocked(playerID)
	if balance < amount {
		return balance, &InsufficientFundsError{Required: amount, Balance: balance}
	}
	w.balances[playerID] = balance - amount
	return w.balances[playerID], nil
}

// Credit adds amount to the player's balance, returning the new
// balance. Negative amounts are ignored.
func (w *Wallet) Credit(playerID string, amount int64) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	balance := w.balanceLocked(playerID)
	if amount > 0 {
		balance += amount
		w.balances[playerID] = balance
	}
	return balance
}
