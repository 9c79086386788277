package wallet

import (
	"context"
	"errors"
)

var (
	// ErrInsufficientFunds occurs when the source denomination lacks the
	// balance to cover a requested debit. No mutation is performed.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount indicates a non-positive amount, or a to-money swap
	// that is not a whole multiple of the rate.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrWalletNotFound indicates no wallet row exists for the user.
	ErrWalletNotFound = errors.New("wallet not found")
)

// Ledger defines the contract implemented by wallet backends. Every mutation
// commits the balance change and its transaction record atomically: a balance
// delta never exists without a matching record, and vice versa.
type Ledger interface {
	EnsureWallet(ctx context.Context, userID string) error
	Balances(ctx context.Context, userID string) (Balance, error)
	Deposit(ctx context.Context, userID string, amount int64) (Result, error)
	Withdraw(ctx context.Context, userID string, amount int64) (Result, error)
	Swap(ctx context.Context, userID string, amount int64, direction SwapDirection) (Result, error)
	Gift(ctx context.Context, fromID, toID string, amount int64) (Result, error)
	Escrow(ctx context.Context, userID string, amount int64, reference string) (Result, error)
	ReleaseEscrow(ctx context.Context, userID string, amount int64, reference string) (Result, error)
	Payout(ctx context.Context, userID string, amount int64, kind, reference string) (Result, error)
	History(ctx context.Context, userID string, limit int) ([]Transaction, error)
}
