package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists balances and transactions in PostgreSQL. Each
// mutation locks the wallet row with FOR UPDATE so concurrent debits cannot
// overdraw a balance.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed wallet ledger.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// EnsureWallet guarantees a zero-balance wallet row exists for the user.
func (l *PostgresLedger) EnsureWallet(ctx context.Context, userID string) error {
	_, err := l.db.Exec(ctx, `INSERT INTO wallets (user_id, money, coins, created_at, updated_at)
        VALUES ($1, 0, 0, NOW(), NOW()) ON CONFLICT (user_id) DO NOTHING`, userID)
	return err
}

// Balances returns the current balance pair for the user.
func (l *PostgresLedger) Balances(ctx context.Context, userID string) (Balance, error) {
	row := l.db.QueryRow(ctx, `SELECT money, coins FROM wallets WHERE user_id = $1`, userID)
	b := Balance{UserID: userID}
	if err := row.Scan(&b.Money, &b.Coins); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{}, ErrWalletNotFound
		}
		return Balance{}, err
	}
	return b, nil
}

// entry is one transaction row written alongside a balance mutation.
type entry struct {
	userID    string
	amount    int64
	currency  string
	kind      string
	reference string
}

// Deposit credits the money balance and records a deposit transaction.
func (l *PostgresLedger) Deposit(ctx context.Context, userID string, amount int64) (Result, error) {
	if amount <= 0 {
		return Result{}, ErrInvalidAmount
	}
	return l.mutate(ctx, userID, func(b *Balance) ([]entry, error) {
		b.Money += amount
		return []entry{{userID: userID, amount: amount, currency: CurrencyMoney, kind: KindDeposit}}, nil
	})
}

// Withdraw debits the money balance, rejecting overdrafts.
func (l *PostgresLedger) Withdraw(ctx context.Context, userID string, amount int64) (Result, error) {
	if amount <= 0 {
		return Result{}, ErrInvalidAmount
	}
	return l.mutate(ctx, userID, func(b *Balance) ([]entry, error) {
		if b.Money < amount {
			return nil, ErrInsufficientFunds
		}
		b.Money -= amount
		return []entry{{userID: userID, amount: -amount, currency: CurrencyMoney, kind: KindWithdrawal}}, nil
	})
}

// Swap converts between denominations at the fixed rate, writing both legs
// under a shared reference.
func (l *PostgresLedger) Swap(ctx context.Context, userID string, amount int64, direction SwapDirection) (Result, error) {
	legs, apply, err := swapLegs(userID, amount, direction)
	if err != nil {
		return Result{}, err
	}
	return l.mutate(ctx, userID, func(b *Balance) ([]entry, error) {
		if err := apply(b); err != nil {
			return nil, err
		}
		return legs, nil
	})
}

// Gift moves coins from one user to another, recording a debit and a credit.
func (l *PostgresLedger) Gift(ctx context.Context, fromID, toID string, amount int64) (Result, error) {
	if amount <= 0 {
		return Result{}, ErrInvalidAmount
	}
	if fromID == toID {
		return Result{}, ErrInvalidAmount
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Result{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	// Lock both rows in a stable order to avoid deadlocks between
	// concurrent opposite-direction gifts.
	first, second := fromID, toID
	if second < first {
		first, second = second, first
	}
	for _, id := range []string{first, second} {
		if _, err := lockedBalance(ctx, tx, id); err != nil {
			return Result{}, err
		}
	}

	from, err := lockedBalance(ctx, tx, fromID)
	if err != nil {
		return Result{}, err
	}
	if from.Coins < amount {
		return Result{}, ErrInsufficientFunds
	}

	if _, err := tx.Exec(ctx, `UPDATE wallets SET coins = coins - $1, updated_at = NOW() WHERE user_id = $2`, amount, fromID); err != nil {
		return Result{}, err
	}
	if _, err := tx.Exec(ctx, `UPDATE wallets SET coins = coins + $1, updated_at = NOW() WHERE user_id = $2`, amount, toID); err != nil {
		return Result{}, err
	}

	ref := uuid.NewString()
	txID, err := insertEntries(ctx, tx, []entry{
		{userID: fromID, amount: -amount, currency: CurrencyCoins, kind: KindGift, reference: ref},
		{userID: toID, amount: amount, currency: CurrencyCoins, kind: KindGift, reference: ref},
	})
	if err != nil {
		return Result{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Result{}, err
	}

	balance, err := l.Balances(ctx, fromID)
	if err != nil {
		return Result{}, err
	}
	return Result{TransactionID: txID, Balance: balance}, nil
}

// Escrow holds a challenge stake out of the coin balance.
func (l *PostgresLedger) Escrow(ctx context.Context, userID string, amount int64, reference string) (Result, error) {
	if amount <= 0 {
		return Result{}, ErrInvalidAmount
	}
	return l.mutate(ctx, userID, func(b *Balance) ([]entry, error) {
		if b.Coins < amount {
			return nil, ErrInsufficientFunds
		}
		b.Coins -= amount
		return []entry{{userID: userID, amount: -amount, currency: CurrencyCoins, kind: KindEscrow, reference: reference}}, nil
	})
}

// ReleaseEscrow returns a previously escrowed stake to the coin balance.
func (l *PostgresLedger) ReleaseEscrow(ctx context.Context, userID string, amount int64, reference string) (Result, error) {
	if amount <= 0 {
		return Result{}, ErrInvalidAmount
	}
	return l.mutate(ctx, userID, func(b *Balance) ([]entry, error) {
		b.Coins += amount
		return []entry{{userID: userID, amount: amount, currency: CurrencyCoins, kind: KindEscrowRelease, reference: reference}}, nil
	})
}

// Payout credits challenge winnings or bonuses to the coin balance.
func (l *PostgresLedger) Payout(ctx context.Context, userID string, amount int64, kind, reference string) (Result, error) {
	if amount <= 0 {
		return Result{}, ErrInvalidAmount
	}
	return l.mutate(ctx, userID, func(b *Balance) ([]entry, error) {
		b.Coins += amount
		return []entry{{userID: userID, amount: amount, currency: CurrencyCoins, kind: kind, reference: reference}}, nil
	})
}

// History lists the user's transactions, newest first.
func (l *PostgresLedger) History(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.Query(ctx, `SELECT id, user_id, amount, currency, kind, reference, created_at
        FROM wallet_transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var (
			t   Transaction
			id  uuid.UUID
			ref *string
		)
		if err := rows.Scan(&id, &t.UserID, &t.Amount, &t.Currency, &t.Kind, &ref, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.ID = id.String()
		if ref != nil {
			t.Reference = *ref
		}
		t.CreatedAt = t.CreatedAt.UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

// mutate runs a single-wallet balance mutation and its transaction inserts in
// one database transaction.
func (l *PostgresLedger) mutate(ctx context.Context, userID string, fn func(b *Balance) ([]entry, error)) (Result, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Result{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	balance, err := lockedBalance(ctx, tx, userID)
	if err != nil {
		return Result{}, err
	}

	entries, err := fn(&balance)
	if err != nil {
		return Result{}, err
	}

	if _, err := tx.Exec(ctx, `UPDATE wallets SET money = $1, coins = $2, updated_at = NOW() WHERE user_id = $3`,
		balance.Money, balance.Coins, userID); err != nil {
		return Result{}, err
	}

	txID, err := insertEntries(ctx, tx, entries)
	if err != nil {
		return Result{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Result{}, err
	}

	return Result{TransactionID: txID, Balance: balance}, nil
}

func lockedBalance(ctx context.Context, tx pgx.Tx, userID string) (Balance, error) {
	row := tx.QueryRow(ctx, `SELECT money, coins FROM wallets WHERE user_id = $1 FOR UPDATE`, userID)
	b := Balance{UserID: userID}
	if err := row.Scan(&b.Money, &b.Coins); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{}, ErrWalletNotFound
		}
		return Balance{}, err
	}
	return b, nil
}

func insertEntries(ctx context.Context, tx pgx.Tx, entries []entry) (string, error) {
	var firstID string
	now := time.Now().UTC()
	for _, e := range entries {
		id := uuid.New()
		if firstID == "" {
			firstID = id.String()
		}
		var ref *string
		if e.reference != "" {
			ref = &e.reference
		}
		if _, err := tx.Exec(ctx, `INSERT INTO wallet_transactions (id, user_id, amount, currency, kind, reference, created_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7)`, id, e.userID, e.amount, e.currency, e.kind, ref, now); err != nil {
			return "", err
		}
	}
	return firstID, nil
}

// swapLegs validates a swap and prepares its transaction rows and balance
// application. Shared by both ledger implementations.
func swapLegs(userID string, amount int64, direction SwapDirection) ([]entry, func(*Balance) error, error) {
	if amount <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	ref := uuid.NewString()

	switch direction {
	case SwapToCoins:
		credited := amount * CoinsPerUnit
		legs := []entry{
			{userID: userID, amount: -amount, currency: CurrencyMoney, kind: KindSwap, reference: ref},
			{userID: userID, amount: credited, currency: CurrencyCoins, kind: KindSwap, reference: ref},
		}
		return legs, func(b *Balance) error {
			if b.Money < amount {
				return ErrInsufficientFunds
			}
			b.Money -= amount
			b.Coins += credited
			return nil
		}, nil
	case SwapToMoney:
		if amount%CoinsPerUnit != 0 {
			return nil, nil, ErrInvalidAmount
		}
		credited := amount / CoinsPerUnit
		legs := []entry{
			{userID: userID, amount: -amount, currency: CurrencyCoins, kind: KindSwap, reference: ref},
			{userID: userID, amount: credited, currency: CurrencyMoney, kind: KindSwap, reference: ref},
		}
		return legs, func(b *Balance) error {
			if b.Coins < amount {
				return ErrInsufficientFunds
			}
			b.Coins -= amount
			b.Money += credited
			return nil
		}, nil
	default:
		return nil, nil, ErrInvalidAmount
	}
}
