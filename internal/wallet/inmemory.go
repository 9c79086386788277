package wallet

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type inMemoryLedger struct {
	mu       sync.RWMutex
	balances map[string]*Balance
	log      []Transaction
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit tests.
func NewInMemory() Ledger {
	return &inMemoryLedger{balances: make(map[string]*Balance)}
}

func (l *inMemoryLedger) EnsureWallet(_ context.Context, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.balances[userID]; !exists {
		l.balances[userID] = &Balance{UserID: userID}
	}
	return nil
}

func (l *inMemoryLedger) Balances(_ context.Context, userID string) (Balance, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.balances[userID]
	if !ok {
		return Balance{}, ErrWalletNotFound
	}
	return *b, nil
}

func (l *inMemoryLedger) Deposit(_ context.Context, userID string, amount int64) (Result, error) {
	if amount <= 0 {
		return Result{}, ErrInvalidAmount
	}
	return l.apply(userID, func(b *Balance) ([]entry, error) {
		b.Money += amount
		return []entry{{userID: userID, amount: amount, currency: CurrencyMoney, kind: KindDeposit}}, nil
	})
}

func (l *inMemoryLedger) Withdraw(_ context.Context, userID string, amount int64) (Result, error) {
	if amount <= 0 {
		return Result{}, ErrInvalidAmount
	}
	return l.apply(userID, func(b *Balance) ([]entry, error) {
		if b.Money < amount {
			return nil, ErrInsufficientFunds
		}
		b.Money -= amount
		return []entry{{userID: userID, amount: -amount, currency: CurrencyMoney, kind: KindWithdrawal}}, nil
	})
}

func (l *inMemoryLedger) Swap(_ context.Context, userID string, amount int64, direction SwapDirection) (Result, error) {
	legs, applyLegs, err := swapLegs(userID, amount, direction)
	if err != nil {
		return Result{}, err
	}
	return l.apply(userID, func(b *Balance) ([]entry, error) {
		if err := applyLegs(b); err != nil {
			return nil, err
		}
		return legs, nil
	})
}

func (l *inMemoryLedger) Gift(_ context.Context, fromID, toID string, amount int64) (Result, error) {
	if amount <= 0 || fromID == toID {
		return Result{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	from, ok := l.balances[fromID]
	if !ok {
		return Result{}, ErrWalletNotFound
	}
	to, ok := l.balances[toID]
	if !ok {
		return Result{}, ErrWalletNotFound
	}
	if from.Coins < amount {
		return Result{}, ErrInsufficientFunds
	}

	from.Coins -= amount
	to.Coins += amount

	ref := uuid.NewString()
	txID := l.record(entry{userID: fromID, amount: -amount, currency: CurrencyCoins, kind: KindGift, reference: ref})
	l.record(entry{userID: toID, amount: amount, currency: CurrencyCoins, kind: KindGift, reference: ref})

	return Result{TransactionID: txID, Balance: *from}, nil
}

func (l *inMemoryLedger) Escrow(_ context.Context, userID string, amount int64, reference string) (Result, error) {
	if amount <= 0 {
		return Result{}, ErrInvalidAmount
	}
	return l.apply(userID, func(b *Balance) ([]entry, error) {
		if b.Coins < amount {
			return nil, ErrInsufficientFunds
		}
		b.Coins -= amount
		return []entry{{userID: userID, amount: -amount, currency: CurrencyCoins, kind: KindEscrow, reference: reference}}, nil
	})
}

func (l *inMemoryLedger) ReleaseEscrow(_ context.Context, userID string, amount int64, reference string) (Result, error) {
	if amount <= 0 {
		return Result{}, ErrInvalidAmount
	}
	return l.apply(userID, func(b *Balance) ([]entry, error) {
		b.Coins += amount
		return []entry{{userID: userID, amount: amount, currency: CurrencyCoins, kind: KindEscrowRelease, reference: reference}}, nil
	})
}

func (l *inMemoryLedger) Payout(_ context.Context, userID string, amount int64, kind, reference string) (Result, error) {
	if amount <= 0 {
		return Result{}, ErrInvalidAmount
	}
	return l.apply(userID, func(b *Balance) ([]entry, error) {
		b.Coins += amount
		return []entry{{userID: userID, amount: amount, currency: CurrencyCoins, kind: kind, reference: reference}}, nil
	})
}

func (l *inMemoryLedger) History(_ context.Context, userID string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Transaction
	for _, t := range l.log {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *inMemoryLedger) apply(userID string, fn func(b *Balance) ([]entry, error)) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.balances[userID]
	if !ok {
		return Result{}, ErrWalletNotFound
	}

	entries, err := fn(b)
	if err != nil {
		return Result{}, err
	}

	var txID string
	for _, e := range entries {
		id := l.record(e)
		if txID == "" {
			txID = id
		}
	}
	return Result{TransactionID: txID, Balance: *b}, nil
}

// record appends a transaction row. Caller holds the lock.
func (l *inMemoryLedger) record(e entry) string {
	id := uuid.NewString()
	l.log = append(l.log, Transaction{
		ID:        id,
		UserID:    e.userID,
		Amount:    e.amount,
		Currency:  e.currency,
		Kind:      e.kind,
		Reference: e.reference,
		CreatedAt: time.Now().UTC(),
	})
	return id
}
