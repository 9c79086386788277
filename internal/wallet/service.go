package wallet

import (
	"context"
	"fmt"

	"github.com/bantah-app/bantah/internal/notification"
)

// Service exposes wallet operations backed by the ledger.
type Service struct {
	ledger   Ledger
	notifier notification.Notifier
}

// NewService builds a wallet service instance.
func NewService(ledger Ledger, notifier notification.Notifier) *Service {
	return &Service{ledger: ledger, notifier: notifier}
}

// Overview returns both balances, creating the wallet on first access.
func (s *Service) Overview(ctx context.Context, userID string) (Balance, error) {
	if err := s.ledger.EnsureWallet(ctx, userID); err != nil {
		return Balance{}, err
	}
	return s.ledger.Balances(ctx, userID)
}

// History lists the user's most recent transactions, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	return s.ledger.History(ctx, userID, limit)
}

// Deposit credits the money balance.
func (s *Service) Deposit(ctx context.Context, userID string, amount int64) (Result, error) {
	if err := s.ledger.EnsureWallet(ctx, userID); err != nil {
		return Result{}, err
	}
	return s.ledger.Deposit(ctx, userID, amount)
}

// Withdraw debits the money balance.
func (s *Service) Withdraw(ctx context.Context, userID string, amount int64) (Result, error) {
	return s.ledger.Withdraw(ctx, userID, amount)
}

// Swap converts between denominations at the fixed rate.
func (s *Service) Swap(ctx context.Context, userID string, amount int64, direction SwapDirection) (Result, error) {
	return s.ledger.Swap(ctx, userID, amount, direction)
}

// Gift moves coins from one user to another and notifies the recipient.
func (s *Service) Gift(ctx context.Context, fromID, toID string, amount int64) (Result, error) {
	if fromID == toID {
		return Result{}, ErrInvalidAmount
	}
	if err := s.ledger.EnsureWallet(ctx, toID); err != nil {
		return Result{}, err
	}

	res, err := s.ledger.Gift(ctx, fromID, toID, amount)
	if err != nil {
		return Result{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindGiftReceived,
			Destination: toID,
			Title:       "Gift received",
			Body:        fmt.Sprintf("You received %d coins", amount),
		})
	}

	return res, nil
}
