package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/bantah-app/bantah/internal/notification"
)

type captureNotifier struct {
	messages []notification.Message
}

func (n *captureNotifier) Send(_ context.Context, message notification.Message) error {
	n.messages = append(n.messages, message)
	return nil
}

func TestServiceGiftNotifiesRecipient(t *testing.T) {
	ledger := NewInMemory()
	notifier := &captureNotifier{}
	svc := NewService(ledger, notifier)
	ctx := context.Background()

	ledger.EnsureWallet(ctx, "alice")
	SeedBalance(ledger, "alice", 0, 500)

	if _, err := svc.Gift(ctx, "alice", "bob", 200); err != nil {
		t.Fatalf("gift failed: %v", err)
	}

	if len(notifier.messages) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.messages))
	}
	msg := notifier.messages[0]
	if msg.Kind != notification.KindGiftReceived || msg.Destination != "bob" {
		t.Fatalf("unexpected message %+v", msg)
	}

	b, _ := ledger.Balances(ctx, "bob")
	if b.Coins != 200 {
		t.Fatalf("expected recipient coins=200, got %d", b.Coins)
	}
}

func TestServiceGiftRejectsSelf(t *testing.T) {
	svc := NewService(NewInMemory(), nil)

	if _, err := svc.Gift(context.Background(), "alice", "alice", 10); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount for self gift, got %v", err)
	}
}

func TestServiceGiftFailureSendsNothing(t *testing.T) {
	ledger := NewInMemory()
	notifier := &captureNotifier{}
	svc := NewService(ledger, notifier)
	ctx := context.Background()

	ledger.EnsureWallet(ctx, "alice")

	if _, err := svc.Gift(ctx, "alice", "bob", 200); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if len(notifier.messages) != 0 {
		t.Fatalf("expected no notification on failure, got %d", len(notifier.messages))
	}
}

func TestServiceOverviewCreatesWallet(t *testing.T) {
	svc := NewService(NewInMemory(), nil)

	b, err := svc.Overview(context.Background(), "fresh")
	if err != nil {
		t.Fatalf("overview failed: %v", err)
	}
	if b.Money != 0 || b.Coins != 0 {
		t.Fatalf("expected zero balances, got %+v", b)
	}
}
