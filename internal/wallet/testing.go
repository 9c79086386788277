package wallet

// SeedBalance is a test helper that sets both balances for a user when using
// the in-memory ledger. No transaction records are written.
func SeedBalance(l Ledger, userID string, money, coins int64) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.balances[userID] = &Balance{UserID: userID, Money: money, Coins: coins}
	}
}
