package wallet

import "time"

// AmountRequest captures a single-amount wallet operation.
type AmountRequest struct {
	Amount int64 `json:"amount"`
}

// SwapRequest captures a denomination swap.
type SwapRequest struct {
	Amount    int64  `json:"amount"`
	Direction string `json:"direction"`
}

// GiftRequest captures a coin gift to another user.
type GiftRequest struct {
	ToUserID string `json:"to_user_id"`
	Amount   int64  `json:"amount"`
}

// BalanceResponse represents the API view of a wallet.
type BalanceResponse struct {
	UserID string `json:"user_id"`
	Money  int64  `json:"money"`
	Coins  int64  `json:"coins"`
}

// MutationResponse represents the outcome of a wallet mutation.
type MutationResponse struct {
	TransactionID string `json:"transaction_id"`
	Money         int64  `json:"money"`
	Coins         int64  `json:"coins"`
}

// TransactionResponse represents a single ledger record.
type TransactionResponse struct {
	ID        string    `json:"id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Kind      string    `json:"kind"`
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func balanceResponse(b Balance) BalanceResponse {
	return BalanceResponse{UserID: b.UserID, Money: b.Money, Coins: b.Coins}
}

func mutationResponse(r Result) MutationResponse {
	return MutationResponse{TransactionID: r.TransactionID, Money: r.Balance.Money, Coins: r.Balance.Coins}
}

func transactionResponses(list []Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(list))
	for _, tx := range list {
		out = append(out, TransactionResponse{
			ID:        tx.ID,
			Amount:    tx.Amount,
			Currency:  tx.Currency,
			Kind:      tx.Kind,
			Reference: tx.Reference,
			CreatedAt: tx.CreatedAt,
		})
	}
	return out
}
