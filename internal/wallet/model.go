package wallet

import "time"

// CoinsPerUnit is the fixed swap rate: one money unit buys ten coins.
const CoinsPerUnit = 10

// Currency tags for the two wallet denominations.
const (
	CurrencyMoney = "money"
	CurrencyCoins = "coins"
)

// Transaction kinds recorded in the ledger.
const (
	KindDeposit       = "deposit"
	KindWithdrawal    = "withdrawal"
	KindSwap          = "swap"
	KindGift          = "gift"
	KindEscrow        = "challenge_escrow"
	KindEscrowRelease = "escrow_release"
	KindWin           = "challenge_win"
	KindBonus         = "bonus"
)

// SwapDirection selects which denomination is the source of a swap.
type SwapDirection string

const (
	// SwapToCoins converts money into coins.
	SwapToCoins SwapDirection = "to-coin"
	// SwapToMoney converts coins back into money.
	SwapToMoney SwapDirection = "to-money"
)

// Balance holds both denominations for one user. Quantities are whole units
// and never go negative.
type Balance struct {
	UserID string
	Money  int64
	Coins  int64
}

// Transaction is an append-only ledger record. Amount is signed: credits are
// positive, debits negative. Reference ties related records together (swap
// legs, challenge escrow).
type Transaction struct {
	ID        string
	UserID    string
	Amount    int64
	Currency  string
	Kind      string
	Reference string
	CreatedAt time.Time
}

// Result captures the outcome of a ledger mutation.
type Result struct {
	TransactionID string
	Balance       Balance
}
