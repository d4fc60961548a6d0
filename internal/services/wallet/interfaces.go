package wallet

import (
	"context"

	"nilepay/internal/models"

	"github.com/shopspring/decimal"
)

type Service interface {
	// Fund opens a hosted checkout session for the amount and returns the
	// URL the user completes it at. The transaction stays PENDING until a
	// webhook or the expiry sweep resolves it.
	Fund(ctx context.Context, userID uint, amount decimal.Decimal) (*FundResult, error)
	// Transfer moves funds to another wallet addressed by its ref. Both
	// ledger legs and the status transition commit atomically.
	Transfer(ctx context.Context, userID uint, req TransferRequest) (*models.Transaction, error)
	// Withdraw debits the wallet up front and requests a payout to the
	// user's connected account. A failed request is compensated before
	// returning.
	Withdraw(ctx context.Context, userID uint, amount decimal.Decimal) (*models.Transaction, error)
	OnboardingLink(ctx context.Context, userID uint) (string, error)
	GetWallet(ctx context.Context, userID uint) (*models.Wallet, error)
	GetTransaction(ctx context.Context, userID uint, transactionID string) (*models.Transaction, error)
	LedgerEntries(ctx context.Context, userID uint, limit, offset int) ([]models.LedgerEntry, error)
}
