// Package ledger owns every balance mutation. A wallet's balance column is
// a cached view; the entries are the source of truth, and replaying them
// in creation order must always reproduce the current balance.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"nilepay/internal/apperrors"
	"nilepay/internal/models"
	"nilepay/internal/repositories"

	"github.com/shopspring/decimal"
)

// Apply records a single signed balance change for a wallet. It must be
// called with the store of an open transaction so the wallet update and
// the entry insert commit together. The wallet row is locked for the
// duration of the transaction; before/after are computed under that lock.
//
// A debit that would take the balance below zero fails with
// ErrInsufficientFunds and writes nothing.
func Apply(ctx context.Context, store repositories.Store, walletID uint, transactionID string, delta decimal.Decimal) (*models.LedgerEntry, error) {
	wallet, err := store.Wallets().GetByIDForUpdate(ctx, walletID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, apperrors.ErrWalletNotFound
		}
		return nil, fmt.Errorf("ledger apply: %w", err)
	}

	after := wallet.Balance.Add(delta)
	if after.IsNegative() {
		return nil, apperrors.ErrInsufficientFunds
	}

	entry := &models.LedgerEntry{
		WalletID:      walletID,
		TransactionID: transactionID,
		Change:        delta,
		BalanceBefore: wallet.Balance,
		BalanceAfter:  after,
	}

	wallet.Balance = after
	if err := store.Wallets().Save(ctx, wallet); err != nil {
		return nil, fmt.Errorf("ledger apply: %w", err)
	}
	if err := store.Ledger().Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("ledger apply: %w", err)
	}

	return entry, nil
}

// Replay folds a wallet's entries over an initial balance. Used for audit
// and for asserting balance conservation.
func Replay(initial decimal.Decimal, entries []models.LedgerEntry) decimal.Decimal {
	balance := initial
	for _, e := range entries {
		balance = balance.Add(e.Change)
	}
	return balance
}
