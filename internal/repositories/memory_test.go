package repositories

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"nilepay/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteInTransactionRollsBackOnError(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	w := &models.Wallet{UserID: 1, WalletRef: "NP-1", Status: models.WalletStatusActive}
	require.NoError(t, store.Wallets().Create(ctx, w))

	err := store.ExecuteInTransaction(ctx, func(s Store) error {
		w.Balance = decimal.NewFromInt(500)
		if err := s.Wallets().Save(ctx, w); err != nil {
			return err
		}
		if err := s.Transactions().Create(ctx, &models.Transaction{ID: "tx-1", WalletID: w.ID}); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	got, err := store.Wallets().GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.IsZero())

	_, err = store.Transactions().GetByID(ctx, "tx-1")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestMarkResolvedAppliesExactlyOnce(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Transactions().Create(ctx, &models.Transaction{
		ID:     "tx-1",
		Status: models.TransactionStatusPending,
	}))

	const writers = 16
	var wg sync.WaitGroup
	results := make([]bool, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := models.TransactionStatusSuccess
			if i%2 == 0 {
				status = models.TransactionStatusFailed
			}
			applied, err := store.Transactions().MarkResolved(ctx, "tx-1", status, "done", nil)
			assert.NoError(t, err)
			results[i] = applied
		}(i)
	}
	wg.Wait()

	applied := 0
	for _, r := range results {
		if r {
			applied++
		}
	}
	assert.Equal(t, 1, applied)

	txn, err := store.Transactions().GetByID(ctx, "tx-1")
	require.NoError(t, err)
	assert.NotEqual(t, models.TransactionStatusPending, txn.Status)
}

func TestListByWalletPagination(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Ledger().Append(ctx, &models.LedgerEntry{
			WalletID: 1,
			Change:   decimal.NewFromInt(int64(i + 1)),
		}))
	}

	// Zero limit means no limit.
	all, err := store.Ledger().ListByWallet(ctx, 1, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	page, err := store.Ledger().ListByWallet(ctx, 1, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.True(t, page[0].Change.Equal(decimal.NewFromInt(2)))
	assert.True(t, page[1].Change.Equal(decimal.NewFromInt(3)))

	past, err := store.Ledger().ListByWallet(ctx, 1, 10, 99)
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestMarkResolvedMergesMetadata(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Transactions().Create(ctx, &models.Transaction{
		ID:       "tx-1",
		Status:   models.TransactionStatusPending,
		Metadata: models.JSON{"sessionId": "cs_1"},
	}))

	applied, err := store.Transactions().MarkResolved(ctx, "tx-1",
		models.TransactionStatusSuccess, "done", models.JSON{"paymentIntentId": "pi_1"})
	require.NoError(t, err)
	require.True(t, applied)

	txn, err := store.Transactions().GetByID(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, "cs_1", txn.Metadata.GetString("sessionId"))
	assert.Equal(t, "pi_1", txn.Metadata.GetString("paymentIntentId"))
}
