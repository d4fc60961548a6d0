package ledger

import (
	"context"
	"testing"

	"nilepay/internal/apperrors"
	"nilepay/internal/models"
	"nilepay/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWallet(t *testing.T, store repositories.Store, balance int64) *models.Wallet {
	t.Helper()
	w := &models.Wallet{
		UserID:    1,
		WalletRef: "NP-TEST",
		Balance:   decimal.NewFromInt(balance),
		Status:    models.WalletStatusActive,
	}
	require.NoError(t, store.Wallets().Create(context.Background(), w))
	return w
}

func TestApplyRecordsBeforeAndAfter(t *testing.T) {
	store := repositories.NewMemoryStore()
	ctx := context.Background()
	w := newWallet(t, store, 0)

	err := store.ExecuteInTransaction(ctx, func(s repositories.Store) error {
		entry, err := Apply(ctx, s, w.ID, "tx-1", decimal.NewFromInt(100))
		require.NoError(t, err)
		assert.True(t, entry.BalanceBefore.Equal(decimal.Zero))
		assert.True(t, entry.BalanceAfter.Equal(decimal.NewFromInt(100)))
		return nil
	})
	require.NoError(t, err)

	err = store.ExecuteInTransaction(ctx, func(s repositories.Store) error {
		entry, err := Apply(ctx, s, w.ID, "tx-2", decimal.NewFromInt(-30))
		require.NoError(t, err)
		assert.True(t, entry.BalanceBefore.Equal(decimal.NewFromInt(100)))
		assert.True(t, entry.BalanceAfter.Equal(decimal.NewFromInt(70)))
		return nil
	})
	require.NoError(t, err)

	got, err := store.Wallets().GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(70)))
}

func TestReplayReproducesBalance(t *testing.T) {
	store := repositories.NewMemoryStore()
	ctx := context.Background()
	w := newWallet(t, store, 0)

	deltas := []int64{100, -30, 45, -15}
	for i, d := range deltas {
		err := store.ExecuteInTransaction(ctx, func(s repositories.Store) error {
			_, err := Apply(ctx, s, w.ID, "tx", decimal.NewFromInt(d))
			return err
		})
		require.NoError(t, err, "delta %d", i)
	}

	entries, err := store.Ledger().ListByWallet(ctx, w.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, len(deltas))

	got, err := store.Wallets().GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, Replay(decimal.Zero, entries).Equal(got.Balance))

	// Each entry chains off the previous one.
	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i].BalanceBefore.Equal(entries[i-1].BalanceAfter))
	}
}

func TestApplyRejectsOverdraft(t *testing.T) {
	store := repositories.NewMemoryStore()
	ctx := context.Background()
	w := newWallet(t, store, 50)

	err := store.ExecuteInTransaction(ctx, func(s repositories.Store) error {
		_, err := Apply(ctx, s, w.ID, "tx-1", decimal.NewFromInt(-80))
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)

	got, err := store.Wallets().GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(50)))

	entries, err := store.Ledger().ListByWallet(ctx, w.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestApplyUnknownWallet(t *testing.T) {
	store := repositories.NewMemoryStore()
	err := store.ExecuteInTransaction(context.Background(), func(s repositories.Store) error {
		_, err := Apply(context.Background(), s, 999, "tx-1", decimal.NewFromInt(10))
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrWalletNotFound)
}
