package wallet

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"nilepay/internal/apperrors"
	"nilepay/internal/jobs"
	"nilepay/internal/models"
	"nilepay/internal/processor"
	"nilepay/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProcessor struct {
	session     *processor.CheckoutSession
	checkoutErr error
	payout      *processor.PayoutResult
	payoutErr   error
	accountID   string
	linkURL     string
}

func (p *fakeProcessor) CreateCheckoutSession(context.Context, processor.CheckoutParams) (*processor.CheckoutSession, error) {
	if p.checkoutErr != nil {
		return nil, p.checkoutErr
	}
	return p.session, nil
}

func (p *fakeProcessor) PayOut(context.Context, processor.PayoutParams) (*processor.PayoutResult, error) {
	if p.payoutErr != nil {
		return nil, p.payoutErr
	}
	return p.payout, nil
}

func (p *fakeProcessor) ReverseTransfer(context.Context, string, decimal.Decimal, string) error {
	return nil
}

func (p *fakeProcessor) CreateAccount(context.Context, string) (string, error) {
	return p.accountID, nil
}

func (p *fakeProcessor) RetrieveAccount(context.Context, string) (*processor.Account, error) {
	return nil, fmt.Errorf("not implemented")
}

func (p *fakeProcessor) CreateOnboardingLink(context.Context, string) (string, error) {
	return p.linkURL, nil
}

type fakeQueue struct {
	scheduled map[string][]byte
	cancelled []string
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{scheduled: make(map[string][]byte)}
}

func (q *fakeQueue) Schedule(_ context.Context, jobID string, payload []byte, _ time.Time) error {
	q.scheduled[jobID] = payload
	return nil
}

func (q *fakeQueue) Cancel(_ context.Context, jobID string) error {
	q.cancelled = append(q.cancelled, jobID)
	return nil
}

func (q *fakeQueue) PopDue(context.Context, time.Time) ([]jobs.Job, error) {
	return nil, nil
}

type fixture struct {
	store *repositories.MemoryStore
	proc  *fakeProcessor
	queue *fakeQueue
	svc   Service
}

func newFixture(t *testing.T, proc *fakeProcessor) *fixture {
	t.Helper()
	store := repositories.NewMemoryStore()
	queue := newFakeQueue()
	return &fixture{
		store: store,
		proc:  proc,
		queue: queue,
		svc: NewService(store, proc, queue, zap.NewNop(), WalletConfig{
			Currency:    "usd",
			ExpiryDelay: 24 * time.Hour,
		}),
	}
}

func (f *fixture) seedUser(t *testing.T, email, accountID string) (*models.User, *models.Wallet) {
	t.Helper()
	ctx := context.Background()
	user := &models.User{Email: email, ProviderAccountID: accountID}
	require.NoError(t, f.store.Users().Create(ctx, user))
	w := &models.Wallet{
		UserID:         user.ID,
		WalletRef:      "NP-" + strings.ToUpper(email[:1]) + fmt.Sprint(user.ID),
		Status:         models.WalletStatusActive,
		PayoutsEnabled: true,
	}
	require.NoError(t, f.store.Wallets().Create(ctx, w))
	return user, w
}

func (f *fixture) setBalance(t *testing.T, w *models.Wallet, balance int64) {
	t.Helper()
	w.Balance = decimal.NewFromInt(balance)
	require.NoError(t, f.store.Wallets().Save(context.Background(), w))
}

func (f *fixture) balance(t *testing.T, walletID uint) decimal.Decimal {
	t.Helper()
	w, err := f.store.Wallets().GetByID(context.Background(), walletID)
	require.NoError(t, err)
	return w.Balance
}

func (f *fixture) entries(t *testing.T, walletID uint) []models.LedgerEntry {
	t.Helper()
	entries, err := f.store.Ledger().ListByWallet(context.Background(), walletID, 0, 0)
	require.NoError(t, err)
	return entries
}

func TestFundCreatesPendingAndSchedulesExpiry(t *testing.T) {
	f := newFixture(t, &fakeProcessor{
		session: &processor.CheckoutSession{ID: "cs_1", URL: "https://checkout.example/cs_1"},
	})
	user, w := f.seedUser(t, "alice@example.com", "")
	ctx := context.Background()

	result, err := f.svc.Fund(ctx, user.ID, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/cs_1", result.CheckoutURL)

	txn, err := f.store.Transactions().GetByID(ctx, result.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusPending, txn.Status)
	assert.Equal(t, models.TransactionTypeFund, txn.Type)
	assert.Equal(t, "cs_1", txn.Metadata.GetString("sessionId"))
	assert.NotEmpty(t, txn.ExpiryJobID)

	payload, ok := f.queue.scheduled[txn.ExpiryJobID]
	require.True(t, ok)
	assert.Contains(t, string(payload), txn.ID)

	// The balance only moves when the session completes.
	assert.True(t, f.balance(t, w.ID).Equal(decimal.Zero))
	assert.Empty(t, f.entries(t, w.ID))
}

func TestFundCheckoutFailureClosesTransaction(t *testing.T) {
	f := newFixture(t, &fakeProcessor{
		checkoutErr: &apperrors.ExternalProcessorError{Op: "create checkout session", Err: fmt.Errorf("unavailable")},
	})
	user, w := f.seedUser(t, "alice@example.com", "")
	ctx := context.Background()

	_, err := f.svc.Fund(ctx, user.ID, decimal.NewFromInt(100))
	require.Error(t, err)

	// No transaction may be left pending without a session to resolve it.
	entries := f.entries(t, w.ID)
	assert.Empty(t, entries)
	assert.Empty(t, f.queue.scheduled)

	txns := f.store.AllTransactions()
	require.Len(t, txns, 1)
	assert.Equal(t, models.TransactionStatusFailed, txns[0].Status)
}

func TestFundRejectsNonPositiveAmount(t *testing.T) {
	f := newFixture(t, &fakeProcessor{})
	user, _ := f.seedUser(t, "alice@example.com", "")

	_, err := f.svc.Fund(context.Background(), user.ID, decimal.Zero)
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)
	_, err = f.svc.Fund(context.Background(), user.ID, decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)
}

func TestTransferMovesFundsAtomically(t *testing.T) {
	f := newFixture(t, &fakeProcessor{})
	sender, senderWallet := f.seedUser(t, "alice@example.com", "")
	_, recipientWallet := f.seedUser(t, "bob@example.com", "")
	f.setBalance(t, senderWallet, 100)

	txn, err := f.svc.Transfer(context.Background(), sender.ID, TransferRequest{
		RecipientWalletRef: recipientWallet.WalletRef,
		Amount:             decimal.NewFromInt(40),
		Note:               "rent",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusSuccess, txn.Status)

	assert.True(t, f.balance(t, senderWallet.ID).Equal(decimal.NewFromInt(60)))
	assert.True(t, f.balance(t, recipientWallet.ID).Equal(decimal.NewFromInt(40)))

	senderEntries := f.entries(t, senderWallet.ID)
	recipientEntries := f.entries(t, recipientWallet.ID)
	require.Len(t, senderEntries, 1)
	require.Len(t, recipientEntries, 1)
	assert.True(t, senderEntries[0].Change.Equal(decimal.NewFromInt(-40)))
	assert.True(t, recipientEntries[0].Change.Equal(decimal.NewFromInt(40)))
	// Both legs reference the same transaction.
	assert.Equal(t, txn.ID, senderEntries[0].TransactionID)
	assert.Equal(t, txn.ID, recipientEntries[0].TransactionID)
}

func TestTransferInsufficientFundsLeavesBothWalletsUntouched(t *testing.T) {
	f := newFixture(t, &fakeProcessor{})
	sender, senderWallet := f.seedUser(t, "alice@example.com", "")
	_, recipientWallet := f.seedUser(t, "bob@example.com", "")
	f.setBalance(t, senderWallet, 10)

	_, err := f.svc.Transfer(context.Background(), sender.ID, TransferRequest{
		RecipientWalletRef: recipientWallet.WalletRef,
		Amount:             decimal.NewFromInt(40),
	})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)

	assert.True(t, f.balance(t, senderWallet.ID).Equal(decimal.NewFromInt(10)))
	assert.True(t, f.balance(t, recipientWallet.ID).Equal(decimal.Zero))
	assert.Empty(t, f.entries(t, senderWallet.ID))
	assert.Empty(t, f.entries(t, recipientWallet.ID))
}

func TestTransferToOwnWalletRejected(t *testing.T) {
	f := newFixture(t, &fakeProcessor{})
	sender, senderWallet := f.seedUser(t, "alice@example.com", "")
	f.setBalance(t, senderWallet, 100)

	_, err := f.svc.Transfer(context.Background(), sender.ID, TransferRequest{
		RecipientWalletRef: senderWallet.WalletRef,
		Amount:             decimal.NewFromInt(40),
	})
	assert.ErrorIs(t, err, apperrors.ErrSelfTransfer)
	assert.True(t, f.balance(t, senderWallet.ID).Equal(decimal.NewFromInt(100)))
}

func TestTransferUnknownRecipient(t *testing.T) {
	f := newFixture(t, &fakeProcessor{})
	sender, senderWallet := f.seedUser(t, "alice@example.com", "")
	f.setBalance(t, senderWallet, 100)

	_, err := f.svc.Transfer(context.Background(), sender.ID, TransferRequest{
		RecipientWalletRef: "NP-MISSING",
		Amount:             decimal.NewFromInt(40),
	})
	assert.ErrorIs(t, err, apperrors.ErrWalletNotFound)
}

func TestWithdrawDebitsUpFront(t *testing.T) {
	f := newFixture(t, &fakeProcessor{
		payout: &processor.PayoutResult{TransferID: "tr_1", PayoutID: "po_1"},
	})
	user, w := f.seedUser(t, "alice@example.com", "acct_1")
	f.setBalance(t, w, 100)
	ctx := context.Background()

	txn, err := f.svc.Withdraw(ctx, user.ID, decimal.NewFromInt(40))
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusPending, txn.Status)
	assert.True(t, txn.Amount.Equal(decimal.NewFromInt(-40)))

	assert.True(t, f.balance(t, w.ID).Equal(decimal.NewFromInt(60)))

	entries := f.entries(t, w.ID)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Change.Equal(decimal.NewFromInt(-40)))

	stored, err := f.store.Transactions().GetByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, "tr_1", stored.Metadata.GetString("transferId"))
	assert.Equal(t, "po_1", stored.Metadata.GetString("payoutId"))
}

func TestWithdrawPayoutFailureCompensates(t *testing.T) {
	f := newFixture(t, &fakeProcessor{
		payoutErr: &apperrors.ExternalProcessorError{Op: "create transfer", Err: fmt.Errorf("account frozen")},
	})
	user, w := f.seedUser(t, "alice@example.com", "acct_1")
	f.setBalance(t, w, 100)
	ctx := context.Background()

	_, err := f.svc.Withdraw(ctx, user.ID, decimal.NewFromInt(40))
	require.Error(t, err)

	// The debit and its compensation both stay visible in the history.
	assert.True(t, f.balance(t, w.ID).Equal(decimal.NewFromInt(100)))
	entries := f.entries(t, w.ID)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Change.Equal(decimal.NewFromInt(-40)))
	assert.True(t, entries[1].Change.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, entries[0].TransactionID, entries[1].TransactionID)

	stored, err := f.store.Transactions().GetByID(ctx, entries[0].TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusFailed, stored.Status)
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	f := newFixture(t, &fakeProcessor{})
	user, w := f.seedUser(t, "alice@example.com", "acct_1")
	f.setBalance(t, w, 10)

	_, err := f.svc.Withdraw(context.Background(), user.ID, decimal.NewFromInt(40))
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
	assert.True(t, f.balance(t, w.ID).Equal(decimal.NewFromInt(10)))
	assert.Empty(t, f.entries(t, w.ID))
}

func TestWithdrawRequiresConnectedAccount(t *testing.T) {
	f := newFixture(t, &fakeProcessor{})
	user, _ := f.seedUser(t, "alice@example.com", "")

	_, err := f.svc.Withdraw(context.Background(), user.ID, decimal.NewFromInt(40))
	assert.ErrorIs(t, err, apperrors.ErrPayoutsDisabled)
}

func TestWithdrawRefusedWhenLocked(t *testing.T) {
	f := newFixture(t, &fakeProcessor{})
	user, w := f.seedUser(t, "alice@example.com", "acct_1")
	w.Status = models.WalletStatusLocked
	require.NoError(t, f.store.Wallets().Save(context.Background(), w))
	f.setBalance(t, w, 100)

	_, err := f.svc.Withdraw(context.Background(), user.ID, decimal.NewFromInt(40))
	assert.ErrorIs(t, err, apperrors.ErrWalletLocked)
}

func TestOnboardingLinkProvisionsAccountOnce(t *testing.T) {
	f := newFixture(t, &fakeProcessor{
		accountID: "acct_new",
		linkURL:   "https://connect.example/onboard",
	})
	user, _ := f.seedUser(t, "alice@example.com", "")
	ctx := context.Background()

	url, err := f.svc.OnboardingLink(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://connect.example/onboard", url)

	stored, err := f.store.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "acct_new", stored.ProviderAccountID)
}
