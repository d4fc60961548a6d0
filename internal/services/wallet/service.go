// Package wallet implements the money-movement operations. Every movement
// starts life as a PENDING transaction; transfers resolve in the same
// database transaction, funding and withdrawals resolve later through
// webhooks or the expiry sweep.
package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nilepay/internal/apperrors"
	"nilepay/internal/jobs"
	"nilepay/internal/ledger"
	"nilepay/internal/models"
	"nilepay/internal/processor"
	"nilepay/internal/repositories"
	"nilepay/internal/services/expiry"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type service struct {
	store  repositories.Store
	proc   processor.Processor
	queue  jobs.Queue
	logger *zap.Logger
	config WalletConfig
}

func NewService(store repositories.Store, proc processor.Processor, queue jobs.Queue, logger *zap.Logger, config WalletConfig) Service {
	if config.Currency == "" {
		config.Currency = "usd"
	}
	if config.ExpiryDelay == 0 {
		config.ExpiryDelay = 24 * time.Hour
	}
	return &service{
		store:  store,
		proc:   proc,
		queue:  queue,
		logger: logger,
		config: config,
	}
}

func (s *service) Fund(ctx context.Context, userID uint, amount decimal.Decimal) (*FundResult, error) {
	if !amount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fund wallet: %w", err)
	}
	wallet, err := s.walletOf(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		ID:          uuid.NewString(),
		WalletID:    wallet.ID,
		UserID:      userID,
		Amount:      amount,
		Type:        models.TransactionTypeFund,
		Status:      models.TransactionStatusPending,
		Description: "Wallet funding",
	}
	if err := s.store.Transactions().Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("fund wallet: %w", err)
	}

	session, err := s.proc.CreateCheckoutSession(ctx, processor.CheckoutParams{
		TransactionID: txn.ID,
		WalletID:      wallet.ID,
		UserID:        userID,
		WalletRef:     wallet.WalletRef,
		CustomerID:    user.ProviderCustomerID,
		Amount:        amount,
		Currency:      s.config.Currency,
	})
	if err != nil {
		// The transaction must not stay PENDING with no session that could
		// ever resolve it.
		s.failOrphanedFunding(ctx, txn, err)
		return nil, err
	}

	s.scheduleExpiry(ctx, txn, session.ID)

	return &FundResult{TransactionID: txn.ID, CheckoutURL: session.URL}, nil
}

// failOrphanedFunding closes a funding transaction whose checkout session
// was never created.
func (s *service) failOrphanedFunding(ctx context.Context, txn *models.Transaction, cause error) {
	err := s.store.ExecuteInTransaction(ctx, func(store repositories.Store) error {
		applied, err := store.Transactions().MarkResolved(ctx, txn.ID,
			models.TransactionStatusFailed, "Checkout session creation failed", nil)
		if err != nil || !applied {
			return err
		}
		return store.Audit().Write(ctx, &models.AuditLog{
			UserID: txn.UserID,
			Action: models.AuditWalletFundFailed,
			Details: models.JSON{
				"transactionId": txn.ID,
				"walletId":      txn.WalletID,
				"reason":        cause.Error(),
			},
		})
	})
	if err != nil {
		s.logger.Error("failed to close orphaned funding transaction",
			zap.String("transaction_id", txn.ID), zap.Error(err))
	}
}

// scheduleExpiry queues the delayed sweep and records the session and job
// handles on the transaction. Failures here are logged, not returned: the
// session exists and webhooks can still resolve the transaction.
func (s *service) scheduleExpiry(ctx context.Context, txn *models.Transaction, sessionID string) {
	payload, _ := json.Marshal(expiry.Payload{TransactionID: txn.ID})
	jobID := uuid.NewString()
	if err := s.queue.Schedule(ctx, jobID, payload, time.Now().Add(s.config.ExpiryDelay)); err != nil {
		s.logger.Error("failed to schedule expiry job",
			zap.String("transaction_id", txn.ID), zap.Error(err))
		jobID = ""
	}

	if jobID != "" {
		if err := s.store.Transactions().SetExpiryJob(ctx, txn.ID, jobID); err != nil {
			s.logger.Error("failed to record expiry job id",
				zap.String("transaction_id", txn.ID), zap.Error(err))
		}
	}
	if err := s.store.Transactions().MergeMetadata(ctx, txn.ID, models.JSON{"sessionId": sessionID}); err != nil {
		s.logger.Error("failed to record checkout session id",
			zap.String("transaction_id", txn.ID), zap.Error(err))
	}
}

func (s *service) Transfer(ctx context.Context, userID uint, req TransferRequest) (*models.Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}

	var txn *models.Transaction
	err := s.store.ExecuteInTransaction(ctx, func(store repositories.Store) error {
		sender, err := s.walletOf(ctx, store, userID)
		if err != nil {
			return err
		}
		recipient, err := store.Wallets().GetByWalletRef(ctx, req.RecipientWalletRef)
		if err != nil {
			if errors.Is(err, repositories.ErrWalletNotFound) {
				return apperrors.ErrWalletNotFound
			}
			return fmt.Errorf("transfer: %w", err)
		}
		if sender.ID == recipient.ID {
			return apperrors.ErrSelfTransfer
		}

		txn = &models.Transaction{
			ID:          uuid.NewString(),
			WalletID:    sender.ID,
			UserID:      userID,
			Amount:      req.Amount,
			Type:        models.TransactionTypeTransfer,
			Status:      models.TransactionStatusPending,
			Description: req.Note,
			Metadata: models.JSON{
				"recipientWalletId": recipient.ID,
				"senderWalletId":    sender.ID,
			},
		}
		if err := store.Transactions().Create(ctx, txn); err != nil {
			return fmt.Errorf("transfer: %w", err)
		}

		// Lock wallets in id order so two crossing transfers cannot
		// deadlock on each other's rows.
		legs := []struct {
			walletID uint
			delta    decimal.Decimal
		}{
			{sender.ID, req.Amount.Neg()},
			{recipient.ID, req.Amount},
		}
		if recipient.ID < sender.ID {
			legs[0], legs[1] = legs[1], legs[0]
		}
		for _, leg := range legs {
			if _, err := ledger.Apply(ctx, store, leg.walletID, txn.ID, leg.delta); err != nil {
				return err
			}
		}

		applied, err := store.Transactions().MarkResolved(ctx, txn.ID,
			models.TransactionStatusSuccess, "", nil)
		if err != nil {
			return fmt.Errorf("transfer: %w", err)
		}
		if !applied {
			return fmt.Errorf("transfer %s resolved concurrently with its creation", txn.ID)
		}
		txn.Status = models.TransactionStatusSuccess

		audits := []*models.AuditLog{
			{
				UserID: userID,
				Action: models.AuditTransferSent,
				Details: models.JSON{
					"transactionId":     txn.ID,
					"recipientWalletId": recipient.ID,
					"amount":            req.Amount.String(),
				},
			},
			{
				UserID: recipient.UserID,
				Action: models.AuditTransferReceived,
				Details: models.JSON{
					"transactionId":  txn.ID,
					"senderWalletId": sender.ID,
					"amount":         req.Amount.String(),
				},
			},
		}
		for _, entry := range audits {
			if err := store.Audit().Write(ctx, entry); err != nil {
				return fmt.Errorf("transfer: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transfer completed",
		zap.String("transaction_id", txn.ID),
		zap.Uint("sender_wallet_id", txn.WalletID))
	return txn, nil
}

func (s *service) Withdraw(ctx context.Context, userID uint, amount decimal.Decimal) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("withdraw: %w", err)
	}
	if user.ProviderAccountID == "" {
		return nil, apperrors.ErrPayoutsDisabled
	}

	var txn *models.Transaction
	err = s.store.ExecuteInTransaction(ctx, func(store repositories.Store) error {
		wallet, err := s.walletOf(ctx, store, userID)
		if err != nil {
			return err
		}
		if wallet.Status == models.WalletStatusLocked {
			return apperrors.ErrWalletLocked
		}
		if !wallet.PayoutsEnabled {
			return apperrors.ErrPayoutsDisabled
		}

		txn = &models.Transaction{
			ID:          uuid.NewString(),
			WalletID:    wallet.ID,
			UserID:      userID,
			Amount:      amount.Neg(),
			Type:        models.TransactionTypeWithdraw,
			Status:      models.TransactionStatusPending,
			Description: "Withdrawal",
		}
		if err := store.Transactions().Create(ctx, txn); err != nil {
			return fmt.Errorf("withdraw: %w", err)
		}

		// Debit up front. The payout that follows is requested against
		// funds already removed from the spendable balance.
		if _, err := ledger.Apply(ctx, store, wallet.ID, txn.ID, amount.Neg()); err != nil {
			return err
		}

		return store.Audit().Write(ctx, &models.AuditLog{
			UserID: userID,
			Action: models.AuditWithdrawRequested,
			Details: models.JSON{
				"transactionId": txn.ID,
				"walletId":      wallet.ID,
				"amount":        amount.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	result, err := s.proc.PayOut(ctx, processor.PayoutParams{
		TransactionID:      txn.ID,
		DestinationAccount: user.ProviderAccountID,
		Amount:             amount,
		Currency:           s.config.Currency,
	})
	if err != nil {
		s.compensateWithdrawal(ctx, txn, err)
		return nil, err
	}

	if err := s.store.Transactions().MergeMetadata(ctx, txn.ID, models.JSON{
		"transferId": result.TransferID,
		"payoutId":   result.PayoutID,
	}); err != nil {
		s.logger.Error("failed to record payout references",
			zap.String("transaction_id", txn.ID), zap.Error(err))
	}

	s.logger.Info("payout requested",
		zap.String("transaction_id", txn.ID),
		zap.String("transfer_id", result.TransferID))
	return txn, nil
}

// compensateWithdrawal undoes the optimistic debit after a failed payout
// request. The credit is a second ledger entry on the same transaction,
// so both movements stay visible in the history.
func (s *service) compensateWithdrawal(ctx context.Context, txn *models.Transaction, cause error) {
	err := s.store.ExecuteInTransaction(ctx, func(store repositories.Store) error {
		applied, err := store.Transactions().MarkResolved(ctx, txn.ID,
			models.TransactionStatusFailed, "Payout request failed", nil)
		if err != nil || !applied {
			return err
		}
		if _, err := ledger.Apply(ctx, store, txn.WalletID, txn.ID, txn.Amount.Neg()); err != nil {
			return err
		}
		return store.Audit().Write(ctx, &models.AuditLog{
			UserID: txn.UserID,
			Action: models.AuditWithdrawFailed,
			Details: models.JSON{
				"transactionId": txn.ID,
				"walletId":      txn.WalletID,
				"amount":        txn.Amount.Neg().String(),
				"reason":        cause.Error(),
			},
		})
	})
	if err != nil {
		s.logger.Error("failed to compensate withdrawal",
			zap.String("transaction_id", txn.ID), zap.Error(err))
	}
}

func (s *service) OnboardingLink(ctx context.Context, userID uint) (string, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("onboarding link: %w", err)
	}

	if user.ProviderAccountID == "" {
		accountID, err := s.proc.CreateAccount(ctx, user.Email)
		if err != nil {
			return "", err
		}
		user.ProviderAccountID = accountID
		if err := s.store.Users().Save(ctx, user); err != nil {
			return "", fmt.Errorf("onboarding link: %w", err)
		}
	}

	return s.proc.CreateOnboardingLink(ctx, user.ProviderAccountID)
}

func (s *service) GetWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	return s.walletOf(ctx, s.store, userID)
}

func (s *service) GetTransaction(ctx context.Context, userID uint, transactionID string) (*models.Transaction, error) {
	txn, err := s.store.Transactions().GetByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if txn.UserID != userID {
		return nil, apperrors.ErrTransactionNotFound
	}
	return txn, nil
}

func (s *service) LedgerEntries(ctx context.Context, userID uint, limit, offset int) ([]models.LedgerEntry, error) {
	wallet, err := s.walletOf(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.Ledger().ListByWallet(ctx, wallet.ID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	return entries, nil
}

func (s *service) walletOf(ctx context.Context, store repositories.Store, userID uint) (*models.Wallet, error) {
	wallet, err := store.Wallets().GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, apperrors.ErrWalletNotFound
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return wallet, nil
}
