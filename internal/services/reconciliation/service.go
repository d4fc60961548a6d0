// Package reconciliation maps provider webhook events onto transaction
// resolutions. Every handler is gated on the conditional PENDING to
// terminal update, so a redelivered or late event is acknowledged without
// touching balances a second time.
package reconciliation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"nilepay/internal/jobs"
	"nilepay/internal/ledger"
	"nilepay/internal/models"
	"nilepay/internal/processor"
	"nilepay/internal/repositories"

	"go.uber.org/zap"
)

type Service interface {
	// HandleWebhook verifies the payload with the given verifier and runs
	// the handler for its event kind. A nil return means the event is
	// consumed and must be acknowledged; redelivery adds nothing.
	HandleWebhook(ctx context.Context, verifier processor.SignatureVerifier, payload []byte, signature string) error
}

type handlerFunc func(ctx context.Context, env *processor.Envelope) error

type service struct {
	store    repositories.Store
	proc     processor.Processor
	queue    jobs.Queue
	logger   *zap.Logger
	handlers map[EventKind]handlerFunc
}

func NewService(store repositories.Store, proc processor.Processor, queue jobs.Queue, logger *zap.Logger) Service {
	s := &service{
		store:  store,
		proc:   proc,
		queue:  queue,
		logger: logger,
	}
	s.handlers = map[EventKind]handlerFunc{
		EventIgnored:           s.handleIgnored,
		EventFundingSucceeded:  s.handleFundingSucceeded,
		EventFundingFailed:     s.handleFundingFailed,
		EventPayoutSettled:     s.handlePayoutSettled,
		EventPayoutFailed:      s.handlePayoutFailed,
		EventAccountUpdated:    s.handleAccountUpdated,
		EventCapabilityUpdated: s.handleCapabilityUpdated,
	}
	return s
}

func (s *service) HandleWebhook(ctx context.Context, verifier processor.SignatureVerifier, payload []byte, signature string) error {
	env, err := verifier.Verify(payload, signature)
	if err != nil {
		return err
	}

	kind := KindOf(env.Type)
	s.logger.Info("webhook received",
		zap.String("event_id", env.ID),
		zap.String("event_type", env.Type),
		zap.Stringer("kind", kind),
	)
	return s.handlers[kind](ctx, env)
}

func (s *service) handleIgnored(_ context.Context, env *processor.Envelope) error {
	s.logger.Debug("ignoring webhook event", zap.String("event_type", env.Type))
	return nil
}

// handleFundingSucceeded credits the wallet for a completed checkout
// session. The status transition, ledger entry and audit record commit
// together; if the expiry sweep won the race the event is a no-op.
func (s *service) handleFundingSucceeded(ctx context.Context, env *processor.Envelope) error {
	obj, txID, err := s.decodeObject(env)
	if err != nil || txID == "" {
		return err
	}

	var resolved *models.Transaction
	err = s.store.ExecuteInTransaction(ctx, func(store repositories.Store) error {
		txn, err := s.pendingTransaction(ctx, store, txID)
		if err != nil || txn == nil {
			return err
		}

		meta := models.JSON{"sessionId": obj.ID}
		if obj.PaymentIntent != "" {
			meta["paymentIntentId"] = obj.PaymentIntent
		}
		applied, err := store.Transactions().MarkResolved(ctx, txn.ID,
			models.TransactionStatusSuccess, "Wallet funded", meta)
		if err != nil {
			return fmt.Errorf("resolve funding: %w", err)
		}
		if !applied {
			s.logger.Debug("funding already resolved", zap.String("transaction_id", txn.ID))
			return nil
		}

		if _, err := ledger.Apply(ctx, store, txn.WalletID, txn.ID, txn.Amount); err != nil {
			return fmt.Errorf("credit funding: %w", err)
		}
		if err := store.Audit().Write(ctx, &models.AuditLog{
			UserID: txn.UserID,
			Action: models.AuditWalletFunded,
			Details: models.JSON{
				"transactionId": txn.ID,
				"walletId":      txn.WalletID,
				"amount":        txn.Amount.String(),
			},
		}); err != nil {
			return fmt.Errorf("audit funding: %w", err)
		}

		resolved = txn
		return nil
	})
	if err != nil {
		return err
	}

	s.cancelExpiry(ctx, resolved)
	return nil
}

// handleFundingFailed fails a pending funding. Nothing was credited, so
// the only writes are the status transition and the audit record.
func (s *service) handleFundingFailed(ctx context.Context, env *processor.Envelope) error {
	obj, txID, err := s.decodeObject(env)
	if err != nil || txID == "" {
		return err
	}

	reason := obj.FailureMessage
	if reason == "" {
		reason = "Payment failed"
	}

	var resolved *models.Transaction
	err = s.store.ExecuteInTransaction(ctx, func(store repositories.Store) error {
		txn, err := s.pendingTransaction(ctx, store, txID)
		if err != nil || txn == nil {
			return err
		}

		applied, err := store.Transactions().MarkResolved(ctx, txn.ID,
			models.TransactionStatusFailed, reason, models.JSON{"sessionId": obj.ID})
		if err != nil {
			return fmt.Errorf("fail funding: %w", err)
		}
		if !applied {
			return nil
		}

		if err := store.Audit().Write(ctx, &models.AuditLog{
			UserID: txn.UserID,
			Action: models.AuditWalletFundFailed,
			Details: models.JSON{
				"transactionId": txn.ID,
				"walletId":      txn.WalletID,
				"reason":        reason,
			},
		}); err != nil {
			return fmt.Errorf("audit funding failure: %w", err)
		}

		resolved = txn
		return nil
	})
	if err != nil {
		return err
	}

	s.cancelExpiry(ctx, resolved)
	return nil
}

// handlePayoutSettled confirms a withdrawal. The wallet was debited when
// the payout was requested, so settlement only flips the status and
// records the payout reference.
func (s *service) handlePayoutSettled(ctx context.Context, env *processor.Envelope) error {
	obj, txID, err := s.decodeObject(env)
	if err != nil || txID == "" {
		return err
	}

	return s.store.ExecuteInTransaction(ctx, func(store repositories.Store) error {
		txn, err := s.pendingTransaction(ctx, store, txID)
		if err != nil || txn == nil {
			return err
		}

		applied, err := store.Transactions().MarkResolved(ctx, txn.ID,
			models.TransactionStatusSuccess, "Payout settled", models.JSON{"payoutId": obj.ID})
		if err != nil {
			return fmt.Errorf("settle payout: %w", err)
		}
		if !applied {
			return nil
		}

		return store.Audit().Write(ctx, &models.AuditLog{
			UserID: txn.UserID,
			Action: models.AuditWithdrawSuccess,
			Details: models.JSON{
				"transactionId": txn.ID,
				"walletId":      txn.WalletID,
				"amount":        txn.Amount.Neg().String(),
			},
		})
	})
}

// handlePayoutFailed compensates a failed withdrawal: the optimistic debit
// is undone with a second, positive ledger entry so the history shows both
// movements. The provider-side transfer is reversed afterwards, outside
// the database transaction; a reversal failure is logged and left to the
// provider dashboard, the wallet is already whole.
func (s *service) handlePayoutFailed(ctx context.Context, env *processor.Envelope) error {
	obj, txID, err := s.decodeObject(env)
	if err != nil || txID == "" {
		return err
	}

	reason := obj.FailureMessage
	if reason == "" {
		reason = "Payout failed"
	}

	var resolved *models.Transaction
	err = s.store.ExecuteInTransaction(ctx, func(store repositories.Store) error {
		txn, err := s.pendingTransaction(ctx, store, txID)
		if err != nil || txn == nil {
			return err
		}

		applied, err := store.Transactions().MarkResolved(ctx, txn.ID,
			models.TransactionStatusFailed, reason, models.JSON{"payoutId": obj.ID})
		if err != nil {
			return fmt.Errorf("fail payout: %w", err)
		}
		if !applied {
			return nil
		}

		// txn.Amount is negative for withdrawals; the compensation credits
		// the same magnitude back.
		if _, err := ledger.Apply(ctx, store, txn.WalletID, txn.ID, txn.Amount.Neg()); err != nil {
			return fmt.Errorf("compensate payout: %w", err)
		}
		if err := store.Audit().Write(ctx, &models.AuditLog{
			UserID: txn.UserID,
			Action: models.AuditWithdrawFailed,
			Details: models.JSON{
				"transactionId": txn.ID,
				"walletId":      txn.WalletID,
				"amount":        txn.Amount.Neg().String(),
				"reason":        reason,
			},
		}); err != nil {
			return fmt.Errorf("audit payout failure: %w", err)
		}

		resolved = txn
		return nil
	})
	if err != nil || resolved == nil {
		return err
	}

	if transferID := resolved.Metadata.GetString("transferId"); transferID != "" {
		if err := s.proc.ReverseTransfer(ctx, transferID, resolved.Amount.Neg(), reason); err != nil {
			s.logger.Error("transfer reversal failed",
				zap.String("transaction_id", resolved.ID),
				zap.String("transfer_id", transferID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// handleAccountUpdated syncs the wallet with the connected account's
// capabilities. The wallet is ACTIVE only while the account can charge,
// pay out and has submitted its details; otherwise it is LOCKED and
// withdrawals are refused.
func (s *service) handleAccountUpdated(ctx context.Context, env *processor.Envelope) error {
	var account providerAccount
	if err := json.Unmarshal(env.Data, &account); err != nil {
		s.logger.Error("undecodable account event",
			zap.String("event_id", env.ID), zap.Error(err))
		return nil
	}
	return s.syncAccount(ctx, account)
}

// handleCapabilityUpdated covers capability changes delivered on the
// capability object instead of the account. The event only names the
// account, so the current state is fetched before the same sync runs.
func (s *service) handleCapabilityUpdated(ctx context.Context, env *processor.Envelope) error {
	var capability providerCapability
	if err := json.Unmarshal(env.Data, &capability); err != nil {
		s.logger.Error("undecodable capability event",
			zap.String("event_id", env.ID), zap.Error(err))
		return nil
	}
	if capability.Account == "" {
		s.logger.Warn("capability event without account reference",
			zap.String("event_id", env.ID))
		return nil
	}

	account, err := s.proc.RetrieveAccount(ctx, capability.Account)
	if err != nil {
		// Transient provider failure; a non-nil return makes the provider
		// redeliver the event.
		return fmt.Errorf("fetch account for capability sync: %w", err)
	}

	return s.syncAccount(ctx, providerAccount{
		ID:               account.ID,
		ChargesEnabled:   account.ChargesEnabled,
		PayoutsEnabled:   account.PayoutsEnabled,
		DetailsSubmitted: account.DetailsSubmitted,
	})
}

func (s *service) syncAccount(ctx context.Context, account providerAccount) error {
	return s.store.ExecuteInTransaction(ctx, func(store repositories.Store) error {
		user, err := store.Users().GetByProviderAccountID(ctx, account.ID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				s.logger.Warn("account event for unknown account",
					zap.String("account_id", account.ID))
				return nil
			}
			return fmt.Errorf("sync account: %w", err)
		}

		wallet, err := store.Wallets().GetByUserID(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("sync account: %w", err)
		}

		wallet.ChargesEnabled = account.ChargesEnabled
		wallet.PayoutsEnabled = account.PayoutsEnabled
		wallet.DetailSubmitted = account.DetailsSubmitted
		if wallet.Onboarded() {
			wallet.Status = models.WalletStatusActive
		} else {
			wallet.Status = models.WalletStatusLocked
		}

		if err := store.Wallets().Save(ctx, wallet); err != nil {
			return fmt.Errorf("sync account: %w", err)
		}

		s.logger.Info("wallet capabilities updated",
			zap.Uint("wallet_id", wallet.ID),
			zap.String("status", wallet.Status))
		return nil
	})
}

// decodeObject parses the event object and extracts our transaction id.
// Events that cannot be decoded, or that carry no transaction id, are
// consumed with a log line so the provider stops redelivering them.
func (s *service) decodeObject(env *processor.Envelope) (*providerObject, string, error) {
	var obj providerObject
	if err := json.Unmarshal(env.Data, &obj); err != nil {
		s.logger.Error("undecodable webhook object",
			zap.String("event_id", env.ID),
			zap.String("event_type", env.Type),
			zap.Error(err),
		)
		return nil, "", nil
	}
	txID := obj.transactionID()
	if txID == "" {
		s.logger.Warn("webhook object without transaction id",
			zap.String("event_id", env.ID),
			zap.String("event_type", env.Type),
		)
	}
	return &obj, txID, nil
}

func (s *service) pendingTransaction(ctx context.Context, store repositories.Store, id string) (*models.Transaction, error) {
	txn, err := store.Transactions().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			s.logger.Warn("webhook for unknown transaction", zap.String("transaction_id", id))
			return nil, nil
		}
		return nil, fmt.Errorf("load transaction: %w", err)
	}
	return txn, nil
}

func (s *service) cancelExpiry(ctx context.Context, txn *models.Transaction) {
	if txn == nil || txn.ExpiryJobID == "" {
		return
	}
	if err := s.queue.Cancel(ctx, txn.ExpiryJobID); err != nil {
		// The sweep tolerates resolved transactions, so a leftover job is
		// harmless.
		s.logger.Warn("failed to cancel expiry job",
			zap.String("transaction_id", txn.ID),
			zap.String("job_id", txn.ExpiryJobID),
			zap.Error(err),
		)
	}
}
