// Package expiry resolves funding transactions whose checkout session was
// never completed. The sweep runs 24 hours after the session is created
// and races the completion webhook; the conditional status update decides
// the winner.
package expiry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"nilepay/internal/jobs"
	"nilepay/internal/models"
	"nilepay/internal/repositories"

	"go.uber.org/zap"
)

const expiredDescription = "Checkout session expired"

// Payload is the job body scheduled at funding time.
type Payload struct {
	TransactionID string `json:"transactionId"`
}

type Service interface {
	// HandleJob is the queue handler for scheduled expiry jobs.
	HandleJob(ctx context.Context, job jobs.Job) error
	Expire(ctx context.Context, transactionID string) error
}

type service struct {
	store  repositories.Store
	logger *zap.Logger
}

func NewService(store repositories.Store, logger *zap.Logger) Service {
	return &service{store: store, logger: logger}
}

func (s *service) HandleJob(ctx context.Context, job jobs.Job) error {
	var payload Payload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		// A malformed payload can never succeed; drop it instead of retrying.
		s.logger.Error("dropping malformed expiry job",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		return nil
	}
	return s.Expire(ctx, payload.TransactionID)
}

// Expire marks a still-pending funding transaction FAILED. A transaction
// that was already resolved, or that no longer exists, is left untouched.
// No balance was ever credited for a pending funding, so no ledger entry
// is written.
func (s *service) Expire(ctx context.Context, transactionID string) error {
	return s.store.ExecuteInTransaction(ctx, func(store repositories.Store) error {
		txn, err := store.Transactions().GetByID(ctx, transactionID)
		if err != nil {
			if errors.Is(err, repositories.ErrTransactionNotFound) {
				s.logger.Warn("expiry job for unknown transaction",
					zap.String("transaction_id", transactionID))
				return nil
			}
			return fmt.Errorf("expire funding: %w", err)
		}
		if txn.Type != models.TransactionTypeFund {
			s.logger.Warn("expiry job for non-funding transaction",
				zap.String("transaction_id", transactionID),
				zap.String("type", txn.Type))
			return nil
		}

		applied, err := store.Transactions().MarkResolved(ctx, txn.ID,
			models.TransactionStatusFailed, expiredDescription, nil)
		if err != nil {
			return fmt.Errorf("expire funding: %w", err)
		}
		if !applied {
			s.logger.Debug("funding already resolved, expiry skipped",
				zap.String("transaction_id", txn.ID),
				zap.String("status", txn.Status))
			return nil
		}

		if err := store.Audit().Write(ctx, &models.AuditLog{
			UserID: txn.UserID,
			Action: models.AuditWalletFundExpired,
			Details: models.JSON{
				"transactionId": txn.ID,
				"walletId":      txn.WalletID,
				"amount":        txn.Amount.String(),
			},
		}); err != nil {
			return fmt.Errorf("expire funding: %w", err)
		}

		s.logger.Info("funding expired",
			zap.String("transaction_id", txn.ID),
			zap.Uint("wallet_id", txn.WalletID))
		return nil
	})
}
