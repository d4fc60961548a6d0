package repositories

import (
	"context"
	"errors"
	"fmt"

	"nilepay/internal/models"

	"gorm.io/gorm"
)

type transactionRepository struct {
	db *gorm.DB
}

func (r *transactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &txn, nil
}

// MarkResolved is the compare-and-swap out of PENDING. The WHERE clause on
// the stored status makes concurrent resolvers serialize on the row: the
// first update wins, later ones see zero rows affected.
func (r *transactionRepository) MarkResolved(ctx context.Context, id, status, description string, meta models.JSON) (bool, error) {
	updates := map[string]interface{}{"status": status}
	if description != "" {
		updates["description"] = description
	}
	if len(meta) > 0 {
		updates["metadata"] = gorm.Expr("COALESCE(metadata, '{}'::jsonb) || ?", models.JSON(meta))
	}

	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TransactionStatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to resolve transaction: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *transactionRepository) SetExpiryJob(ctx context.Context, id, jobID string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", id).
		Update("expiry_job_id", jobID)
	if result.Error != nil {
		return fmt.Errorf("failed to set expiry job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *transactionRepository) MergeMetadata(ctx context.Context, id string, meta models.JSON) error {
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", id).
		Update("metadata", gorm.Expr("COALESCE(metadata, '{}'::jsonb) || ?", meta))
	if result.Error != nil {
		return fmt.Errorf("failed to merge transaction metadata: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}
