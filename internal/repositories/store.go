// Package repositories provides the data access layer. All multi-row
// mutations run through Store.ExecuteInTransaction so the status
// transition, ledger entry and wallet update commit as one unit.
package repositories

import (
	"context"

	"nilepay/internal/models"
)

// Store bundles the repositories behind one transactional boundary.
// ExecuteInTransaction yields a Store whose repositories share a single
// database transaction; returning an error rolls the whole unit back.
type Store interface {
	Wallets() WalletRepository
	Transactions() TransactionRepository
	Ledger() LedgerRepository
	Audit() AuditRepository
	Users() UserRepository
	ExecuteInTransaction(ctx context.Context, fn func(Store) error) error
}

type WalletRepository interface {
	Create(ctx context.Context, wallet *models.Wallet) error
	GetByID(ctx context.Context, id uint) (*models.Wallet, error)
	// GetByIDForUpdate locks the wallet row for the duration of the
	// surrounding transaction. Outside a transaction it is a plain read.
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Wallet, error)
	GetByUserID(ctx context.Context, userID uint) (*models.Wallet, error)
	GetByWalletRef(ctx context.Context, ref string) (*models.Wallet, error)
	Save(ctx context.Context, wallet *models.Wallet) error
}

type TransactionRepository interface {
	Create(ctx context.Context, txn *models.Transaction) error
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	// MarkResolved performs the conditional terminal transition: the update
	// applies only if the stored status is still PENDING. It reports whether
	// a row was affected; false means another writer already resolved the
	// transaction and the caller must treat the operation as a no-op.
	MarkResolved(ctx context.Context, id, status, description string, meta models.JSON) (bool, error)
	SetExpiryJob(ctx context.Context, id, jobID string) error
	MergeMetadata(ctx context.Context, id string, meta models.JSON) error
}

type LedgerRepository interface {
	Append(ctx context.Context, entry *models.LedgerEntry) error
	// ListByWallet returns entries in creation order. A limit of zero or
	// less means no limit; same for offset.
	ListByWallet(ctx context.Context, walletID uint, limit, offset int) ([]models.LedgerEntry, error)
}

type AuditRepository interface {
	Write(ctx context.Context, entry *models.AuditLog) error
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByProviderAccountID(ctx context.Context, accountID string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
}
