package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types
const (
	TransactionTypeFund     = "FUND"
	TransactionTypeTransfer = "TRANSFER"
	TransactionTypeWithdraw = "WITHDRAW"
)

// Transaction statuses. PENDING is the only initial state; SUCCESS and
// FAILED are terminal and a row leaves PENDING exactly once, via a
// conditional update on the stored status.
const (
	TransactionStatusPending = "PENDING"
	TransactionStatusSuccess = "SUCCESS"
	TransactionStatusFailed  = "FAILED"
)

// Transaction is a single money-movement intent. The id doubles as the
// idempotency key for every processor call made on its behalf.
type Transaction struct {
	ID          string          `gorm:"primarykey"`
	WalletID    uint            `gorm:"index;not null"`
	UserID      uint            `gorm:"index;not null"`
	Amount      decimal.Decimal `gorm:"type:numeric(20,4);not null"` // signed: positive credits, negative debits
	Type        string          `gorm:"not null"`
	Status      string          `gorm:"not null;default:'PENDING'"`
	Description string
	Metadata    JSON   `gorm:"type:jsonb"` // provider reference ids (session, payment intent, transfer, payout)
	ExpiryJobID string // handle of the scheduled expiry action, funding only
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
