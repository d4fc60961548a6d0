package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is the immutable record of one balance change. Entries are
// never updated or deleted; replaying them in creation order reproduces
// the wallet's current balance.
type LedgerEntry struct {
	ID            uint            `gorm:"primarykey"`
	WalletID      uint            `gorm:"index;not null"`
	TransactionID string          `gorm:"index;not null"`
	Change        decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	BalanceBefore decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	BalanceAfter  decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	CreatedAt     time.Time
}
