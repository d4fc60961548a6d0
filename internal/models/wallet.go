package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet statuses
const (
	WalletStatusActive = "ACTIVE"
	WalletStatusLocked = "LOCKED"
)

// Wallet holds a user's balance. The balance column is only ever written
// by the ledger apply operation, together with the entry recording the
// change.
type Wallet struct {
	ID              uint            `gorm:"primarykey"`
	UserID          uint            `gorm:"uniqueIndex;not null"`
	WalletRef       string          `gorm:"uniqueIndex;not null"`
	Balance         decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0"`
	Currency        string          `gorm:"default:'USD'"`
	Status          string          `gorm:"not null;default:'ACTIVE'"`
	ChargesEnabled  bool            `gorm:"default:false"`
	PayoutsEnabled  bool            `gorm:"default:false"`
	DetailSubmitted bool            `gorm:"default:false"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Onboarded reports whether the processor-side account can both charge and
// pay out. Wallet status follows this on every account update event.
func (w *Wallet) Onboarded() bool {
	return w.ChargesEnabled && w.PayoutsEnabled && w.DetailSubmitted
}
