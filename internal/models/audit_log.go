package models

import "time"

// Audit actions
const (
	AuditRegister          = "REGISTER"
	AuditWalletFunded      = "WALLET_FUNDED"
	AuditWalletFundFailed  = "WALLET_FUND_FAILED"
	AuditWalletFundExpired = "WALLET_FUND_EXPIRED"
	AuditTransferSent      = "TRANSFER_SENT"
	AuditTransferReceived  = "TRANSFER_RECEIVED"
	AuditWithdrawRequested = "WITHDRAW_REQUESTED"
	AuditWithdrawSuccess   = "WITHDRAW_SUCCESS"
	AuditWithdrawFailed    = "WITHDRAW_FAILED"
)

// AuditLog is an append-only record of a domain event. It is a write-only
// side channel; the engine never reads it back.
type AuditLog struct {
	ID        uint   `gorm:"primarykey"`
	UserID    uint   `gorm:"index;not null"`
	Action    string `gorm:"not null"`
	Details   JSON   `gorm:"type:jsonb"`
	CreatedAt time.Time
}
