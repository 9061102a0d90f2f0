package models

import "time"

// Error log types written by the payout workflow for offline reconciliation.
const (
	ErrorTypeUserPayment        = "UserPaymentError"
	ErrorTypeLedgerAfterPayment = "LedgerUpdateAfterPaymentError"
)

// ErrorLog is a structured failure record. Metadata is a JSON snapshot of the
// conversion log being processed plus the affiliate transaction hash, enough
// to reconcile by hand.
type ErrorLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ErrorType string    `gorm:"size:50;not null;index" json:"error_type"`
	Message   string    `gorm:"type:text" json:"message"`
	Metadata  string    `gorm:"type:text" json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

func (ErrorLog) TableName() string { return "error_logs" }
