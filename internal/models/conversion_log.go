package models

import "time"

// UserTxHashError is the sentinel stored as the user transaction hash when the
// affiliate transfer succeeded but the referred-user transfer failed. The log
// stays paid; reconciliation happens offline from the error_logs record.
const UserTxHashError = "error"

// ConversionLog records one reward-triggering event for a referral. Created
// unpaid by the conversion ingestion endpoint, flipped to paid by the payout
// workflow, never deleted in normal operation.
type ConversionLog struct {
	ID                string  `gorm:"primaryKey;size:36" json:"id"`
	ReferralID        string  `gorm:"size:36;not null;index" json:"referral_id"`
	ConversionPointID string  `gorm:"size:16" json:"conversion_point_id"`
	Amount            float64 `gorm:"not null" json:"amount"`

	// UserWalletAddress is set when the project's referral feature is enabled
	// and the converting end user shares the reward.
	UserWalletAddress *string `gorm:"size:42" json:"user_wallet_address,omitempty"`

	// IsPaid doubles as the claim flag for payment processing: it is flipped
	// with a conditional write before funds move, so two admins can never pay
	// the same log.
	IsPaid bool `gorm:"not null;default:false;index" json:"is_paid"`

	TransactionHashAffiliate *string    `gorm:"size:66" json:"transaction_hash_affiliate,omitempty"`
	TransactionHashUser      *string    `gorm:"size:66" json:"transaction_hash_user,omitempty"`
	PaidAt                   *time.Time `json:"paid_at,omitempty"`

	Timestamp time.Time `gorm:"not null" json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

func (ConversionLog) TableName() string { return "conversion_logs" }

// UnpaidConversionLog is a conversion log joined with the referral and project
// fields the admin console needs to pay it.
type UnpaidConversionLog struct {
	LogID                string    `json:"log_id"`
	ReferralID           string    `json:"referral_id"`
	ProjectID            string    `json:"project_id"`
	Timestamp            time.Time `json:"timestamp"`
	Amount               float64   `json:"amount"`
	AffiliateWallet      string    `json:"affiliate_wallet"`
	UserWalletAddress    *string   `json:"user_wallet_address,omitempty"`
	SelectedTokenAddress string    `json:"selected_token_address"`
	SelectedChainID      int64     `json:"selected_chain_id"`
}

// PaymentTransaction is one on-chain payment attempt, keyed by the affiliate
// transaction hash.
type PaymentTransaction struct {
	TransactionHash string    `gorm:"primaryKey;size:66" json:"transaction_hash"`
	ReferralID      string    `gorm:"size:36;not null;index" json:"referral_id"`
	ProjectID       string    `gorm:"size:36;not null;index" json:"project_id"`
	ConversionLogID string    `gorm:"size:36;not null" json:"conversion_log_id"`
	Amount          float64   `gorm:"not null" json:"amount"`
	Timestamp       time.Time `gorm:"not null" json:"timestamp"`
	CreatedAt       time.Time `json:"created_at"`
}

func (PaymentTransaction) TableName() string { return "payment_transactions" }
