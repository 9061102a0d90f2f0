package models

import "time"

// User is a connected wallet. Created unapproved on first connect; approval
// is a one-way transition performed by an admin.
type User struct {
	WalletAddress string `gorm:"primaryKey;size:42" json:"wallet_address"`
	Username      string `gorm:"size:100" json:"username"`
	Email         string `gorm:"size:255" json:"email"`
	XProfileURL   string `gorm:"size:512" json:"x_profile_url"`

	IsApproved bool `gorm:"not null;default:false;index" json:"is_approved"`

	// Nonce is the current login challenge; rotated after every verify.
	Nonce string `gorm:"size:36" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }
