package models

import (
	"time"

	"gorm.io/gorm"
)

// Project types.
const (
	ProjectTypeDirectPayment = "DirectPayment"
	ProjectTypeEscrowPayment = "EscrowPayment"
)

// Conversion point payment types.
const (
	PaymentTypeFixedAmount  = "FixedAmount"
	PaymentTypeRevenueShare = "RevenueShare"
	PaymentTypeTiered       = "Tiered"
)

// Project is a referral campaign. DirectPayment projects pay a pre-whitelisted
// set of affiliates under fixed terms; EscrowPayment projects define conversion
// points and pay per logged conversion.
type Project struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	ProjectName string `gorm:"size:255;not null" json:"project_name"`
	Description string `gorm:"type:text" json:"description"`
	LogoURL     string `gorm:"size:512" json:"logo_url"`
	CoverURL    string `gorm:"size:512" json:"cover_url"`
	WebsiteURL  string `gorm:"size:512" json:"website_url"`

	ProjectType  string `gorm:"size:20;not null;index" json:"project_type"` // DirectPayment, EscrowPayment
	OwnerAddress string `gorm:"size:42;not null;index" json:"owner_address"`

	SelectedChainID      int64  `gorm:"not null" json:"selected_chain_id"`
	SelectedTokenAddress string `gorm:"size:42;not null" json:"selected_token_address"` // zero address = native token
	RedirectURL          string `gorm:"size:512" json:"redirect_url"`

	// API key is returned once at creation and stored only as a bcrypt hash.
	APIKeyHash string `gorm:"size:60;not null" json:"-"`

	IsReferralEnabled bool `gorm:"default:false" json:"is_referral_enabled"`

	// Payment aggregates. LastPaymentDate only ever moves forward.
	TotalPaidOut    float64    `gorm:"default:0" json:"total_paid_out"`
	LastPaymentDate *time.Time `json:"last_payment_date"`

	// DirectPayment fields
	TotalSlots      int        `json:"total_slots"`
	RemainingSlots  int        `json:"remaining_slots"`
	TotalBudget     float64    `json:"total_budget"`
	RemainingBudget float64    `json:"remaining_budget"`
	Deadline        *time.Time `json:"deadline"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	WhitelistEntries []WhitelistEntry  `gorm:"foreignKey:ProjectID" json:"whitelist_entries,omitempty"`
	ConversionPoints []ConversionPoint `gorm:"foreignKey:ProjectID" json:"conversion_points,omitempty"`
}

func (Project) TableName() string { return "projects" }

// WhitelistEntry is one pre-approved payee of a DirectPayment project.
type WhitelistEntry struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	ProjectID     string  `gorm:"size:36;not null;uniqueIndex:idx_whitelist_project_wallet" json:"project_id"`
	WalletAddress string  `gorm:"size:42;not null;uniqueIndex:idx_whitelist_project_wallet" json:"wallet_address"`
	RewardAmount  float64 `gorm:"not null" json:"reward_amount"`
	RedirectURL   string  `gorm:"size:512" json:"redirect_url"`

	CreatedAt time.Time `json:"created_at"`
}

func (WhitelistEntry) TableName() string { return "whitelist_entries" }

// ConversionPoint is one reward-triggering event type of an EscrowPayment
// project. PointID is the short public identifier embedded in client requests.
type ConversionPoint struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	ProjectID string `gorm:"size:36;not null;uniqueIndex:idx_point_project_id" json:"project_id"`
	PointID   string `gorm:"size:16;not null;uniqueIndex:idx_point_project_id" json:"id"`
	Title     string `gorm:"size:255" json:"title"`

	PaymentType  string  `gorm:"size:20;not null" json:"payment_type"` // FixedAmount, RevenueShare, Tiered
	RewardAmount float64 `json:"reward_amount"`                        // FixedAmount
	Percentage   float64 `json:"percentage"`                           // RevenueShare
	IsActive     bool    `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Tiers []RewardTier `gorm:"foreignKey:ConversionPointID" json:"tiers,omitempty"`
}

func (ConversionPoint) TableName() string { return "conversion_points" }

// RewardTier is one rung of a Tiered conversion point.
type RewardTier struct {
	ID                  uint    `gorm:"primaryKey" json:"id"`
	ConversionPointID   uint    `gorm:"not null;index" json:"-"`
	ConversionsRequired int     `gorm:"not null" json:"conversions_required"`
	RewardAmount        float64 `gorm:"not null" json:"reward_amount"`
}

func (RewardTier) TableName() string { return "reward_tiers" }
