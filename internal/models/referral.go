package models

import "time"

// Referral is an affiliate's enrollment in a project. Conversions and
// earnings are running totals advanced by the payout workflow; they count paid
// conversions only.
type Referral struct {
	ID              string `gorm:"primaryKey;size:36" json:"id"`
	ProjectID       string `gorm:"size:36;not null;uniqueIndex:idx_referral_project_wallet" json:"project_id"`
	AffiliateWallet string `gorm:"size:42;not null;uniqueIndex:idx_referral_project_wallet" json:"affiliate_wallet"`
	TweetURL        string `gorm:"size:512" json:"tweet_url"`

	Conversions        int        `gorm:"default:0" json:"conversions"`
	Earnings           float64    `gorm:"default:0" json:"earnings"`
	LastConversionDate *time.Time `json:"last_conversion_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Referral) TableName() string { return "referrals" }

// Click is one recorded hit on a referral link before the redirect.
type Click struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ReferralID string    `gorm:"size:36;not null;index" json:"referral_id"`
	IPAddress  string    `gorm:"size:45" json:"ip_address"`
	UserAgent  string    `gorm:"size:512" json:"user_agent"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Click) TableName() string { return "clicks" }

// EngagementSnapshot is one fetch of public X post metrics for a referral's
// shared tweet, written by the admin engagement update.
type EngagementSnapshot struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	ReferralID string `gorm:"size:36;not null;index" json:"referral_id"`
	TweetURL   string `gorm:"size:512" json:"tweet_url"`

	RetweetCount    int `json:"retweet_count"`
	ReplyCount      int `json:"reply_count"`
	LikeCount       int `json:"like_count"`
	QuoteCount      int `json:"quote_count"`
	BookmarkCount   int `json:"bookmark_count"`
	ImpressionCount int `json:"impression_count"`

	FetchedAt time.Time `gorm:"not null" json:"fetched_at"`
}

func (EngagementSnapshot) TableName() string { return "engagement_snapshots" }
