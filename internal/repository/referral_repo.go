package repository

import (
	"errors"

	"affily/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReferralRepository struct {
	db *gorm.DB
}

func NewReferralRepository(db *gorm.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

func (r *ReferralRepository) GetByID(id string) (*models.Referral, error) {
	var ref models.Referral
	if err := r.db.Where("id = ?", id).First(&ref).Error; err != nil {
		return nil, err
	}
	return &ref, nil
}

// GetOrCreate returns the affiliate's referral for the project, creating it on
// first join. A wallet joins each project at most once.
func (r *ReferralRepository) GetOrCreate(projectID, affiliateWallet string) (*models.Referral, error) {
	var ref models.Referral
	err := r.db.Where("project_id = ? AND affiliate_wallet = ?", projectID, affiliateWallet).First(&ref).Error
	if err == nil {
		return &ref, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	ref = models.Referral{
		ID:              uuid.NewString(),
		ProjectID:       projectID,
		AffiliateWallet: affiliateWallet,
	}
	if err := r.db.Create(&ref).Error; err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *ReferralRepository) ListByProject(projectID string) ([]models.Referral, error) {
	var refs []models.Referral
	err := r.db.Where("project_id = ?", projectID).Order("created_at ASC").Find(&refs).Error
	return refs, err
}

func (r *ReferralRepository) UpdateTweetURL(id, tweetURL string) error {
	return r.db.Model(&models.Referral{}).Where("id = ?", id).Update("tweet_url", tweetURL).Error
}

// RecordClick appends one click for a referral link.
func (r *ReferralRepository) RecordClick(click *models.Click) error {
	return r.db.Create(click).Error
}

func (r *ReferralRepository) CountClicks(referralID string) (int64, error) {
	var n int64
	err := r.db.Model(&models.Click{}).Where("referral_id = ?", referralID).Count(&n).Error
	return n, err
}

// SaveEngagementSnapshots persists one batch of fetched tweet metrics.
func (r *ReferralRepository) SaveEngagementSnapshots(snapshots []models.EngagementSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return r.db.Create(&snapshots).Error
}

// LatestEngagement returns the most recent snapshot for a referral, or nil.
func (r *ReferralRepository) LatestEngagement(referralID string) (*models.EngagementSnapshot, error) {
	var snap models.EngagementSnapshot
	err := r.db.Where("referral_id = ?", referralID).Order("fetched_at DESC").First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
