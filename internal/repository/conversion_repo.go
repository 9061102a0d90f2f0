package repository

import (
	"time"

	"affily/internal/models"

	"gorm.io/gorm"
)

type ConversionRepository struct {
	db *gorm.DB
}

func NewConversionRepository(db *gorm.DB) *ConversionRepository {
	return &ConversionRepository{db: db}
}

func (r *ConversionRepository) Create(l *models.ConversionLog) error {
	return r.db.Create(l).Error
}

func (r *ConversionRepository) GetByID(id string) (*models.ConversionLog, error) {
	var l models.ConversionLog
	if err := r.db.Where("id = ?", id).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *ConversionRepository) ListByReferral(referralID string) ([]models.ConversionLog, error) {
	var logs []models.ConversionLog
	err := r.db.Where("referral_id = ?", referralID).Order("timestamp ASC").Find(&logs).Error
	return logs, err
}

// CountForPoint counts prior conversions of a referral at one conversion
// point; tier selection uses this plus one for the incoming conversion.
func (r *ConversionRepository) CountForPoint(referralID, pointID string) (int64, error) {
	var n int64
	err := r.db.Model(&models.ConversionLog{}).
		Where("referral_id = ? AND conversion_point_id = ?", referralID, pointID).
		Count(&n).Error
	return n, err
}

// ListUnpaid queries the authoritative store for every unpaid log joined with
// the referral wallet and the project's chain and token. The admin console
// re-runs this instead of caching a pending list.
func (r *ConversionRepository) ListUnpaid() ([]models.UnpaidConversionLog, error) {
	var logs []models.UnpaidConversionLog
	err := r.db.Model(&models.ConversionLog{}).
		Select(`conversion_logs.id AS log_id,
			conversion_logs.referral_id,
			referrals.project_id,
			conversion_logs.timestamp,
			conversion_logs.amount,
			referrals.affiliate_wallet,
			conversion_logs.user_wallet_address,
			projects.selected_token_address,
			projects.selected_chain_id`).
		Joins("JOIN referrals ON referrals.id = conversion_logs.referral_id").
		Joins("JOIN projects ON projects.id = referrals.project_id").
		Where("conversion_logs.is_paid = ?", false).
		Order("conversion_logs.timestamp ASC").
		Scan(&logs).Error
	return logs, err
}

// GetUnpaid loads one unpaid log with its payout context, or
// gorm.ErrRecordNotFound if it does not exist or is already paid.
func (r *ConversionRepository) GetUnpaid(logID string) (*models.UnpaidConversionLog, error) {
	var l models.UnpaidConversionLog
	err := r.db.Model(&models.ConversionLog{}).
		Select(`conversion_logs.id AS log_id,
			conversion_logs.referral_id,
			referrals.project_id,
			conversion_logs.timestamp,
			conversion_logs.amount,
			referrals.affiliate_wallet,
			conversion_logs.user_wallet_address,
			projects.selected_token_address,
			projects.selected_chain_id`).
		Joins("JOIN referrals ON referrals.id = conversion_logs.referral_id").
		Joins("JOIN projects ON projects.id = referrals.project_id").
		Where("conversion_logs.id = ? AND conversion_logs.is_paid = ?", logID, false).
		Take(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ClaimPaid performs the conditional test-and-set on the paid flag. It returns
// false when the log was already claimed, so concurrent admins cannot
// double-pay; the flag moves before any funds do.
func (r *ConversionRepository) ClaimPaid(logID string) (bool, error) {
	res := r.db.Model(&models.ConversionLog{}).
		Where("id = ? AND is_paid = ?", logID, false).
		Update("is_paid", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ReleasePaid reverts the claim after a failed affiliate transfer, returning
// the log to the unpaid pool for retry.
func (r *ConversionRepository) ReleasePaid(logID string) error {
	return r.db.Model(&models.ConversionLog{}).
		Where("id = ?", logID).
		Update("is_paid", false).Error
}

// SettlePayment persists the outcome of a successful affiliate transfer as one
// database transaction: project and referral aggregates, the payment
// transaction record keyed by the affiliate tx hash, and the log's hashes and
// paid-at stamp. Both last-payment dates only move forward relative to the
// conversion timestamp.
func (r *ConversionRepository) SettlePayment(
	projectID, referralID, logID string,
	amount float64,
	txHashAffiliate string,
	txHashUser *string,
	conversionTimestamp time.Time,
) error {
	now := time.Now()
	return r.db.Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.Select("id", "total_paid_out", "last_payment_date").
			Where("id = ?", projectID).First(&project).Error; err != nil {
			return err
		}
		lastPayment := conversionTimestamp
		if project.LastPaymentDate != nil && project.LastPaymentDate.After(conversionTimestamp) {
			lastPayment = *project.LastPaymentDate
		}
		if err := tx.Model(&models.Project{}).Where("id = ?", projectID).Updates(map[string]interface{}{
			"total_paid_out":    project.TotalPaidOut + amount,
			"last_payment_date": lastPayment,
		}).Error; err != nil {
			return err
		}

		var referral models.Referral
		if err := tx.Select("id", "conversions", "earnings", "last_conversion_date").
			Where("id = ?", referralID).First(&referral).Error; err != nil {
			return err
		}
		lastConversion := conversionTimestamp
		if referral.LastConversionDate != nil && referral.LastConversionDate.After(conversionTimestamp) {
			lastConversion = *referral.LastConversionDate
		}
		if err := tx.Model(&models.Referral{}).Where("id = ?", referralID).Updates(map[string]interface{}{
			"conversions":          referral.Conversions + 1,
			"earnings":             referral.Earnings + amount,
			"last_conversion_date": lastConversion,
		}).Error; err != nil {
			return err
		}

		if err := tx.Create(&models.PaymentTransaction{
			TransactionHash: txHashAffiliate,
			ReferralID:      referralID,
			ProjectID:       projectID,
			ConversionLogID: logID,
			Amount:          amount,
			Timestamp:       conversionTimestamp,
		}).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"transaction_hash_affiliate": txHashAffiliate,
			"paid_at":                    now,
		}
		if txHashUser != nil {
			updates["transaction_hash_user"] = *txHashUser
		}
		return tx.Model(&models.ConversionLog{}).Where("id = ?", logID).Updates(updates).Error
	})
}

func (r *ConversionRepository) ListTransactionsByReferral(referralID string) ([]models.PaymentTransaction, error) {
	var txs []models.PaymentTransaction
	err := r.db.Where("referral_id = ?", referralID).Order("timestamp ASC").Find(&txs).Error
	return txs, err
}
