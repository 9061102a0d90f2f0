package service

import (
	"time"

	"affily/internal/models"
	"affily/internal/repository"
	"affily/pkg/rewards"
)

// ReferralStats is the read-side view for one referral: stored aggregates
// plus recomputed all-time and current-month totals and the click count.
type ReferralStats struct {
	Referral            models.Referral             `json:"referral"`
	MonthlyEarnings     float64                     `json:"monthly_earnings"`
	MonthlyConversions  int                         `json:"monthly_conversions"`
	AllTimeEarnings     float64                     `json:"all_time_earnings"`
	AllTimeConversions  int                         `json:"all_time_conversions"`
	Clicks              int64                       `json:"clicks"`
	Engagement          *models.EngagementSnapshot  `json:"engagement,omitempty"`
	ConversionLogs      []models.ConversionLog      `json:"conversion_logs"`
	PaymentTransactions []models.PaymentTransaction `json:"payment_transactions"`
}

// AggregatedReferral is one row of a project's affiliate performance list.
type AggregatedReferral struct {
	Referral              models.Referral `json:"referral"`
	AggregatedEarnings    float64         `json:"aggregated_earnings"`
	AggregatedConversions int             `json:"aggregated_conversions"`
	Clicks                int64           `json:"clicks"`
}

// StatsService recomputes referral aggregates from conversion logs. Pure
// read-side; nothing here writes.
type StatsService struct {
	referralRepo   *repository.ReferralRepository
	conversionRepo *repository.ConversionRepository
}

func NewStatsService(referralRepo *repository.ReferralRepository, conversionRepo *repository.ConversionRepository) *StatsService {
	return &StatsService{referralRepo: referralRepo, conversionRepo: conversionRepo}
}

// ForReferral builds the stats view for one referral, with monthly totals
// relative to ref (normally time.Now()).
func (s *StatsService) ForReferral(referralID string, ref time.Time) (*ReferralStats, error) {
	referral, err := s.referralRepo.GetByID(referralID)
	if err != nil {
		return nil, err
	}
	logs, err := s.conversionRepo.ListByReferral(referralID)
	if err != nil {
		return nil, err
	}
	clicks, err := s.referralRepo.CountClicks(referralID)
	if err != nil {
		return nil, err
	}
	txs, err := s.conversionRepo.ListTransactionsByReferral(referralID)
	if err != nil {
		return nil, err
	}
	engagement, err := s.referralRepo.LatestEngagement(referralID)
	if err != nil {
		return nil, err
	}
	monthlyEarnings, monthlyConversions := rewards.MonthlyTotals(logs, ref)
	allEarnings, allConversions := rewards.AllTimeTotals(logs)
	return &ReferralStats{
		Referral:            *referral,
		MonthlyEarnings:     monthlyEarnings,
		MonthlyConversions:  monthlyConversions,
		AllTimeEarnings:     allEarnings,
		AllTimeConversions:  allConversions,
		Clicks:              clicks,
		Engagement:          engagement,
		ConversionLogs:      logs,
		PaymentTransactions: txs,
	}, nil
}

// ForProject recomputes earnings, conversions, and clicks for every referral
// of a project from the conversion logs rather than the stored counters.
func (s *StatsService) ForProject(projectID string) ([]AggregatedReferral, error) {
	referrals, err := s.referralRepo.ListByProject(projectID)
	if err != nil {
		return nil, err
	}
	out := make([]AggregatedReferral, 0, len(referrals))
	for _, referral := range referrals {
		logs, err := s.conversionRepo.ListByReferral(referral.ID)
		if err != nil {
			return nil, err
		}
		clicks, err := s.referralRepo.CountClicks(referral.ID)
		if err != nil {
			return nil, err
		}
		earnings, conversions := rewards.AllTimeTotals(logs)
		out = append(out, AggregatedReferral{
			Referral:              referral,
			AggregatedEarnings:    earnings,
			AggregatedConversions: conversions,
			Clicks:                clicks,
		})
	}
	return out, nil
}
