// Package rewards holds the pure reward math shared by conversion ingestion
// and the reporting endpoints: per-payment-type reward calculation, tier
// selection, and the monthly aggregation window.
package rewards

import (
	"errors"
	"math"
	"sort"
	"time"

	"affily/internal/models"
)

var (
	ErrInvalidRevenue = errors.New("invalid or missing revenue for RevenueShare")
	ErrNoTier         = errors.New("no appropriate tier found")
	ErrPaymentType    = errors.New("unknown payment type")
)

// RoundRevenueShare computes a revenue-share reward rounded to one decimal
// place, e.g. 12.5% of 80.00 is 10.0.
func RoundRevenueShare(revenue, percentage float64) float64 {
	return math.Round(revenue*(percentage/100)*10) / 10
}

// SelectTier picks the tier whose required-conversion threshold is the highest
// one not exceeding conversionCount. The incoming slice may be in any order.
func SelectTier(tiers []models.RewardTier, conversionCount int) (models.RewardTier, bool) {
	sorted := make([]models.RewardTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ConversionsRequired > sorted[j].ConversionsRequired
	})
	for _, tier := range sorted {
		if conversionCount >= tier.ConversionsRequired {
			return tier, true
		}
	}
	return models.RewardTier{}, false
}

// Amount resolves the reward for one conversion against a conversion point.
// revenue is only consulted for RevenueShare; priorConversions is the number
// of already-logged conversions for Tiered points (the new conversion counts
// as priorConversions+1).
func Amount(point *models.ConversionPoint, revenue float64, priorConversions int) (float64, error) {
	switch point.PaymentType {
	case models.PaymentTypeFixedAmount:
		return point.RewardAmount, nil
	case models.PaymentTypeRevenueShare:
		if revenue <= 0 {
			return 0, ErrInvalidRevenue
		}
		return RoundRevenueShare(revenue, point.Percentage), nil
	case models.PaymentTypeTiered:
		tier, ok := SelectTier(point.Tiers, priorConversions+1)
		if !ok {
			return 0, ErrNoTier
		}
		return tier.RewardAmount, nil
	default:
		return 0, ErrPaymentType
	}
}

// MonthWindow returns the inclusive-start, exclusive-end bounds of the
// calendar month containing ref, in ref's location. A timestamp at
// 23:59:59.999 on the last day falls inside the window.
func MonthWindow(ref time.Time) (start, end time.Time) {
	start = time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	end = start.AddDate(0, 1, 0)
	return start, end
}

// MonthlyTotals sums earnings and counts conversions for logs inside the
// month containing ref. Pure read-side reducer.
func MonthlyTotals(logs []models.ConversionLog, ref time.Time) (earnings float64, conversions int) {
	start, end := MonthWindow(ref)
	for _, l := range logs {
		if !l.Timestamp.Before(start) && l.Timestamp.Before(end) {
			earnings += l.Amount
			conversions++
		}
	}
	return earnings, conversions
}

// AllTimeTotals sums earnings and counts conversions with no window.
func AllTimeTotals(logs []models.ConversionLog) (earnings float64, conversions int) {
	for _, l := range logs {
		earnings += l.Amount
		conversions++
	}
	return earnings, conversions
}
