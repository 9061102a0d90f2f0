package rewards

import (
	"testing"
	"time"

	"affily/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tiers(thresholds ...int) []models.RewardTier {
	out := make([]models.RewardTier, 0, len(thresholds))
	for _, t := range thresholds {
		out = append(out, models.RewardTier{ConversionsRequired: t, RewardAmount: float64(t * 10)})
	}
	return out
}

func TestSelectTier(t *testing.T) {
	// Highest threshold not exceeding the count wins.
	tier, ok := SelectTier(tiers(1, 5, 10), 7)
	require.True(t, ok)
	assert.Equal(t, 5, tier.ConversionsRequired)

	tier, ok = SelectTier(tiers(1, 5, 10), 10)
	require.True(t, ok)
	assert.Equal(t, 10, tier.ConversionsRequired)

	tier, ok = SelectTier(tiers(1, 5, 10), 1)
	require.True(t, ok)
	assert.Equal(t, 1, tier.ConversionsRequired)

	_, ok = SelectTier(tiers(5, 10), 3)
	assert.False(t, ok, "count below every threshold selects nothing")
}

func TestSelectTier_UnorderedInput(t *testing.T) {
	tier, ok := SelectTier(tiers(10, 1, 5), 7)
	require.True(t, ok)
	assert.Equal(t, 5, tier.ConversionsRequired)
}

func TestRoundRevenueShare(t *testing.T) {
	assert.Equal(t, 10.0, RoundRevenueShare(80.00, 12.5))
	assert.Equal(t, 0.1, RoundRevenueShare(1.00, 12.5)) // 0.125 rounds to one decimal
	assert.Equal(t, 0.0, RoundRevenueShare(0, 50))
}

func TestAmount(t *testing.T) {
	fixed := &models.ConversionPoint{PaymentType: models.PaymentTypeFixedAmount, RewardAmount: 3.5}
	got, err := Amount(fixed, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3.5, got)

	share := &models.ConversionPoint{PaymentType: models.PaymentTypeRevenueShare, Percentage: 12.5}
	got, err = Amount(share, 80.00, 0)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got)

	_, err = Amount(share, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidRevenue)

	tiered := &models.ConversionPoint{PaymentType: models.PaymentTypeTiered, Tiers: tiers(1, 5, 10)}
	got, err = Amount(tiered, 0, 6) // 6 prior + this one = 7
	require.NoError(t, err)
	assert.Equal(t, 50.0, got)

	empty := &models.ConversionPoint{PaymentType: models.PaymentTypeTiered, Tiers: tiers(5)}
	_, err = Amount(empty, 0, 0)
	assert.ErrorIs(t, err, ErrNoTier)

	_, err = Amount(&models.ConversionPoint{PaymentType: "Weird"}, 0, 0)
	assert.ErrorIs(t, err, ErrPaymentType)
}

func logAt(ts time.Time, amount float64) models.ConversionLog {
	return models.ConversionLog{Timestamp: ts, Amount: amount}
}

func TestMonthlyTotals(t *testing.T) {
	ref := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	logs := []models.ConversionLog{
		logAt(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), 1),
		// Last instant of the month is inside the window.
		logAt(time.Date(2024, time.March, 31, 23, 59, 59, 999000000, time.UTC), 2),
		logAt(time.Date(2024, time.February, 29, 23, 59, 59, 0, time.UTC), 4),
		logAt(time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), 8),
	}
	earnings, conversions := MonthlyTotals(logs, ref)
	assert.Equal(t, 3.0, earnings)
	assert.Equal(t, 2, conversions)
}

func TestAllTimeTotals(t *testing.T) {
	logs := []models.ConversionLog{
		logAt(time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), 1.5),
		logAt(time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), 2.5),
	}
	earnings, conversions := AllTimeTotals(logs)
	assert.Equal(t, 4.0, earnings)
	assert.Equal(t, 2, conversions)
}
