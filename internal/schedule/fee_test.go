package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tutorium/tutorium/internal/model"
)

func feePolicy() model.CancellationPolicy {
	return model.CancellationPolicy{
		FeeEnabled:     true,
		FeePercent:     50,
		HoursThreshold: 24,
	}
}

func TestCalculateCancellationFeeLate(t *testing.T) {
	scheduledAt := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
	now := scheduledAt.Add(-10 * time.Hour)

	got := CalculateCancellationFee(scheduledAt, 10000, "USD", feePolicy(), now)

	assert.True(t, got.Applies)
	assert.Equal(t, int64(5000), got.AmountCents)
	assert.Equal(t, "USD", got.Currency)
	assert.InDelta(t, 10.0, got.HoursUntil, 0.001)
}

func TestCalculateCancellationFeeEarly(t *testing.T) {
	scheduledAt := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
	now := scheduledAt.Add(-30 * time.Hour)

	got := CalculateCancellationFee(scheduledAt, 10000, "USD", feePolicy(), now)

	assert.False(t, got.Applies)
	assert.Zero(t, got.AmountCents)
}

func TestCalculateCancellationFeeAtThreshold(t *testing.T) {
	scheduledAt := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
	now := scheduledAt.Add(-24 * time.Hour)

	// Exactly at the threshold counts as early enough.
	got := CalculateCancellationFee(scheduledAt, 10000, "USD", feePolicy(), now)
	assert.False(t, got.Applies)
}

func TestCalculateCancellationFeeAfterStart(t *testing.T) {
	scheduledAt := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
	now := scheduledAt.Add(2 * time.Hour)

	got := CalculateCancellationFee(scheduledAt, 10000, "USD", feePolicy(), now)

	assert.True(t, got.Applies)
	assert.Negative(t, got.HoursUntil)
}

func TestCalculateCancellationFeeRoundsHalfUp(t *testing.T) {
	scheduledAt := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
	now := scheduledAt.Add(-time.Hour)

	tests := []struct {
		priceCents int64
		percent    int
		want       int64
	}{
		{10000, 50, 5000},
		{333, 50, 167}, // 166.5 rounds up
		{333, 33, 110}, // 109.89 rounds up
		{100, 33, 33},  // 33.0 exact
		{1, 50, 1},     // 0.5 rounds up
		{1, 49, 0},     // 0.49 rounds down
	}

	for _, tt := range tests {
		policy := feePolicy()
		policy.FeePercent = tt.percent

		got := CalculateCancellationFee(scheduledAt, tt.priceCents, "USD", policy, now)
		assert.Equal(t, tt.want, got.AmountCents, "price %d at %d%%", tt.priceCents, tt.percent)
	}
}

func TestCalculateCancellationFeeDisabled(t *testing.T) {
	scheduledAt := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
	now := scheduledAt.Add(-time.Hour)

	policy := feePolicy()
	policy.FeeEnabled = false

	got := CalculateCancellationFee(scheduledAt, 10000, "USD", policy, now)
	assert.False(t, got.Applies)
}

func TestCalculateCancellationFeeFreeLesson(t *testing.T) {
	scheduledAt := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
	now := scheduledAt.Add(-time.Hour)

	got := CalculateCancellationFee(scheduledAt, 0, "USD", feePolicy(), now)
	assert.False(t, got.Applies)
}
