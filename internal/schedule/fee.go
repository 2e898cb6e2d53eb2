package schedule

import (
	"time"

	"github.com/tutorium/tutorium/internal/model"
)

// FeeResult is the outcome of a cancellation fee computation. The same value
// serves as a side-effect-free preview and as the applied amount persisted
// when a cancellation commits.
type FeeResult struct {
	Applies     bool    `json:"applies"`
	AmountCents int64   `json:"amount_cents"`
	Currency    string  `json:"currency"`
	HoursUntil  float64 `json:"hours_until_lesson"`
}

// CalculateCancellationFee computes whether cancelling at now incurs a fee.
// A fee applies when the policy enables fees, the lesson has a price, and
// the lesson starts in fewer hours than the policy threshold. The amount is
// priceCents * FeePercent / 100, rounded half-up to a cent.
func CalculateCancellationFee(scheduledAt time.Time, priceCents int64, currency string, policy model.CancellationPolicy, now time.Time) FeeResult {
	res := FeeResult{
		Currency:   currency,
		HoursUntil: scheduledAt.Sub(now).Hours(),
	}
	if !policy.FeeEnabled || priceCents <= 0 {
		return res
	}
	if res.HoursUntil >= float64(policy.HoursThreshold) {
		return res
	}
	res.Applies = true
	res.AmountCents = (priceCents*int64(policy.FeePercent) + 50) / 100
	return res
}
