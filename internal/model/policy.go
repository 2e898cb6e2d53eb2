package model

import "time"

type LimitPeriod string

const (
	LimitPeriodWeek  LimitPeriod = "week"
	LimitPeriodMonth LimitPeriod = "month"
)

// CancellationPolicy is per-organization configuration for late-cancellation
// fees and cancellation limits.
type CancellationPolicy struct {
	OrganizationID    int64       `json:"organization_id"`
	FeeEnabled        bool        `json:"fee_enabled"`
	FeePercent        int         `json:"fee_percent"`     // 0-100
	HoursThreshold    int         `json:"hours_threshold"` // cancellations closer than this incur the fee
	LimitEnabled      bool        `json:"limit_enabled"`
	CancellationLimit int         `json:"cancellation_limit"` // max cancellations per period
	LimitPeriod       LimitPeriod `json:"limit_period"`
}

// DefaultCancellationPolicy is applied when an organization has no stored
// policy row.
func DefaultCancellationPolicy(orgID int64) CancellationPolicy {
	return CancellationPolicy{
		OrganizationID:    orgID,
		FeeEnabled:        true,
		FeePercent:        50,
		HoursThreshold:    24,
		LimitEnabled:      false,
		CancellationLimit: 0,
		LimitPeriod:       LimitPeriodMonth,
	}
}

// PeriodStart returns the start of the limit period containing now. Month
// periods roll at the first of the calendar month, week periods at Monday
// 00:00.
func (p CancellationPolicy) PeriodStart(now time.Time) time.Time {
	switch p.LimitPeriod {
	case LimitPeriodWeek:
		daysSinceMonday := (int(now.Weekday()) + 6) % 7
		day := now.AddDate(0, 0, -daysSinceMonday)
		return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, now.Location())
	default:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	}
}
