package model

import (
	"time"

	"github.com/google/uuid"
)

type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// RecurringPattern is a rule describing how to generate a series of lessons.
// BatchID groups the lessons generated from one create request.
type RecurringPattern struct {
	ID               int64        `json:"id"`
	BatchID          uuid.UUID    `json:"batch_id"`
	OrganizationID   int64        `json:"organization_id"`
	TeacherID        int64        `json:"teacher_id"`
	StudentID        int64        `json:"student_id"`
	CourseID         *int64       `json:"course_id"`
	Frequency        Frequency    `json:"frequency"`
	Interval         int          `json:"interval"`     // step multiplier, >= 1
	DaysOfWeek       []int        `json:"days_of_week"` // 0 = Sunday .. 6 = Saturday; empty = weekday of StartDate
	StartDate        time.Time    `json:"start_date"`
	EndDate          *time.Time   `json:"end_date"`
	OccurrencesCount *int         `json:"occurrences_count"`
	StartHour        int          `json:"start_hour"`
	StartMinute      int          `json:"start_minute"`
	DurationMinutes  int          `json:"duration_minutes"`
	DeliveryMode     DeliveryMode `json:"delivery_mode"`
	MeetingURL       string       `json:"meeting_url"`
	PriceCents       int64        `json:"price_cents"`
	Currency         string       `json:"currency"`
	IsActive         bool         `json:"is_active"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Validate checks the pattern is expandable. A pattern must carry at least
// one bound (end date or occurrence count) or it is rejected outright.
func (p *RecurringPattern) Validate() error {
	switch p.Frequency {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
	default:
		return NewError(ErrValidation, "unknown frequency %q", p.Frequency)
	}
	if p.Interval < 1 {
		return NewError(ErrValidation, "interval must be >= 1, got %d", p.Interval)
	}
	if p.DurationMinutes <= 0 {
		return NewError(ErrValidation, "duration must be positive, got %d minutes", p.DurationMinutes)
	}
	if p.StartHour < 0 || p.StartHour > 23 || p.StartMinute < 0 || p.StartMinute > 59 {
		return NewError(ErrValidation, "invalid start time %02d:%02d", p.StartHour, p.StartMinute)
	}
	for _, d := range p.DaysOfWeek {
		if d < 0 || d > 6 {
			return NewError(ErrValidation, "day of week must be in 0..6, got %d", d)
		}
	}
	if p.EndDate == nil && p.OccurrencesCount == nil {
		return NewError(ErrValidation, "pattern must set an end date or an occurrence count")
	}
	if p.OccurrencesCount != nil && *p.OccurrencesCount <= 0 {
		return NewError(ErrValidation, "occurrence count must be positive, got %d", *p.OccurrencesCount)
	}
	if p.EndDate != nil && p.EndDate.Before(p.StartDate) {
		return NewError(ErrValidation, "end date is before start date")
	}
	return nil
}

// EffectiveDays returns the weekday set the pattern fires on, defaulting to
// the weekday of the start date when none was supplied.
func (p *RecurringPattern) EffectiveDays() []int {
	if len(p.DaysOfWeek) > 0 {
		return p.DaysOfWeek
	}
	return []int{int(p.StartDate.Weekday())}
}
