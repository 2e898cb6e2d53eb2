package http

import (
	"fmt"
	"time"

	"github.com/tutorium/tutorium/internal/model"
)

type CreateLessonRequest struct {
	OrganizationID      int64     `json:"organization_id" validate:"required"`
	TeacherID           int64     `json:"teacher_id" validate:"required"`
	StudentID           int64     `json:"student_id" validate:"required"`
	CourseID            *int64    `json:"course_id"`
	EnrollmentID        *int64    `json:"enrollment_id"`
	ScheduledAt         time.Time `json:"scheduled_at" validate:"required"`
	DurationMinutes     int       `json:"duration_minutes" validate:"omitempty,min=1"`
	DeliveryMode        string    `json:"delivery_mode" validate:"omitempty,oneof=online in_person"`
	MeetingURL          string    `json:"meeting_url" validate:"omitempty,url"`
	PriceCents          int64     `json:"price_cents" validate:"min=0"`
	Currency            string    `json:"currency" validate:"omitempty,len=3"`
	RequireConfirmation bool      `json:"require_confirmation"`
}

type RescheduleRequest struct {
	ScheduledAt     time.Time `json:"scheduled_at" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,min=1"`
}

type CancelLessonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// RecurringCreateRequest is the recurring-create shape consumed from outside:
// a pattern plus the lesson template fields.
type RecurringCreateRequest struct {
	OrganizationID   int64      `json:"organization_id" validate:"required"`
	TeacherID        int64      `json:"teacher_id" validate:"required"`
	StudentID        int64      `json:"student_id" validate:"required"`
	CourseID         *int64     `json:"course_id"`
	Frequency        string     `json:"frequency" validate:"required,oneof=weekly biweekly monthly"`
	Interval         int        `json:"interval" validate:"omitempty,min=1"`
	StartDate        time.Time  `json:"start_date" validate:"required"`
	EndDate          *time.Time `json:"end_date"`
	DaysOfWeek       []int      `json:"days_of_week" validate:"omitempty,dive,min=0,max=6"`
	OccurrencesCount *int       `json:"occurrences_count" validate:"omitempty,min=1"`
	Time             string     `json:"time" validate:"required"` // "HH:MM"
	DurationMinutes  int        `json:"duration_minutes" validate:"omitempty,min=1"`
	DeliveryMode     string     `json:"delivery_mode" validate:"omitempty,oneof=online in_person"`
	MeetingURL       string     `json:"meeting_url" validate:"omitempty,url"`
	PriceCents       int64      `json:"price_cents" validate:"min=0"`
	Currency         string     `json:"currency" validate:"omitempty,len=3"`
}

// toPattern converts the request into the domain pattern, parsing the "HH:MM"
// time of day.
func (r *RecurringCreateRequest) toPattern() (*model.RecurringPattern, error) {
	tod, err := time.Parse("15:04", r.Time)
	if err != nil {
		return nil, model.NewError(model.ErrValidation, "time must be HH:MM, got %q", r.Time)
	}

	interval := r.Interval
	if interval == 0 {
		interval = 1
	}

	return &model.RecurringPattern{
		OrganizationID:   r.OrganizationID,
		TeacherID:        r.TeacherID,
		StudentID:        r.StudentID,
		CourseID:         r.CourseID,
		Frequency:        model.Frequency(r.Frequency),
		Interval:         interval,
		DaysOfWeek:       r.DaysOfWeek,
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		OccurrencesCount: r.OccurrencesCount,
		StartHour:        tod.Hour(),
		StartMinute:      tod.Minute(),
		DurationMinutes:  r.DurationMinutes,
		DeliveryMode:     model.DeliveryMode(r.DeliveryMode),
		MeetingURL:       r.MeetingURL,
		PriceCents:       r.PriceCents,
		Currency:         r.Currency,
	}, nil
}

type SubstitutionRequest struct {
	SubstituteTeacherID int64  `json:"substitute_teacher_id" validate:"required"`
	Reason              string `json:"reason" validate:"max=500"`
	Notes               string `json:"notes" validate:"max=2000"`
}

type BulkStatusRequest struct {
	LessonIDs []int64 `json:"lesson_ids" validate:"required,min=1,dive,min=1"`
	Status    string  `json:"status" validate:"required,oneof=scheduled confirmed completed cancelled no_show"`
	Reason    string  `json:"reason" validate:"max=500"`
}

type PolicyRequest struct {
	FeeEnabled        bool   `json:"fee_enabled"`
	FeePercent        int    `json:"fee_percent" validate:"min=0,max=100"`
	HoursThreshold    int    `json:"hours_threshold" validate:"min=0"`
	LimitEnabled      bool   `json:"limit_enabled"`
	CancellationLimit int    `json:"cancellation_limit" validate:"min=0"`
	LimitPeriod       string `json:"limit_period" validate:"omitempty,oneof=week month"`
}

// EffectiveTeacherResponse is the read-time overlay of lesson teacher and
// substitution.
type EffectiveTeacherResponse struct {
	LessonID           int64 `json:"lesson_id"`
	EffectiveTeacherID int64 `json:"effective_teacher_id"`
}

func validationMessage(field, tag string) string {
	return fmt.Sprintf("field %s failed on %s", field, tag)
}
