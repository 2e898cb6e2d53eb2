package model

import "time"

type LessonStatus string

const (
	LessonStatusPendingConfirmation LessonStatus = "pending_confirmation" // Waiting for teacher confirmation before commit
	LessonStatusScheduled           LessonStatus = "scheduled"
	LessonStatusConfirmed           LessonStatus = "confirmed"
	LessonStatusCompleted           LessonStatus = "completed"
	LessonStatusCancelled           LessonStatus = "cancelled"
	LessonStatusNoShow              LessonStatus = "no_show"
)

type DeliveryMode string

const (
	DeliveryModeOnline   DeliveryMode = "online"
	DeliveryModeInPerson DeliveryMode = "in_person"
)

// BlockingStatuses are the statuses in which a lesson occupies its time
// interval. Cancelled, completed and no-show lessons never block.
var BlockingStatuses = []LessonStatus{
	LessonStatusScheduled,
	LessonStatusConfirmed,
	LessonStatusPendingConfirmation,
}

// allowedTransitions is the full lifecycle table. COMPLETED -> CONFIRMED is
// the only backward edge (explicit "uncomplete"); CANCELLED and NO_SHOW are
// terminal.
var allowedTransitions = map[LessonStatus][]LessonStatus{
	LessonStatusPendingConfirmation: {LessonStatusScheduled, LessonStatusCancelled},
	LessonStatusScheduled:           {LessonStatusConfirmed, LessonStatusCompleted, LessonStatusCancelled, LessonStatusNoShow},
	LessonStatusConfirmed:           {LessonStatusCompleted, LessonStatusCancelled, LessonStatusNoShow},
	LessonStatusCompleted:           {LessonStatusConfirmed},
	LessonStatusCancelled:           {},
	LessonStatusNoShow:              {},
}

// CanTransition reports whether the lifecycle permits moving from one status
// to another.
func CanTransition(from, to LessonStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func IsTerminal(status LessonStatus) bool {
	return len(allowedTransitions[status]) == 0
}

// IsBlocking reports whether a lesson in this status occupies its interval.
func IsBlocking(status LessonStatus) bool {
	for _, s := range BlockingStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Lesson is one scheduled teaching session between a teacher and a student.
type Lesson struct {
	ID                   int64        `json:"id"`
	OrganizationID       int64        `json:"organization_id"`
	TeacherID            int64        `json:"teacher_id"`
	StudentID            int64        `json:"student_id"`
	CourseID             *int64       `json:"course_id"`
	EnrollmentID         *int64       `json:"enrollment_id"`
	ScheduledAt          time.Time    `json:"scheduled_at"`
	DurationMinutes      int          `json:"duration_minutes"`
	Status               LessonStatus `json:"status"`
	DeliveryMode         DeliveryMode `json:"delivery_mode"`
	MeetingURL           string       `json:"meeting_url"`
	PriceCents           int64        `json:"price_cents"` // 0 = no price set
	Currency             string       `json:"currency"`
	CancelledAt          *time.Time   `json:"cancelled_at"`
	CancellationReason   string       `json:"cancellation_reason"`
	CancellationFeeCents *int64       `json:"cancellation_fee_cents"`
	RecurringPatternID   *int64       `json:"recurring_pattern_id"`
	IsRecurring          bool         `json:"is_recurring"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

// EndsAt returns the exclusive end of the occupied interval.
func (l *Lesson) EndsAt() time.Time {
	return l.ScheduledAt.Add(time.Duration(l.DurationMinutes) * time.Minute)
}

// FeeApplied reports whether a cancellation fee was applied to this lesson.
func (l *Lesson) FeeApplied() bool {
	return l.CancellationFeeCents != nil
}
