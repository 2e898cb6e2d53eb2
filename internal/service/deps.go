package service

import (
	"context"
	"time"

	"github.com/tutorium/tutorium/internal/model"
	"github.com/tutorium/tutorium/internal/schedule"
)

// TxRunner scopes a function to one database transaction. Repository calls
// made inside fn with the passed context join that transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// LessonStore is the lesson persistence surface the services write through.
type LessonStore interface {
	OverlapFinder
	Create(ctx context.Context, lesson *model.Lesson) error
	GetByID(ctx context.Context, id int64) (*model.Lesson, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*model.Lesson, error)
	UpdateStatus(ctx context.Context, id int64, from, to model.LessonStatus) error
	UpdateCancellation(ctx context.Context, id int64, cancelledAt time.Time, reason string, feeCents *int64) error
	UpdateSchedule(ctx context.Context, id int64, scheduledAt time.Time, durationMinutes int) error
	CountCancellations(ctx context.Context, orgID, studentID int64, since time.Time) (int, error)
	GetUpcoming(ctx context.Context, from, to time.Time) ([]*model.Lesson, error)
	LockScheduleResources(ctx context.Context, teacherID, studentID int64) error
	Delete(ctx context.Context, id int64) error
}

type UserStore interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetTeachers(ctx context.Context, orgID int64) ([]*model.User, error)
}

type CourseStore interface {
	GetByID(ctx context.Context, id int64) (*model.Course, error)
}

type PolicyStore interface {
	GetByOrganization(ctx context.Context, orgID int64) (model.CancellationPolicy, error)
	Upsert(ctx context.Context, policy model.CancellationPolicy) error
}

type PatternStore interface {
	Create(ctx context.Context, p *model.RecurringPattern) error
	GetByID(ctx context.Context, id int64) (*model.RecurringPattern, error)
	GetByTeacherID(ctx context.Context, teacherID int64) ([]*model.RecurringPattern, error)
	Deactivate(ctx context.Context, id int64) error
}

type SubstitutionStore interface {
	Create(ctx context.Context, sub *model.Substitution) error
	GetByLessonID(ctx context.Context, lessonID int64) (*model.Substitution, error)
	Update(ctx context.Context, sub *model.Substitution) error
	DeleteByLessonID(ctx context.Context, lessonID int64) error
}

// Notifier is told about events other people care about. Delivery mechanics
// (email, push, calendar sync) live outside this core.
type Notifier interface {
	LessonCancelled(ctx context.Context, lesson *model.Lesson, fee schedule.FeeResult)
	LessonReminder(ctx context.Context, lesson *model.Lesson)
	SubstitutionChanged(ctx context.Context, event string, sub *model.Substitution)
}

// FeeCharger receives the computed cancellation fee. This core never
// processes the payment itself.
type FeeCharger interface {
	ChargeCancellationFee(ctx context.Context, lessonID int64, amountCents int64, currency string) error
}
