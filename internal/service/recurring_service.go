package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tutorium/tutorium/internal/model"
	"github.com/tutorium/tutorium/internal/schedule"
	"go.uber.org/zap"
)

// GenerateError records one skipped occurrence. A conflicting candidate is
// skipped, never retried with altered parameters.
type GenerateError struct {
	Date   time.Time `json:"date"`
	Reason string    `json:"reason"`
}

// GenerateResult is the aggregate outcome of a recurring create.
type GenerateResult struct {
	Pattern        *model.RecurringPattern `json:"pattern"`
	CreatedLessons []*model.Lesson         `json:"created_lessons"`
	Errors         []GenerateError         `json:"errors"`
	TotalCreated   int                     `json:"total_created"`
	TotalErrors    int                     `json:"total_errors"`
}

// RecurringService expands a recurrence pattern into lesson instances. Each
// occurrence is conflict-checked and committed in its own transaction, so one
// conflicting occurrence never discards prior successes.
type RecurringService struct {
	tx        TxRunner
	lessons   LessonStore
	users     UserStore
	courses   CourseStore
	patterns  PatternStore
	conflicts *ConflictDetector
	logger    *zap.Logger
}

func NewRecurringService(
	tx TxRunner,
	lessons LessonStore,
	users UserStore,
	courses CourseStore,
	patterns PatternStore,
	conflicts *ConflictDetector,
	logger *zap.Logger,
) *RecurringService {
	return &RecurringService{
		tx:        tx,
		lessons:   lessons,
		users:     users,
		courses:   courses,
		patterns:  patterns,
		conflicts: conflicts,
		logger:    logger,
	}
}

// CreateFromPattern validates and persists the pattern, expands it, and
// creates one lesson per non-conflicting occurrence.
func (s *RecurringService) CreateFromPattern(ctx context.Context, p *model.RecurringPattern) (*GenerateResult, error) {
	if err := s.prepare(ctx, p); err != nil {
		return nil, err
	}

	occurrences, err := schedule.Expand(p)
	if err != nil {
		return nil, err
	}

	p.BatchID = uuid.New()
	p.IsActive = true
	if err := s.patterns.Create(ctx, p); err != nil {
		return nil, err
	}

	result := &GenerateResult{Pattern: p}
	for _, startsAt := range occurrences {
		lesson, err := s.createOccurrence(ctx, p, startsAt)
		if err != nil {
			result.Errors = append(result.Errors, GenerateError{Date: startsAt, Reason: err.Error()})
			continue
		}
		result.CreatedLessons = append(result.CreatedLessons, lesson)
	}
	result.TotalCreated = len(result.CreatedLessons)
	result.TotalErrors = len(result.Errors)

	s.logger.Info("Recurring lessons generated",
		zap.Int64("pattern_id", p.ID),
		zap.String("batch_id", p.BatchID.String()),
		zap.Int64("teacher_id", p.TeacherID),
		zap.Int64("student_id", p.StudentID),
		zap.Int("total_created", result.TotalCreated),
		zap.Int("total_errors", result.TotalErrors),
	)

	return result, nil
}

func (s *RecurringService) prepare(ctx context.Context, p *model.RecurringPattern) error {
	teacher, err := s.users.GetByID(ctx, p.TeacherID)
	if err != nil {
		return fmt.Errorf("get teacher: %w", err)
	}
	if teacher == nil {
		return model.NewError(model.ErrNotFound, "teacher %d not found", p.TeacherID)
	}
	if !teacher.IsTeacher() {
		return model.NewError(model.ErrValidation, "user %d is not a teacher", p.TeacherID)
	}

	student, err := s.users.GetByID(ctx, p.StudentID)
	if err != nil {
		return fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return model.NewError(model.ErrNotFound, "student %d not found", p.StudentID)
	}

	if p.CourseID != nil {
		course, err := s.courses.GetByID(ctx, *p.CourseID)
		if err != nil {
			return fmt.Errorf("get course: %w", err)
		}
		if course == nil {
			return model.NewError(model.ErrNotFound, "course %d not found", *p.CourseID)
		}
		if p.DurationMinutes == 0 {
			p.DurationMinutes = course.DefaultDurationMinutes
		}
		if p.PriceCents == 0 {
			p.PriceCents = course.PriceCents
			p.Currency = course.Currency
		}
		if p.DeliveryMode == "" {
			p.DeliveryMode = course.DeliveryMode
		}
	}
	if p.DeliveryMode == "" {
		p.DeliveryMode = model.DeliveryModeInPerson
	}

	return p.Validate()
}

// createOccurrence conflict-checks and commits a single instance in its own
// transaction.
func (s *RecurringService) createOccurrence(ctx context.Context, p *model.RecurringPattern, startsAt time.Time) (*model.Lesson, error) {
	lesson := &model.Lesson{
		OrganizationID:     p.OrganizationID,
		TeacherID:          p.TeacherID,
		StudentID:          p.StudentID,
		CourseID:           p.CourseID,
		ScheduledAt:        startsAt,
		DurationMinutes:    p.DurationMinutes,
		Status:             model.LessonStatusScheduled,
		DeliveryMode:       p.DeliveryMode,
		MeetingURL:         p.MeetingURL,
		PriceCents:         p.PriceCents,
		Currency:           p.Currency,
		RecurringPatternID: &p.ID,
		IsRecurring:        true,
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.lessons.LockScheduleResources(ctx, p.TeacherID, p.StudentID); err != nil {
			return err
		}

		iv := schedule.NewInterval(startsAt, p.DurationMinutes)
		report, err := s.conflicts.Check(ctx, p.OrganizationID, p.TeacherID, p.StudentID, iv, 0)
		if err != nil {
			return err
		}
		if report.HasConflicts() {
			return &ConflictError{Report: report}
		}

		return s.lessons.Create(ctx, lesson)
	})
	if err != nil {
		if !errors.Is(err, model.ErrConflict) {
			s.logger.Warn("Failed to create occurrence",
				zap.Int64("pattern_id", p.ID),
				zap.Time("starts_at", startsAt),
				zap.Error(err))
		}
		return nil, err
	}

	return lesson, nil
}

// GetPattern returns the pattern or a not-found error.
func (s *RecurringService) GetPattern(ctx context.Context, id int64) (*model.RecurringPattern, error) {
	p, err := s.patterns.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get pattern: %w", err)
	}
	if p == nil {
		return nil, model.NewError(model.ErrNotFound, "recurring pattern %d not found", id)
	}
	return p, nil
}

// PatternsByTeacher lists all recurrence patterns owned by the teacher.
func (s *RecurringService) PatternsByTeacher(ctx context.Context, teacherID int64) ([]*model.RecurringPattern, error) {
	patterns, err := s.patterns.GetByTeacherID(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("get patterns by teacher: %w", err)
	}
	return patterns, nil
}

// DeactivatePattern stops a pattern from being referenced for new generation.
// Already-created lessons keep their own lifecycle.
func (s *RecurringService) DeactivatePattern(ctx context.Context, id int64) error {
	if _, err := s.GetPattern(ctx, id); err != nil {
		return err
	}
	if err := s.patterns.Deactivate(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Recurring pattern deactivated", zap.Int64("pattern_id", id))
	return nil
}
