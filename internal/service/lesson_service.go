package service

import (
	"context"
	"fmt"
	"time"

	"github.com/tutorium/tutorium/internal/model"
	"github.com/tutorium/tutorium/internal/schedule"
	"go.uber.org/zap"
)

// ConflictError is the rejection raised when a write would double-book a
// teacher or a student. It matches model.ErrConflict with errors.Is and
// carries the full report for the caller.
type ConflictError struct {
	Report *ConflictReport
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("scheduling conflict: %d teacher, %d student",
		len(e.Report.TeacherConflicts), len(e.Report.StudentConflicts))
}

func (e *ConflictError) Is(target error) bool {
	return target == model.ErrConflict
}

// LessonService drives the lesson lifecycle: creation, confirmation,
// completion, cancellation (fee and limit gated), no-show and reschedule.
// Every conflict-check-then-write runs in one transaction holding advisory
// locks on the affected teacher and student.
type LessonService struct {
	tx        TxRunner
	lessons   LessonStore
	users     UserStore
	courses   CourseStore
	policies  PolicyStore
	conflicts *ConflictDetector
	notifier  Notifier
	billing   FeeCharger
	logger    *zap.Logger
	now       func() time.Time
}

func NewLessonService(
	tx TxRunner,
	lessons LessonStore,
	users UserStore,
	courses CourseStore,
	policies PolicyStore,
	conflicts *ConflictDetector,
	notifier Notifier,
	billing FeeCharger,
	logger *zap.Logger,
) *LessonService {
	return &LessonService{
		tx:        tx,
		lessons:   lessons,
		users:     users,
		courses:   courses,
		policies:  policies,
		conflicts: conflicts,
		notifier:  notifier,
		billing:   billing,
		logger:    logger,
		now:       time.Now,
	}
}

type CreateLessonInput struct {
	OrganizationID      int64
	TeacherID           int64
	StudentID           int64
	CourseID            *int64
	EnrollmentID        *int64
	ScheduledAt         time.Time
	DurationMinutes     int
	DeliveryMode        model.DeliveryMode
	MeetingURL          string
	PriceCents          int64
	Currency            string
	RequireConfirmation bool
}

// Create validates the pair, fills template defaults from the course when
// one is referenced, and commits the lesson only if the slot is free for
// both the teacher and the student.
func (s *LessonService) Create(ctx context.Context, in CreateLessonInput) (*model.Lesson, error) {
	lesson, err := s.buildLesson(ctx, in)
	if err != nil {
		return nil, err
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.lessons.LockScheduleResources(ctx, lesson.TeacherID, lesson.StudentID); err != nil {
			return err
		}

		iv := schedule.NewInterval(lesson.ScheduledAt, lesson.DurationMinutes)
		report, err := s.conflicts.Check(ctx, lesson.OrganizationID, lesson.TeacherID, lesson.StudentID, iv, 0)
		if err != nil {
			return err
		}
		if report.HasConflicts() {
			return &ConflictError{Report: report}
		}

		return s.lessons.Create(ctx, lesson)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Lesson created",
		zap.Int64("lesson_id", lesson.ID),
		zap.Int64("teacher_id", lesson.TeacherID),
		zap.Int64("student_id", lesson.StudentID),
		zap.Time("scheduled_at", lesson.ScheduledAt),
		zap.String("status", string(lesson.Status)),
	)

	return lesson, nil
}

func (s *LessonService) buildLesson(ctx context.Context, in CreateLessonInput) (*model.Lesson, error) {
	if in.ScheduledAt.IsZero() {
		return nil, model.NewError(model.ErrValidation, "scheduled time is required")
	}

	teacher, err := s.users.GetByID(ctx, in.TeacherID)
	if err != nil {
		return nil, fmt.Errorf("get teacher: %w", err)
	}
	if teacher == nil {
		return nil, model.NewError(model.ErrNotFound, "teacher %d not found", in.TeacherID)
	}
	if !teacher.IsTeacher() {
		return nil, model.NewError(model.ErrValidation, "user %d is not a teacher", in.TeacherID)
	}

	student, err := s.users.GetByID(ctx, in.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return nil, model.NewError(model.ErrNotFound, "student %d not found", in.StudentID)
	}

	lesson := &model.Lesson{
		OrganizationID:  in.OrganizationID,
		TeacherID:       in.TeacherID,
		StudentID:       in.StudentID,
		CourseID:        in.CourseID,
		EnrollmentID:    in.EnrollmentID,
		ScheduledAt:     in.ScheduledAt,
		DurationMinutes: in.DurationMinutes,
		DeliveryMode:    in.DeliveryMode,
		MeetingURL:      in.MeetingURL,
		PriceCents:      in.PriceCents,
		Currency:        in.Currency,
		Status:          model.LessonStatusScheduled,
	}
	if in.RequireConfirmation {
		lesson.Status = model.LessonStatusPendingConfirmation
	}

	if in.CourseID != nil {
		course, err := s.courses.GetByID(ctx, *in.CourseID)
		if err != nil {
			return nil, fmt.Errorf("get course: %w", err)
		}
		if course == nil {
			return nil, model.NewError(model.ErrNotFound, "course %d not found", *in.CourseID)
		}
		if lesson.DurationMinutes == 0 {
			lesson.DurationMinutes = course.DefaultDurationMinutes
		}
		if lesson.PriceCents == 0 {
			lesson.PriceCents = course.PriceCents
			lesson.Currency = course.Currency
		}
		if lesson.DeliveryMode == "" {
			lesson.DeliveryMode = course.DeliveryMode
		}
	}

	if lesson.DurationMinutes <= 0 {
		return nil, model.NewError(model.ErrValidation, "duration must be positive, got %d minutes", lesson.DurationMinutes)
	}
	if lesson.DeliveryMode == "" {
		lesson.DeliveryMode = model.DeliveryModeInPerson
	}

	return lesson, nil
}

// GetByID returns the lesson or a not-found error.
func (s *LessonService) GetByID(ctx context.Context, id int64) (*model.Lesson, error) {
	lesson, err := s.lessons.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	if lesson == nil {
		return nil, model.NewError(model.ErrNotFound, "lesson %d not found", id)
	}
	return lesson, nil
}

// Approve commits a pending lesson onto the schedule.
func (s *LessonService) Approve(ctx context.Context, id int64) (*model.Lesson, error) {
	return s.transition(ctx, id, model.LessonStatusScheduled, "approve")
}

// Confirm marks a scheduled lesson confirmed by the teacher.
func (s *LessonService) Confirm(ctx context.Context, id int64) (*model.Lesson, error) {
	return s.transition(ctx, id, model.LessonStatusConfirmed, "confirm")
}

// Complete marks the lesson held.
func (s *LessonService) Complete(ctx context.Context, id int64) (*model.Lesson, error) {
	return s.transition(ctx, id, model.LessonStatusCompleted, "complete")
}

// Uncomplete reverts an accidental completion back to confirmed. This is the
// only backward transition in the lifecycle.
func (s *LessonService) Uncomplete(ctx context.Context, id int64) (*model.Lesson, error) {
	lesson, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lesson.Status != model.LessonStatusCompleted {
		return nil, model.NewError(model.ErrStateInvalid, "cannot uncomplete lesson %d from status %s", id, lesson.Status)
	}
	return s.transition(ctx, id, model.LessonStatusConfirmed, "uncomplete")
}

// MarkNoShow records that the student did not attend. Terminal, no fee logic.
func (s *LessonService) MarkNoShow(ctx context.Context, id int64) (*model.Lesson, error) {
	return s.transition(ctx, id, model.LessonStatusNoShow, "mark no-show")
}

func (s *LessonService) transition(ctx context.Context, id int64, to model.LessonStatus, action string) (*model.Lesson, error) {
	lesson, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !model.CanTransition(lesson.Status, to) {
		return nil, model.NewError(model.ErrStateInvalid,
			"cannot %s lesson %d: transition %s -> %s is not allowed", action, id, lesson.Status, to)
	}

	// The store update is guarded on the status just validated, so a
	// concurrent transition that commits first makes this one fail instead
	// of silently overwriting a terminal state.
	if err := s.lessons.UpdateStatus(ctx, id, lesson.Status, to); err != nil {
		return nil, err
	}
	lesson.Status = to

	s.logger.Info("Lesson status changed",
		zap.Int64("lesson_id", id),
		zap.String("action", action),
		zap.String("status", string(to)),
	)

	return lesson, nil
}

// Cancel runs the CANCELLED transition: it re-checks the transition, gates on
// the cancellation limit against the committed count, computes the late fee
// and persists everything atomically. Billing and notification happen after
// commit.
func (s *LessonService) Cancel(ctx context.Context, id int64, reason string) (*model.Lesson, schedule.FeeResult, error) {
	var (
		lesson *model.Lesson
		fee    schedule.FeeResult
	)

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		lesson, err = s.GetByID(ctx, id)
		if err != nil {
			return err
		}

		// Serialize against concurrent cancels of the same pair so both the
		// status check and the limit count below read the committed row, not
		// a row another writer is about to change.
		if err := s.lessons.LockScheduleResources(ctx, lesson.TeacherID, lesson.StudentID); err != nil {
			return err
		}

		lesson, err = s.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if !model.CanTransition(lesson.Status, model.LessonStatusCancelled) {
			return model.NewError(model.ErrStateInvalid,
				"cannot cancel lesson %d: transition %s -> %s is not allowed",
				id, lesson.Status, model.LessonStatusCancelled)
		}

		policy, err := s.policies.GetByOrganization(ctx, lesson.OrganizationID)
		if err != nil {
			return err
		}

		now := s.now()
		if policy.LimitEnabled {
			used, err := s.lessons.CountCancellations(ctx, lesson.OrganizationID, lesson.StudentID, policy.PeriodStart(now))
			if err != nil {
				return err
			}
			if used >= policy.CancellationLimit {
				return model.NewError(model.ErrLimitExceeded,
					"student %d reached the cancellation limit (%d per %s)",
					lesson.StudentID, policy.CancellationLimit, policy.LimitPeriod)
			}
		}

		fee = schedule.CalculateCancellationFee(lesson.ScheduledAt, lesson.PriceCents, lesson.Currency, policy, now)

		var feeCents *int64
		if fee.Applies {
			feeCents = &fee.AmountCents
		}
		if err := s.lessons.UpdateCancellation(ctx, id, now, reason, feeCents); err != nil {
			return err
		}

		lesson.Status = model.LessonStatusCancelled
		lesson.CancelledAt = &now
		lesson.CancellationReason = reason
		lesson.CancellationFeeCents = feeCents
		return nil
	})
	if err != nil {
		return nil, schedule.FeeResult{}, err
	}

	s.logger.Info("Lesson cancelled",
		zap.Int64("lesson_id", id),
		zap.Int64("student_id", lesson.StudentID),
		zap.Bool("fee_applied", fee.Applies),
		zap.Int64("fee_cents", fee.AmountCents),
	)

	s.notifier.LessonCancelled(ctx, lesson, fee)
	if fee.Applies {
		if err := s.billing.ChargeCancellationFee(ctx, lesson.ID, fee.AmountCents, fee.Currency); err != nil {
			// The cancellation stands; the charge is retried by billing.
			s.logger.Error("Failed to hand off cancellation fee",
				zap.Int64("lesson_id", lesson.ID),
				zap.Error(err))
		}
	}

	return lesson, fee, nil
}

// Delete removes a lesson outright. Completed lessons are never deleted;
// cancel is the normal path for lessons that should stop blocking a slot.
func (s *LessonService) Delete(ctx context.Context, id int64) error {
	lesson, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if lesson.Status == model.LessonStatusCompleted {
		return model.NewError(model.ErrStateInvalid, "cannot delete completed lesson %d", id)
	}

	if err := s.lessons.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Lesson deleted",
		zap.Int64("lesson_id", id),
		zap.String("status", string(lesson.Status)),
	)
	return nil
}

// PreviewCancellationFee computes what cancelling now would cost, without
// side effects.
func (s *LessonService) PreviewCancellationFee(ctx context.Context, id int64) (schedule.FeeResult, error) {
	lesson, err := s.GetByID(ctx, id)
	if err != nil {
		return schedule.FeeResult{}, err
	}

	policy, err := s.policies.GetByOrganization(ctx, lesson.OrganizationID)
	if err != nil {
		return schedule.FeeResult{}, err
	}

	return schedule.CalculateCancellationFee(lesson.ScheduledAt, lesson.PriceCents, lesson.Currency, policy, s.now()), nil
}

// Reschedule moves the lesson to a new start and duration. Allowed only in
// SCHEDULED or CONFIRMED; the new interval must re-pass the conflict check
// with the lesson excluded from its own comparison. On conflict the edit is
// rejected wholesale.
func (s *LessonService) Reschedule(ctx context.Context, id int64, newStart time.Time, newDurationMinutes int) (*model.Lesson, error) {
	if newDurationMinutes <= 0 {
		return nil, model.NewError(model.ErrValidation, "duration must be positive, got %d minutes", newDurationMinutes)
	}

	var lesson *model.Lesson
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		lesson, err = s.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if lesson.Status != model.LessonStatusScheduled && lesson.Status != model.LessonStatusConfirmed {
			return model.NewError(model.ErrStateInvalid, "cannot reschedule lesson %d in status %s", id, lesson.Status)
		}

		if err := s.lessons.LockScheduleResources(ctx, lesson.TeacherID, lesson.StudentID); err != nil {
			return err
		}

		iv := schedule.NewInterval(newStart, newDurationMinutes)
		report, err := s.conflicts.Check(ctx, lesson.OrganizationID, lesson.TeacherID, lesson.StudentID, iv, lesson.ID)
		if err != nil {
			return err
		}
		if report.HasConflicts() {
			return &ConflictError{Report: report}
		}

		if err := s.lessons.UpdateSchedule(ctx, id, newStart, newDurationMinutes); err != nil {
			return err
		}

		lesson.ScheduledAt = newStart
		lesson.DurationMinutes = newDurationMinutes
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Lesson rescheduled",
		zap.Int64("lesson_id", id),
		zap.Time("scheduled_at", newStart),
		zap.Int("duration_minutes", newDurationMinutes),
	)

	return lesson, nil
}
