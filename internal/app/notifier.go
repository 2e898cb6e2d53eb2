package app

import (
	"context"

	"github.com/tutorium/tutorium/internal/model"
	"github.com/tutorium/tutorium/internal/schedule"
	"go.uber.org/zap"
)

// LogNotifier satisfies service.Notifier by logging the events. Real delivery
// (email, push, calendar sync) hangs off these hooks outside the core.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) LessonCancelled(ctx context.Context, lesson *model.Lesson, fee schedule.FeeResult) {
	n.logger.Info("Notify: lesson cancelled",
		zap.Int64("lesson_id", lesson.ID),
		zap.Int64("teacher_id", lesson.TeacherID),
		zap.Int64("student_id", lesson.StudentID),
		zap.Bool("fee_applied", fee.Applies),
	)
}

func (n *LogNotifier) LessonReminder(ctx context.Context, lesson *model.Lesson) {
	n.logger.Info("Notify: lesson reminder",
		zap.Int64("lesson_id", lesson.ID),
		zap.Time("scheduled_at", lesson.ScheduledAt),
	)
}

func (n *LogNotifier) SubstitutionChanged(ctx context.Context, event string, sub *model.Substitution) {
	n.logger.Info("Notify: substitution "+event,
		zap.Int64("lesson_id", sub.LessonID),
		zap.Int64("substitute_teacher_id", sub.SubstituteTeacherID),
	)
}

// LogBilling satisfies service.FeeCharger by logging the charge request.
// Payment processing is an external system.
type LogBilling struct {
	logger *zap.Logger
}

func NewLogBilling(logger *zap.Logger) *LogBilling {
	return &LogBilling{logger: logger}
}

func (b *LogBilling) ChargeCancellationFee(ctx context.Context, lessonID int64, amountCents int64, currency string) error {
	b.logger.Info("Billing: cancellation fee charge requested",
		zap.Int64("lesson_id", lessonID),
		zap.Int64("amount_cents", amountCents),
		zap.String("currency", currency),
	)
	return nil
}
