package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ReminderTask reminds about lessons roughly lead ahead of their start. Each
// sweep covers one step-wide slice at the far edge of the lead window, so a
// lesson crossing that edge is notified exactly once. It implements app.Task
// so the background runner can be injected instead of living inside the core.
type ReminderTask struct {
	lessons  LessonStore
	notifier Notifier
	lead     time.Duration
	step     time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewReminderTask builds the sweep. step must match the runner interval, or
// slices will overlap or leave gaps.
func NewReminderTask(lessons LessonStore, notifier Notifier, lead, step time.Duration, logger *zap.Logger) *ReminderTask {
	return &ReminderTask{
		lessons:  lessons,
		notifier: notifier,
		lead:     lead,
		step:     step,
		logger:   logger,
		now:      time.Now,
	}
}

func (t *ReminderTask) Name() string { return "lesson-reminders" }

func (t *ReminderTask) Run(ctx context.Context) error {
	from := t.now().Add(t.lead)
	lessons, err := t.lessons.GetUpcoming(ctx, from, from.Add(t.step))
	if err != nil {
		return fmt.Errorf("get upcoming lessons: %w", err)
	}

	for _, lesson := range lessons {
		t.notifier.LessonReminder(ctx, lesson)
	}

	t.logger.Info("Reminder sweep finished",
		zap.Int("lessons", len(lessons)),
		zap.Duration("lead", t.lead),
	)

	return nil
}
