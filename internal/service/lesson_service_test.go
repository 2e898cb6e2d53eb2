package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tutorium/tutorium/internal/model"
)

var lessonStart = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

func createInput() CreateLessonInput {
	return CreateLessonInput{
		OrganizationID:  testOrgID,
		TeacherID:       testTeacherID,
		StudentID:       testStudentID,
		ScheduledAt:     lessonStart,
		DurationMinutes: 60,
		PriceCents:      10000,
		Currency:        "USD",
	}
}

func TestCreateLesson(t *testing.T) {
	env := newTestEnv()

	lesson, err := env.lessonSvc.Create(context.Background(), createInput())
	require.NoError(t, err)

	assert.NotZero(t, lesson.ID)
	assert.Equal(t, model.LessonStatusScheduled, lesson.Status)
	assert.Equal(t, model.DeliveryModeInPerson, lesson.DeliveryMode)
	assert.Positive(t, env.lessons.lockCalls)
}

func TestCreateLessonPendingConfirmation(t *testing.T) {
	env := newTestEnv()

	in := createInput()
	in.RequireConfirmation = true

	lesson, err := env.lessonSvc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, model.LessonStatusPendingConfirmation, lesson.Status)
}

func TestCreateLessonRejectsConflict(t *testing.T) {
	env := newTestEnv()
	env.addLesson(model.LessonStatusScheduled, lessonStart)

	in := createInput()
	in.ScheduledAt = lessonStart.Add(30 * time.Minute)

	_, err := env.lessonSvc.Create(context.Background(), in)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrConflict)

	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.NotEmpty(t, conflictErr.Report.TeacherConflicts)

	// Rejected wholesale: only the pre-existing lesson remains.
	assert.Len(t, env.lessons.lessons, 1)
}

func TestCreateLessonPendingBlocksSlot(t *testing.T) {
	env := newTestEnv()
	env.addLesson(model.LessonStatusPendingConfirmation, lessonStart)

	_, err := env.lessonSvc.Create(context.Background(), createInput())
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestCreateLessonValidation(t *testing.T) {
	env := newTestEnv()

	tests := []struct {
		name   string
		mutate func(in *CreateLessonInput)
		want   error
	}{
		{"missing time", func(in *CreateLessonInput) { in.ScheduledAt = time.Time{} }, model.ErrValidation},
		{"unknown teacher", func(in *CreateLessonInput) { in.TeacherID = 777 }, model.ErrNotFound},
		{"student as teacher", func(in *CreateLessonInput) { in.TeacherID = testStudentID }, model.ErrValidation},
		{"unknown student", func(in *CreateLessonInput) { in.StudentID = 777 }, model.ErrNotFound},
		{"zero duration", func(in *CreateLessonInput) { in.DurationMinutes = 0 }, model.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := createInput()
			tt.mutate(&in)

			_, err := env.lessonSvc.Create(context.Background(), in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateLessonCourseDefaults(t *testing.T) {
	env := newTestEnv()
	courseID := int64(5)
	env.courses.courses[courseID] = &model.Course{
		ID:                     courseID,
		OrganizationID:         testOrgID,
		DefaultDurationMinutes: 45,
		PriceCents:             7500,
		Currency:               "EUR",
		DeliveryMode:           model.DeliveryModeOnline,
	}

	in := createInput()
	in.CourseID = &courseID
	in.DurationMinutes = 0
	in.PriceCents = 0
	in.Currency = ""

	lesson, err := env.lessonSvc.Create(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 45, lesson.DurationMinutes)
	assert.Equal(t, int64(7500), lesson.PriceCents)
	assert.Equal(t, "EUR", lesson.Currency)
	assert.Equal(t, model.DeliveryModeOnline, lesson.DeliveryMode)
}

func TestGetByIDNotFound(t *testing.T) {
	env := newTestEnv()

	_, err := env.lessonSvc.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestLifecycleTransitions(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	pending := env.addLesson(model.LessonStatusPendingConfirmation, lessonStart)

	lesson, err := env.lessonSvc.Approve(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LessonStatusScheduled, lesson.Status)

	lesson, err = env.lessonSvc.Confirm(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LessonStatusConfirmed, lesson.Status)

	lesson, err = env.lessonSvc.Complete(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LessonStatusCompleted, lesson.Status)

	lesson, err = env.lessonSvc.Uncomplete(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LessonStatusConfirmed, lesson.Status)
}

func TestIllegalTransitions(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	cancelled := env.addLesson(model.LessonStatusCancelled, lessonStart)
	completed := env.addLesson(model.LessonStatusCompleted, lessonStart.Add(2*time.Hour))
	scheduled := env.addLesson(model.LessonStatusScheduled, lessonStart.Add(4*time.Hour))

	_, err := env.lessonSvc.Confirm(ctx, cancelled.ID)
	assert.ErrorIs(t, err, model.ErrStateInvalid)

	_, _, err = env.lessonSvc.Cancel(ctx, completed.ID, "")
	assert.ErrorIs(t, err, model.ErrStateInvalid)

	_, err = env.lessonSvc.Uncomplete(ctx, scheduled.ID)
	assert.ErrorIs(t, err, model.ErrStateInvalid)

	_, err = env.lessonSvc.MarkNoShow(ctx, cancelled.ID)
	assert.ErrorIs(t, err, model.ErrStateInvalid)
}

func TestMarkNoShowIsTerminal(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	lesson := env.addLesson(model.LessonStatusConfirmed, lessonStart)

	_, err := env.lessonSvc.MarkNoShow(ctx, lesson.ID)
	require.NoError(t, err)

	_, err = env.lessonSvc.Confirm(ctx, lesson.ID)
	assert.ErrorIs(t, err, model.ErrStateInvalid)

	// No-show never triggers fee or billing.
	assert.Empty(t, env.billing.charges)
}

func TestCancelLateAppliesFee(t *testing.T) {
	env := newTestEnv()
	lesson := env.addLesson(model.LessonStatusScheduled, lessonStart)
	env.lessonSvc.now = fixedNow(lessonStart.Add(-10 * time.Hour))

	got, fee, err := env.lessonSvc.Cancel(context.Background(), lesson.ID, "sick")
	require.NoError(t, err)

	assert.Equal(t, model.LessonStatusCancelled, got.Status)
	assert.Equal(t, "sick", got.CancellationReason)
	require.NotNil(t, got.CancellationFeeCents)
	assert.Equal(t, int64(5000), *got.CancellationFeeCents)

	assert.True(t, fee.Applies)
	assert.Equal(t, int64(5000), fee.AmountCents)

	require.Len(t, env.billing.charges, 1)
	assert.Equal(t, lesson.ID, env.billing.charges[0].lessonID)
	assert.Equal(t, int64(5000), env.billing.charges[0].amountCents)

	require.Len(t, env.notifier.events, 1)
	assert.Equal(t, "cancelled", env.notifier.events[0].kind)
}

func TestCancelEarlyNoFee(t *testing.T) {
	env := newTestEnv()
	lesson := env.addLesson(model.LessonStatusScheduled, lessonStart)
	env.lessonSvc.now = fixedNow(lessonStart.Add(-30 * time.Hour))

	got, fee, err := env.lessonSvc.Cancel(context.Background(), lesson.ID, "")
	require.NoError(t, err)

	assert.False(t, fee.Applies)
	assert.Nil(t, got.CancellationFeeCents)
	assert.Empty(t, env.billing.charges)
}

func TestCancelSurvivesBillingFailure(t *testing.T) {
	env := newTestEnv()
	lesson := env.addLesson(model.LessonStatusScheduled, lessonStart)
	env.lessonSvc.now = fixedNow(lessonStart.Add(-10 * time.Hour))
	env.billing.err = errors.New("billing down")

	got, fee, err := env.lessonSvc.Cancel(context.Background(), lesson.ID, "")
	require.NoError(t, err)

	assert.True(t, fee.Applies)
	assert.Equal(t, model.LessonStatusCancelled, got.Status)
}

func TestCancelAfterConcurrentCancelFails(t *testing.T) {
	env := newTestEnv()
	lesson := env.addLesson(model.LessonStatusScheduled, lessonStart)
	env.lessonSvc.now = fixedNow(lessonStart.Add(-10 * time.Hour))

	// A competing cancel commits while this one is waiting on the lock.
	firstAt := lessonStart.Add(-11 * time.Hour)
	firstFee := int64(5000)
	env.lessons.onLock = func() {
		lesson.Status = model.LessonStatusCancelled
		lesson.CancelledAt = &firstAt
		lesson.CancellationFeeCents = &firstFee
	}

	_, _, err := env.lessonSvc.Cancel(context.Background(), lesson.ID, "double click")
	assert.ErrorIs(t, err, model.ErrStateInvalid)

	// The committed cancellation stands untouched and nothing is re-charged.
	assert.Equal(t, firstAt, *lesson.CancelledAt)
	assert.Equal(t, int64(5000), *lesson.CancellationFeeCents)
	assert.Empty(t, env.billing.charges)
	assert.Empty(t, env.notifier.events)
}

// staleLessonStore serves reads from a snapshot taken before a concurrent
// writer committed; writes still hit the live store.
type staleLessonStore struct {
	*fakeLessonStore
	stale *model.Lesson
}

func (s *staleLessonStore) GetByID(ctx context.Context, id int64) (*model.Lesson, error) {
	if s.stale != nil && s.stale.ID == id {
		snapshot := *s.stale
		return &snapshot, nil
	}
	return s.fakeLessonStore.GetByID(ctx, id)
}

func TestCompleteRacingCancelFails(t *testing.T) {
	env := newTestEnv()
	lesson := env.addLesson(model.LessonStatusCancelled, lessonStart)

	// The complete request validated CONFIRMED before the cancel committed.
	snapshot := *lesson
	snapshot.Status = model.LessonStatusConfirmed
	store := &staleLessonStore{fakeLessonStore: env.lessons, stale: &snapshot}
	svc := NewLessonService(fakeTx{}, store, env.users, env.courses, env.policies,
		NewConflictDetector(store, zap.NewNop()), env.notifier, env.billing, zap.NewNop())

	_, err := svc.Complete(context.Background(), lesson.ID)
	assert.ErrorIs(t, err, model.ErrStateInvalid)
	assert.Equal(t, model.LessonStatusCancelled, env.lessons.lessons[lesson.ID].Status)
}

func TestCancelLimitExceeded(t *testing.T) {
	env := newTestEnv()
	now := lessonStart.Add(-30 * time.Hour)
	env.lessonSvc.now = fixedNow(now)
	env.policies.policy = model.CancellationPolicy{
		OrganizationID:    testOrgID,
		LimitEnabled:      true,
		CancellationLimit: 2,
		LimitPeriod:       model.LimitPeriodMonth,
	}

	// Two cancellations already committed this month.
	for i := 0; i < 2; i++ {
		cancelledAt := now.Add(-time.Duration(i+1) * 24 * time.Hour)
		l := env.addLesson(model.LessonStatusCancelled, lessonStart.Add(time.Duration(i)*time.Hour))
		l.CancelledAt = &cancelledAt
	}

	lesson := env.addLesson(model.LessonStatusScheduled, lessonStart)

	_, _, err := env.lessonSvc.Cancel(context.Background(), lesson.ID, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrLimitExceeded)

	// The lesson stays on the schedule.
	assert.Equal(t, model.LessonStatusScheduled, env.lessons.lessons[lesson.ID].Status)
}

func TestCancelLimitRollsOverAtPeriodStart(t *testing.T) {
	env := newTestEnv()
	now := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	env.lessonSvc.now = fixedNow(now)
	env.policies.policy = model.CancellationPolicy{
		OrganizationID:    testOrgID,
		LimitEnabled:      true,
		CancellationLimit: 1,
		LimitPeriod:       model.LimitPeriodMonth,
	}

	// A cancellation from February does not count against March.
	prev := time.Date(2025, 2, 20, 12, 0, 0, 0, time.UTC)
	l := env.addLesson(model.LessonStatusCancelled, prev)
	l.CancelledAt = &prev

	lesson := env.addLesson(model.LessonStatusScheduled, now.Add(48*time.Hour))

	_, _, err := env.lessonSvc.Cancel(context.Background(), lesson.ID, "")
	assert.NoError(t, err)
}

func TestPreviewCancellationFeeHasNoSideEffects(t *testing.T) {
	env := newTestEnv()
	lesson := env.addLesson(model.LessonStatusScheduled, lessonStart)
	env.lessonSvc.now = fixedNow(lessonStart.Add(-10 * time.Hour))

	fee, err := env.lessonSvc.PreviewCancellationFee(context.Background(), lesson.ID)
	require.NoError(t, err)

	assert.True(t, fee.Applies)
	assert.Equal(t, int64(5000), fee.AmountCents)

	assert.Equal(t, model.LessonStatusScheduled, env.lessons.lessons[lesson.ID].Status)
	assert.Empty(t, env.billing.charges)
	assert.Empty(t, env.notifier.events)
}

func TestReschedule(t *testing.T) {
	env := newTestEnv()
	lesson := env.addLesson(model.LessonStatusScheduled, lessonStart)

	newStart := lessonStart.Add(24 * time.Hour)
	got, err := env.lessonSvc.Reschedule(context.Background(), lesson.ID, newStart, 90)
	require.NoError(t, err)

	assert.Equal(t, newStart, got.ScheduledAt)
	assert.Equal(t, 90, got.DurationMinutes)
}

func TestRescheduleRejectsConflictWholesale(t *testing.T) {
	env := newTestEnv()
	lesson := env.addLesson(model.LessonStatusScheduled, lessonStart)
	other := env.addLesson(model.LessonStatusConfirmed, lessonStart.Add(3*time.Hour))

	_, err := env.lessonSvc.Reschedule(context.Background(), lesson.ID, other.ScheduledAt, 60)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrConflict)

	// The original slot is untouched.
	assert.Equal(t, lessonStart, env.lessons.lessons[lesson.ID].ScheduledAt)
	assert.Equal(t, 60, env.lessons.lessons[lesson.ID].DurationMinutes)
}

func TestRescheduleOntoOwnSlot(t *testing.T) {
	env := newTestEnv()
	lesson := env.addLesson(model.LessonStatusConfirmed, lessonStart)

	// Shifting within the lesson's own interval must not self-conflict.
	_, err := env.lessonSvc.Reschedule(context.Background(), lesson.ID, lessonStart.Add(15*time.Minute), 60)
	assert.NoError(t, err)
}

func TestRescheduleInvalidStatus(t *testing.T) {
	env := newTestEnv()

	for _, status := range []model.LessonStatus{
		model.LessonStatusPendingConfirmation,
		model.LessonStatusCompleted,
		model.LessonStatusCancelled,
		model.LessonStatusNoShow,
	} {
		lesson := env.addLesson(status, lessonStart)
		_, err := env.lessonSvc.Reschedule(context.Background(), lesson.ID, lessonStart.Add(time.Hour), 60)
		assert.ErrorIs(t, err, model.ErrStateInvalid, "status %s", status)
	}
}

func TestDeleteLesson(t *testing.T) {
	env := newTestEnv()
	lesson := env.addLesson(model.LessonStatusScheduled, lessonStart)

	require.NoError(t, env.lessonSvc.Delete(context.Background(), lesson.ID))
	assert.NotContains(t, env.lessons.lessons, lesson.ID)
}

func TestDeleteLessonRejectsCompleted(t *testing.T) {
	env := newTestEnv()
	lesson := env.addLesson(model.LessonStatusCompleted, lessonStart)

	err := env.lessonSvc.Delete(context.Background(), lesson.ID)
	assert.ErrorIs(t, err, model.ErrStateInvalid)
	assert.Contains(t, env.lessons.lessons, lesson.ID)
}

func TestDeleteLessonNotFound(t *testing.T) {
	env := newTestEnv()

	err := env.lessonSvc.Delete(context.Background(), 404)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRescheduleRejectsBadDuration(t *testing.T) {
	env := newTestEnv()
	lesson := env.addLesson(model.LessonStatusScheduled, lessonStart)

	_, err := env.lessonSvc.Reschedule(context.Background(), lesson.ID, lessonStart, 0)
	assert.ErrorIs(t, err, model.ErrValidation)
}
