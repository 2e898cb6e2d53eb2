package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tutorium/tutorium/internal/model"
	"github.com/tutorium/tutorium/internal/repository/base"
	"github.com/tutorium/tutorium/internal/schedule"
)

const lessonColumns = `
	id, organization_id, teacher_id, student_id, course_id, enrollment_id,
	scheduled_at, duration_minutes, status, delivery_mode, meeting_url,
	price_cents, currency, cancelled_at, cancellation_reason,
	cancellation_fee_cents, recurring_pattern_id, is_recurring,
	created_at, updated_at`

type LessonRepository struct {
	pool *pgxpool.Pool
}

func NewLessonRepository(pool *pgxpool.Pool) *LessonRepository {
	return &LessonRepository{pool: pool}
}

func (r *LessonRepository) db(ctx context.Context) base.Querier {
	return base.From(ctx, r.pool)
}

// Create inserts a lesson and fills its id and timestamps.
func (r *LessonRepository) Create(ctx context.Context, lesson *model.Lesson) error {
	query := `
		INSERT INTO lessons (
			organization_id, teacher_id, student_id, course_id, enrollment_id,
			scheduled_at, duration_minutes, status, delivery_mode, meeting_url,
			price_cents, currency, recurring_pattern_id, is_recurring
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at
	`

	err := r.db(ctx).QueryRow(
		ctx, query,
		lesson.OrganizationID,
		lesson.TeacherID,
		lesson.StudentID,
		lesson.CourseID,
		lesson.EnrollmentID,
		lesson.ScheduledAt,
		lesson.DurationMinutes,
		lesson.Status,
		lesson.DeliveryMode,
		lesson.MeetingURL,
		lesson.PriceCents,
		lesson.Currency,
		lesson.RecurringPatternID,
		lesson.IsRecurring,
	).Scan(&lesson.ID, &lesson.CreatedAt, &lesson.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}

	return nil
}

// GetByID returns the lesson or nil when it does not exist.
func (r *LessonRepository) GetByID(ctx context.Context, id int64) (*model.Lesson, error) {
	query := `SELECT` + lessonColumns + ` FROM lessons WHERE id = $1`

	lesson, err := scanLesson(r.db(ctx).QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lesson by id: %w", err)
	}

	return lesson, nil
}

// GetByIDs returns the lessons for the given ids, in scheduled order. Missing
// ids are simply absent from the result.
func (r *LessonRepository) GetByIDs(ctx context.Context, ids []int64) ([]*model.Lesson, error) {
	query := `SELECT` + lessonColumns + ` FROM lessons WHERE id = ANY($1) ORDER BY scheduled_at`

	rows, err := r.db(ctx).Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get lessons by ids: %w", err)
	}
	defer rows.Close()

	return scanLessons(rows)
}

// FindTeacherOverlaps returns lessons of the teacher in a blocking status
// whose occupied interval intersects iv. excludeID, when non-zero, removes
// the lesson being edited from its own check.
func (r *LessonRepository) FindTeacherOverlaps(ctx context.Context, orgID, teacherID int64, iv schedule.Interval, excludeID int64) ([]*model.Lesson, error) {
	return r.findOverlaps(ctx, "teacher_id", orgID, teacherID, iv, excludeID)
}

// FindStudentOverlaps is FindTeacherOverlaps for the student side.
func (r *LessonRepository) FindStudentOverlaps(ctx context.Context, orgID, studentID int64, iv schedule.Interval, excludeID int64) ([]*model.Lesson, error) {
	return r.findOverlaps(ctx, "student_id", orgID, studentID, iv, excludeID)
}

func (r *LessonRepository) findOverlaps(ctx context.Context, column string, orgID, userID int64, iv schedule.Interval, excludeID int64) ([]*model.Lesson, error) {
	query := `
		SELECT` + lessonColumns + `
		FROM lessons
		WHERE organization_id = $1
		  AND ` + column + ` = $2
		  AND status = ANY($3)
		  AND scheduled_at < $4
		  AND scheduled_at + make_interval(mins => duration_minutes) > $5
		  AND ($6 = 0 OR id <> $6)
		ORDER BY scheduled_at
	`

	rows, err := r.db(ctx).Query(ctx, query, orgID, userID, blockingStatusStrings(), iv.End, iv.Start, excludeID)
	if err != nil {
		return nil, fmt.Errorf("find overlapping lessons: %w", err)
	}
	defer rows.Close()

	return scanLessons(rows)
}

// UpdateStatus moves the lesson from one status to another. The UPDATE is
// guarded on the expected current status so a write racing another transition
// cannot overwrite a state it never validated.
func (r *LessonRepository) UpdateStatus(ctx context.Context, id int64, from, to model.LessonStatus) error {
	query := `UPDATE lessons SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`

	tag, err := r.db(ctx).Exec(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("update lesson status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewError(model.ErrStateInvalid, "lesson %d is missing or no longer %s", id, from)
	}

	return nil
}

// UpdateCancellation marks the lesson cancelled and records the cancellation
// fields in one statement. Only lessons still in a blocking status match, so
// a cancel that lost a race cannot re-enter CANCELLED or re-write the fee.
func (r *LessonRepository) UpdateCancellation(ctx context.Context, id int64, cancelledAt time.Time, reason string, feeCents *int64) error {
	query := `
		UPDATE lessons
		SET status = $1, cancelled_at = $2, cancellation_reason = $3,
		    cancellation_fee_cents = $4, updated_at = now()
		WHERE id = $5
		  AND status = ANY($6)
	`

	tag, err := r.db(ctx).Exec(ctx, query, model.LessonStatusCancelled, cancelledAt, reason, feeCents, id, blockingStatusStrings())
	if err != nil {
		return fmt.Errorf("update lesson cancellation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewError(model.ErrStateInvalid, "lesson %d is missing or not cancellable", id)
	}

	return nil
}

// UpdateSchedule moves the lesson to a new start and duration.
func (r *LessonRepository) UpdateSchedule(ctx context.Context, id int64, scheduledAt time.Time, durationMinutes int) error {
	query := `
		UPDATE lessons
		SET scheduled_at = $1, duration_minutes = $2, updated_at = now()
		WHERE id = $3
	`

	tag, err := r.db(ctx).Exec(ctx, query, scheduledAt, durationMinutes, id)
	if err != nil {
		return fmt.Errorf("update lesson schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewError(model.ErrNotFound, "lesson %d not found", id)
	}

	return nil
}

// CountCancellations counts the student's committed cancellations since the
// period start. Run inside the cancel transaction, after the student lock,
// so concurrent cancels cannot both pass a stale count.
func (r *LessonRepository) CountCancellations(ctx context.Context, orgID, studentID int64, since time.Time) (int, error) {
	query := `
		SELECT count(*)
		FROM lessons
		WHERE organization_id = $1
		  AND student_id = $2
		  AND status = $3
		  AND cancelled_at >= $4
	`

	var count int
	err := r.db(ctx).QueryRow(ctx, query, orgID, studentID, model.LessonStatusCancelled, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count cancellations: %w", err)
	}

	return count, nil
}

// GetUpcoming returns blocking-status lessons starting within [from, to).
func (r *LessonRepository) GetUpcoming(ctx context.Context, from, to time.Time) ([]*model.Lesson, error) {
	query := `
		SELECT` + lessonColumns + `
		FROM lessons
		WHERE status = ANY($1)
		  AND scheduled_at >= $2
		  AND scheduled_at < $3
		ORDER BY scheduled_at
	`

	rows, err := r.db(ctx).Query(ctx, query, blockingStatusStrings(), from, to)
	if err != nil {
		return nil, fmt.Errorf("get upcoming lessons: %w", err)
	}
	defer rows.Close()

	return scanLessons(rows)
}

// Delete removes a non-completed lesson. Completed lessons are never deleted.
func (r *LessonRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM lessons WHERE id = $1 AND status <> $2`

	tag, err := r.db(ctx).Exec(ctx, query, id, model.LessonStatusCompleted)
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewError(model.ErrStateInvalid, "lesson %d is completed or missing", id)
	}

	return nil
}

// LockScheduleResources takes transaction-scoped advisory locks on the
// teacher and the student, serializing conflict-check-then-commit per
// resource. Keys are taken in ascending order to avoid lock inversion
// between concurrent writers touching the same pair.
func (r *LessonRepository) LockScheduleResources(ctx context.Context, teacherID, studentID int64) error {
	keys := []int64{teacherID*4 + 1, studentID*4 + 2}
	if keys[1] < keys[0] {
		keys[0], keys[1] = keys[1], keys[0]
	}

	for _, key := range keys {
		if _, err := r.db(ctx).Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, key); err != nil {
			return fmt.Errorf("lock schedule resource %d: %w", key, err)
		}
	}

	return nil
}

func blockingStatusStrings() []string {
	out := make([]string, len(model.BlockingStatuses))
	for i, s := range model.BlockingStatuses {
		out[i] = string(s)
	}
	return out
}

func scanLesson(row pgx.Row) (*model.Lesson, error) {
	lesson := &model.Lesson{}
	err := row.Scan(
		&lesson.ID,
		&lesson.OrganizationID,
		&lesson.TeacherID,
		&lesson.StudentID,
		&lesson.CourseID,
		&lesson.EnrollmentID,
		&lesson.ScheduledAt,
		&lesson.DurationMinutes,
		&lesson.Status,
		&lesson.DeliveryMode,
		&lesson.MeetingURL,
		&lesson.PriceCents,
		&lesson.Currency,
		&lesson.CancelledAt,
		&lesson.CancellationReason,
		&lesson.CancellationFeeCents,
		&lesson.RecurringPatternID,
		&lesson.IsRecurring,
		&lesson.CreatedAt,
		&lesson.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return lesson, nil
}

func scanLessons(rows pgx.Rows) ([]*model.Lesson, error) {
	var lessons []*model.Lesson
	for rows.Next() {
		lesson, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		lessons = append(lessons, lesson)
	}
	return lessons, rows.Err()
}
