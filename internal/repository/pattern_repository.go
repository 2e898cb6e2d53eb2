package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tutorium/tutorium/internal/model"
	"github.com/tutorium/tutorium/internal/repository/base"
)

const patternColumns = `
	id, batch_id, organization_id, teacher_id, student_id, course_id,
	frequency, step_interval, days_of_week, start_date, end_date,
	occurrences_count, start_hour, start_minute, duration_minutes,
	delivery_mode, meeting_url, price_cents, currency, is_active,
	created_at, updated_at`

type PatternRepository struct {
	pool *pgxpool.Pool
}

func NewPatternRepository(pool *pgxpool.Pool) *PatternRepository {
	return &PatternRepository{pool: pool}
}

func (r *PatternRepository) db(ctx context.Context) base.Querier {
	return base.From(ctx, r.pool)
}

// Create inserts a recurring pattern and fills its id and timestamps.
func (r *PatternRepository) Create(ctx context.Context, p *model.RecurringPattern) error {
	query := `
		INSERT INTO recurring_patterns (
			batch_id, organization_id, teacher_id, student_id, course_id,
			frequency, step_interval, days_of_week, start_date, end_date,
			occurrences_count, start_hour, start_minute, duration_minutes,
			delivery_mode, meeting_url, price_cents, currency, is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id, created_at, updated_at
	`

	err := r.db(ctx).QueryRow(
		ctx, query,
		p.BatchID,
		p.OrganizationID,
		p.TeacherID,
		p.StudentID,
		p.CourseID,
		p.Frequency,
		p.Interval,
		p.DaysOfWeek,
		p.StartDate,
		p.EndDate,
		p.OccurrencesCount,
		p.StartHour,
		p.StartMinute,
		p.DurationMinutes,
		p.DeliveryMode,
		p.MeetingURL,
		p.PriceCents,
		p.Currency,
		p.IsActive,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create recurring pattern: %w", err)
	}

	return nil
}

// GetByID returns the pattern or nil when it does not exist.
func (r *PatternRepository) GetByID(ctx context.Context, id int64) (*model.RecurringPattern, error) {
	query := `SELECT` + patternColumns + ` FROM recurring_patterns WHERE id = $1`

	p, err := scanPattern(r.db(ctx).QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recurring pattern by id: %w", err)
	}

	return p, nil
}

// GetByTeacherID returns all patterns of a teacher.
func (r *PatternRepository) GetByTeacherID(ctx context.Context, teacherID int64) ([]*model.RecurringPattern, error) {
	query := `SELECT` + patternColumns + ` FROM recurring_patterns WHERE teacher_id = $1 ORDER BY start_date`

	rows, err := r.db(ctx).Query(ctx, query, teacherID)
	if err != nil {
		return nil, fmt.Errorf("get recurring patterns by teacher: %w", err)
	}
	defer rows.Close()

	var patterns []*model.RecurringPattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring pattern: %w", err)
		}
		patterns = append(patterns, p)
	}

	return patterns, rows.Err()
}

// Deactivate marks a pattern inactive; already-generated lessons keep living
// their own lifecycle.
func (r *PatternRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE recurring_patterns SET is_active = false, updated_at = now() WHERE id = $1`

	tag, err := r.db(ctx).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate recurring pattern: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewError(model.ErrNotFound, "recurring pattern %d not found", id)
	}

	return nil
}

func scanPattern(row pgx.Row) (*model.RecurringPattern, error) {
	p := &model.RecurringPattern{}
	err := row.Scan(
		&p.ID,
		&p.BatchID,
		&p.OrganizationID,
		&p.TeacherID,
		&p.StudentID,
		&p.CourseID,
		&p.Frequency,
		&p.Interval,
		&p.DaysOfWeek,
		&p.StartDate,
		&p.EndDate,
		&p.OccurrencesCount,
		&p.StartHour,
		&p.StartMinute,
		&p.DurationMinutes,
		&p.DeliveryMode,
		&p.MeetingURL,
		&p.PriceCents,
		&p.Currency,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}
