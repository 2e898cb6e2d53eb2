package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tutorium/tutorium/internal/model"
	"github.com/tutorium/tutorium/internal/repository/base"
)

type CourseRepository struct {
	pool *pgxpool.Pool
}

func NewCourseRepository(pool *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

func (r *CourseRepository) db(ctx context.Context) base.Querier {
	return base.From(ctx, r.pool)
}

// GetByID returns the course or nil when it does not exist.
func (r *CourseRepository) GetByID(ctx context.Context, id int64) (*model.Course, error) {
	query := `
		SELECT id, organization_id, name, description, default_duration_minutes,
		       price_cents, currency, delivery_mode, is_active, created_at
		FROM courses
		WHERE id = $1
	`

	course := &model.Course{}
	err := r.db(ctx).QueryRow(ctx, query, id).Scan(
		&course.ID,
		&course.OrganizationID,
		&course.Name,
		&course.Description,
		&course.DefaultDurationMinutes,
		&course.PriceCents,
		&course.Currency,
		&course.DeliveryMode,
		&course.IsActive,
		&course.CreatedAt,
	)

	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get course by id: %w", err)
	}

	return course, nil
}
