package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tutorium/tutorium/internal/model"
	"github.com/tutorium/tutorium/internal/repository/base"
)

type SubstitutionRepository struct {
	pool *pgxpool.Pool
}

func NewSubstitutionRepository(pool *pgxpool.Pool) *SubstitutionRepository {
	return &SubstitutionRepository{pool: pool}
}

func (r *SubstitutionRepository) db(ctx context.Context) base.Querier {
	return base.From(ctx, r.pool)
}

// Create inserts a substitution. The lesson_id unique index guarantees at
// most one substitution per lesson; a violation surfaces as ErrDuplicate.
func (r *SubstitutionRepository) Create(ctx context.Context, sub *model.Substitution) error {
	query := `
		INSERT INTO substitutions (lesson_id, original_teacher_id, substitute_teacher_id, reason, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db(ctx).QueryRow(
		ctx, query,
		sub.LessonID,
		sub.OriginalTeacherID,
		sub.SubstituteTeacherID,
		sub.Reason,
		sub.Notes,
	).Scan(&sub.ID, &sub.CreatedAt)

	if base.IsUniqueViolation(err) {
		return model.NewError(model.ErrDuplicate, "substitution already exists for lesson %d", sub.LessonID)
	}
	if err != nil {
		return fmt.Errorf("create substitution: %w", err)
	}

	return nil
}

// GetByLessonID returns the lesson's substitution or nil when none exists.
func (r *SubstitutionRepository) GetByLessonID(ctx context.Context, lessonID int64) (*model.Substitution, error) {
	query := `
		SELECT id, lesson_id, original_teacher_id, substitute_teacher_id, reason, notes, created_at, updated_at
		FROM substitutions
		WHERE lesson_id = $1
	`

	sub := &model.Substitution{}
	err := r.db(ctx).QueryRow(ctx, query, lessonID).Scan(
		&sub.ID,
		&sub.LessonID,
		&sub.OriginalTeacherID,
		&sub.SubstituteTeacherID,
		&sub.Reason,
		&sub.Notes,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)

	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get substitution by lesson: %w", err)
	}

	return sub, nil
}

// Update mutates the substitute teacher, reason and notes.
func (r *SubstitutionRepository) Update(ctx context.Context, sub *model.Substitution) error {
	query := `
		UPDATE substitutions
		SET substitute_teacher_id = $1, reason = $2, notes = $3, updated_at = now()
		WHERE id = $4
		RETURNING updated_at
	`

	err := r.db(ctx).QueryRow(ctx, query, sub.SubstituteTeacherID, sub.Reason, sub.Notes, sub.ID).Scan(&sub.UpdatedAt)
	if base.IsNotFound(err) {
		return model.NewError(model.ErrNotFound, "substitution %d not found", sub.ID)
	}
	if err != nil {
		return fmt.Errorf("update substitution: %w", err)
	}

	return nil
}

// DeleteByLessonID removes the substitution record only; the lesson record is
// untouched, which reverts it to the original teacher.
func (r *SubstitutionRepository) DeleteByLessonID(ctx context.Context, lessonID int64) error {
	query := `DELETE FROM substitutions WHERE lesson_id = $1`

	tag, err := r.db(ctx).Exec(ctx, query, lessonID)
	if err != nil {
		return fmt.Errorf("delete substitution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewError(model.ErrNotFound, "no substitution for lesson %d", lessonID)
	}

	return nil
}
