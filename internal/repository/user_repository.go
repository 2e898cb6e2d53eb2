package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tutorium/tutorium/internal/model"
	"github.com/tutorium/tutorium/internal/repository/base"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) db(ctx context.Context) base.Querier {
	return base.From(ctx, r.pool)
}

const userColumns = `id, organization_id, first_name, last_name, email, role, is_active, created_at`

// GetByID returns the user or nil when it does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user := &model.User{}
	err := r.db(ctx).QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.OrganizationID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
	)

	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return user, nil
}

// GetTeachers returns the organization's active teachers.
func (r *UserRepository) GetTeachers(ctx context.Context, orgID int64) ([]*model.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE organization_id = $1 AND role = $2 AND is_active = true
		ORDER BY last_name, first_name
	`

	rows, err := r.db(ctx).Query(ctx, query, orgID, model.UserRoleTeacher)
	if err != nil {
		return nil, fmt.Errorf("get teachers: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user := &model.User{}
		err := rows.Scan(
			&user.ID,
			&user.OrganizationID,
			&user.FirstName,
			&user.LastName,
			&user.Email,
			&user.Role,
			&user.IsActive,
			&user.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}
