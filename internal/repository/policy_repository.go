package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tutorium/tutorium/internal/model"
	"github.com/tutorium/tutorium/internal/repository/base"
)

type PolicyRepository struct {
	pool *pgxpool.Pool
}

func NewPolicyRepository(pool *pgxpool.Pool) *PolicyRepository {
	return &PolicyRepository{pool: pool}
}

func (r *PolicyRepository) db(ctx context.Context) base.Querier {
	return base.From(ctx, r.pool)
}

// GetByOrganization returns the organization's cancellation policy, falling
// back to the default policy when no row is stored.
func (r *PolicyRepository) GetByOrganization(ctx context.Context, orgID int64) (model.CancellationPolicy, error) {
	query := `
		SELECT organization_id, fee_enabled, fee_percent, hours_threshold,
		       limit_enabled, cancellation_limit, limit_period
		FROM organization_policies
		WHERE organization_id = $1
	`

	policy := model.CancellationPolicy{}
	err := r.db(ctx).QueryRow(ctx, query, orgID).Scan(
		&policy.OrganizationID,
		&policy.FeeEnabled,
		&policy.FeePercent,
		&policy.HoursThreshold,
		&policy.LimitEnabled,
		&policy.CancellationLimit,
		&policy.LimitPeriod,
	)

	if base.IsNotFound(err) {
		return model.DefaultCancellationPolicy(orgID), nil
	}
	if err != nil {
		return model.CancellationPolicy{}, fmt.Errorf("get cancellation policy: %w", err)
	}

	return policy, nil
}

// Upsert stores the organization's cancellation policy.
func (r *PolicyRepository) Upsert(ctx context.Context, policy model.CancellationPolicy) error {
	query := `
		INSERT INTO organization_policies (
			organization_id, fee_enabled, fee_percent, hours_threshold,
			limit_enabled, cancellation_limit, limit_period
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (organization_id) DO UPDATE SET
			fee_enabled = EXCLUDED.fee_enabled,
			fee_percent = EXCLUDED.fee_percent,
			hours_threshold = EXCLUDED.hours_threshold,
			limit_enabled = EXCLUDED.limit_enabled,
			cancellation_limit = EXCLUDED.cancellation_limit,
			limit_period = EXCLUDED.limit_period
	`

	_, err := r.db(ctx).Exec(
		ctx, query,
		policy.OrganizationID,
		policy.FeeEnabled,
		policy.FeePercent,
		policy.HoursThreshold,
		policy.LimitEnabled,
		policy.CancellationLimit,
		policy.LimitPeriod,
	)
	if err != nil {
		return fmt.Errorf("upsert cancellation policy: %w", err)
	}

	return nil
}
