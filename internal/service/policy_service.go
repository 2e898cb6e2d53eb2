package service

import (
	"context"

	"github.com/tutorium/tutorium/internal/model"
	"go.uber.org/zap"
)

// PolicyService reads and writes the per-organization cancellation policy
// the fee calculator and the limiter run against.
type PolicyService struct {
	policies PolicyStore
	logger   *zap.Logger
}

func NewPolicyService(policies PolicyStore, logger *zap.Logger) *PolicyService {
	return &PolicyService{policies: policies, logger: logger}
}

// Get returns the organization's policy, defaulted when none is stored.
func (s *PolicyService) Get(ctx context.Context, orgID int64) (model.CancellationPolicy, error) {
	return s.policies.GetByOrganization(ctx, orgID)
}

// Update validates and stores the organization's policy.
func (s *PolicyService) Update(ctx context.Context, policy model.CancellationPolicy) (model.CancellationPolicy, error) {
	if policy.OrganizationID <= 0 {
		return model.CancellationPolicy{}, model.NewError(model.ErrValidation, "organization id is required")
	}
	if policy.FeePercent < 0 || policy.FeePercent > 100 {
		return model.CancellationPolicy{}, model.NewError(model.ErrValidation, "fee percent must be in 0..100, got %d", policy.FeePercent)
	}
	if policy.HoursThreshold < 0 {
		return model.CancellationPolicy{}, model.NewError(model.ErrValidation, "hours threshold must be non-negative, got %d", policy.HoursThreshold)
	}
	if policy.LimitEnabled && policy.CancellationLimit <= 0 {
		return model.CancellationPolicy{}, model.NewError(model.ErrValidation, "cancellation limit must be positive when the limit is enabled")
	}
	switch policy.LimitPeriod {
	case model.LimitPeriodWeek, model.LimitPeriodMonth:
	case "":
		policy.LimitPeriod = model.LimitPeriodMonth
	default:
		return model.CancellationPolicy{}, model.NewError(model.ErrValidation, "unknown limit period %q", policy.LimitPeriod)
	}

	if err := s.policies.Upsert(ctx, policy); err != nil {
		return model.CancellationPolicy{}, err
	}

	s.logger.Info("Cancellation policy updated",
		zap.Int64("organization_id", policy.OrganizationID),
		zap.Bool("fee_enabled", policy.FeeEnabled),
		zap.Int("fee_percent", policy.FeePercent),
		zap.Bool("limit_enabled", policy.LimitEnabled),
	)

	return policy, nil
}
