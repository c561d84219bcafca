package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/meterbill/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PricingService manages tariffs and resolves the rule for a meter
type PricingService struct {
	deps
}

// NewPricingService creates a new PricingService
func NewPricingService(scope TransactionScope, cfg Config, opts ...Option) *PricingService {
	return &PricingService{deps: newDeps(scope, cfg, opts)}
}

// Resolve returns the active rule for the key under the configured fallback policy
func (s *PricingService) Resolve(ctx context.Context, businessID uuid.UUID, meterType billing.MeterType, usageType billing.UsageType) (*billing.PricingRule, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "pricing", "resolve")
	defer span.End()

	var rule *billing.PricingRule
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		candidates, err := repos.PricingRules().FindActiveByBusiness(ctx, businessID)
		if err != nil {
			return err
		}
		rule, err = billing.ResolveRule(candidates, businessID, meterType, usageType, s.cfg.PricingFallback)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return rule, nil
}

// CreateRule stores a new active rule and retires the previous one for the
// same key. A default rule replaces the business's former default.
func (s *PricingService) CreateRule(ctx context.Context, in CreatePricingRuleInput) (*billing.PricingRule, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "pricing", "create_rule")
	defer span.End()

	rule, err := billing.NewPricingRule(in.BusinessID, in.MeterType, in.UsageType,
		in.SubscriptionFee, in.Rate, in.DepositAmount, in.DepositRequired, in.Tiers)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var retired int64
	err = s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		if retired, err = repos.PricingRules().DeactivateMatching(ctx, rule); err != nil {
			return err
		}
		if in.IsDefault {
			if err := repos.PricingRules().ClearDefault(ctx, rule.BusinessID); err != nil {
				return err
			}
			rule.MarkDefault()
		}
		return repos.PricingRules().Create(ctx, rule)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("pricing rule created",
		zap.String("rule_id", rule.ID.String()),
		zap.String("business_id", rule.BusinessID.String()),
		zap.String("meter_type", string(rule.MeterType)),
		zap.String("usage_type", string(rule.UsageType)),
		zap.Int64("retired", retired))
	return rule, nil
}

// ListRules lists pricing rules
func (s *PricingService) ListRules(ctx context.Context, filter billing.PricingRuleFilter) ([]*billing.PricingRule, int64, error) {
	var (
		rules []*billing.PricingRule
		total int64
	)
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		rules, total, err = repos.PricingRules().FindAll(ctx, filter)
		return err
	})
	return rules, total, err
}

// DeactivateRule retires a rule. Issued invoices keep their amounts.
func (s *PricingService) DeactivateRule(ctx context.Context, id uuid.UUID) (*billing.PricingRule, error) {
	var rule *billing.PricingRule
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		r, err := repos.PricingRules().FindByID(ctx, id)
		if err != nil {
			return err
		}
		r.Deactivate()
		rule = r
		return repos.PricingRules().Save(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("pricing rule deactivated", zap.String("rule_id", id.String()))
	return rule, nil
}

// SeedRules creates the given rules unless an active rule for the key already
// exists. It returns how many rules were created.
func (s *PricingService) SeedRules(ctx context.Context, rules []CreatePricingRuleInput) (int, error) {
	created := 0
	for _, in := range rules {
		var exists bool
		err := s.scope.Execute(ctx, func(repos Repositories) error {
			active, err := repos.PricingRules().FindActiveByBusiness(ctx, in.BusinessID)
			if err != nil {
				return err
			}
			for _, r := range active {
				if r.Matches(in.BusinessID, in.MeterType, in.UsageType) {
					exists = true
					break
				}
			}
			return nil
		})
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}
		if _, err := s.CreateRule(ctx, in); err != nil {
			return created, err
		}
		created++
	}
	if created > 0 {
		s.logger.Info("pricing rules seeded", zap.Int("created", created))
	}
	return created, nil
}
