package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/streamledger/vms-api/internal/email"
	"github.com/streamledger/vms-api/internal/model"
	"github.com/streamledger/vms-api/internal/repository"
	apperrors "github.com/streamledger/vms-api/pkg/errors"
	"github.com/streamledger/vms-api/pkg/logger"
)

const (
	planCacheTTL     = 10 * time.Minute
	planCacheCleanup = 30 * time.Minute
)

type Servicer interface {
	RegisterOrganization(ctx context.Context, req *model.RegisterOrganizationRequest) (*model.Organization, *model.User, error)
	UpgradeToPaid(ctx context.Context, orgID int64) (*model.SubscriptionResponse, error)
	IsPaid(ctx context.Context, orgID int64) (bool, error)
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)
}

type Service struct {
	repo     repository.SubscriptionRepository
	orgRepo  repository.OrganizationRepository
	hasher   PasswordHasher
	emailSvc email.Service
	plans    *cache.Cache
	logger   *logger.Logger
}

type PasswordHasher interface {
	Hash(password string) (string, error)
}

func NewService(repo repository.SubscriptionRepository, orgRepo repository.OrganizationRepository, hasher PasswordHasher, emailSvc email.Service, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		orgRepo:  orgRepo,
		hasher:   hasher,
		emailSvc: emailSvc,
		plans:    cache.New(planCacheTTL, planCacheCleanup),
		logger:   log,
	}
}

// RegisterOrganization creates the organization, its first admin user and a
// trial subscription in one transaction. The welcome email is best-effort.
func (s *Service) RegisterOrganization(ctx context.Context, req *model.RegisterOrganizationRequest) (*model.Organization, *model.User, error) {
	trialPlan, err := s.plan(ctx, model.PlanTrial)
	if err != nil {
		return nil, nil, err
	}

	// Fast rejection for taken names; the unique constraint on
	// organizations.name is still the authority under concurrency.
	if _, err := s.orgRepo.GetByName(ctx, req.Name); err == nil {
		return nil, nil, apperrors.Conflict("organization name already registered", nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, apperrors.Internal("failed to check organization name", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, nil, apperrors.Internal("failed to hash password", err)
	}

	org := &model.Organization{Name: req.Name}
	admin := &model.User{
		Email:        req.Email,
		PasswordHash: hash,
		IsAdmin:      true,
		IsActive:     true,
	}

	if err := s.repo.RegisterOrganization(ctx, org, admin, trialPlan); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil, apperrors.Conflict("organization name already registered", err)
		}
		return nil, nil, apperrors.Internal("failed to register organization", err)
	}

	if err := s.emailSvc.SendWelcome(ctx, admin.Email, org.Name); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"organization_id": org.ID,
		}).Warn(err, "failed to send welcome email")
	}

	return org, admin, nil
}

// UpgradeToPaid expires the organization's active subscription and opens a
// paid one. An organization with no active subscription cannot upgrade.
func (s *Service) UpgradeToPaid(ctx context.Context, orgID int64) (*model.SubscriptionResponse, error) {
	paidPlan, err := s.plan(ctx, model.PlanPaid)
	if err != nil {
		return nil, err
	}

	sub, err := s.repo.SwitchToPlan(ctx, orgID, paidPlan, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNoActiveSubscription) {
			// Lost a race with the expiry sweep; the caller can retry against
			// the freshly created subscription.
			return nil, apperrors.Unavailable("subscription is being updated, retry shortly", err)
		}
		return nil, apperrors.Internal("failed to switch subscription", err)
	}
	return model.NewSubscriptionResponse(sub, paidPlan.Name), nil
}

// IsPaid reports whether the organization's active subscription is on a
// recoverable (paid) plan.
func (s *Service) IsPaid(ctx context.Context, orgID int64) (bool, error) {
	paid, err := s.repo.IsPaidPlan(ctx, orgID)
	if err != nil {
		return false, apperrors.Internal("failed to check subscription", err)
	}
	return paid, nil
}

// ExpireOverdue downgrades every organization whose paid subscription has
// passed its end date back to trial. Returns the number of organizations
// downgraded.
func (s *Service) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	trialPlan, err := s.plan(ctx, model.PlanTrial)
	if err != nil {
		return 0, err
	}

	n, err := s.repo.ExpireOverdue(ctx, trialPlan, now)
	if err != nil {
		return 0, apperrors.Internal("failed to expire subscriptions", err)
	}
	return n, nil
}

func (s *Service) plan(ctx context.Context, name string) (*model.Plan, error) {
	if cached, ok := s.plans.Get(name); ok {
		return cached.(*model.Plan), nil
	}

	plan, err := s.repo.GetPlanByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Internal(fmt.Sprintf("plan %s is not seeded", name), err)
		}
		return nil, apperrors.Internal("failed to load plan", err)
	}

	s.plans.Set(name, plan, cache.DefaultExpiration)
	return plan, nil
}
