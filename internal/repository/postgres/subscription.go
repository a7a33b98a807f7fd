package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/streamledger/vms-api/internal/model"
	"github.com/streamledger/vms-api/internal/repository"
)

type subscriptionRepository struct {
	BaseRepository
}

func NewSubscriptionRepository(base BaseRepository) repository.SubscriptionRepository {
	return &subscriptionRepository{base}
}

func (r *subscriptionRepository) RegisterOrganization(ctx context.Context, org *model.Organization, admin *model.User, trialPlan *model.Plan) error {
	now := time.Now()
	org.CreatedAt = now
	org.UpdatedAt = now

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		orgQuery := `
			INSERT INTO organizations (name, created_at, updated_at)
			VALUES ($1, $2, $3)
			RETURNING id
		`
		if err := tx.GetContext(ctx, &org.ID, orgQuery, org.Name, org.CreatedAt, org.UpdatedAt); err != nil {
			return err
		}

		admin.OrganizationID = org.ID
		admin.IsAdmin = true
		admin.IsActive = true
		admin.CreatedAt = now
		admin.UpdatedAt = now

		userQuery := `
			INSERT INTO users (organization_id, email, password_hash, is_admin, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`
		if err := tx.GetContext(ctx, &admin.ID, userQuery,
			admin.OrganizationID,
			admin.Email,
			admin.PasswordHash,
			admin.IsAdmin,
			admin.IsActive,
			admin.CreatedAt,
			admin.UpdatedAt,
		); err != nil {
			return err
		}

		sub := model.NewSubscriptionFromPlan(org.ID, trialPlan, now)
		return insertSubscription(ctx, tx, sub, now)
	})
	if err != nil {
		if mapped := mapError(err); mapped == repository.ErrDuplicate {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to register organization: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) SwitchToPlan(ctx context.Context, orgID int64, plan *model.Plan, now time.Time) (*model.Subscription, error) {
	var sub *model.Subscription

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		deactivate := `
			UPDATE organization_subscriptions
			SET is_active = false, end_date = $1, updated_at = $1
			WHERE organization_id = $2 AND is_active = true
		`
		result, err := tx.ExecContext(ctx, deactivate, now, orgID)
		if err != nil {
			return err
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		// Zero rows means the sweep or a concurrent switch got there
		// first; creating a follow-on row here would break the one
		// active subscription per organization invariant.
		if rows == 0 {
			return repository.ErrNoActiveSubscription
		}

		sub = model.NewSubscriptionFromPlan(orgID, plan, now)
		return insertSubscription(ctx, tx, sub, now)
	})
	if err != nil {
		if err == repository.ErrNoActiveSubscription {
			return nil, err
		}
		return nil, fmt.Errorf("failed to switch subscription plan: %w", err)
	}
	return sub, nil
}

func (r *subscriptionRepository) GetPlanByName(ctx context.Context, name string) (*model.Plan, error) {
	query := `SELECT * FROM organization_plans WHERE name = $1`

	var plan model.Plan
	if err := r.GetDB().GetContext(ctx, &plan, query, name); err != nil {
		if mapped := mapError(err); mapped == repository.ErrNotFound {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return &plan, nil
}

func (r *subscriptionRepository) IsPaidPlan(ctx context.Context, orgID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM organization_subscriptions s
			JOIN organization_plans p ON p.id = s.plan_id
			WHERE s.organization_id = $1
			  AND s.is_active = true
			  AND p.recoverable = true
		)
	`
	var paid bool
	if err := r.GetDB().GetContext(ctx, &paid, query, orgID); err != nil {
		return false, fmt.Errorf("failed to check paid plan: %w", err)
	}
	return paid, nil
}

func (r *subscriptionRepository) ExpireOverdue(ctx context.Context, trialPlan *model.Plan, now time.Time) (int, error) {
	var expired int

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		selectQuery := `
			SELECT s.organization_id
			FROM organization_subscriptions s
			JOIN organization_plans p ON p.id = s.plan_id
			WHERE s.is_active = true
			  AND s.end_date <= $1
			  AND p.price > 0
		`
		var orgIDs []int64
		if err := tx.SelectContext(ctx, &orgIDs, selectQuery, now); err != nil {
			return err
		}
		if len(orgIDs) == 0 {
			return nil
		}

		deactivate := `
			UPDATE organization_subscriptions
			SET is_active = false, end_date = $1, updated_at = $1
			WHERE organization_id = ANY($2)
			  AND is_active = true
			  AND end_date <= $1
		`
		if _, err := tx.ExecContext(ctx, deactivate, now, pq.Array(orgIDs)); err != nil {
			return err
		}

		reinstate := `
			INSERT INTO organization_subscriptions
				(organization_id, plan_id, start_date, end_date, is_active, created_at, updated_at)
			SELECT unnest($1::bigint[]), $2, $3, NULL, true, $3, $3
		`
		if _, err := tx.ExecContext(ctx, reinstate, pq.Array(orgIDs), trialPlan.ID, now); err != nil {
			return err
		}

		expired = len(orgIDs)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to expire overdue subscriptions: %w", err)
	}
	return expired, nil
}

func insertSubscription(ctx context.Context, tx *sqlx.Tx, sub *model.Subscription, now time.Time) error {
	sub.CreatedAt = now
	sub.UpdatedAt = now

	query := `
		INSERT INTO organization_subscriptions
			(organization_id, plan_id, start_date, end_date, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	return tx.GetContext(ctx, &sub.ID, query,
		sub.OrganizationID,
		sub.PlanID,
		sub.StartDate,
		sub.EndDate,
		sub.IsActive,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
}
