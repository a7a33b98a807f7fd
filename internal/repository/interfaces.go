package repository

import (
	"context"
	"errors"
	"time"

	"github.com/streamledger/vms-api/internal/model"
)

// Sentinel errors the service layer maps to caller-visible outcomes.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	// ErrNoActiveSubscription is reported when a predicated deactivate
	// touched zero rows, e.g. the sweep already expired the subscription.
	ErrNoActiveSubscription = errors.New("no active subscription")
)

// All repository interfaces in one file
type (
	OrganizationRepository interface {
		// GetByName returns ErrNotFound when no organization has the name.
		GetByName(ctx context.Context, name string) (*model.Organization, error)
	}

	// SubscriptionRepository owns every multi-row subscription transition;
	// each method runs in its own short-lived transaction.
	SubscriptionRepository interface {
		// RegisterOrganization inserts the organization, its initial admin
		// and an active trial subscription atomically. The admin's
		// OrganizationID and the subscription's OrganizationID are filled in.
		RegisterOrganization(ctx context.Context, org *model.Organization, admin *model.User, trialPlan *model.Plan) error
		// SwitchToPlan deactivates the organization's active subscription and
		// creates the replacement in one transaction. When the predicated
		// deactivate affects zero rows the transaction is aborted with
		// ErrNoActiveSubscription and no new row is created.
		SwitchToPlan(ctx context.Context, orgID int64, plan *model.Plan, now time.Time) (*model.Subscription, error)
		GetPlanByName(ctx context.Context, name string) (*model.Plan, error)
		// IsPaidPlan reports whether an active subscription exists whose
		// plan is recoverable. Recomputed on every call, never cached.
		IsPaidPlan(ctx context.Context, orgID int64) (bool, error)
		// ExpireOverdue deactivates every active paid subscription whose end
		// date has elapsed and creates an active trial subscription for each
		// affected organization, all in one transaction. Returns the number
		// of organizations reverted to trial.
		ExpireOverdue(ctx context.Context, trialPlan *model.Plan, now time.Time) (int, error)
	}

	UserRepository interface {
		// Get returns the active user, or ErrNotFound.
		Get(ctx context.Context, id int64) (*model.User, error)
		GetByEmailAndOrg(ctx context.Context, email string, orgID int64) (*model.User, error)
		// Create returns ErrDuplicate when the (organization, email) pair
		// already has an active user.
		Create(ctx context.Context, user *model.User) error
		UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
		UpdateAdminStatus(ctx context.Context, userID int64, isAdmin bool) error
		SoftDelete(ctx context.Context, userID int64) error
	}

	VideoRepository interface {
		// Get returns the live (non-deleted) video, or ErrNotFound.
		Get(ctx context.Context, id int64) (*model.Video, error)
		// GetDeleted returns the soft-deleted video, or ErrNotFound.
		GetDeleted(ctx context.Context, id int64) (*model.Video, error)
		// List returns live videos whose upload has completed.
		List(ctx context.Context) ([]*model.Video, error)
		Create(ctx context.Context, video *model.Video) error
		// Update applies only the non-nil fields to the live row.
		Update(ctx context.Context, id int64, path, title, description *string) error
		SoftDelete(ctx context.Context, id int64) error
		Restore(ctx context.Context, id int64) error
	}

	PointRepository interface {
		Create(ctx context.Context, point *model.UserVideoPoint) error
	}
)
