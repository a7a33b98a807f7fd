package model

import (
	"time"
)

// Plan name constants; the plans table is seed data and these rows are
// expected to exist.
const (
	PlanTrial = "TRIAL"
	PlanPaid  = "PAID"
)

// Organization is the root tenant boundary; every user, video and
// subscription belongs to exactly one organization.
type Organization struct {
	Base
	Name string `json:"name" db:"name"`
}

// Plan is immutable reference data describing a subscription tier.
// Duration is in days; nil means unbounded (the trial tier).
type Plan struct {
	Base
	Name        string  `json:"name" db:"name"`
	Description *string `json:"description,omitempty" db:"description"`
	Price       int     `json:"price" db:"price"`
	Duration    *int    `json:"duration,omitempty" db:"duration"`
	Recoverable bool    `json:"recoverable" db:"recoverable"`
}

// Subscription ties an organization to a plan for a period of time.
// At most one subscription per organization is active at any time.
type Subscription struct {
	Base
	OrganizationID int64      `json:"organization_id" db:"organization_id"`
	PlanID         int64      `json:"plan_id" db:"plan_id"`
	StartDate      time.Time  `json:"start_date" db:"start_date"`
	EndDate        *time.Time `json:"end_date,omitempty" db:"end_date"`
	IsActive       bool       `json:"is_active" db:"is_active"`
}

// NewSubscriptionFromPlan builds a subscription for the organization with
// the end date derived from the plan duration; unbounded plans get none.
func NewSubscriptionFromPlan(orgID int64, plan *Plan, now time.Time) *Subscription {
	var end *time.Time
	if plan.Duration != nil {
		e := now.AddDate(0, 0, *plan.Duration)
		end = &e
	}
	return &Subscription{
		OrganizationID: orgID,
		PlanID:         plan.ID,
		StartDate:      now,
		EndDate:        end,
		IsActive:       true,
	}
}

// RegisterOrganizationRequest registers an organization together with its
// initial admin account.
type RegisterOrganizationRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=4"`
}

// SubscriptionResponse is the caller-visible view of a subscription.
type SubscriptionResponse struct {
	ID        int64      `json:"id"`
	PlanName  string     `json:"plan_name"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// NewSubscriptionResponse maps a subscription to its response form.
func NewSubscriptionResponse(s *Subscription, planName string) *SubscriptionResponse {
	return &SubscriptionResponse{
		ID:        s.ID,
		PlanName:  planName,
		StartDate: s.StartDate,
		EndDate:   s.EndDate,
	}
}
