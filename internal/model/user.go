package model

import (
	"time"
)

// DefaultViewPoint is the number of points awarded for one video view.
const DefaultViewPoint = 10

// User is a member of an organization. Emails are unique within an
// organization, not globally. Deleted users are kept with is_active=false.
type User struct {
	Base
	OrganizationID int64      `json:"organization_id" db:"organization_id"`
	Email          string     `json:"email" db:"email"`
	PasswordHash   string     `json:"-" db:"password_hash"`
	IsAdmin        bool       `json:"is_admin" db:"is_admin"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	DeactivatedAt  *time.Time `json:"deactivated_at,omitempty" db:"deactivated_at"`

	// IsPaid is computed per request from the organization's current
	// subscription; it is never persisted.
	IsPaid bool `json:"is_paid" db:"-"`
}

// UserVideoPoint records one point award for one view event. A user may
// accumulate multiple rows for the same video across repeated views.
type UserVideoPoint struct {
	Base
	UserID  int64 `json:"user_id" db:"user_id"`
	VideoID int64 `json:"video_id" db:"video_id"`
	Point   int   `json:"point" db:"point"`
}

// CreateUserRequest creates a regular user in the admin's organization.
// A missing password defaults to the email address.
type CreateUserRequest struct {
	Email    string  `json:"email" binding:"required,email"`
	Password *string `json:"password" binding:"omitempty,min=4"`
}

// AdminUpdateUserRequest updates another user's password and/or admin flag.
type AdminUpdateUserRequest struct {
	NewPassword *string `json:"new_password" binding:"omitempty,min=4"`
	IsAdmin     *bool   `json:"is_admin"`
}

// UpdatePasswordRequest changes the caller's own password.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=4"`
}

// UserResponse is the caller-visible view of a user.
type UserResponse struct {
	ID               int64  `json:"id"`
	Email            string `json:"email"`
	OrganizationName string `json:"organization_name,omitempty"`
	Role             string `json:"role"`
}

// NewUserResponse maps a user to its response form.
func NewUserResponse(u *User, orgName string) *UserResponse {
	role := "guest"
	if u.IsAdmin {
		role = "admin"
	}
	return &UserResponse{
		ID:               u.ID,
		Email:            u.Email,
		OrganizationName: orgName,
		Role:             role,
	}
}
