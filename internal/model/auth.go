package model

// LoginRequest authenticates a user within one organization; the same
// email may exist in several organizations.
type LoginRequest struct {
	OrganizationID int64  `json:"organization_id" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required"`
}

// RefreshRequest exchanges a refresh token for a fresh token pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}
