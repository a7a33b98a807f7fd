package model

import (
	"time"
)

// Video metadata. Path is nil while an upload task is still in flight.
// Deleted videos are kept with is_deleted=true for paid-plan recovery.
type Video struct {
	Base
	UserID         int64      `json:"user_id" db:"user_id"`
	OrganizationID int64      `json:"organization_id" db:"organization_id"`
	Title          string     `json:"title" db:"title"`
	Description    string     `json:"description" db:"description"`
	Path           *string    `json:"path,omitempty" db:"path"`
	IsDeleted      bool       `json:"is_deleted" db:"is_deleted"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// VideoResponse is the caller-visible view of a video.
type VideoResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Path        *string   `json:"path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewVideoResponse maps a video to its response form.
func NewVideoResponse(v *Video) *VideoResponse {
	return &VideoResponse{
		ID:          v.ID,
		Title:       v.Title,
		Description: v.Description,
		Path:        v.Path,
		CreatedAt:   v.CreatedAt,
	}
}

// VideoMetaUpdate applies only the fields provided.
type VideoMetaUpdate struct {
	Title       *string
	Description *string
}
