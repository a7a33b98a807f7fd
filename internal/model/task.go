package model

// Task queue names. Tasks are fire-and-forget: the request path enqueues
// and returns, the worker either completes or logs and abandons.
const (
	QueueVideoUpload = "video:upload"
	QueueVideoUpdate = "video:update"
)

// UploadVideoTask creates a new video: the staged file is promoted into
// permanent storage first, then the metadata row is inserted. If the file
// move fails no row is created.
type UploadVideoTask struct {
	UserID         int64  `json:"user_id"`
	OrganizationID int64  `json:"organization_id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Filename       string `json:"filename"`
	TmpPath        string `json:"tmp_path"`
}

// UpdateVideoTask updates an existing video. Fields are applied only when
// present; a staged file is promoted before any metadata is touched.
type UpdateVideoTask struct {
	VideoID        int64   `json:"video_id"`
	OrganizationID int64   `json:"organization_id"`
	Title          *string `json:"title,omitempty"`
	Description    *string `json:"description,omitempty"`
	Filename       *string `json:"filename,omitempty"`
	TmpPath        *string `json:"tmp_path,omitempty"`
}
