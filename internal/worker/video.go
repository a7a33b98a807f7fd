package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streamledger/vms-api/internal/model"
	"github.com/streamledger/vms-api/internal/repository"
	"github.com/streamledger/vms-api/internal/storage"
	"github.com/streamledger/vms-api/pkg/logger"
)

// VideoTaskHandler executes the fire-and-forget upload and update tasks.
// Failures are returned for the runner to log and count; tasks are never
// retried, the submitter already got acceptance.
type VideoTaskHandler struct {
	repo   repository.VideoRepository
	store  *storage.Store
	logger *logger.Logger
}

func NewVideoTaskHandler(repo repository.VideoRepository, store *storage.Store, log *logger.Logger) *VideoTaskHandler {
	return &VideoTaskHandler{repo: repo, store: store, logger: log}
}

// HandleUpload promotes the staged file and then inserts the video row.
// A failed promotion aborts before any metadata exists.
func (h *VideoTaskHandler) HandleUpload(ctx context.Context, payload []byte) error {
	var task model.UploadVideoTask
	if err := json.Unmarshal(payload, &task); err != nil {
		return fmt.Errorf("malformed upload task: %w", err)
	}

	path, err := h.store.Promote(task.TmpPath, task.OrganizationID, task.Filename)
	if err != nil {
		return fmt.Errorf("failed to place upload for org %d: %w", task.OrganizationID, err)
	}

	video := &model.Video{
		UserID:         task.UserID,
		OrganizationID: task.OrganizationID,
		Title:          task.Title,
		Description:    task.Description,
		Path:           &path,
	}
	if err := h.repo.Create(ctx, video); err != nil {
		return fmt.Errorf("failed to create video row: %w", err)
	}

	h.logger.WithFields(map[string]interface{}{
		"video_id":        video.ID,
		"organization_id": video.OrganizationID,
	}).Info("video upload completed")
	return nil
}

// HandleUpdate promotes a staged replacement file if present, then applies
// whichever metadata fields the task carries. A failed promotion leaves the
// existing row untouched.
func (h *VideoTaskHandler) HandleUpdate(ctx context.Context, payload []byte) error {
	var task model.UpdateVideoTask
	if err := json.Unmarshal(payload, &task); err != nil {
		return fmt.Errorf("malformed update task: %w", err)
	}

	var path *string
	if task.TmpPath != nil {
		filename := ""
		if task.Filename != nil {
			filename = *task.Filename
		}
		promoted, err := h.store.Promote(*task.TmpPath, task.OrganizationID, filename)
		if err != nil {
			return fmt.Errorf("failed to place update for video %d: %w", task.VideoID, err)
		}
		path = &promoted
	}

	if err := h.repo.Update(ctx, task.VideoID, path, task.Title, task.Description); err != nil {
		return fmt.Errorf("failed to update video %d: %w", task.VideoID, err)
	}

	h.logger.WithFields(map[string]interface{}{
		"video_id": task.VideoID,
	}).Info("video update completed")
	return nil
}
