package video

import (
	"context"
	"errors"
	"io"
	"mime"
	"path/filepath"

	"github.com/streamledger/vms-api/internal/model"
	"github.com/streamledger/vms-api/internal/repository"
	"github.com/streamledger/vms-api/internal/storage"
	apperrors "github.com/streamledger/vms-api/pkg/errors"
	"github.com/streamledger/vms-api/pkg/logger"
	"github.com/streamledger/vms-api/pkg/messaging"
)

func init() {
	// Container formats the platform mime table often lacks.
	_ = mime.AddExtensionType(".mp4", "video/mp4")
	_ = mime.AddExtensionType(".webm", "video/webm")
	_ = mime.AddExtensionType(".mov", "video/quicktime")
	_ = mime.AddExtensionType(".mkv", "video/x-matroska")
}

type Servicer interface {
	List(ctx context.Context) ([]*model.Video, error)
	SubmitUpload(ctx context.Context, admin *model.User, title, description string, file io.Reader, filename string) error
	SubmitUpdate(ctx context.Context, admin *model.User, videoID int64, meta *model.VideoMetaUpdate, file io.Reader, filename string) (bool, error)
	SoftDelete(ctx context.Context, admin *model.User, videoID int64) error
	Restore(ctx context.Context, admin *model.User, videoID int64) error
	Stream(ctx context.Context, videoID int64) (*model.Video, io.ReadSeekCloser, int64, string, error)
}

type Service struct {
	repo   repository.VideoRepository
	store  *storage.Store
	broker messaging.Broker
	logger *logger.Logger
}

func NewService(repo repository.VideoRepository, store *storage.Store, broker messaging.Broker, log *logger.Logger) *Service {
	return &Service{repo: repo, store: store, broker: broker, logger: log}
}

// List returns every live video whose upload has completed. Viewing is not
// scoped to the caller's organization.
func (s *Service) List(ctx context.Context) ([]*model.Video, error) {
	videos, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to list videos", err)
	}
	return videos, nil
}

// SubmitUpload stages the file and enqueues the upload task. The caller gets
// acceptance, not a result; a failed task is only visible as a missing video.
func (s *Service) SubmitUpload(ctx context.Context, admin *model.User, title, description string, file io.Reader, filename string) error {
	tmpPath, err := s.store.SaveTemp(file, filename)
	if err != nil {
		return apperrors.Internal("failed to stage upload", err)
	}

	task := &model.UploadVideoTask{
		UserID:         admin.ID,
		OrganizationID: admin.OrganizationID,
		Title:          title,
		Description:    description,
		Filename:       filename,
		TmpPath:        tmpPath,
	}
	if err := s.enqueue(ctx, model.QueueVideoUpload, task); err != nil {
		s.store.Discard(tmpPath)
		return err
	}
	return nil
}

// SubmitUpdate applies an update to a video the admin owns. With a file the
// whole update goes through the queue and the caller gets acceptance (returns
// true); without one the metadata is applied synchronously (returns false).
func (s *Service) SubmitUpdate(ctx context.Context, admin *model.User, videoID int64, meta *model.VideoMetaUpdate, file io.Reader, filename string) (bool, error) {
	video, err := s.getModifiable(ctx, admin, videoID)
	if err != nil {
		return false, err
	}

	if file == nil {
		if err := s.repo.Update(ctx, video.ID, nil, meta.Title, meta.Description); err != nil {
			return false, apperrors.Internal("failed to update video", err)
		}
		return false, nil
	}

	tmpPath, err := s.store.SaveTemp(file, filename)
	if err != nil {
		return false, apperrors.Internal("failed to stage upload", err)
	}

	task := &model.UpdateVideoTask{
		VideoID:        video.ID,
		OrganizationID: video.OrganizationID,
		Title:          meta.Title,
		Description:    meta.Description,
		Filename:       &filename,
		TmpPath:        &tmpPath,
	}
	if err := s.enqueue(ctx, model.QueueVideoUpdate, task); err != nil {
		s.store.Discard(tmpPath)
		return false, err
	}
	return true, nil
}

// SoftDelete marks a video deleted. Only admins of the owning organization
// may delete.
func (s *Service) SoftDelete(ctx context.Context, admin *model.User, videoID int64) error {
	video, err := s.getModifiable(ctx, admin, videoID)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, video.ID); err != nil {
		return apperrors.Internal("failed to delete video", err)
	}
	return nil
}

// Restore brings back a soft-deleted video. Requires a paid plan, checked
// per request on the acting admin.
func (s *Service) Restore(ctx context.Context, admin *model.User, videoID int64) error {
	if !admin.IsPaid {
		return apperrors.Forbidden("restore requires a paid subscription", nil)
	}

	video, err := s.repo.GetDeleted(ctx, videoID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("video", err)
		}
		return apperrors.Internal("failed to load video", err)
	}
	if video.OrganizationID != admin.OrganizationID {
		return apperrors.Forbidden("video belongs to another organization", nil)
	}

	if err := s.repo.Restore(ctx, video.ID); err != nil {
		return apperrors.Internal("failed to restore video", err)
	}
	return nil
}

// Stream opens the stored file for a live video. Any authenticated user may
// stream any organization's videos.
func (s *Service) Stream(ctx context.Context, videoID int64) (*model.Video, io.ReadSeekCloser, int64, string, error) {
	video, err := s.repo.Get(ctx, videoID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, 0, "", apperrors.NotFound("video", err)
		}
		return nil, nil, 0, "", apperrors.Internal("failed to load video", err)
	}
	if video.Path == nil {
		// Upload task still in flight.
		return nil, nil, 0, "", apperrors.NotFound("video", nil)
	}

	reader, size, err := s.store.Open(*video.Path)
	if err != nil {
		return nil, nil, 0, "", apperrors.Internal("failed to open video file", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(*video.Path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return video, reader, size, contentType, nil
}

func (s *Service) getModifiable(ctx context.Context, admin *model.User, videoID int64) (*model.Video, error) {
	video, err := s.repo.Get(ctx, videoID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("video", err)
		}
		return nil, apperrors.Internal("failed to load video", err)
	}
	if video.OrganizationID != admin.OrganizationID {
		return nil, apperrors.Forbidden("video belongs to another organization", nil)
	}
	return video, nil
}

func (s *Service) enqueue(ctx context.Context, queue string, task interface{}) error {
	if err := s.broker.Enqueue(ctx, queue, task); err != nil {
		return apperrors.Unavailable("failed to enqueue task", err)
	}
	return nil
}
