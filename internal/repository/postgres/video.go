package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/streamledger/vms-api/internal/model"
	"github.com/streamledger/vms-api/internal/repository"
)

type videoRepository struct {
	BaseRepository
}

func NewVideoRepository(base BaseRepository) repository.VideoRepository {
	return &videoRepository{base}
}

func (r *videoRepository) Get(ctx context.Context, id int64) (*model.Video, error) {
	query := `SELECT * FROM videos WHERE id = $1 AND is_deleted = false`
	return r.getOne(ctx, query, id)
}

func (r *videoRepository) GetDeleted(ctx context.Context, id int64) (*model.Video, error) {
	query := `SELECT * FROM videos WHERE id = $1 AND is_deleted = true`
	return r.getOne(ctx, query, id)
}

func (r *videoRepository) List(ctx context.Context) ([]*model.Video, error) {
	query := `
		SELECT * FROM videos
		WHERE is_deleted = false AND path IS NOT NULL
		ORDER BY created_at DESC
	`
	var videos []*model.Video
	if err := r.GetDB().SelectContext(ctx, &videos, query); err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	return videos, nil
}

func (r *videoRepository) Create(ctx context.Context, video *model.Video) error {
	now := time.Now()
	video.CreatedAt = now
	video.UpdatedAt = now

	query := `
		INSERT INTO videos (user_id, organization_id, title, description, path, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, false, $6, $7)
		RETURNING id
	`
	err := r.GetDB().GetContext(ctx, &video.ID, query,
		video.UserID,
		video.OrganizationID,
		video.Title,
		video.Description,
		video.Path,
		video.CreatedAt,
		video.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create video: %w", err)
	}
	return nil
}

func (r *videoRepository) Update(ctx context.Context, id int64, path, title, description *string) error {
	query := `
		UPDATE videos
		SET path = COALESCE($1, path),
		    title = COALESCE($2, title),
		    description = COALESCE($3, description),
		    updated_at = $4
		WHERE id = $5 AND is_deleted = false
	`
	return r.execOne(ctx, query, path, title, description, time.Now(), id)
}

func (r *videoRepository) SoftDelete(ctx context.Context, id int64) error {
	now := time.Now()
	query := `
		UPDATE videos SET is_deleted = true, deleted_at = $1, updated_at = $1
		WHERE id = $2 AND is_deleted = false
	`
	return r.execOne(ctx, query, now, id)
}

func (r *videoRepository) Restore(ctx context.Context, id int64) error {
	query := `
		UPDATE videos SET is_deleted = false, deleted_at = NULL, updated_at = $1
		WHERE id = $2 AND is_deleted = true
	`
	return r.execOne(ctx, query, time.Now(), id)
}

func (r *videoRepository) getOne(ctx context.Context, query string, id int64) (*model.Video, error) {
	var video model.Video
	if err := r.GetDB().GetContext(ctx, &video, query, id); err != nil {
		if mapped := mapError(err); mapped == repository.ErrNotFound {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return &video, nil
}

func (r *videoRepository) execOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.GetDB().ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update video: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
