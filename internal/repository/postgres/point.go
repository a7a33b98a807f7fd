package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/streamledger/vms-api/internal/model"
	"github.com/streamledger/vms-api/internal/repository"
)

type pointRepository struct {
	BaseRepository
}

func NewPointRepository(base BaseRepository) repository.PointRepository {
	return &pointRepository{base}
}

func (r *pointRepository) Create(ctx context.Context, point *model.UserVideoPoint) error {
	now := time.Now()
	point.CreatedAt = now
	point.UpdatedAt = now

	query := `
		INSERT INTO user_video_points (user_id, video_id, point, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.GetDB().GetContext(ctx, &point.ID, query,
		point.UserID,
		point.VideoID,
		point.Point,
		point.CreatedAt,
		point.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create point award: %w", err)
	}
	return nil
}
