package point

import (
	"context"
	"errors"
	"fmt"

	"github.com/streamledger/vms-api/internal/model"
	"github.com/streamledger/vms-api/internal/repository"
	apperrors "github.com/streamledger/vms-api/pkg/errors"
	"github.com/streamledger/vms-api/pkg/logger"
	"github.com/streamledger/vms-api/pkg/metrics"
	"github.com/streamledger/vms-api/pkg/redlock"
)

type Servicer interface {
	AwardViewPoint(ctx context.Context, userID, videoID int64) (*model.UserVideoPoint, error)
}

type Service struct {
	repo    repository.PointRepository
	locks   *redlock.Manager
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewService(repo repository.PointRepository, locks *redlock.Manager, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{repo: repo, locks: locks, metrics: m, logger: log}
}

// AwardViewPoint records a view point for the user/video pair. A distributed
// lock per pair serializes concurrent views from the same user; a caller that
// cannot get the lock is told to retry rather than silently dropped.
func (s *Service) AwardViewPoint(ctx context.Context, userID, videoID int64) (*model.UserVideoPoint, error) {
	key := fmt.Sprintf("user_id:%d:video:%d:lock", userID, videoID)

	lock, err := s.locks.Acquire(ctx, key)
	if err != nil {
		s.metrics.LockFailed.Inc()
		if errors.Is(err, redlock.ErrLockUnavailable) {
			return nil, apperrors.RateLimited("view already being recorded, retry shortly", err)
		}
		return nil, apperrors.Unavailable("failed to coordinate view recording", err)
	}
	s.metrics.LockAcquired.Inc()
	defer func() {
		if err := s.locks.Release(ctx, lock); err != nil {
			s.logger.WithFields(map[string]interface{}{
				"key": key,
			}).Warn(err, "failed to release view lock")
		}
	}()

	award := &model.UserVideoPoint{
		UserID:  userID,
		VideoID: videoID,
		Point:   model.DefaultViewPoint,
	}
	if err := s.repo.Create(ctx, award); err != nil {
		return nil, apperrors.RateLimited("failed to record view point, retry shortly", err)
	}

	s.metrics.PointsAwarded.Add(float64(award.Point))
	return award, nil
}
