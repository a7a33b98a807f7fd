package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/streamledger/vms-api/internal/model"
	"github.com/streamledger/vms-api/pkg/logger"
	"github.com/streamledger/vms-api/pkg/metrics"
)

var sweepMetrics = metrics.New("sweep_test")

type fakeSubscriptionService struct {
	expired int
	err     error
	calls   int
}

func (f *fakeSubscriptionService) RegisterOrganization(ctx context.Context, req *model.RegisterOrganizationRequest) (*model.Organization, *model.User, error) {
	return nil, nil, errors.New("not implemented")
}

func (f *fakeSubscriptionService) UpgradeToPaid(ctx context.Context, orgID int64) (*model.SubscriptionResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeSubscriptionService) IsPaid(ctx context.Context, orgID int64) (bool, error) {
	return false, nil
}

func (f *fakeSubscriptionService) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	f.calls++
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= 0 {
		return 0, context.DeadlineExceeded
	}
	return f.expired, f.err
}

func TestSweepRunExpiresOverdue(t *testing.T) {
	subs := &fakeSubscriptionService{expired: 3}
	sweeper := NewSubscriptionSweeper(subs, sweepMetrics, logger.NewLogger(nil))

	sweeper.Run()

	assert.Equal(t, 1, subs.calls)
}

func TestSweepRunSurvivesFailure(t *testing.T) {
	subs := &fakeSubscriptionService{err: errors.New("db down")}
	sweeper := NewSubscriptionSweeper(subs, sweepMetrics, logger.NewLogger(nil))

	assert.NotPanics(t, func() { sweeper.Run() })
	assert.Equal(t, 1, subs.calls)
}
