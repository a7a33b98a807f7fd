package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamledger/vms-api/internal/model"
	"github.com/streamledger/vms-api/internal/repository"
	apperrors "github.com/streamledger/vms-api/pkg/errors"
	"github.com/streamledger/vms-api/pkg/logger"
)

var (
	trialDuration *int
	paidDuration  = 30

	trialPlan = &model.Plan{Base: model.Base{ID: 1}, Name: model.PlanTrial, Price: 0, Duration: trialDuration, Recoverable: false}
	paidPlan  = &model.Plan{Base: model.Base{ID: 2}, Name: model.PlanPaid, Price: 9900, Duration: &paidDuration, Recoverable: true}
)

type fakeSubRepo struct {
	registerErr error
	registered  *model.User
	switchErr   error
	switched    *model.Subscription
	paid        bool
	expired     int
	expireErr   error
	planCalls   int
	planErr     error
}

func (f *fakeSubRepo) RegisterOrganization(ctx context.Context, org *model.Organization, admin *model.User, plan *model.Plan) error {
	if f.registerErr != nil {
		return f.registerErr
	}
	org.ID = 10
	admin.ID = 20
	admin.OrganizationID = org.ID
	f.registered = admin
	return nil
}

func (f *fakeSubRepo) SwitchToPlan(ctx context.Context, orgID int64, plan *model.Plan, now time.Time) (*model.Subscription, error) {
	if f.switchErr != nil {
		return nil, f.switchErr
	}
	f.switched = model.NewSubscriptionFromPlan(orgID, plan, now)
	f.switched.ID = 30
	return f.switched, nil
}

func (f *fakeSubRepo) GetPlanByName(ctx context.Context, name string) (*model.Plan, error) {
	f.planCalls++
	if f.planErr != nil {
		return nil, f.planErr
	}
	if name == model.PlanPaid {
		return paidPlan, nil
	}
	return trialPlan, nil
}

func (f *fakeSubRepo) IsPaidPlan(ctx context.Context, orgID int64) (bool, error) {
	return f.paid, nil
}

func (f *fakeSubRepo) ExpireOverdue(ctx context.Context, plan *model.Plan, now time.Time) (int, error) {
	if f.expireErr != nil {
		return 0, f.expireErr
	}
	return f.expired, nil
}

type fakeOrgRepo struct {
	taken map[string]*model.Organization
}

func (f fakeOrgRepo) GetByName(ctx context.Context, name string) (*model.Organization, error) {
	if org, ok := f.taken[name]; ok {
		return org, nil
	}
	return nil, repository.ErrNotFound
}

type fakeHasher struct{ err error }

func (f fakeHasher) Hash(password string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "hashed:" + password, nil
}

type recordingEmail struct {
	sent []string
	err  error
}

func (r *recordingEmail) SendWelcome(ctx context.Context, to, orgName string) error {
	r.sent = append(r.sent, to)
	return r.err
}
func (r *recordingEmail) SendCustom(ctx context.Context, to, subject, content string) error {
	return r.err
}

func newTestService(repo *fakeSubRepo, mail *recordingEmail) *Service {
	return NewService(repo, fakeOrgRepo{}, fakeHasher{}, mail, logger.NewLogger(nil))
}

func TestRegisterOrganization(t *testing.T) {
	repo := &fakeSubRepo{}
	mail := &recordingEmail{}
	svc := newTestService(repo, mail)

	org, admin, err := svc.RegisterOrganization(context.Background(), &model.RegisterOrganizationRequest{
		Name:     "acme",
		Email:    "admin@acme.com",
		Password: "pw",
	})
	require.NoError(t, err)

	assert.Equal(t, "acme", org.Name)
	assert.Equal(t, "admin@acme.com", admin.Email)
	assert.True(t, admin.IsAdmin)
	assert.True(t, admin.IsActive)
	assert.Equal(t, "hashed:pw", admin.PasswordHash)
	assert.Equal(t, org.ID, admin.OrganizationID)
	assert.Equal(t, []string{"admin@acme.com"}, mail.sent)
}

func TestRegisterDuplicateNameConflicts(t *testing.T) {
	repo := &fakeSubRepo{registerErr: repository.ErrDuplicate}
	svc := newTestService(repo, &recordingEmail{})

	_, _, err := svc.RegisterOrganization(context.Background(), &model.RegisterOrganizationRequest{
		Name: "acme", Email: "a@b.c", Password: "pw",
	})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
}

func TestRegisterTakenNameRejectedBeforeInsert(t *testing.T) {
	repo := &fakeSubRepo{}
	svc := NewService(repo, fakeOrgRepo{
		taken: map[string]*model.Organization{"acme": {Base: model.Base{ID: 1}, Name: "acme"}},
	}, fakeHasher{}, &recordingEmail{}, logger.NewLogger(nil))

	_, _, err := svc.RegisterOrganization(context.Background(), &model.RegisterOrganizationRequest{
		Name: "acme", Email: "a@b.c", Password: "pw",
	})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
	assert.Nil(t, repo.registered, "insert must not be attempted for a taken name")
}

func TestRegisterEmailFailureIsNotFatal(t *testing.T) {
	repo := &fakeSubRepo{}
	mail := &recordingEmail{err: assert.AnError}
	svc := newTestService(repo, mail)

	_, _, err := svc.RegisterOrganization(context.Background(), &model.RegisterOrganizationRequest{
		Name: "acme", Email: "a@b.c", Password: "pw",
	})
	assert.NoError(t, err)
}

func TestUpgradeToPaid(t *testing.T) {
	repo := &fakeSubRepo{}
	svc := newTestService(repo, &recordingEmail{})

	sub, err := svc.UpgradeToPaid(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, model.PlanPaid, sub.PlanName)
	require.NotNil(t, sub.EndDate)
	wantEnd := repo.switched.StartDate.AddDate(0, 0, paidDuration)
	assert.WithinDuration(t, wantEnd, *sub.EndDate, time.Second)
}

func TestUpgradeRaceReportsUnavailable(t *testing.T) {
	repo := &fakeSubRepo{switchErr: repository.ErrNoActiveSubscription}
	svc := newTestService(repo, &recordingEmail{})

	_, err := svc.UpgradeToPaid(context.Background(), 10)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrUnavailable, appErr.Code)
}

func TestIsPaidReflectsRepo(t *testing.T) {
	repo := &fakeSubRepo{paid: true}
	svc := newTestService(repo, &recordingEmail{})

	paid, err := svc.IsPaid(context.Background(), 10)
	require.NoError(t, err)
	assert.True(t, paid)
}

func TestExpireOverdue(t *testing.T) {
	repo := &fakeSubRepo{expired: 3}
	svc := newTestService(repo, &recordingEmail{})

	n, err := svc.ExpireOverdue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPlanIsCachedAcrossCalls(t *testing.T) {
	repo := &fakeSubRepo{}
	svc := newTestService(repo, &recordingEmail{})

	_, err := svc.UpgradeToPaid(context.Background(), 10)
	require.NoError(t, err)
	_, err = svc.UpgradeToPaid(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.planCalls)
}

func TestMissingSeedPlanIsInternal(t *testing.T) {
	repo := &fakeSubRepo{planErr: repository.ErrNotFound}
	svc := newTestService(repo, &recordingEmail{})

	_, err := svc.UpgradeToPaid(context.Background(), 10)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrInternal, appErr.Code)
}
