package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamledger/vms-api/internal/model"
	"github.com/streamledger/vms-api/internal/repository"
	apperrors "github.com/streamledger/vms-api/pkg/errors"
)

type fakeUserRepo struct {
	users     map[int64]*model.User
	createErr error
	passwords map[int64]string
	deleted   []int64
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	repo := &fakeUserRepo{
		users:     make(map[int64]*model.User),
		passwords: make(map[int64]string),
	}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (f *fakeUserRepo) Get(ctx context.Context, id int64) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmailAndOrg(ctx context.Context, email string, orgID int64) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email && u.OrganizationID == orgID {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	user.ID = int64(len(f.users) + 100)
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	if _, ok := f.users[userID]; !ok {
		return repository.ErrNotFound
	}
	f.passwords[userID] = hash
	return nil
}

func (f *fakeUserRepo) UpdateAdminStatus(ctx context.Context, userID int64, isAdmin bool) error {
	u, ok := f.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.IsAdmin = isAdmin
	return nil
}

func (f *fakeUserRepo) SoftDelete(ctx context.Context, userID int64) error {
	if _, ok := f.users[userID]; !ok {
		return repository.ErrNotFound
	}
	f.deleted = append(f.deleted, userID)
	return nil
}

type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }
func (fakeHasher) Compare(hash, password string) error {
	if hash == "hashed:"+password {
		return nil
	}
	return assert.AnError
}

func member(id, orgID int64) *model.User {
	return &model.User{
		Base:           model.Base{ID: id},
		OrganizationID: orgID,
		Email:          "member@acme.com",
		PasswordHash:   "hashed:old",
		IsActive:       true,
	}
}

func TestCreateUserDefaultsPasswordToEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo, fakeHasher{})

	created, err := svc.CreateUser(context.Background(), 1, &model.CreateUserRequest{Email: "new@acme.com"})
	require.NoError(t, err)

	assert.Equal(t, "hashed:new@acme.com", created.PasswordHash)
	assert.Equal(t, int64(1), created.OrganizationID)
	assert.False(t, created.IsAdmin)
	assert.True(t, created.IsActive)
}

func TestCreateUserWithExplicitPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo, fakeHasher{})

	pw := "s3cret"
	created, err := svc.CreateUser(context.Background(), 1, &model.CreateUserRequest{Email: "new@acme.com", Password: &pw})
	require.NoError(t, err)
	assert.Equal(t, "hashed:s3cret", created.PasswordHash)
}

func TestCreateDuplicateEmailConflicts(t *testing.T) {
	repo := newFakeUserRepo()
	repo.createErr = repository.ErrDuplicate
	svc := NewService(repo, fakeHasher{})

	_, err := svc.CreateUser(context.Background(), 1, &model.CreateUserRequest{Email: "dup@acme.com"})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
}

func TestAdminUpdateIsOrgScoped(t *testing.T) {
	repo := newFakeUserRepo(member(5, 2))
	svc := NewService(repo, fakeHasher{})

	admin := true
	err := svc.UpdateUser(context.Background(), 1, 5, &model.AdminUpdateUserRequest{IsAdmin: &admin})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
}

func TestAdminUpdatePasswordAndRole(t *testing.T) {
	repo := newFakeUserRepo(member(5, 1))
	svc := NewService(repo, fakeHasher{})

	pw := "newpw"
	admin := true
	err := svc.UpdateUser(context.Background(), 1, 5, &model.AdminUpdateUserRequest{NewPassword: &pw, IsAdmin: &admin})
	require.NoError(t, err)

	assert.Equal(t, "hashed:newpw", repo.passwords[5])
	assert.True(t, repo.users[5].IsAdmin)
}

func TestUpdatePasswordChecksCurrent(t *testing.T) {
	repo := newFakeUserRepo(member(5, 1))
	svc := NewService(repo, fakeHasher{})

	err := svc.UpdatePassword(context.Background(), 5, "wrong", "newpw")
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)

	err = svc.UpdatePassword(context.Background(), 5, "old", "newpw")
	require.NoError(t, err)
	assert.Equal(t, "hashed:newpw", repo.passwords[5])
}

func TestDeactivateUserIsOrgScoped(t *testing.T) {
	repo := newFakeUserRepo(member(5, 2))
	svc := NewService(repo, fakeHasher{})

	err := svc.DeactivateUser(context.Background(), 1, 5)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
	assert.Empty(t, repo.deleted)
}

func TestDeactivateSelf(t *testing.T) {
	repo := newFakeUserRepo(member(5, 1))
	svc := NewService(repo, fakeHasher{})

	require.NoError(t, svc.DeactivateSelf(context.Background(), 5))
	assert.Equal(t, []int64{5}, repo.deleted)
}
