package user

import (
	"context"
	"errors"

	"github.com/streamledger/vms-api/internal/model"
	"github.com/streamledger/vms-api/internal/repository"
	apperrors "github.com/streamledger/vms-api/pkg/errors"
	"github.com/streamledger/vms-api/pkg/security"
)

type Servicer interface {
	CreateUser(ctx context.Context, orgID int64, req *model.CreateUserRequest) (*model.User, error)
	UpdateUser(ctx context.Context, orgID, userID int64, req *model.AdminUpdateUserRequest) error
	UpdatePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error
	DeactivateUser(ctx context.Context, orgID, userID int64) error
	DeactivateSelf(ctx context.Context, userID int64) error
}

type Service struct {
	repo   repository.UserRepository
	hasher security.PasswordHasher
}

func NewService(repo repository.UserRepository, hasher security.PasswordHasher) *Service {
	return &Service{repo: repo, hasher: hasher}
}

// CreateUser adds a non-admin user to the admin's organization. When no
// password is supplied the email address doubles as the initial password.
func (s *Service) CreateUser(ctx context.Context, orgID int64, req *model.CreateUserRequest) (*model.User, error) {
	password := req.Email
	if req.Password != nil && *req.Password != "" {
		password = *req.Password
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperrors.Internal("failed to hash password", err)
	}

	user := &model.User{
		OrganizationID: orgID,
		Email:          req.Email,
		PasswordHash:   hash,
		IsAdmin:        false,
		IsActive:       true,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("email already registered in this organization", err)
		}
		return nil, apperrors.Internal("failed to create user", err)
	}
	return user, nil
}

// UpdateUser lets an admin reset a member's password or toggle their admin
// flag. The target must belong to the admin's organization.
func (s *Service) UpdateUser(ctx context.Context, orgID, userID int64, req *model.AdminUpdateUserRequest) error {
	target, err := s.get(ctx, userID)
	if err != nil {
		return err
	}
	if target.OrganizationID != orgID {
		return apperrors.NotFound("user", nil)
	}

	if req.NewPassword != nil {
		hash, err := s.hasher.Hash(*req.NewPassword)
		if err != nil {
			return apperrors.Internal("failed to hash password", err)
		}
		if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
			return s.mapNotFound(err, "failed to update password")
		}
	}

	if req.IsAdmin != nil {
		if err := s.repo.UpdateAdminStatus(ctx, userID, *req.IsAdmin); err != nil {
			return s.mapNotFound(err, "failed to update admin status")
		}
	}
	return nil
}

// UpdatePassword changes the caller's own password after verifying the
// current one.
func (s *Service) UpdatePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	user, err := s.get(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.hasher.Compare(user.PasswordHash, currentPassword); err != nil {
		return apperrors.Unauthorized("current password is incorrect", err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperrors.Internal("failed to hash password", err)
	}

	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return s.mapNotFound(err, "failed to update password")
	}
	return nil
}

// DeactivateUser soft-deletes a member of the admin's organization.
func (s *Service) DeactivateUser(ctx context.Context, orgID, userID int64) error {
	target, err := s.get(ctx, userID)
	if err != nil {
		return err
	}
	if target.OrganizationID != orgID {
		return apperrors.NotFound("user", nil)
	}
	if err := s.repo.SoftDelete(ctx, userID); err != nil {
		return s.mapNotFound(err, "failed to deactivate user")
	}
	return nil
}

// DeactivateSelf soft-deletes the caller's own account.
func (s *Service) DeactivateSelf(ctx context.Context, userID int64) error {
	if err := s.repo.SoftDelete(ctx, userID); err != nil {
		return s.mapNotFound(err, "failed to deactivate user")
	}
	return nil
}

func (s *Service) get(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, apperrors.Internal("failed to load user", err)
	}
	return user, nil
}

func (s *Service) mapNotFound(err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("user", err)
	}
	return apperrors.Internal(msg, err)
}
