package auth

import (
	"context"
	"errors"

	"github.com/streamledger/vms-api/internal/model"
	"github.com/streamledger/vms-api/internal/repository"
	"github.com/streamledger/vms-api/pkg/auth"
	apperrors "github.com/streamledger/vms-api/pkg/errors"
	"github.com/streamledger/vms-api/pkg/security"
)

type Servicer interface {
	Login(ctx context.Context, req *model.LoginRequest) (*auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	CurrentUser(ctx context.Context, accessToken string) (*model.User, error)
}

type Service struct {
	users  repository.UserRepository
	subs   repository.SubscriptionRepository
	tokens auth.JWTService
	hasher security.PasswordHasher
}

func NewService(users repository.UserRepository, subs repository.SubscriptionRepository, tokens auth.JWTService, hasher security.PasswordHasher) *Service {
	return &Service{users: users, subs: subs, tokens: tokens, hasher: hasher}
}

// Login verifies credentials against the active user in the given
// organization and issues a token pair. The failure message never reveals
// whether the email exists.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*auth.TokenPair, error) {
	user, err := s.users.GetByEmailAndOrg(ctx, req.Email, req.OrganizationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid credentials", err)
		}
		return nil, apperrors.Internal("failed to load user", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, apperrors.Unauthorized("invalid credentials", err)
	}

	pair, err := s.tokens.GenerateTokenPair(user.ID)
	if err != nil {
		return nil, apperrors.Internal("failed to issue tokens", err)
	}
	return pair, nil
}

// Refresh exchanges a valid refresh token for a fresh pair, confirming the
// user is still active.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	userID, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token", err)
	}

	if _, err := s.users.Get(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized("user no longer active", err)
		}
		return nil, apperrors.Internal("failed to load user", err)
	}

	pair, err := s.tokens.GenerateTokenPair(userID)
	if err != nil {
		return nil, apperrors.Internal("failed to issue tokens", err)
	}
	return pair, nil
}

// CurrentUser resolves an access token to its active user and computes the
// paid flag from the organization's subscription at request time.
func (s *Service) CurrentUser(ctx context.Context, accessToken string) (*model.User, error) {
	userID, err := s.tokens.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired token", err)
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized("user no longer active", err)
		}
		return nil, apperrors.Internal("failed to load user", err)
	}

	paid, err := s.subs.IsPaidPlan(ctx, user.OrganizationID)
	if err != nil {
		return nil, apperrors.Internal("failed to check subscription", err)
	}
	user.IsPaid = paid
	return user, nil
}
