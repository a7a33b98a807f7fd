package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/streamledger/vms-api/internal/model"
	"github.com/streamledger/vms-api/internal/repository"
)

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

func (r *userRepository) Get(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT * FROM users WHERE id = $1 AND is_active = true`

	var user model.User
	if err := r.GetDB().GetContext(ctx, &user, query, id); err != nil {
		if mapped := mapError(err); mapped == repository.ErrNotFound {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmailAndOrg(ctx context.Context, email string, orgID int64) (*model.User, error) {
	query := `
		SELECT * FROM users
		WHERE email = $1 AND organization_id = $2 AND is_active = true
	`

	var user model.User
	if err := r.GetDB().GetContext(ctx, &user, query, email, orgID); err != nil {
		if mapped := mapError(err); mapped == repository.ErrNotFound {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (organization_id, email, password_hash, is_admin, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := r.GetDB().GetContext(ctx, &user.ID, query,
		user.OrganizationID,
		user.Email,
		user.PasswordHash,
		user.IsAdmin,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if mapped := mapError(err); mapped == repository.ErrDuplicate {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	query := `
		UPDATE users SET password_hash = $1, updated_at = $2
		WHERE id = $3 AND is_active = true
	`
	return r.execOne(ctx, query, passwordHash, time.Now(), userID)
}

func (r *userRepository) UpdateAdminStatus(ctx context.Context, userID int64, isAdmin bool) error {
	query := `
		UPDATE users SET is_admin = $1, updated_at = $2
		WHERE id = $3 AND is_active = true
	`
	return r.execOne(ctx, query, isAdmin, time.Now(), userID)
}

func (r *userRepository) SoftDelete(ctx context.Context, userID int64) error {
	now := time.Now()
	query := `
		UPDATE users SET is_active = false, deactivated_at = $1, updated_at = $1
		WHERE id = $2 AND is_active = true
	`
	return r.execOne(ctx, query, now, userID)
}

func (r *userRepository) execOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.GetDB().ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
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
