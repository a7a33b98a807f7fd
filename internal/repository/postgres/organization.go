package postgres

import (
	"context"
	"fmt"

	"github.com/streamledger/vms-api/internal/model"
	"github.com/streamledger/vms-api/internal/repository"
)

type organizationRepository struct {
	BaseRepository
}

func NewOrganizationRepository(base BaseRepository) repository.OrganizationRepository {
	return &organizationRepository{base}
}

func (r *organizationRepository) GetByName(ctx context.Context, name string) (*model.Organization, error) {
	query := `SELECT * FROM organizations WHERE name = $1`

	var org model.Organization
	if err := r.GetDB().GetContext(ctx, &org, query, name); err != nil {
		if mapped := mapError(err); mapped == repository.ErrNotFound {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get organization by name: %w", err)
	}
	return &org, nil
}
