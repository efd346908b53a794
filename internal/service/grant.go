package service

import (
	"context"
	"log/slog"

	"datashelf/internal/domain"
)

// GrantService exposes grant CRUD plus the derived views
// (granted datasets of an account, granted accounts of a dataset).
// The underlying store is unfiltered; every permission decision here is
// delegated to the access service.
type GrantService struct {
	grants   domain.GrantRepository
	accounts domain.AccountRepository
	datasets domain.DatasetRepository
	access   *AccessService
	logger   *slog.Logger
}

// NewGrantService creates a GrantService.
func NewGrantService(
	grants domain.GrantRepository,
	accounts domain.AccountRepository,
	datasets domain.DatasetRepository,
	access *AccessService,
	logger *slog.Logger,
) *GrantService {
	return &GrantService{
		grants:   grants,
		accounts: accounts,
		datasets: datasets,
		access:   access,
		logger:   logger,
	}
}

// Create inserts a single grant. Only ADMIN and CONTENT_MANAGER may
// create arbitrary grants; both referenced entities must exist.
func (s *GrantService) Create(ctx context.Context, p domain.Principal, req domain.CreateGrantRequest) (*domain.Grant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	canWrite, err := s.access.CanWrite(ctx, p, domain.ResourceGrant, "")
	if err != nil {
		return nil, err
	}
	if !canWrite {
		return nil, domain.ErrAccessDenied("not allowed to create grants")
	}

	if _, err := s.accounts.GetByID(ctx, req.AccountID); err != nil {
		return nil, domain.ErrValidation("account %s does not exist", req.AccountID)
	}
	if _, err := s.datasets.GetByID(ctx, req.DatasetID); err != nil {
		return nil, domain.ErrValidation("dataset %s does not exist", req.DatasetID)
	}

	g, err := s.grants.Add(ctx, &domain.Grant{
		AccountID: req.AccountID,
		DatasetID: req.DatasetID,
		Comment:   req.Comment,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("grant created", "grant", g.ID,
		"account", g.AccountID, "dataset", g.DatasetID, "principal", p.Username)
	return g, nil
}

// Revoke removes a single grant by id.
func (s *GrantService) Revoke(ctx context.Context, p domain.Principal, grantID string) error {
	g, err := s.grants.GetByID(ctx, grantID)
	if err != nil {
		return err
	}
	canDelete, err := s.access.CanDelete(ctx, p, domain.ResourceGrant, grantID)
	if err != nil {
		return err
	}
	if !canDelete {
		return domain.ErrNotFound("grant %s not found", grantID)
	}
	if err := s.grants.Remove(ctx, grantID); err != nil {
		return err
	}
	s.logger.Info("grant revoked", "grant", g.ID,
		"account", g.AccountID, "dataset", g.DatasetID, "principal", p.Username)
	return nil
}

// List returns grants visible to the principal: all of them for ADMIN and
// CONTENT_MANAGER, only the principal's own for USER.
func (s *GrantService) List(ctx context.Context, p domain.Principal, page domain.PageRequest) ([]domain.Grant, int64, error) {
	if !usable(p) {
		return nil, 0, domain.ErrUnauthenticated("no principal")
	}
	if p.CanManageGrants() {
		return s.grants.FindAll(ctx, page)
	}
	grants, err := s.grants.FindByAccount(ctx, p.AccountID)
	if err != nil {
		return nil, 0, err
	}
	return grants, int64(len(grants)), nil
}

// GrantedDatasets is the derived `granted_datasets` view of an account.
func (s *GrantService) GrantedDatasets(ctx context.Context, p domain.Principal, accountID string) ([]domain.Grant, error) {
	canRead, err := s.access.CanRead(ctx, p, domain.ResourceAccount, accountID)
	if err != nil {
		return nil, err
	}
	if !canRead {
		return nil, domain.ErrNotFound("account %s not found", accountID)
	}
	return s.grants.FindByAccount(ctx, accountID)
}

// GrantedAccounts is the derived `granted_accounts` view of a dataset.
// Enumerating a dataset's grantees reveals other accounts, so it is
// restricted to grant managers.
func (s *GrantService) GrantedAccounts(ctx context.Context, p domain.Principal, datasetID string) ([]domain.Grant, error) {
	canRead, err := s.access.CanRead(ctx, p, domain.ResourceDataset, datasetID)
	if err != nil {
		return nil, err
	}
	if !canRead || !p.CanManageGrants() {
		return nil, domain.ErrNotFound("dataset %s not found", datasetID)
	}
	return s.grants.FindByDataset(ctx, datasetID)
}
