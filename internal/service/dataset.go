package service

import (
	"context"
	"log/slog"
	"time"

	"datashelf/internal/domain"
)

// DatasetService is the dataset catalog, with every read filtered through
// the access decision.
type DatasetService struct {
	datasets domain.DatasetRepository
	access   *AccessService
	sync     *GrantSyncService
	cascade  *CascadeService
	logger   *slog.Logger
}

// NewDatasetService creates a DatasetService.
func NewDatasetService(
	datasets domain.DatasetRepository,
	access *AccessService,
	sync *GrantSyncService,
	cascade *CascadeService,
	logger *slog.Logger,
) *DatasetService {
	return &DatasetService{
		datasets: datasets,
		access:   access,
		sync:     sync,
		cascade:  cascade,
		logger:   logger,
	}
}

// List returns the datasets visible to the principal, in catalog order.
func (s *DatasetService) List(ctx context.Context, p domain.Principal, includeDisabled bool) ([]domain.Dataset, error) {
	ids, err := s.access.VisibleDatasets(ctx, p, includeDisabled)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Dataset, 0, len(ids))
	for _, id := range ids {
		d, err := s.datasets.GetByID(ctx, id)
		if err != nil {
			continue // deleted between listing and load
		}
		out = append(out, *d)
	}
	return out, nil
}

// Get returns one dataset. An absent dataset and a dataset the principal
// may not see produce the same NotFoundError.
func (s *DatasetService) Get(ctx context.Context, p domain.Principal, id string) (*domain.Dataset, error) {
	canRead, err := s.access.CanRead(ctx, p, domain.ResourceDataset, id)
	if err != nil {
		return nil, err
	}
	if !canRead {
		return nil, domain.ErrNotFound("dataset %s not found", id)
	}
	return s.datasets.GetByID(ctx, id)
}

// Files returns the feature-file references of a visible dataset.
func (s *DatasetService) Files(ctx context.Context, p domain.Principal, id string) ([]domain.DatasetFile, error) {
	if _, err := s.Get(ctx, p, id); err != nil {
		return nil, err
	}
	return s.datasets.ListFiles(ctx, id)
}

// Create registers a new dataset. ADMIN and CONTENT_MANAGER only. A
// CONTENT_MANAGER creator is granted their own dataset so they keep
// access to it afterward; the requested initial grants are applied
// through the synchronizer.
func (s *DatasetService) Create(ctx context.Context, p domain.Principal, req domain.CreateDatasetRequest) (*domain.Dataset, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !usable(p) || !p.CanManageGrants() {
		return nil, domain.ErrAccessDenied("creating datasets requires ADMIN or CONTENT_MANAGER")
	}

	desired := req.GrantedAccountIDs
	if !p.IsAdmin() {
		desired = appendUnique(desired, p.AccountID)
	}
	// Validated before the row exists: a bad grant list rejects the whole
	// creation instead of leaving a dataset behind.
	if err := s.sync.ValidateCounterparts(ctx, domain.EntityDataset, desired); err != nil {
		return nil, err
	}

	d, err := s.datasets.Create(ctx, &domain.Dataset{
		Name:               req.Name,
		Description:        req.Description,
		Organism:           req.Organism,
		Technology:         req.Technology,
		Enabled:            req.Enabled,
		CreatedByAccountID: p.AccountID,
		ImageKey:           req.ImageKey,
	})
	if err != nil {
		return nil, err
	}

	// Seed, not Reconcile: the creator owns the dataset at creation time
	// and needs no pre-existing grant to assign its initial grantees.
	if len(desired) > 0 {
		if _, err := s.sync.Seed(ctx, domain.EntityDataset, d.ID, desired); err != nil {
			return nil, err
		}
	}

	s.logger.Info("dataset created", "dataset", d.ID, "name", d.Name, "principal", p.Username)
	return d, nil
}

// Update edits a dataset's descriptive fields and enabled flag.
func (s *DatasetService) Update(ctx context.Context, p domain.Principal, id string, req domain.UpdateDatasetRequest) (*domain.Dataset, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	canWrite, err := s.access.CanWrite(ctx, p, domain.ResourceDataset, id)
	if err != nil {
		return nil, err
	}
	if !canWrite {
		return nil, domain.ErrNotFound("dataset %s not found", id)
	}

	d, err := s.datasets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		d.Name = *req.Name
	}
	if req.Description != nil {
		d.Description = *req.Description
	}
	if req.Organism != nil {
		d.Organism = *req.Organism
	}
	if req.Technology != nil {
		d.Technology = *req.Technology
	}
	if req.Enabled != nil {
		d.Enabled = *req.Enabled
	}
	if req.ImageKey != nil {
		d.ImageKey = *req.ImageKey
	}
	return s.datasets.Update(ctx, d)
}

// SetGrants reconciles the dataset's granted accounts to the desired set.
func (s *DatasetService) SetGrants(ctx context.Context, p domain.Principal, id string, accountIDs []string, guard *time.Time) (*SyncResult, error) {
	return s.sync.Reconcile(ctx, p, domain.EntityDataset, id, accountIDs, guard)
}

// Delete removes a dataset through the cascade coordinator.
func (s *DatasetService) Delete(ctx context.Context, p domain.Principal, id string) (*domain.CascadeResult, error) {
	return s.cascade.DeleteDataset(ctx, p, id)
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
