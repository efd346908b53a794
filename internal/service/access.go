// Package service implements the access-control and grant-consistency core:
// the access decision engine, grant synchronizer, and cascade delete
// coordinator, plus the account/dataset/grant services layered on them.
package service

import (
	"context"
	"fmt"

	"datashelf/internal/domain"
	"datashelf/internal/metrics"
)

// AccessService is the single policy engine. Every role check in the
// system goes through it; no service performs inline role comparisons.
//
// Decisions for an unresolved (zero) or disabled principal always deny
// and never error, so pre-authentication calls degrade to "no access"
// rather than failing on an unrelated path.
type AccessService struct {
	accounts domain.AccountRepository
	datasets domain.DatasetRepository
	grants   domain.GrantRepository
}

// NewAccessService creates an AccessService backed by the given repositories.
func NewAccessService(
	accounts domain.AccountRepository,
	datasets domain.DatasetRepository,
	grants domain.GrantRepository,
) *AccessService {
	return &AccessService{accounts: accounts, datasets: datasets, grants: grants}
}

// usable reports whether the principal can be granted anything at all.
func usable(p domain.Principal) bool {
	return p.AccountID != "" && p.Enabled
}

// hasGrant checks for a grant linking the principal's account to the dataset.
func (s *AccessService) hasGrant(ctx context.Context, accountID, datasetID string) (bool, error) {
	grants, err := s.grants.FindByAccount(ctx, accountID)
	if err != nil {
		return false, fmt.Errorf("find grants for account %s: %w", accountID, err)
	}
	for _, g := range grants {
		if g.DatasetID == datasetID {
			return true, nil
		}
	}
	return false, nil
}

// CanRead reports whether the principal may read the resource.
//
// Dataset reads additionally require the dataset to be enabled; disabled
// datasets are readable only by ADMIN, or through the include-disabled
// listing variant for privileged grantees.
func (s *AccessService) CanRead(ctx context.Context, p domain.Principal, resourceType, resourceID string) (bool, error) {
	allowed, err := s.canRead(ctx, p, resourceType, resourceID)
	metrics.ObserveDecision("read", allowed, err)
	return allowed, err
}

func (s *AccessService) canRead(ctx context.Context, p domain.Principal, resourceType, resourceID string) (bool, error) {
	if !usable(p) {
		return false, nil
	}
	switch resourceType {
	case domain.ResourceAccount:
		return p.IsAdmin() || p.AccountID == resourceID, nil

	case domain.ResourceDataset:
		if p.IsAdmin() {
			return true, nil
		}
		ok, err := s.hasGrant(ctx, p.AccountID, resourceID)
		if err != nil || !ok {
			return false, err
		}
		d, err := s.datasets.GetByID(ctx, resourceID)
		if err != nil {
			return false, nil // vanished concurrently: no access
		}
		return d.Enabled, nil

	case domain.ResourceGrant:
		if p.CanManageGrants() {
			return true, nil
		}
		// A USER may only see grants referencing their own account.
		g, err := s.grants.GetByID(ctx, resourceID)
		if err != nil {
			return false, nil
		}
		return g.AccountID == p.AccountID, nil

	default:
		return false, fmt.Errorf("unknown resource type: %s", resourceType)
	}
}

// CanWrite reports whether the principal may modify the resource.
func (s *AccessService) CanWrite(ctx context.Context, p domain.Principal, resourceType, resourceID string) (bool, error) {
	allowed, err := s.canWrite(ctx, p, resourceType, resourceID)
	metrics.ObserveDecision("write", allowed, err)
	return allowed, err
}

func (s *AccessService) canWrite(ctx context.Context, p domain.Principal, resourceType, resourceID string) (bool, error) {
	if !usable(p) {
		return false, nil
	}
	switch resourceType {
	case domain.ResourceAccount:
		return p.IsAdmin() || p.AccountID == resourceID, nil

	case domain.ResourceDataset:
		if p.IsAdmin() {
			return true, nil
		}
		// Grant-gated for CONTENT_MANAGER and USER alike; writes do not
		// require the dataset to be enabled.
		return s.hasGrant(ctx, p.AccountID, resourceID)

	case domain.ResourceGrant:
		return p.CanManageGrants(), nil

	default:
		return false, fmt.Errorf("unknown resource type: %s", resourceType)
	}
}

// CanDelete reports whether the principal may delete the resource.
// Only ADMIN may delete accounts; dataset deletion is grant-gated for
// non-admins like any other write.
func (s *AccessService) CanDelete(ctx context.Context, p domain.Principal, resourceType, resourceID string) (bool, error) {
	allowed, err := s.canDelete(ctx, p, resourceType, resourceID)
	metrics.ObserveDecision("delete", allowed, err)
	return allowed, err
}

func (s *AccessService) canDelete(ctx context.Context, p domain.Principal, resourceType, resourceID string) (bool, error) {
	if !usable(p) {
		return false, nil
	}
	switch resourceType {
	case domain.ResourceAccount:
		return p.IsAdmin(), nil

	case domain.ResourceDataset:
		if p.IsAdmin() {
			return true, nil
		}
		return s.hasGrant(ctx, p.AccountID, resourceID)

	case domain.ResourceGrant:
		return p.CanManageGrants(), nil

	default:
		return false, fmt.Errorf("unknown resource type: %s", resourceType)
	}
}

// VisibleDatasets returns the ids of every dataset the principal may see.
// ADMIN sees all; everyone else sees the datasets their grants reference,
// filtered to enabled datasets unless includeDisabled is set and the
// principal is privileged enough (CONTENT_MANAGER) to ask for it.
func (s *AccessService) VisibleDatasets(ctx context.Context, p domain.Principal, includeDisabled bool) ([]string, error) {
	if !usable(p) {
		return nil, nil
	}

	if p.IsAdmin() {
		var ids []string
		page := domain.PageRequest{MaxResults: domain.MaxMaxResults}
		for {
			ds, total, err := s.datasets.List(ctx, page)
			if err != nil {
				return nil, err
			}
			for _, d := range ds {
				if d.Enabled || includeDisabled {
					ids = append(ids, d.ID)
				}
			}
			next := domain.NextPageToken(page.Offset(), page.Limit(), total)
			if next == "" {
				return ids, nil
			}
			page.PageToken = next
		}
	}

	// Only CONTENT_MANAGER may opt in to disabled datasets; for USER the
	// flag is ignored rather than rejected.
	includeDisabled = includeDisabled && p.Role == domain.RoleContentManager

	grants, err := s.grants.FindByAccount(ctx, p.AccountID)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, g := range grants {
		d, err := s.datasets.GetByID(ctx, g.DatasetID)
		if err != nil {
			continue // orphaned grant: skip, the integrity sweep removes it
		}
		if d.Enabled || includeDisabled {
			ids = append(ids, d.ID)
		}
	}
	return ids, nil
}
