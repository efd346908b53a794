package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"datashelf/internal/domain"
	"datashelf/internal/metrics"
)

// GrantSyncService reconciles the grant relation of one entity to a
// desired counterpart set using the minimal diff: grants present in both
// sets are left untouched, so their ids and comments survive and there is
// never a zero-grant window mid-update.
//
// Reconcile is idempotent: a second call with the same desired set
// performs zero inserts and deletes.
type GrantSyncService struct {
	grants   domain.GrantRepository
	accounts domain.AccountRepository
	datasets domain.DatasetRepository
	access   *AccessService
	logger   *slog.Logger
}

// NewGrantSyncService creates a GrantSyncService.
func NewGrantSyncService(
	grants domain.GrantRepository,
	accounts domain.AccountRepository,
	datasets domain.DatasetRepository,
	access *AccessService,
	logger *slog.Logger,
) *GrantSyncService {
	return &GrantSyncService{
		grants:   grants,
		accounts: accounts,
		datasets: datasets,
		access:   access,
		logger:   logger,
	}
}

// SyncResult reports what a reconcile call changed.
type SyncResult struct {
	Added   int
	Removed int
}

// Reconcile brings the grants of the entity (an account or a dataset) in
// line with desired, the set of counterpart ids that should be granted.
// An empty desired set clears all grants for the entity.
//
// guard, when non-nil, is an optimistic-concurrency check: if the entity
// was modified after the given time the call fails with ConflictError and
// changes nothing. Without a guard, concurrent reconciles against the
// same entity race last-writer-wins.
//
// Multi-row application is not atomic: a crash mid-call can leave a
// partially applied diff, which a repeated Reconcile completes.
func (s *GrantSyncService) Reconcile(ctx context.Context, p domain.Principal, entityType, entityID string, desired []string, guard *time.Time) (*SyncResult, error) {
	if entityType != domain.EntityAccount && entityType != domain.EntityDataset {
		return nil, domain.ErrValidation("entity type must be %q or %q", domain.EntityAccount, domain.EntityDataset)
	}

	// Editing grant membership both mutates the entity and creates
	// grants, so it needs write access to the entity and the
	// grant-management capability.
	resource := domain.ResourceAccount
	if entityType == domain.EntityDataset {
		resource = domain.ResourceDataset
	}
	canWrite, err := s.access.CanWrite(ctx, p, resource, entityID)
	if err != nil {
		return nil, err
	}
	if !canWrite || !p.CanManageGrants() {
		return nil, domain.ErrAccessDenied("not allowed to edit grants of %s %s", entityType, entityID)
	}

	lastModified, err := s.entityLastModified(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	if guard != nil && lastModified.Truncate(time.Second).After(guard.Truncate(time.Second)) {
		return nil, domain.ErrConflict("%s %s was modified at %s, after the guard timestamp",
			entityType, entityID, lastModified.UTC().Format(time.RFC3339))
	}

	if err := s.ValidateCounterparts(ctx, entityType, desired); err != nil {
		return nil, err
	}

	result, err := s.apply(ctx, entityType, entityID, desired)
	if err != nil {
		return nil, err
	}

	if result.Added > 0 || result.Removed > 0 {
		if err := s.touchEntity(ctx, entityType, entityID); err != nil {
			s.logger.Warn("touch entity after grant sync", "entity", entityID, "error", err)
		}
		s.logger.Info("grants reconciled",
			"entity_type", entityType, "entity_id", entityID,
			"added", result.Added, "removed", result.Removed, "principal", p.Username)
	}
	return result, nil
}

// ValidateCounterparts checks that every id in desired references an
// existing counterpart of the entity type. Creation paths call it before
// inserting the entity row, so a bad grant list never leaves a row behind.
func (s *GrantSyncService) ValidateCounterparts(ctx context.Context, entityType string, desired []string) error {
	for _, id := range desired {
		if err := s.counterpartExists(ctx, entityType, id); err != nil {
			return err
		}
	}
	return nil
}

// Seed applies the initial grant set of a freshly created entity. No
// access check runs here: the caller has just authorized the creation
// itself, and the creator holds write access to the new entity by virtue
// of owning it, even before any self-grant exists. Counterparts must have
// been validated with ValidateCounterparts before the entity row was
// inserted.
func (s *GrantSyncService) Seed(ctx context.Context, entityType, entityID string, desired []string) (*SyncResult, error) {
	return s.apply(ctx, entityType, entityID, desired)
}

// apply diffs desired against the stored grants and applies the result.
func (s *GrantSyncService) apply(ctx context.Context, entityType, entityID string, desired []string) (*SyncResult, error) {
	// desired is a set; repeated ids must not trip the uniqueness index
	// mid-apply.
	desired = dedupeIDs(desired)

	existing, err := s.existingGrants(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}

	existingSet := make(map[string]string, len(existing)) // counterpart id -> grant id
	for _, g := range existing {
		existingSet[s.counterpartID(entityType, g)] = g.ID
	}
	desiredSet := make(map[string]bool, len(desired))
	for _, id := range desired {
		desiredSet[id] = true
	}

	result := &SyncResult{}

	// Deletes first: an add that collides with a stale row would
	// otherwise trip the uniqueness constraint.
	for counterpart, grantID := range existingSet {
		if desiredSet[counterpart] {
			continue
		}
		if err := s.grants.Remove(ctx, grantID); err != nil {
			return nil, fmt.Errorf("remove grant %s: %w", grantID, err)
		}
		result.Removed++
	}

	for _, counterpart := range desired {
		if _, ok := existingSet[counterpart]; ok {
			continue
		}
		g := s.newGrant(entityType, entityID, counterpart)
		if _, err := s.grants.Add(ctx, g); err != nil {
			return nil, fmt.Errorf("add grant for %s: %w", counterpart, err)
		}
		result.Added++
	}

	metrics.ObserveGrantSync(result.Added, result.Removed)
	return result, nil
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (s *GrantSyncService) existingGrants(ctx context.Context, entityType, entityID string) ([]domain.Grant, error) {
	if entityType == domain.EntityAccount {
		return s.grants.FindByAccount(ctx, entityID)
	}
	return s.grants.FindByDataset(ctx, entityID)
}

func (s *GrantSyncService) counterpartID(entityType string, g domain.Grant) string {
	if entityType == domain.EntityAccount {
		return g.DatasetID
	}
	return g.AccountID
}

func (s *GrantSyncService) newGrant(entityType, entityID, counterpart string) *domain.Grant {
	if entityType == domain.EntityAccount {
		return &domain.Grant{AccountID: entityID, DatasetID: counterpart}
	}
	return &domain.Grant{AccountID: counterpart, DatasetID: entityID}
}

func (s *GrantSyncService) counterpartExists(ctx context.Context, entityType, id string) error {
	if entityType == domain.EntityAccount {
		if _, err := s.datasets.GetByID(ctx, id); err != nil {
			return domain.ErrValidation("dataset %s does not exist", id)
		}
		return nil
	}
	if _, err := s.accounts.GetByID(ctx, id); err != nil {
		return domain.ErrValidation("account %s does not exist", id)
	}
	return nil
}

func (s *GrantSyncService) entityLastModified(ctx context.Context, entityType, entityID string) (time.Time, error) {
	if entityType == domain.EntityAccount {
		a, err := s.accounts.GetByID(ctx, entityID)
		if err != nil {
			return time.Time{}, err
		}
		return a.LastModified, nil
	}
	d, err := s.datasets.GetByID(ctx, entityID)
	if err != nil {
		return time.Time{}, err
	}
	return d.LastModified, nil
}

func (s *GrantSyncService) touchEntity(ctx context.Context, entityType, entityID string) error {
	if entityType == domain.EntityDataset {
		return s.datasets.Touch(ctx, entityID)
	}
	a, err := s.accounts.GetByID(ctx, entityID)
	if err != nil {
		return err
	}
	_, err = s.accounts.Update(ctx, a)
	return err
}
