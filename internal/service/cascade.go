package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"datashelf/internal/domain"
	"datashelf/internal/metrics"
)

// blobDeleteConcurrency bounds parallel blob deletions per cascade.
const blobDeleteConcurrency = 8

// CascadeService coordinates multi-collection deletion of accounts and
// datasets. Entities are deleted only through it, never by a bare entity
// delete, so grants and dependent resources cannot outlive the entity
// they reference.
//
// Each step queries current state before acting and is therefore safe to
// re-run: after a partial failure the caller simply invokes the same
// delete again and already-completed steps become no-ops. No global lock
// is taken; concurrent requests may interleave with a cascade (an
// accepted limitation, see the package documentation on atomicity).
type CascadeService struct {
	accounts   domain.AccountRepository
	datasets   domain.DatasetRepository
	grants     domain.GrantRepository
	selections domain.SelectionRepository
	tasks      domain.TaskRepository
	files      domain.FileStore
	access     *AccessService
	logger     *slog.Logger
}

// NewCascadeService creates a CascadeService.
func NewCascadeService(
	accounts domain.AccountRepository,
	datasets domain.DatasetRepository,
	grants domain.GrantRepository,
	selections domain.SelectionRepository,
	tasks domain.TaskRepository,
	files domain.FileStore,
	access *AccessService,
	logger *slog.Logger,
) *CascadeService {
	return &CascadeService{
		accounts:   accounts,
		datasets:   datasets,
		grants:     grants,
		selections: selections,
		tasks:      tasks,
		files:      files,
		access:     access,
		logger:     logger,
	}
}

// DeleteDataset removes a dataset, its grants, its selections, and its
// blob resources. If any blob deletion fails the dataset row is
// intentionally left in place and the call returns PartialFailureError:
// the resource is never half deleted and the caller can retry.
func (s *CascadeService) DeleteDataset(ctx context.Context, p domain.Principal, id string) (*domain.CascadeResult, error) {
	d, err := s.datasets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	canRead, err := s.access.CanRead(ctx, p, domain.ResourceDataset, id)
	if err != nil {
		return nil, err
	}
	canDelete, err := s.access.CanDelete(ctx, p, domain.ResourceDataset, id)
	if err != nil {
		return nil, err
	}
	if !canDelete {
		// Whether the dataset exists must not leak to callers that
		// cannot see it.
		if !canRead {
			return nil, domain.ErrNotFound("dataset %s not found", id)
		}
		return nil, domain.ErrAccessDenied("not allowed to delete dataset %s", id)
	}

	result := &domain.CascadeResult{State: domain.CascadeDone}
	result.Completed = append(result.Completed, domain.StepPermissionChecked)

	if err := s.deleteDatasetSteps(ctx, d, result); err != nil {
		metrics.ObserveCascade("dataset", string(domain.CascadeFailed))
		return result, err
	}

	metrics.ObserveCascade("dataset", string(domain.CascadeDone))
	s.logger.Info("dataset deleted",
		"dataset", d.ID, "name", d.Name, "principal", p.Username,
		"grants_removed", result.RemovedGrants, "blobs_removed", result.RemovedBlobs)
	return result, nil
}

// deleteDatasetSteps runs the post-permission steps of a dataset cascade.
// It is shared by DeleteDataset and the recursive branch of DeleteAccount,
// which has already performed its own permission check.
func (s *CascadeService) deleteDatasetSteps(ctx context.Context, d *domain.Dataset, result *domain.CascadeResult) error {
	n, err := s.grants.RemoveByDataset(ctx, d.ID)
	if err != nil {
		result.State = domain.CascadeFailed
		result.Failed = append(result.Failed, domain.StepFailure{
			Step: domain.StepGrantsRemoved, Reason: err.Error(),
		})
		return fmt.Errorf("remove grants of dataset %s: %w", d.ID, err)
	}
	result.RemovedGrants += int(n)
	result.Completed = append(result.Completed, domain.StepGrantsRemoved)

	// Selections are dependent resources removed in the same phase as the
	// blobs, so a failure here is attributed to that step.
	if _, err := s.selections.RemoveByDataset(ctx, d.ID); err != nil {
		result.State = domain.CascadeFailed
		result.Failed = append(result.Failed, domain.StepFailure{
			Step: domain.StepBlobsRemoved, Reason: err.Error(),
		})
		return fmt.Errorf("remove selections of dataset %s: %w", d.ID, err)
	}

	failures := s.deleteBlobs(ctx, d, result)
	if len(failures) > 0 {
		// The dataset row stays so the delete can be retried; blobs
		// already gone are skipped on the retry because their
		// dataset_files rows were removed on success.
		result.State = domain.CascadeFailed
		result.Failed = append(result.Failed, failures...)
		return &domain.PartialFailureError{Completed: result.Completed, Failed: failures}
	}
	result.Completed = append(result.Completed, domain.StepBlobsRemoved)

	if err := s.datasets.Delete(ctx, d.ID); err != nil {
		result.State = domain.CascadeFailed
		result.Failed = append(result.Failed, domain.StepFailure{
			Step: domain.StepEntityRemoved, Reason: err.Error(),
		})
		return fmt.Errorf("delete dataset %s: %w", d.ID, err)
	}
	result.Completed = append(result.Completed, domain.StepEntityRemoved)
	return nil
}

// deleteBlobs removes every blob the dataset references. Keys are
// attempted independently with bounded concurrency; a failed key never
// aborts the others, and all failures are collected. A key that is
// already gone from the store counts as deleted.
func (s *CascadeService) deleteBlobs(ctx context.Context, d *domain.Dataset, result *domain.CascadeResult) []domain.StepFailure {
	files, err := s.datasets.ListFiles(ctx, d.ID)
	if err != nil {
		return []domain.StepFailure{{Step: domain.StepBlobsRemoved, Reason: err.Error()}}
	}

	type outcome struct {
		key    string
		fileID string // empty for the preview image
		err    error
	}

	work := make([]outcome, 0, len(files)+1)
	if d.ImageKey != "" {
		work = append(work, outcome{key: d.ImageKey})
	}
	for _, f := range files {
		work = append(work, outcome{key: f.Key, fileID: f.ID})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(blobDeleteConcurrency)
	for i := range work {
		g.Go(func() error {
			err := s.files.Delete(gctx, work[i].key)
			if err != nil && !errors.As(err, new(*domain.NotFoundError)) {
				work[i].err = err
			}
			return nil // failures are collected, never propagated
		})
	}
	_ = g.Wait()

	var failures []domain.StepFailure
	for _, w := range work {
		if w.err != nil {
			metrics.ObserveBlobDeleteFailure()
			s.logger.Warn("blob delete failed", "dataset", d.ID, "key", w.key, "error", w.err)
			failures = append(failures, domain.StepFailure{
				Step: domain.StepBlobsRemoved, Key: w.key, Reason: w.err.Error(),
			})
			continue
		}
		result.RemovedBlobs++
		// Drop the reference so a retry does not re-attempt this key.
		if w.fileID != "" {
			if err := s.datasets.RemoveFile(ctx, w.fileID); err != nil {
				s.logger.Warn("drop file reference", "dataset", d.ID, "key", w.key, "error", err)
			}
		} else if d.ImageKey != "" {
			cleared := *d
			cleared.ImageKey = ""
			if _, err := s.datasets.Update(ctx, &cleared); err != nil {
				s.logger.Warn("clear image key", "dataset", d.ID, "error", err)
			}
		}
	}
	return failures
}

// DeleteAccount removes an account and every grant referencing it.
//
// With cascade, datasets created by the account are recursively deleted
// (grants, blobs and all) along with the account's selections and tasks.
// Without cascade, those datasets are detached instead: their
// created_by_account_id is cleared and they, and their other grantees,
// are unaffected.
func (s *CascadeService) DeleteAccount(ctx context.Context, p domain.Principal, id string, cascade bool) (*domain.CascadeResult, error) {
	a, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	canRead, err := s.access.CanRead(ctx, p, domain.ResourceAccount, id)
	if err != nil {
		return nil, err
	}
	canDelete, err := s.access.CanDelete(ctx, p, domain.ResourceAccount, id)
	if err != nil {
		return nil, err
	}
	if !canDelete {
		if !canRead {
			return nil, domain.ErrNotFound("account %s not found", id)
		}
		return nil, domain.ErrAccessDenied("not allowed to delete account %s", id)
	}

	result := &domain.CascadeResult{State: domain.CascadeDone}
	result.Completed = append(result.Completed, domain.StepPermissionChecked)

	n, err := s.grants.RemoveByAccount(ctx, id)
	if err != nil {
		metrics.ObserveCascade("account", string(domain.CascadeFailed))
		result.State = domain.CascadeFailed
		result.Failed = append(result.Failed, domain.StepFailure{
			Step: domain.StepGrantsRemoved, Reason: err.Error(),
		})
		return result, fmt.Errorf("remove grants of account %s: %w", id, err)
	}
	result.RemovedGrants += int(n)
	result.Completed = append(result.Completed, domain.StepGrantsRemoved)

	if cascade {
		owned, err := s.datasets.ListByCreator(ctx, id)
		if err != nil {
			metrics.ObserveCascade("account", string(domain.CascadeFailed))
			result.State = domain.CascadeFailed
			result.Failed = append(result.Failed, domain.StepFailure{
				Step: domain.StepBlobsRemoved, Reason: err.Error(),
			})
			return result, err
		}
		var failed []domain.StepFailure
		for i := range owned {
			if err := s.deleteDatasetSteps(ctx, &owned[i], result); err != nil {
				var partial *domain.PartialFailureError
				if errors.As(err, &partial) {
					failed = append(failed, partial.Failed...)
					continue // other datasets are still attempted
				}
				metrics.ObserveCascade("account", string(domain.CascadeFailed))
				result.State = domain.CascadeFailed
				return result, err
			}
		}
		if len(failed) > 0 {
			// The account row stays; retrying resumes with the
			// remaining blobs and datasets.
			metrics.ObserveCascade("account", string(domain.CascadeFailed))
			result.State = domain.CascadeFailed
			return result, &domain.PartialFailureError{Completed: result.Completed, Failed: failed}
		}
	} else {
		detached, err := s.datasets.ClearCreator(ctx, id)
		if err != nil {
			metrics.ObserveCascade("account", string(domain.CascadeFailed))
			result.State = domain.CascadeFailed
			result.Failed = append(result.Failed, domain.StepFailure{
				Step: domain.StepBlobsRemoved, Reason: err.Error(),
			})
			return result, err
		}
		if detached > 0 {
			s.logger.Info("datasets detached from account", "account", id, "count", detached)
		}
	}

	// Selections and tasks belong to the dependent-resource phase; the
	// step completes only once all of them are gone.
	if _, err := s.selections.RemoveByAccount(ctx, id); err != nil {
		metrics.ObserveCascade("account", string(domain.CascadeFailed))
		result.State = domain.CascadeFailed
		result.Failed = append(result.Failed, domain.StepFailure{
			Step: domain.StepBlobsRemoved, Reason: err.Error(),
		})
		return result, fmt.Errorf("remove selections of account %s: %w", id, err)
	}
	if _, err := s.tasks.RemoveByAccount(ctx, id); err != nil {
		metrics.ObserveCascade("account", string(domain.CascadeFailed))
		result.State = domain.CascadeFailed
		result.Failed = append(result.Failed, domain.StepFailure{
			Step: domain.StepBlobsRemoved, Reason: err.Error(),
		})
		return result, fmt.Errorf("remove tasks of account %s: %w", id, err)
	}
	result.Completed = append(result.Completed, domain.StepBlobsRemoved)

	if err := s.accounts.Delete(ctx, id); err != nil {
		metrics.ObserveCascade("account", string(domain.CascadeFailed))
		result.State = domain.CascadeFailed
		result.Failed = append(result.Failed, domain.StepFailure{
			Step: domain.StepEntityRemoved, Reason: err.Error(),
		})
		return result, fmt.Errorf("delete account %s: %w", id, err)
	}
	result.Completed = append(result.Completed, domain.StepEntityRemoved)

	metrics.ObserveCascade("account", string(domain.CascadeDone))
	s.logger.Info("account deleted",
		"account", a.ID, "username", a.Username, "cascade", cascade,
		"principal", p.Username, "grants_removed", result.RemovedGrants)
	return result, nil
}
