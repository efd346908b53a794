package service

import (
	"context"
	"log/slog"
	"time"

	"datashelf/internal/domain"
)

// AccountService is the account directory. Creation and deletion are
// ADMIN-only; an account can always read and edit itself.
type AccountService struct {
	accounts domain.AccountRepository
	access   *AccessService
	sync     *GrantSyncService
	cascade  *CascadeService
	hasher   domain.CredentialHasher
	logger   *slog.Logger
}

// NewAccountService creates an AccountService.
func NewAccountService(
	accounts domain.AccountRepository,
	access *AccessService,
	sync *GrantSyncService,
	cascade *CascadeService,
	hasher domain.CredentialHasher,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		access:   access,
		sync:     sync,
		cascade:  cascade,
		hasher:   hasher,
		logger:   logger,
	}
}

// List returns a page of accounts. ADMIN only.
func (s *AccountService) List(ctx context.Context, p domain.Principal, page domain.PageRequest) ([]domain.Account, int64, error) {
	if !usable(p) || !p.IsAdmin() {
		return nil, 0, domain.ErrAccessDenied("listing accounts requires ADMIN")
	}
	return s.accounts.List(ctx, page)
}

// Get returns one account: itself for any principal, any account for ADMIN.
func (s *AccountService) Get(ctx context.Context, p domain.Principal, id string) (*domain.Account, error) {
	canRead, err := s.access.CanRead(ctx, p, domain.ResourceAccount, id)
	if err != nil {
		return nil, err
	}
	if !canRead {
		return nil, domain.ErrNotFound("account %s not found", id)
	}
	return s.accounts.GetByID(ctx, id)
}

// Create registers a new account. ADMIN only. The initial grant list, if
// any, is applied through the synchronizer after the row exists.
func (s *AccountService) Create(ctx context.Context, p domain.Principal, req domain.CreateAccountRequest) (*domain.Account, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !usable(p) || !p.IsAdmin() {
		return nil, domain.ErrAccessDenied("creating accounts requires ADMIN")
	}

	// Validated before the row exists: a bad grant list rejects the whole
	// creation instead of leaving an account behind.
	if err := s.sync.ValidateCounterparts(ctx, domain.EntityAccount, req.GrantedDatasetIDs); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	a, err := s.accounts.Create(ctx, &domain.Account{
		Username:     req.Username,
		Role:         req.Role,
		Enabled:      req.Enabled,
		PasswordHash: hash,
		FullName:     req.FullName,
		Organization: req.Organization,
		Email:        req.Email,
	})
	if err != nil {
		return nil, err
	}

	if len(req.GrantedDatasetIDs) > 0 {
		if _, err := s.sync.Seed(ctx, domain.EntityAccount, a.ID, req.GrantedDatasetIDs); err != nil {
			return nil, err
		}
	}

	s.logger.Info("account created", "account", a.ID, "username", a.Username,
		"role", a.Role, "principal", p.Username)
	return a, nil
}

// Update edits an account: itself for any principal, any account for
// ADMIN. Role and enabled changes are ADMIN-only regardless of target.
func (s *AccountService) Update(ctx context.Context, p domain.Principal, id string, req domain.UpdateAccountRequest) (*domain.Account, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	canWrite, err := s.access.CanWrite(ctx, p, domain.ResourceAccount, id)
	if err != nil {
		return nil, err
	}
	if !canWrite {
		return nil, domain.ErrNotFound("account %s not found", id)
	}
	if (req.Role != nil || req.Enabled != nil) && !p.IsAdmin() {
		return nil, domain.ErrAccessDenied("changing role or enabled requires ADMIN")
	}

	a, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Password != nil {
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, err
		}
		a.PasswordHash = hash
	}
	if req.Role != nil {
		a.Role = *req.Role
	}
	if req.Enabled != nil {
		a.Enabled = *req.Enabled
	}
	if req.FullName != nil {
		a.FullName = *req.FullName
	}
	if req.Organization != nil {
		a.Organization = *req.Organization
	}
	if req.Email != nil {
		a.Email = *req.Email
	}
	return s.accounts.Update(ctx, a)
}

// SetGrants reconciles the account's granted datasets to the desired set.
func (s *AccountService) SetGrants(ctx context.Context, p domain.Principal, id string, datasetIDs []string, guard *time.Time) (*SyncResult, error) {
	return s.sync.Reconcile(ctx, p, domain.EntityAccount, id, datasetIDs, guard)
}

// Delete removes an account through the cascade coordinator.
func (s *AccountService) Delete(ctx context.Context, p domain.Principal, id string, cascade bool) (*domain.CascadeResult, error) {
	return s.cascade.DeleteAccount(ctx, p, id, cascade)
}
