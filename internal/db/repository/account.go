package repository

import (
	"context"
	"database/sql"
	"time"

	"datashelf/internal/domain"
)

var _ domain.AccountRepository = (*AccountRepo)(nil)

// AccountRepo implements domain.AccountRepository using SQLite.
type AccountRepo struct {
	db *sql.DB
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

const accountColumns = `id, username, role, enabled, password_hash, full_name, organization, email, created_at, last_modified`

func scanAccount(row interface{ Scan(...any) error }) (*domain.Account, error) {
	var a domain.Account
	var enabled int64
	err := row.Scan(&a.ID, &a.Username, &a.Role, &enabled, &a.PasswordHash,
		&a.FullName, &a.Organization, &a.Email, &a.CreatedAt, &a.LastModified)
	if err != nil {
		return nil, mapDBError(err)
	}
	a.Enabled = enabled != 0
	return &a, nil
}

// Create inserts a new account. The id and timestamps are store-assigned.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) (*domain.Account, error) {
	now := time.Now().UTC()
	created := *a
	created.ID = domain.NewID()
	created.CreatedAt = now
	created.LastModified = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		created.ID, created.Username, created.Role, boolToInt(created.Enabled),
		created.PasswordHash, created.FullName, created.Organization, created.Email,
		created.CreatedAt, created.LastModified)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &created, nil
}

// GetByID returns the account with the given id.
func (r *AccountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

// GetByUsername returns the account with the given username.
func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = ?`, username)
	return scanAccount(row)
}

// List returns a page of accounts ordered by username.
func (r *AccountRepo) List(ctx context.Context, page domain.PageRequest) ([]domain.Account, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&total); err != nil {
		return nil, 0, mapDBError(err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY username LIMIT ? OFFSET ?`,
		page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, mapDBError(err)
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *a)
	}
	return out, total, mapDBError(rows.Err())
}

// Update persists the mutable account fields and bumps last_modified.
func (r *AccountRepo) Update(ctx context.Context, a *domain.Account) (*domain.Account, error) {
	updated := *a
	updated.LastModified = nextModified(a.LastModified)

	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET role = ?, enabled = ?, password_hash = ?, full_name = ?,
		        organization = ?, email = ?, last_modified = ?
		 WHERE id = ?`,
		updated.Role, boolToInt(updated.Enabled), updated.PasswordHash,
		updated.FullName, updated.Organization, updated.Email,
		updated.LastModified, updated.ID)
	if err != nil {
		return nil, mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound("account %s not found", a.ID)
	}
	return &updated, nil
}

// Delete removes the bare account row. Callers go through the cascade
// delete coordinator; this never touches dependent rows.
func (r *AccountRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	return mapDBError(err)
}
