package repository

import (
	"context"
	"database/sql"
	"time"

	"datashelf/internal/domain"
)

var _ domain.GrantRepository = (*GrantRepo)(nil)

// GrantRepo implements domain.GrantRepository using SQLite. The
// UNIQUE(account_id, dataset_id) index makes a duplicate pair a
// ConflictError rather than a second row.
type GrantRepo struct {
	db *sql.DB
}

// NewGrantRepo creates a new GrantRepo.
func NewGrantRepo(db *sql.DB) *GrantRepo {
	return &GrantRepo{db: db}
}

const grantColumns = `id, account_id, dataset_id, comment, created_at, last_modified`

func scanGrant(row interface{ Scan(...any) error }) (*domain.Grant, error) {
	var g domain.Grant
	err := row.Scan(&g.ID, &g.AccountID, &g.DatasetID, &g.Comment, &g.CreatedAt, &g.LastModified)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &g, nil
}

func (r *GrantRepo) queryGrants(ctx context.Context, query string, args ...any) ([]domain.Grant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()

	var out []domain.Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, mapDBError(rows.Err())
}

// Add inserts a grant. A duplicate (account_id, dataset_id) pair returns
// ConflictError.
func (r *GrantRepo) Add(ctx context.Context, g *domain.Grant) (*domain.Grant, error) {
	now := time.Now().UTC()
	created := *g
	created.ID = domain.NewID()
	created.CreatedAt = now
	created.LastModified = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO grants (`+grantColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		created.ID, created.AccountID, created.DatasetID, created.Comment,
		created.CreatedAt, created.LastModified)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &created, nil
}

// Remove deletes a single grant by id. Removing an absent id is a no-op.
func (r *GrantRepo) Remove(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM grants WHERE id = ?`, id)
	return mapDBError(err)
}

// GetByID returns the grant with the given id.
func (r *GrantRepo) GetByID(ctx context.Context, id string) (*domain.Grant, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+grantColumns+` FROM grants WHERE id = ?`, id)
	return scanGrant(row)
}

// FindByAccount returns every grant referencing the account, unfiltered.
func (r *GrantRepo) FindByAccount(ctx context.Context, accountID string) ([]domain.Grant, error) {
	return r.queryGrants(ctx,
		`SELECT `+grantColumns+` FROM grants WHERE account_id = ? ORDER BY created_at`, accountID)
}

// FindByDataset returns every grant referencing the dataset, unfiltered.
func (r *GrantRepo) FindByDataset(ctx context.Context, datasetID string) ([]domain.Grant, error) {
	return r.queryGrants(ctx,
		`SELECT `+grantColumns+` FROM grants WHERE dataset_id = ? ORDER BY created_at`, datasetID)
}

// FindAll returns a page of all grants, unfiltered.
func (r *GrantRepo) FindAll(ctx context.Context, page domain.PageRequest) ([]domain.Grant, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM grants`).Scan(&total); err != nil {
		return nil, 0, mapDBError(err)
	}
	grants, err := r.queryGrants(ctx,
		`SELECT `+grantColumns+` FROM grants ORDER BY created_at LIMIT ? OFFSET ?`,
		page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	return grants, total, nil
}

// RemoveByAccount bulk-deletes all grants referencing the account.
func (r *GrantRepo) RemoveByAccount(ctx context.Context, accountID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM grants WHERE account_id = ?`, accountID)
	if err != nil {
		return 0, mapDBError(err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// RemoveByDataset bulk-deletes all grants referencing the dataset.
func (r *GrantRepo) RemoveByDataset(ctx context.Context, datasetID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM grants WHERE dataset_id = ?`, datasetID)
	if err != nil {
		return 0, mapDBError(err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// FindOrphans returns grants whose account or dataset row no longer exists.
func (r *GrantRepo) FindOrphans(ctx context.Context) ([]domain.Grant, error) {
	return r.queryGrants(ctx,
		`SELECT g.id, g.account_id, g.dataset_id, g.comment, g.created_at, g.last_modified
		 FROM grants g
		 LEFT JOIN accounts a ON a.id = g.account_id
		 LEFT JOIN datasets d ON d.id = g.dataset_id
		 WHERE a.id IS NULL OR d.id IS NULL`)
}
