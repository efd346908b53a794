package repository

import (
	"context"
	"database/sql"
	"time"

	"datashelf/internal/domain"
)

var _ domain.SelectionRepository = (*SelectionRepo)(nil)

// SelectionRepo implements domain.SelectionRepository using SQLite.
type SelectionRepo struct {
	db *sql.DB
}

// NewSelectionRepo creates a new SelectionRepo.
func NewSelectionRepo(db *sql.DB) *SelectionRepo {
	return &SelectionRepo{db: db}
}

const selectionColumns = `id, account_id, dataset_id, name, criteria, created_at, last_modified`

// Create inserts a new selection.
func (r *SelectionRepo) Create(ctx context.Context, s *domain.Selection) (*domain.Selection, error) {
	now := time.Now().UTC()
	created := *s
	created.ID = domain.NewID()
	created.CreatedAt = now
	created.LastModified = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO selections (`+selectionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		created.ID, created.AccountID, created.DatasetID, created.Name,
		created.Criteria, created.CreatedAt, created.LastModified)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &created, nil
}

// ListByAccount returns all selections owned by the account.
func (r *SelectionRepo) ListByAccount(ctx context.Context, accountID string) ([]domain.Selection, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectionColumns+` FROM selections WHERE account_id = ? ORDER BY name`, accountID)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()

	var out []domain.Selection
	for rows.Next() {
		var s domain.Selection
		if err := rows.Scan(&s.ID, &s.AccountID, &s.DatasetID, &s.Name,
			&s.Criteria, &s.CreatedAt, &s.LastModified); err != nil {
			return nil, mapDBError(err)
		}
		out = append(out, s)
	}
	return out, mapDBError(rows.Err())
}

// RemoveByAccount bulk-deletes all selections owned by the account.
func (r *SelectionRepo) RemoveByAccount(ctx context.Context, accountID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM selections WHERE account_id = ?`, accountID)
	if err != nil {
		return 0, mapDBError(err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// RemoveByDataset bulk-deletes all selections referencing the dataset.
func (r *SelectionRepo) RemoveByDataset(ctx context.Context, datasetID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM selections WHERE dataset_id = ?`, datasetID)
	if err != nil {
		return 0, mapDBError(err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
