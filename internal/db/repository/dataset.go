package repository

import (
	"context"
	"database/sql"
	"time"

	"datashelf/internal/domain"
)

var _ domain.DatasetRepository = (*DatasetRepo)(nil)

// DatasetRepo implements domain.DatasetRepository using SQLite.
type DatasetRepo struct {
	db *sql.DB
}

// NewDatasetRepo creates a new DatasetRepo.
func NewDatasetRepo(db *sql.DB) *DatasetRepo {
	return &DatasetRepo{db: db}
}

const datasetColumns = `id, name, description, organism, technology, enabled, created_by_account_id, image_key, created_at, last_modified`

func scanDataset(row interface{ Scan(...any) error }) (*domain.Dataset, error) {
	var d domain.Dataset
	var enabled int64
	var creator sql.NullString
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.Organism, &d.Technology,
		&enabled, &creator, &d.ImageKey, &d.CreatedAt, &d.LastModified)
	if err != nil {
		return nil, mapDBError(err)
	}
	d.Enabled = enabled != 0
	d.CreatedByAccountID = creator.String
	return &d, nil
}

func creatorValue(id string) sql.NullString {
	if id == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: id, Valid: true}
}

// Create inserts a new dataset. The id and timestamps are store-assigned.
func (r *DatasetRepo) Create(ctx context.Context, d *domain.Dataset) (*domain.Dataset, error) {
	now := time.Now().UTC()
	created := *d
	created.ID = domain.NewID()
	created.CreatedAt = now
	created.LastModified = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO datasets (`+datasetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		created.ID, created.Name, created.Description, created.Organism,
		created.Technology, boolToInt(created.Enabled),
		creatorValue(created.CreatedByAccountID), created.ImageKey,
		created.CreatedAt, created.LastModified)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &created, nil
}

// GetByID returns the dataset with the given id.
func (r *DatasetRepo) GetByID(ctx context.Context, id string) (*domain.Dataset, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+datasetColumns+` FROM datasets WHERE id = ?`, id)
	return scanDataset(row)
}

// GetByName returns the dataset with the given name.
func (r *DatasetRepo) GetByName(ctx context.Context, name string) (*domain.Dataset, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+datasetColumns+` FROM datasets WHERE name = ?`, name)
	return scanDataset(row)
}

// List returns a page of datasets ordered by name.
func (r *DatasetRepo) List(ctx context.Context, page domain.PageRequest) ([]domain.Dataset, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM datasets`).Scan(&total); err != nil {
		return nil, 0, mapDBError(err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+datasetColumns+` FROM datasets ORDER BY name LIMIT ? OFFSET ?`,
		page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, mapDBError(err)
	}
	defer rows.Close()

	var out []domain.Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *d)
	}
	return out, total, mapDBError(rows.Err())
}

// ListByCreator returns all datasets created by the given account.
func (r *DatasetRepo) ListByCreator(ctx context.Context, accountID string) ([]domain.Dataset, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+datasetColumns+` FROM datasets WHERE created_by_account_id = ? ORDER BY name`,
		accountID)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()

	var out []domain.Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, mapDBError(rows.Err())
}

// Update persists the mutable dataset fields and bumps last_modified.
func (r *DatasetRepo) Update(ctx context.Context, d *domain.Dataset) (*domain.Dataset, error) {
	updated := *d
	updated.LastModified = nextModified(d.LastModified)

	res, err := r.db.ExecContext(ctx,
		`UPDATE datasets SET name = ?, description = ?, organism = ?, technology = ?,
		        enabled = ?, created_by_account_id = ?, image_key = ?, last_modified = ?
		 WHERE id = ?`,
		updated.Name, updated.Description, updated.Organism, updated.Technology,
		boolToInt(updated.Enabled), creatorValue(updated.CreatedByAccountID),
		updated.ImageKey, updated.LastModified, updated.ID)
	if err != nil {
		return nil, mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound("dataset %s not found", d.ID)
	}
	return &updated, nil
}

// Touch bumps last_modified without changing any other field. Used after
// grant-list edits so conditional readers observe the change.
func (r *DatasetRepo) Touch(ctx context.Context, id string) error {
	d, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE datasets SET last_modified = ? WHERE id = ?`,
		nextModified(d.LastModified), id)
	return mapDBError(err)
}

// ClearCreator detaches all datasets created by the given account, leaving
// the datasets and their grants untouched. Returns the number of rows changed.
func (r *DatasetRepo) ClearCreator(ctx context.Context, accountID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE datasets SET created_by_account_id = NULL, last_modified = ?
		 WHERE created_by_account_id = ?`,
		time.Now().UTC(), accountID)
	if err != nil {
		return 0, mapDBError(err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Delete removes the bare dataset row. Callers go through the cascade
// delete coordinator; this never touches dependent rows.
func (r *DatasetRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id)
	return mapDBError(err)
}

// ListFiles returns the feature-file references of a dataset.
func (r *DatasetRepo) ListFiles(ctx context.Context, datasetID string) ([]domain.DatasetFile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, dataset_id, key, name, created_at FROM dataset_files
		 WHERE dataset_id = ? ORDER BY name`, datasetID)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()

	var out []domain.DatasetFile
	for rows.Next() {
		var f domain.DatasetFile
		if err := rows.Scan(&f.ID, &f.DatasetID, &f.Key, &f.Name, &f.CreatedAt); err != nil {
			return nil, mapDBError(err)
		}
		out = append(out, f)
	}
	return out, mapDBError(rows.Err())
}

// AddFile records a feature-file reference for a dataset.
func (r *DatasetRepo) AddFile(ctx context.Context, f *domain.DatasetFile) (*domain.DatasetFile, error) {
	created := *f
	created.ID = domain.NewID()
	created.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO dataset_files (id, dataset_id, key, name, created_at) VALUES (?, ?, ?, ?, ?)`,
		created.ID, created.DatasetID, created.Key, created.Name, created.CreatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &created, nil
}

// RemoveFile deletes a feature-file reference.
func (r *DatasetRepo) RemoveFile(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM dataset_files WHERE id = ?`, id)
	return mapDBError(err)
}
