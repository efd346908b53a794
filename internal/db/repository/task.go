package repository

import (
	"context"
	"database/sql"
	"time"

	"datashelf/internal/domain"
)

var _ domain.TaskRepository = (*TaskRepo)(nil)

// TaskRepo implements domain.TaskRepository using SQLite.
type TaskRepo struct {
	db *sql.DB
}

// NewTaskRepo creates a new TaskRepo.
func NewTaskRepo(db *sql.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

// Create inserts a new task record.
func (r *TaskRepo) Create(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	now := time.Now().UTC()
	created := *t
	created.ID = domain.NewID()
	created.CreatedAt = now
	created.LastModified = now
	if created.State == "" {
		created.State = "PENDING"
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, account_id, kind, state, detail, created_at, last_modified)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		created.ID, created.AccountID, created.Kind, created.State,
		created.Detail, created.CreatedAt, created.LastModified)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &created, nil
}

// ListByAccount returns all tasks owned by the account.
func (r *TaskRepo) ListByAccount(ctx context.Context, accountID string) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account_id, kind, state, detail, created_at, last_modified
		 FROM tasks WHERE account_id = ? ORDER BY created_at`, accountID)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Kind, &t.State,
			&t.Detail, &t.CreatedAt, &t.LastModified); err != nil {
			return nil, mapDBError(err)
		}
		out = append(out, t)
	}
	return out, mapDBError(rows.Err())
}

// RemoveByAccount bulk-deletes all tasks owned by the account.
func (r *TaskRepo) RemoveByAccount(ctx context.Context, accountID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE account_id = ?`, accountID)
	if err != nil {
		return 0, mapDBError(err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
