package domain

import (
	"context"
	"time"
)

// AccountRepository is the account directory.
type AccountRepository interface {
	Create(ctx context.Context, a *Account) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)
	List(ctx context.Context, page PageRequest) ([]Account, int64, error)
	Update(ctx context.Context, a *Account) (*Account, error)
	// Delete removes the bare account row. Only the cascade coordinator
	// may call this; dependent rows must already be gone.
	Delete(ctx context.Context, id string) error
}

// DatasetRepository is the dataset catalog.
type DatasetRepository interface {
	Create(ctx context.Context, d *Dataset) (*Dataset, error)
	GetByID(ctx context.Context, id string) (*Dataset, error)
	GetByName(ctx context.Context, name string) (*Dataset, error)
	List(ctx context.Context, page PageRequest) ([]Dataset, int64, error)
	ListByCreator(ctx context.Context, accountID string) ([]Dataset, error)
	Update(ctx context.Context, d *Dataset) (*Dataset, error)
	// Touch bumps last_modified without changing other fields, keeping the
	// timestamp monotonic across grant-list edits.
	Touch(ctx context.Context, id string) error
	// ClearCreator sets created_by_account_id to NULL (detach on
	// non-cascading account delete).
	ClearCreator(ctx context.Context, accountID string) (int64, error)
	// Delete removes the bare dataset row. Only the cascade coordinator
	// may call this.
	Delete(ctx context.Context, id string) error

	ListFiles(ctx context.Context, datasetID string) ([]DatasetFile, error)
	AddFile(ctx context.Context, f *DatasetFile) (*DatasetFile, error)
	RemoveFile(ctx context.Context, id string) error
}

// GrantRepository is the grant store, the ground-truth join relation
// between accounts and datasets. Reads are unfiltered by permission;
// filtering is the access decision's responsibility, layered above.
type GrantRepository interface {
	// Add inserts a grant, rejecting a duplicate (account_id, dataset_id)
	// pair with ConflictError.
	Add(ctx context.Context, g *Grant) (*Grant, error)
	Remove(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*Grant, error)
	FindByAccount(ctx context.Context, accountID string) ([]Grant, error)
	FindByDataset(ctx context.Context, datasetID string) ([]Grant, error)
	FindAll(ctx context.Context, page PageRequest) ([]Grant, int64, error)
	// RemoveByAccount / RemoveByDataset bulk-delete for cascades; both are
	// idempotent and return the number of rows removed.
	RemoveByAccount(ctx context.Context, accountID string) (int64, error)
	RemoveByDataset(ctx context.Context, datasetID string) (int64, error)
	// FindOrphans returns grants whose account or dataset no longer
	// exists. Such rows can only appear when a crash interrupted a
	// cascade between steps; the integrity sweep removes them.
	FindOrphans(ctx context.Context) ([]Grant, error)
}

// SelectionRepository stores saved row selections.
type SelectionRepository interface {
	Create(ctx context.Context, s *Selection) (*Selection, error)
	ListByAccount(ctx context.Context, accountID string) ([]Selection, error)
	RemoveByAccount(ctx context.Context, accountID string) (int64, error)
	RemoveByDataset(ctx context.Context, datasetID string) (int64, error)
}

// TaskRepository stores per-account job records.
type TaskRepository interface {
	Create(ctx context.Context, t *Task) (*Task, error)
	ListByAccount(ctx context.Context, accountID string) ([]Task, error)
	RemoveByAccount(ctx context.Context, accountID string) (int64, error)
}

// BlobMetadata describes a stored object.
type BlobMetadata struct {
	LastModified time.Time
	Size         int64
	ContentType  string
}

// FileStore is the external blob-store collaborator. Implementations map
// missing keys to NotFoundError and transport failures to
// StoreUnavailableError.
type FileStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	Metadata(ctx context.Context, key string) (*BlobMetadata, error)
}

// CredentialHasher hashes and verifies account credentials. Used only at
// account create/update.
type CredentialHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}
