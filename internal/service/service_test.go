package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"datashelf/internal/blob"
	"datashelf/internal/db"
	"datashelf/internal/db/repository"
	"datashelf/internal/domain"
)

// fixture wires the full service stack over a real SQLite store in a
// temp dir, with an in-memory blob store unless a test swaps it out.
type fixture struct {
	accounts   *repository.AccountRepo
	datasets   *repository.DatasetRepo
	grants     *repository.GrantRepo
	selections *repository.SelectionRepo
	tasks      *repository.TaskRepo

	files   domain.FileStore
	access  *AccessService
	sync    *GrantSyncService
	cascade *CascadeService

	accountSvc *AccountService
	datasetSvc *DatasetService
	grantSvc   *GrantService
	janitor    *Janitor
}

func newFixture(t *testing.T, files domain.FileStore) *fixture {
	t.Helper()
	writeDB, _ := db.OpenTestSQLite(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if files == nil {
		files = blob.NewMemoryStore()
	}

	f := &fixture{
		accounts:   repository.NewAccountRepo(writeDB),
		datasets:   repository.NewDatasetRepo(writeDB),
		grants:     repository.NewGrantRepo(writeDB),
		selections: repository.NewSelectionRepo(writeDB),
		tasks:      repository.NewTaskRepo(writeDB),
		files:      files,
	}
	f.access = NewAccessService(f.accounts, f.datasets, f.grants)
	f.sync = NewGrantSyncService(f.grants, f.accounts, f.datasets, f.access, logger)
	f.cascade = NewCascadeService(f.accounts, f.datasets, f.grants, f.selections, f.tasks, files, f.access, logger)
	f.accountSvc = NewAccountService(f.accounts, f.access, f.sync, f.cascade, staticHasher{}, logger)
	f.datasetSvc = NewDatasetService(f.datasets, f.access, f.sync, f.cascade, logger)
	f.grantSvc = NewGrantService(f.grants, f.accounts, f.datasets, f.access, logger)
	f.janitor = NewJanitor(f.grants, logger)
	return f
}

// staticHasher keeps account tests independent of bcrypt cost.
type staticHasher struct{}

func (staticHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }
func (staticHasher) Verify(hash, plain string) bool    { return hash == "hashed:"+plain }

func (f *fixture) mustAccount(t *testing.T, username, role string, enabled bool) *domain.Account {
	t.Helper()
	a, err := f.accounts.Create(context.Background(), &domain.Account{
		Username: username, Role: role, Enabled: enabled, PasswordHash: "x",
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) mustDataset(t *testing.T, name string, enabled bool) *domain.Dataset {
	t.Helper()
	d, err := f.datasets.Create(context.Background(), &domain.Dataset{
		Name: name, Enabled: enabled,
	})
	require.NoError(t, err)
	return d
}

func (f *fixture) mustGrant(t *testing.T, accountID, datasetID string) *domain.Grant {
	t.Helper()
	g, err := f.grants.Add(context.Background(), &domain.Grant{
		AccountID: accountID, DatasetID: datasetID,
	})
	require.NoError(t, err)
	return g
}

func principalFor(a *domain.Account) domain.Principal {
	return domain.Principal{
		AccountID: a.ID,
		Username:  a.Username,
		Role:      a.Role,
		Enabled:   a.Enabled,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// selectionRepoMock is a function-field mock of domain.SelectionRepository.
// Unset functions succeed and return zero values.
type selectionRepoMock struct {
	createFn          func(ctx context.Context, sel *domain.Selection) (*domain.Selection, error)
	listByAccountFn   func(ctx context.Context, accountID string) ([]domain.Selection, error)
	removeByAccountFn func(ctx context.Context, accountID string) (int64, error)
	removeByDatasetFn func(ctx context.Context, datasetID string) (int64, error)
}

func (m *selectionRepoMock) Create(ctx context.Context, sel *domain.Selection) (*domain.Selection, error) {
	if m.createFn != nil {
		return m.createFn(ctx, sel)
	}
	return sel, nil
}

func (m *selectionRepoMock) ListByAccount(ctx context.Context, accountID string) ([]domain.Selection, error) {
	if m.listByAccountFn != nil {
		return m.listByAccountFn(ctx, accountID)
	}
	return nil, nil
}

func (m *selectionRepoMock) RemoveByAccount(ctx context.Context, accountID string) (int64, error) {
	if m.removeByAccountFn != nil {
		return m.removeByAccountFn(ctx, accountID)
	}
	return 0, nil
}

func (m *selectionRepoMock) RemoveByDataset(ctx context.Context, datasetID string) (int64, error) {
	if m.removeByDatasetFn != nil {
		return m.removeByDatasetFn(ctx, datasetID)
	}
	return 0, nil
}

// fileStoreMock is a function-field mock of domain.FileStore. Unset
// functions succeed and return zero values.
type fileStoreMock struct {
	getFn      func(ctx context.Context, key string) ([]byte, error)
	putFn      func(ctx context.Context, key string, data []byte, contentType string) error
	deleteFn   func(ctx context.Context, key string) error
	metadataFn func(ctx context.Context, key string) (*domain.BlobMetadata, error)
}

func (m *fileStoreMock) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, nil
}

func (m *fileStoreMock) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if m.putFn != nil {
		return m.putFn(ctx, key, data, contentType)
	}
	return nil
}

func (m *fileStoreMock) Delete(ctx context.Context, key string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, key)
	}
	return nil
}

func (m *fileStoreMock) Metadata(ctx context.Context, key string) (*domain.BlobMetadata, error) {
	if m.metadataFn != nil {
		return m.metadataFn(ctx, key)
	}
	return nil, nil
}
