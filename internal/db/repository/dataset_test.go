package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datashelf/internal/db"
	"datashelf/internal/domain"
)

func newDatasetRepo(t *testing.T) *DatasetRepo {
	t.Helper()
	writeDB, _ := db.OpenTestSQLite(t)
	return NewDatasetRepo(writeDB)
}

func TestDatasetCreateAndGet(t *testing.T) {
	repo := newDatasetRepo(t)
	ctx := context.Background()

	d, err := repo.Create(ctx, &domain.Dataset{
		Name: "pbmc", Description: "10k PBMCs", Organism: "human",
		Technology: "scRNA-seq", Enabled: true, ImageKey: "images/pbmc.png",
	})
	require.NoError(t, err)
	require.NotEmpty(t, d.ID)

	got, err := repo.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "pbmc", got.Name)
	assert.Equal(t, "human", got.Organism)
	assert.True(t, got.Enabled)
	assert.Empty(t, got.CreatedByAccountID)

	byName, err := repo.GetByName(ctx, "pbmc")
	require.NoError(t, err)
	assert.Equal(t, d.ID, byName.ID)
}

func TestDatasetGetAbsent(t *testing.T) {
	repo := newDatasetRepo(t)

	_, err := repo.GetByID(context.Background(), "missing")
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestDatasetDuplicateNameConflicts(t *testing.T) {
	repo := newDatasetRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, &domain.Dataset{Name: "pbmc"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &domain.Dataset{Name: "pbmc"})
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestDatasetUpdateBumpsLastModified(t *testing.T) {
	repo := newDatasetRepo(t)
	ctx := context.Background()

	d, err := repo.Create(ctx, &domain.Dataset{Name: "pbmc"})
	require.NoError(t, err)

	d.Description = "updated"
	updated, err := repo.Update(ctx, d)
	require.NoError(t, err)
	assert.True(t, updated.LastModified.After(d.LastModified))

	got, err := repo.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Description)
}

func TestDatasetTouchAdvancesTimestamp(t *testing.T) {
	repo := newDatasetRepo(t)
	ctx := context.Background()

	d, err := repo.Create(ctx, &domain.Dataset{Name: "pbmc"})
	require.NoError(t, err)

	require.NoError(t, repo.Touch(ctx, d.ID))

	got, err := repo.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, got.LastModified.After(d.LastModified))
	assert.Equal(t, d.Name, got.Name)
}

func TestDatasetClearCreator(t *testing.T) {
	repo := newDatasetRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, &domain.Dataset{Name: "d1", CreatedByAccountID: "a1"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &domain.Dataset{Name: "d2", CreatedByAccountID: "a1"})
	require.NoError(t, err)
	other, err := repo.Create(ctx, &domain.Dataset{Name: "d3", CreatedByAccountID: "a2"})
	require.NoError(t, err)

	n, err := repo.ClearCreator(ctx, "a1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	owned, err := repo.ListByCreator(ctx, "a1")
	require.NoError(t, err)
	assert.Empty(t, owned)

	kept, err := repo.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "a2", kept.CreatedByAccountID)
}

func TestDatasetFilesRoundtrip(t *testing.T) {
	repo := newDatasetRepo(t)
	ctx := context.Background()

	d, err := repo.Create(ctx, &domain.Dataset{Name: "pbmc"})
	require.NoError(t, err)

	f1, err := repo.AddFile(ctx, &domain.DatasetFile{DatasetID: d.ID, Key: "files/a.h5", Name: "a"})
	require.NoError(t, err)
	_, err = repo.AddFile(ctx, &domain.DatasetFile{DatasetID: d.ID, Key: "files/b.h5", Name: "b"})
	require.NoError(t, err)

	files, err := repo.ListFiles(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	require.NoError(t, repo.RemoveFile(ctx, f1.ID))
	files, err = repo.ListFiles(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "files/b.h5", files[0].Key)
}
