package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datashelf/internal/db"
	"datashelf/internal/domain"
)

func newGrantRepo(t *testing.T) (*GrantRepo, *AccountRepo, *DatasetRepo) {
	t.Helper()
	writeDB, _ := db.OpenTestSQLite(t)
	return NewGrantRepo(writeDB), NewAccountRepo(writeDB), NewDatasetRepo(writeDB)
}

func TestGrantAddAssignsIDAndTimestamps(t *testing.T) {
	grants, _, _ := newGrantRepo(t)
	ctx := context.Background()

	g, err := grants.Add(ctx, &domain.Grant{AccountID: "a1", DatasetID: "d1", Comment: "c"})
	require.NoError(t, err)
	assert.NotEmpty(t, g.ID)
	assert.False(t, g.CreatedAt.IsZero())
	assert.Equal(t, g.CreatedAt, g.LastModified)

	got, err := grants.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "c", got.Comment)
}

func TestGrantAddDuplicatePairConflicts(t *testing.T) {
	grants, _, _ := newGrantRepo(t)
	ctx := context.Background()

	_, err := grants.Add(ctx, &domain.Grant{AccountID: "a1", DatasetID: "d1"})
	require.NoError(t, err)

	_, err = grants.Add(ctx, &domain.Grant{AccountID: "a1", DatasetID: "d1"})
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)

	// Same account, different dataset is fine.
	_, err = grants.Add(ctx, &domain.Grant{AccountID: "a1", DatasetID: "d2"})
	require.NoError(t, err)
}

func TestGrantRemoveAbsentIsNoOp(t *testing.T) {
	grants, _, _ := newGrantRepo(t)
	require.NoError(t, grants.Remove(context.Background(), "no-such-grant"))
}

func TestGrantBulkRemove(t *testing.T) {
	grants, _, _ := newGrantRepo(t)
	ctx := context.Background()

	for _, pair := range [][2]string{{"a1", "d1"}, {"a1", "d2"}, {"a2", "d1"}} {
		_, err := grants.Add(ctx, &domain.Grant{AccountID: pair[0], DatasetID: pair[1]})
		require.NoError(t, err)
	}

	n, err := grants.RemoveByAccount(ctx, "a1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = grants.RemoveByDataset(ctx, "d1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = grants.RemoveByAccount(ctx, "a1")
	require.NoError(t, err)
	assert.Zero(t, n, "bulk removes are idempotent")
}

func TestGrantFindOrphans(t *testing.T) {
	grants, accounts, datasets := newGrantRepo(t)
	ctx := context.Background()

	a, err := accounts.Create(ctx, &domain.Account{Username: "alice", Role: "USER", PasswordHash: "x"})
	require.NoError(t, err)
	d, err := datasets.Create(ctx, &domain.Dataset{Name: "pbmc", Enabled: true})
	require.NoError(t, err)

	healthy, err := grants.Add(ctx, &domain.Grant{AccountID: a.ID, DatasetID: d.ID})
	require.NoError(t, err)
	orphanAccount, err := grants.Add(ctx, &domain.Grant{AccountID: "gone", DatasetID: d.ID})
	require.NoError(t, err)
	orphanDataset, err := grants.Add(ctx, &domain.Grant{AccountID: a.ID, DatasetID: "gone"})
	require.NoError(t, err)

	orphans, err := grants.FindOrphans(ctx)
	require.NoError(t, err)

	ids := make([]string, len(orphans))
	for i, g := range orphans {
		ids[i] = g.ID
	}
	assert.ElementsMatch(t, []string{orphanAccount.ID, orphanDataset.ID}, ids)
	assert.NotContains(t, ids, healthy.ID)
}

func TestGrantFindAllPagination(t *testing.T) {
	grants, _, _ := newGrantRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := grants.Add(ctx, &domain.Grant{AccountID: "a1", DatasetID: domain.NewID()})
		require.NoError(t, err)
	}

	page1, total, err := grants.FindAll(ctx, domain.PageRequest{MaxResults: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, page1, 3)

	page2, _, err := grants.FindAll(ctx, domain.PageRequest{
		MaxResults: 3,
		PageToken:  domain.EncodePageToken(3),
	})
	require.NoError(t, err)
	assert.Len(t, page2, 2)
}
