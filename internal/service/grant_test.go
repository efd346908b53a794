package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datashelf/internal/domain"
)

func TestGrantCreateRequiresManagerRole(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	admin := f.mustAccount(t, "admin", "ADMIN", true)
	alice := f.mustAccount(t, "alice", "USER", true)
	d := f.mustDataset(t, "pbmc", true)

	_, err := f.grantSvc.Create(ctx, principalFor(alice), domain.CreateGrantRequest{
		AccountID: alice.ID, DatasetID: d.ID,
	})
	var denied *domain.AccessDeniedError
	require.ErrorAs(t, err, &denied, "a USER cannot grant, not even to themselves")

	g, err := f.grantSvc.Create(ctx, principalFor(admin), domain.CreateGrantRequest{
		AccountID: alice.ID, DatasetID: d.ID, Comment: "collaboration",
	})
	require.NoError(t, err)
	assert.Equal(t, "collaboration", g.Comment)
}

func TestGrantCreateDuplicateConflicts(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	admin := f.mustAccount(t, "admin", "ADMIN", true)
	alice := f.mustAccount(t, "alice", "USER", true)
	d := f.mustDataset(t, "pbmc", true)
	req := domain.CreateGrantRequest{AccountID: alice.ID, DatasetID: d.ID}

	_, err := f.grantSvc.Create(ctx, principalFor(admin), req)
	require.NoError(t, err)

	_, err = f.grantSvc.Create(ctx, principalFor(admin), req)
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestGrantCreateValidatesEndpoints(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	admin := f.mustAccount(t, "admin", "ADMIN", true)
	d := f.mustDataset(t, "pbmc", true)

	_, err := f.grantSvc.Create(ctx, principalFor(admin), domain.CreateGrantRequest{
		AccountID: "no-such-account", DatasetID: d.ID,
	})
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)

	_, err = f.grantSvc.Create(ctx, principalFor(admin), domain.CreateGrantRequest{
		AccountID: admin.ID, DatasetID: "no-such-dataset",
	})
	require.ErrorAs(t, err, &validation)
}

func TestGrantListScopes(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	cm := f.mustAccount(t, "curator", "CONTENT_MANAGER", true)
	alice := f.mustAccount(t, "alice", "USER", true)
	bob := f.mustAccount(t, "bob", "USER", true)
	d := f.mustDataset(t, "pbmc", true)
	f.mustGrant(t, alice.ID, d.ID)
	f.mustGrant(t, bob.ID, d.ID)

	all, total, err := f.grantSvc.List(ctx, principalFor(cm), domain.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.EqualValues(t, 2, total)

	own, total, err := f.grantSvc.List(ctx, principalFor(alice), domain.PageRequest{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, alice.ID, own[0].AccountID, "a USER sees only their own grants")
}

func TestGrantRevoke(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	admin := f.mustAccount(t, "admin", "ADMIN", true)
	alice := f.mustAccount(t, "alice", "USER", true)
	d := f.mustDataset(t, "pbmc", true)
	g := f.mustGrant(t, alice.ID, d.ID)

	// The grantee cannot revoke their own grant; it reads as absent.
	err := f.grantSvc.Revoke(ctx, principalFor(alice), g.ID)
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)

	require.NoError(t, f.grantSvc.Revoke(ctx, principalFor(admin), g.ID))

	err = f.grantSvc.Revoke(ctx, principalFor(admin), g.ID)
	require.ErrorAs(t, err, &notFound, "revoking twice is not idempotent at the API level")
}

func TestGrantedViews(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	cm := f.mustAccount(t, "curator", "CONTENT_MANAGER", true)
	alice := f.mustAccount(t, "alice", "USER", true)
	d := f.mustDataset(t, "pbmc", true)
	f.mustGrant(t, alice.ID, d.ID)
	f.mustGrant(t, cm.ID, d.ID)

	// granted_datasets of an account: self-readable.
	own, err := f.grantSvc.GrantedDatasets(ctx, principalFor(alice), alice.ID)
	require.NoError(t, err)
	assert.Len(t, own, 1)

	// But not another account's.
	_, err = f.grantSvc.GrantedDatasets(ctx, principalFor(alice), cm.ID)
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)

	// granted_accounts of a dataset: manager-only, even for grantees.
	_, err = f.grantSvc.GrantedAccounts(ctx, principalFor(alice), d.ID)
	require.ErrorAs(t, err, &notFound)

	grantees, err := f.grantSvc.GrantedAccounts(ctx, principalFor(cm), d.ID)
	require.NoError(t, err)
	assert.Len(t, grantees, 2)
}
