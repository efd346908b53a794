package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datashelf/internal/domain"
)

func TestReconcileAppliesMinimalDiff(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	admin := f.mustAccount(t, "admin", "ADMIN", true)
	alice := f.mustAccount(t, "alice", "USER", true)
	d1 := f.mustDataset(t, "d1", true)
	d2 := f.mustDataset(t, "d2", true)
	d3 := f.mustDataset(t, "d3", true)
	p := principalFor(admin)

	res, err := f.sync.Reconcile(ctx, p, domain.EntityAccount, alice.ID, []string{d1.ID, d2.ID}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 0, res.Removed)

	kept, err := f.grants.FindByAccount(ctx, alice.ID)
	require.NoError(t, err)
	keptIDs := map[string]string{} // dataset id -> grant id
	for _, g := range kept {
		keptIDs[g.DatasetID] = g.ID
	}

	// d1 stays, d2 goes, d3 comes.
	res, err = f.sync.Reconcile(ctx, p, domain.EntityAccount, alice.ID, []string{d1.ID, d3.ID}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, res.Removed)

	after, err := f.grants.FindByAccount(ctx, alice.ID)
	require.NoError(t, err)
	afterIDs := map[string]string{}
	for _, g := range after {
		afterIDs[g.DatasetID] = g.ID
	}
	assert.Len(t, afterIDs, 2)
	assert.Equal(t, keptIDs[d1.ID], afterIDs[d1.ID], "surviving grant keeps its id")
	assert.NotContains(t, afterIDs, d2.ID)
	assert.Contains(t, afterIDs, d3.ID)
}

func TestReconcileIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	admin := f.mustAccount(t, "admin", "ADMIN", true)
	alice := f.mustAccount(t, "alice", "USER", true)
	d := f.mustDataset(t, "d1", true)
	p := principalFor(admin)

	_, err := f.sync.Reconcile(ctx, p, domain.EntityAccount, alice.ID, []string{d.ID}, nil)
	require.NoError(t, err)

	res, err := f.sync.Reconcile(ctx, p, domain.EntityAccount, alice.ID, []string{d.ID}, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Added)
	assert.Zero(t, res.Removed)
}

func TestReconcileEmptyDesiredClearsAll(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	admin := f.mustAccount(t, "admin", "ADMIN", true)
	d := f.mustDataset(t, "d1", true)
	alice := f.mustAccount(t, "alice", "USER", true)
	bob := f.mustAccount(t, "bob", "USER", true)
	f.mustGrant(t, alice.ID, d.ID)
	f.mustGrant(t, bob.ID, d.ID)

	res, err := f.sync.Reconcile(ctx, principalFor(admin), domain.EntityDataset, d.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Removed)

	left, err := f.grants.FindByDataset(ctx, d.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestReconcileRejectsUnknownCounterpart(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	admin := f.mustAccount(t, "admin", "ADMIN", true)
	alice := f.mustAccount(t, "alice", "USER", true)
	d := f.mustDataset(t, "d1", true)

	_, err := f.sync.Reconcile(ctx, principalFor(admin), domain.EntityAccount, alice.ID,
		[]string{d.ID, "no-such-dataset"}, nil)
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)

	// Validation failure must not leave a partial diff behind.
	left, err := f.grants.FindByAccount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestReconcileDeduplicatesDesired(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	admin := f.mustAccount(t, "admin", "ADMIN", true)
	alice := f.mustAccount(t, "alice", "USER", true)
	d := f.mustDataset(t, "d1", true)

	// desired is a set; a repeated id must not trip the unique index
	// mid-apply.
	res, err := f.sync.Reconcile(ctx, principalFor(admin), domain.EntityDataset, d.ID,
		[]string{alice.ID, alice.ID}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)

	grants, err := f.grants.FindByDataset(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, grants, 1)
}

func TestReconcileGuard(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	admin := f.mustAccount(t, "admin", "ADMIN", true)
	alice := f.mustAccount(t, "alice", "USER", true)
	d := f.mustDataset(t, "d1", true)
	p := principalFor(admin)

	stale := alice.LastModified.Add(-time.Minute)
	_, err := f.sync.Reconcile(ctx, p, domain.EntityAccount, alice.ID, []string{d.ID}, &stale)
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)

	left, err := f.grants.FindByAccount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, left, "a failed guard changes nothing")

	fresh := alice.LastModified.Add(time.Minute)
	res, err := f.sync.Reconcile(ctx, p, domain.EntityAccount, alice.ID, []string{d.ID}, &fresh)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
}

func TestReconcilePermissions(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	alice := f.mustAccount(t, "alice", "USER", true)
	cm := f.mustAccount(t, "curator", "CONTENT_MANAGER", true)
	d := f.mustDataset(t, "d1", true)

	// A USER may write their own account but not manage grants, so
	// reconciling their own grant list is still denied.
	_, err := f.sync.Reconcile(ctx, principalFor(alice), domain.EntityAccount, alice.ID, []string{d.ID}, nil)
	var denied *domain.AccessDeniedError
	require.ErrorAs(t, err, &denied)

	// A CONTENT_MANAGER without a grant on the dataset cannot edit its
	// grant list either.
	_, err = f.sync.Reconcile(ctx, principalFor(cm), domain.EntityDataset, d.ID, []string{alice.ID}, nil)
	require.ErrorAs(t, err, &denied)

	// Granted, the CONTENT_MANAGER can.
	f.mustGrant(t, cm.ID, d.ID)
	res, err := f.sync.Reconcile(ctx, principalFor(cm), domain.EntityDataset, d.ID, []string{alice.ID, cm.ID}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
}

func TestReconcileBumpsEntityLastModified(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	admin := f.mustAccount(t, "admin", "ADMIN", true)
	alice := f.mustAccount(t, "alice", "USER", true)
	d := f.mustDataset(t, "d1", true)

	before, err := f.datasets.GetByID(ctx, d.ID)
	require.NoError(t, err)

	_, err = f.sync.Reconcile(ctx, principalFor(admin), domain.EntityDataset, d.ID, []string{alice.ID}, nil)
	require.NoError(t, err)

	after, err := f.datasets.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, after.LastModified.After(before.LastModified),
		"grant-list edit must advance the dataset timestamp")
}
