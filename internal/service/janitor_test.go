package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datashelf/internal/domain"
)

func TestJanitorSweepRemovesOrphans(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	alice := f.mustAccount(t, "alice", "USER", true)
	d := f.mustDataset(t, "pbmc", true)
	healthy := f.mustGrant(t, alice.ID, d.ID)
	f.mustGrant(t, alice.ID, "gone-dataset")
	f.mustGrant(t, "gone-account", d.ID)

	require.NoError(t, f.janitor.Sweep(ctx))

	left, total, err := f.grants.FindAll(ctx, domain.PageRequest{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, healthy.ID, left[0].ID)
}

func TestJanitorSweepIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	alice := f.mustAccount(t, "alice", "USER", true)
	d := f.mustDataset(t, "pbmc", true)
	f.mustGrant(t, alice.ID, d.ID)

	require.NoError(t, f.janitor.Sweep(ctx))
	require.NoError(t, f.janitor.Sweep(ctx))

	left, _, err := f.grants.FindAll(ctx, domain.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, left, 1)
}
