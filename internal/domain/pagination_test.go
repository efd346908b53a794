package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequestOffset(t *testing.T) {
	assert.Equal(t, 0, PageRequest{}.Offset())
	assert.Equal(t, 0, PageRequest{PageToken: "!!not-base64!!"}.Offset())
	assert.Equal(t, 0, PageRequest{PageToken: "bm90LWEtbnVtYmVy"}.Offset()) // "not-a-number"
	assert.Equal(t, 42, PageRequest{PageToken: EncodePageToken(42)}.Offset())
}

func TestPageRequestLimit(t *testing.T) {
	assert.Equal(t, DefaultMaxResults, PageRequest{}.Limit())
	assert.Equal(t, DefaultMaxResults, PageRequest{MaxResults: -1}.Limit())
	assert.Equal(t, 25, PageRequest{MaxResults: 25}.Limit())
	assert.Equal(t, MaxMaxResults, PageRequest{MaxResults: 5000}.Limit())
}

func TestEncodePageToken(t *testing.T) {
	assert.Empty(t, EncodePageToken(0))
	assert.Empty(t, EncodePageToken(-3))
	assert.NotEmpty(t, EncodePageToken(1))
}

func TestNextPageToken(t *testing.T) {
	// Mid-collection: another page follows.
	tok := NextPageToken(0, 10, 25)
	assert.Equal(t, 10, PageRequest{PageToken: tok}.Offset())

	// Exact boundary and beyond: last page.
	assert.Empty(t, NextPageToken(10, 10, 20))
	assert.Empty(t, NextPageToken(20, 10, 25))
	assert.Empty(t, NextPageToken(0, 10, 0))
}
