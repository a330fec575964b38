package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/promptgallery/catalog"
	"github.com/eringen/promptgallery/filestore"
)

func TestSeedPrompts(t *testing.T) {
	store, err := filestore.Open(filestore.Options{Dir: t.TempDir()})
	require.NoError(t, err)
	ctx := context.Background()

	n, err := seedPrompts(ctx, store, false)
	require.NoError(t, err)
	assert.Equal(t, len(samplePrompts), n)

	n, err = seedPrompts(ctx, store, false)
	require.NoError(t, err)
	assert.Zero(t, n, "second run must not duplicate")

	n, err = seedPrompts(ctx, store, true)
	require.NoError(t, err)
	assert.Equal(t, len(samplePrompts), n)

	page, err := store.ListPrompts(ctx, catalog.Query{Page: 1, PageSize: 100})
	require.NoError(t, err)
	assert.Equal(t, 2*len(samplePrompts), page.Total)

	p, err := store.PromptBySlug(ctx, "neon-rain-over-shinjuku-1")
	require.NoError(t, err)
	assert.Equal(t, catalog.PlaceholderImage, p.CoverURL)
}
