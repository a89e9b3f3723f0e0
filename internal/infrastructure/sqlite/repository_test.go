package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obarth/ogate/internal/history"
	"github.com/obarth/ogate/internal/object"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sizeKey() history.Key {
	return history.Key{Kind: "read", Name: object.MustParseName("my:type=Cache"), Attribute: "Size"}
}

func TestRepository_AppendAndRecent(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	key := sizeKey()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Append(ctx, key, int64(i), base.Add(time.Duration(i)*time.Second)))
	}

	entries, err := repo.Recent(ctx, key, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	// Oldest first within the most recent page.
	assert.Equal(t, float64(2), entries[0].Value)
	assert.Equal(t, float64(4), entries[2].Value)
}

func TestRepository_Recent_EmptySeries(t *testing.T) {
	repo := openTestRepo(t)

	entries, err := repo.Recent(context.Background(), sizeKey(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRepository_Prune(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	key := sizeKey()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Append(ctx, key, "old", base))
	require.NoError(t, repo.Append(ctx, key, "new", base.Add(time.Hour)))

	pruned, err := repo.Prune(ctx, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	entries, err := repo.Recent(ctx, key, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].Value)
}

func TestRepository_Series(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	writeKey := history.Key{Kind: "write", Name: object.MustParseName("my:type=Cache"), Attribute: "Size"}
	require.NoError(t, repo.Append(ctx, sizeKey(), 1, time.Now()))
	require.NoError(t, repo.Append(ctx, sizeKey(), 2, time.Now()))
	require.NoError(t, repo.Append(ctx, writeKey, 3, time.Now()))

	keys, err := repo.Series(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "read", keys[0].Kind)
	assert.Equal(t, "write", keys[1].Kind)
}
