package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/learnsync/internal/model"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "snapshot")

	store, err := NewFileStore(dir)
	require.NoError(t, err)

	_, err = store.Get(ctx, KeyUsers)
	require.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, store.Set(ctx, KeyUsers, []byte(`[]`)))
	require.NoError(t, store.Set(ctx, KeyUsers, []byte(`[{"id":"u1"}]`)))

	got, err := store.Get(ctx, KeyUsers)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"u1"}]`, string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "learnsync_users.json", entries[0].Name())

	require.NoError(t, store.Delete(ctx, KeyUsers))
	require.NoError(t, store.Delete(ctx, KeyUsers))
	_, err = store.Get(ctx, KeyUsers)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, New(first).SyncUser(ctx, testUser("u1", "a@example.com")))

	second, err := NewFileStore(dir)
	require.NoError(t, err)
	u, err := New(second).CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, []string{"c1", "c2"}, u.EnrolledCourses.Slice())
}
