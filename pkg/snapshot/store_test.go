package snapshot

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()

	sqliteStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)

	fileStore, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	stores := map[string]Store{
		"sqlite": sqliteStore,
		"file":   fileStore,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestStoreSaveLoad(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			snap := Snapshot{
				SessionID: "session-1",
				World:     []string{"sunny", "inbox empty"},
				Task:      []string{"write report"},
				Execution: []string{"open editor"},
				UpdatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
			}
			require.NoError(t, store.Save(ctx, snap))

			got, err := store.Load(ctx, "session-1")
			require.NoError(t, err)
			assert.Equal(t, snap.World, got.World)
			assert.Equal(t, snap.Task, got.Task)
			assert.Equal(t, snap.Execution, got.Execution)
			assert.Equal(t, "session-1", got.SessionID)
		})
	}
}

func TestStoreSaveOverwrites(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, Snapshot{SessionID: "s", Task: []string{"old"}}))
			require.NoError(t, store.Save(ctx, Snapshot{SessionID: "s", Task: []string{"new"}}))

			got, err := store.Load(ctx, "s")
			require.NoError(t, err)
			assert.Equal(t, []string{"new"}, got.Task)
		})
	}
}

func TestStoreLoadMissing(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load(context.Background(), "no-such-session")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreEmptyBuffers(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, Snapshot{SessionID: "empty"}))

			got, err := store.Load(ctx, "empty")
			require.NoError(t, err)
			assert.Empty(t, got.World)
			assert.Empty(t, got.Task)
			assert.Empty(t, got.Execution)
		})
	}
}

func TestStoreIsolatesSessions(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, Snapshot{SessionID: "a", Task: []string{"for a"}}))
			require.NoError(t, store.Save(ctx, Snapshot{SessionID: "b", Task: []string{"for b"}}))

			got, err := store.Load(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, []string{"for a"}, got.Task)
		})
	}
}
