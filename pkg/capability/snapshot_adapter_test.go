package capability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobaltgrid/axon/pkg/agentctx"
	"github.com/cobaltgrid/axon/pkg/snapshot"
)

func TestSnapshotAdapterPersistRestore(t *testing.T) {
	store, err := snapshot.NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	actx := agentctx.NewStore(agentctx.Settings{})
	actx.ReplaceWorld([]string{"raining"})
	actx.ReplaceTask([]string{"stay dry"})

	a := NewSnapshotAdapter(store, actx)
	ctx := context.Background()

	out, err := a.Invoke(ctx, "persist", nil)
	require.NoError(t, err)
	assert.Contains(t, out, actx.SessionID())

	actx.ReplaceWorld(nil)
	actx.ReplaceTask(nil)

	out, err = a.Invoke(ctx, "restore", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "restored")
	assert.Equal(t, []string{"raining"}, actx.World())
	assert.Equal(t, []string{"stay dry"}, actx.Task())
}

func TestSnapshotAdapterRestoreWithoutSnapshot(t *testing.T) {
	store, err := snapshot.NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	a := NewSnapshotAdapter(store, agentctx.NewStore(agentctx.Settings{}))

	out, err := a.Invoke(context.Background(), "restore", nil)
	require.NoError(t, err)
	assert.Equal(t, "no snapshot to restore", out)
}
