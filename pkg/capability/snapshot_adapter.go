package capability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cobaltgrid/axon/pkg/agentctx"
	"github.com/cobaltgrid/axon/pkg/snapshot"
)

// SnapshotAdapter lets the model persist or restore its own context
// buffers through the same store the engine lifecycle uses.
type SnapshotAdapter struct {
	store snapshot.Store
	actx  *agentctx.Store
}

func NewSnapshotAdapter(store snapshot.Store, actx *agentctx.Store) *SnapshotAdapter {
	return &SnapshotAdapter{store: store, actx: actx}
}

func (a *SnapshotAdapter) Name() string {
	return "SnapshotAdapter"
}

func (a *SnapshotAdapter) Actions() []string {
	return []string{"persist", "restore"}
}

func (a *SnapshotAdapter) Invoke(ctx context.Context, action string, _ map[string]any) (string, error) {
	switch action {
	case "persist":
		snap := snapshot.Snapshot{
			SessionID: a.actx.SessionID(),
			World:     a.actx.World(),
			Task:      a.actx.Task(),
			Execution: a.actx.Execution(),
			UpdatedAt: time.Now().UTC(),
		}
		if err := a.store.Save(ctx, snap); err != nil {
			return "", err
		}
		return fmt.Sprintf("persisted session %s", snap.SessionID), nil

	case "restore":
		snap, err := a.store.Load(ctx, a.actx.SessionID())
		if errors.Is(err, snapshot.ErrNotFound) {
			return "no snapshot to restore", nil
		}
		if err != nil {
			return "", err
		}
		a.actx.ReplaceWorld(snap.World)
		a.actx.ReplaceTask(snap.Task)
		a.actx.ReplaceExecution(snap.Execution)
		return fmt.Sprintf("restored session %s", snap.SessionID), nil

	default:
		return "", fmt.Errorf("%w: %s.%s", ErrActionNotFound, a.Name(), action)
	}
}
