package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobaltgrid/axon/pkg/agentctx"
	"github.com/cobaltgrid/axon/pkg/capability"
	"github.com/cobaltgrid/axon/pkg/snapshot"
)

func TestRunnerStartStop(t *testing.T) {
	source := &scriptedSource{}
	engine, _ := newTestEngine(t, source, false)
	runner := NewRunner(engine, 10*time.Millisecond)

	runner.Start(context.Background())
	// Idempotent: a second Start must not spawn another loop.
	runner.Start(context.Background())

	require.Eventually(t, func() bool {
		return !runner.LastHeartbeat().IsZero()
	}, time.Second, 5*time.Millisecond)

	runner.Stop()
	runner.Stop()
}

func TestRunnerPublishesCompletedTicks(t *testing.T) {
	source := &scriptedSource{replies: []string{
		"log the haiku",
		logHaikuCall,
	}}
	engine, actx := newTestEngine(t, source, false)
	actx.ReplaceTask([]string{"write a haiku"})

	runner := NewRunner(engine, 10*time.Millisecond)
	runner.Start(context.Background())
	defer runner.Stop()

	select {
	case ev := <-runner.Events():
		assert.Equal(t, EventTickCompleted, ev.Kind)
		require.Len(t, ev.Results, 1)
		assert.Equal(t, "logged: logging a haiku!", ev.Results[0].Output)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestRunnerIdlesOnEmptyQueue(t *testing.T) {
	source := &scriptedSource{}
	engine, _ := newTestEngine(t, source, false)

	runner := NewRunner(engine, 10*time.Millisecond)
	runner.Start(context.Background())
	defer runner.Stop()

	require.Eventually(t, func() bool {
		return !runner.LastHeartbeat().IsZero()
	}, time.Second, 5*time.Millisecond)

	// Empty-queue ticks idle the loop; they must not surface as failures.
	select {
	case ev := <-runner.Events():
		t.Fatalf("unexpected event on idle loop: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRunnerPersistsOnStop(t *testing.T) {
	store, err := snapshot.NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	source := &scriptedSource{}
	actx := agentctx.NewStore(agentctx.Settings{N: 1})
	engine := NewEngine(actx, source, capability.NewRegistry(), store)
	actx.ReplaceWorld([]string{"known state"})

	runner := NewRunner(engine, time.Hour)
	runner.Start(context.Background())

	require.Eventually(t, func() bool {
		return !runner.LastHeartbeat().IsZero()
	}, time.Second, 5*time.Millisecond)
	runner.Stop()

	snap, err := store.Load(context.Background(), actx.SessionID())
	require.NoError(t, err)
	assert.Equal(t, []string{"known state"}, snap.World)
}

func TestRunnerStopsOnFatalTick(t *testing.T) {
	source := &scriptedSource{replies: []string{
		"log the haiku",
		"prose", "prose", "prose",
	}}
	engine, actx := newTestEngine(t, source, false)
	actx.ReplaceTask([]string{"write a haiku"})

	runner := NewRunner(engine, 10*time.Millisecond)
	runner.Start(context.Background())
	defer runner.Stop()

	select {
	case ev := <-runner.Events():
		assert.Equal(t, EventTickFailed, ev.Kind)
		var exhausted *CallExhaustedError
		assert.ErrorAs(t, ev.Err, &exhausted)
	case <-time.After(time.Second):
		t.Fatal("no failure event published")
	}
}
