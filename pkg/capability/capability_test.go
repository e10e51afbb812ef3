package capability

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobaltgrid/axon/pkg/protocol"
)

// fakeCapability is a minimal capability for registry tests.
type fakeCapability struct {
	name    string
	actions []string
	invoke  func(action string, params map[string]any) (string, error)
}

func (f *fakeCapability) Name() string      { return f.name }
func (f *fakeCapability) Actions() []string { return f.actions }

func (f *fakeCapability) Invoke(_ context.Context, action string, params map[string]any) (string, error) {
	if f.invoke != nil {
		return f.invoke(action, params)
	}
	return "ok", nil
}

func TestRegistryListSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeCapability{name: "Zeta", actions: []string{"a"}})
	r.Register(&fakeCapability{name: "Alpha", actions: []string{"a"}})
	r.Register(&fakeCapability{name: "Mid", actions: []string{"a"}})

	assert.Equal(t, []string{"Alpha", "Mid", "Zeta"}, r.List())
	assert.Equal(t, 3, r.Count())
}

func TestRegistryDuplicateReplacesPrevious(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeCapability{name: "A", actions: []string{"old"}})
	r.Register(&fakeCapability{name: "A", actions: []string{"new"}})

	c, ok := r.Get("A")
	require.True(t, ok)
	assert.Equal(t, []string{"new"}, c.Actions())
	assert.Equal(t, 1, r.Count())
}

func TestDispatch(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeCapability{
		name:    "Echo",
		actions: []string{"say"},
		invoke: func(action string, params map[string]any) (string, error) {
			return "said: " + params["text"].(string), nil
		},
	})

	out, err := r.Dispatch(context.Background(), &protocol.FunctionCall{
		Capability: "Echo",
		Action:     "say",
		Params:     map[string]any{"text": "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "said: hello", out)
}

func TestDispatchUnknownCapability(t *testing.T) {
	r := NewRegistry()
	_, err := r.Dispatch(context.Background(), &protocol.FunctionCall{
		Capability: "Nope",
		Action:     "x",
		Params:     map[string]any{},
	})
	assert.ErrorIs(t, err, ErrCapabilityNotFound)
}

func TestDispatchUnknownAction(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeCapability{name: "Echo", actions: []string{"say"}})

	_, err := r.Dispatch(context.Background(), &protocol.FunctionCall{
		Capability: "Echo",
		Action:     "shout",
		Params:     map[string]any{},
	})
	assert.ErrorIs(t, err, ErrActionNotFound)
}

func TestDispatchPropagatesInvokeError(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistry()
	r.Register(&fakeCapability{
		name:    "Flaky",
		actions: []string{"go"},
		invoke: func(string, map[string]any) (string, error) {
			return "", boom
		},
	})

	_, err := r.Dispatch(context.Background(), &protocol.FunctionCall{
		Capability: "Flaky",
		Action:     "go",
		Params:     map[string]any{},
	})
	assert.ErrorIs(t, err, boom)
}

func TestLogAdapter(t *testing.T) {
	a := NewLogAdapter()
	assert.Equal(t, "LogAdapter", a.Name())
	assert.Equal(t, []string{"log"}, a.Actions())

	out, err := a.Invoke(context.Background(), "log", map[string]any{"output": "logging a haiku!"})
	require.NoError(t, err)
	assert.Equal(t, "logged: logging a haiku!", out)

	_, err = a.Invoke(context.Background(), "log", map[string]any{})
	assert.Error(t, err)

	_, err = a.Invoke(context.Background(), "dance", map[string]any{"output": "x"})
	assert.ErrorIs(t, err, ErrActionNotFound)
}

func TestStringParam(t *testing.T) {
	params := map[string]any{"s": "value", "n": 3.0}

	got, err := StringParam(params, "s")
	require.NoError(t, err)
	assert.Equal(t, "value", got)

	_, err = StringParam(params, "missing")
	assert.Error(t, err)

	_, err = StringParam(params, "n")
	assert.Error(t, err)
}

func TestIntParam(t *testing.T) {
	params := map[string]any{"f": 7.0, "i": 2, "s": "nope"}

	got, err := IntParam(params, "f", 0)
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	got, err = IntParam(params, "i", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, got)

	got, err = IntParam(params, "absent", 42)
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	_, err = IntParam(params, "s", 0)
	assert.Error(t, err)
}

func TestSummaries(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeCapability{name: "B", actions: []string{"y", "x"}})
	r.Register(&fakeCapability{name: "A", actions: []string{"z"}})

	got := r.Summaries()
	require.Len(t, got, 2)
	assert.Equal(t, fmt.Sprintf("- A: %v", []string{"z"}), got[0])
	assert.Equal(t, fmt.Sprintf("- B: %v", []string{"x", "y"}), got[1])
}
