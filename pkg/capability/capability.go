// Package capability exposes named, enumerable actions to the tick engine.
// Each capability implements a closed switch over its known action names;
// there is no reflection and the set of capabilities is fixed at
// registration time.
package capability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cobaltgrid/axon/pkg/logger"
	"github.com/cobaltgrid/axon/pkg/protocol"
)

var (
	ErrCapabilityNotFound = errors.New("capability not found")
	ErrActionNotFound     = errors.New("action not found")
)

// Capability is a named unit exposing a fixed set of callable actions.
// Invoke must validate the parameters it expects and return a typed error
// for mismatches; unknown action names return ErrActionNotFound.
type Capability interface {
	Name() string
	Actions() []string
	Invoke(ctx context.Context, action string, params map[string]any) (string, error)
}

// Registry resolves a parsed FunctionCall to a live action invocation. No
// two capabilities share a name; a duplicate registration replaces the
// previous one.
type Registry struct {
	mu           sync.RWMutex
	capabilities map[string]Capability
}

func NewRegistry() *Registry {
	return &Registry{
		capabilities: make(map[string]Capability),
	}
}

func (r *Registry) Register(c Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capabilities[c.Name()] = c
}

func (r *Registry) Get(name string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.capabilities[name]
	return c, ok
}

// List returns capability names in sorted order for deterministic prompts.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.capabilities))
	for name := range r.capabilities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.capabilities)
}

// Summaries returns "name: action, action" lines for embedding in prompts.
func (r *Registry) Summaries() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.capabilities))
	for name := range r.capabilities {
		names = append(names, name)
	}
	sort.Strings(names)

	summaries := make([]string, 0, len(names))
	for _, name := range names {
		c := r.capabilities[name]
		actions := append([]string(nil), c.Actions()...)
		sort.Strings(actions)
		summaries = append(summaries, fmt.Sprintf("- %s: %v", name, actions))
	}
	return summaries
}

// Dispatch resolves call and invokes it. Unknown capability or action and
// action-level failures are all terminal; the caller decides what a failed
// dispatch means for the surrounding tick.
func (r *Registry) Dispatch(ctx context.Context, call *protocol.FunctionCall) (string, error) {
	logger.InfoCF("capability", "Dispatch started",
		map[string]any{
			"capability": call.Capability,
			"action":     call.Action,
		})

	c, ok := r.Get(call.Capability)
	if !ok {
		logger.ErrorCF("capability", "Capability not found",
			map[string]any{"capability": call.Capability})
		return "", fmt.Errorf("%w: %q", ErrCapabilityNotFound, call.Capability)
	}

	if !hasAction(c, call.Action) {
		logger.ErrorCF("capability", "Action not found",
			map[string]any{
				"capability": call.Capability,
				"action":     call.Action,
			})
		return "", fmt.Errorf("%w: %s.%s", ErrActionNotFound, call.Capability, call.Action)
	}

	start := time.Now()
	result, err := c.Invoke(ctx, call.Action, call.Params)
	duration := time.Since(start)

	if err != nil {
		logger.ErrorCF("capability", "Dispatch failed",
			map[string]any{
				"capability":  call.Capability,
				"action":      call.Action,
				"duration_ms": duration.Milliseconds(),
				"error":       err.Error(),
			})
		return "", fmt.Errorf("dispatch %s.%s: %w", call.Capability, call.Action, err)
	}

	logger.InfoCF("capability", "Dispatch completed",
		map[string]any{
			"capability":  call.Capability,
			"action":      call.Action,
			"duration_ms": duration.Milliseconds(),
		})
	return result, nil
}

func hasAction(c Capability, action string) bool {
	for _, a := range c.Actions() {
		if a == action {
			return true
		}
	}
	return false
}

// StringParam pulls a required string parameter out of a call's parameter
// map, returning a typed error the dispatcher propagates unchanged.
func StringParam(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q must be a string, got %T", key, v)
	}
	return s, nil
}

// IntParam pulls an optional integer parameter, falling back to def. JSON
// numbers arrive as float64.
func IntParam(params map[string]any, key string, def int) (int, error) {
	v, ok := params[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, fmt.Errorf("parameter %q must be a number, got %T", key, v)
	}
}
