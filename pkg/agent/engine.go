package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cobaltgrid/axon/pkg/agentctx"
	"github.com/cobaltgrid/axon/pkg/capability"
	"github.com/cobaltgrid/axon/pkg/logger"
	"github.com/cobaltgrid/axon/pkg/protocol"
	"github.com/cobaltgrid/axon/pkg/providers"
	"github.com/cobaltgrid/axon/pkg/snapshot"
)

// maxCallAttempts bounds the generate/validate repair loop for one
// execution step, counting the first generation.
const maxCallAttempts = 3

// CompletionSource is the slice of the gateway the engine needs.
// *providers.Gateway satisfies it; tests substitute scripted sources.
type CompletionSource interface {
	Complete(ctx context.Context, req providers.CompletionRequest) (*providers.CompletionResult, error)
}

// DispatchResult records the outcome of one execution step within a tick.
type DispatchResult struct {
	Step   string
	Call   *protocol.FunctionCall
	Output string
	Err    error
}

// CallExhaustedError is fatal for the tick: the model failed to produce a
// valid function call within the attempt budget for one step.
type CallExhaustedError struct {
	Step        string
	Attempts    int
	LastPayload string
}

func (e *CallExhaustedError) Error() string {
	return fmt.Sprintf("no valid function call for step %q after %d attempts, last reply: %s",
		e.Step, e.Attempts, snippet(e.LastPayload))
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}

// Engine runs the world, task and execution phases of a single tick over
// one context store.
type Engine struct {
	actx      *agentctx.Store
	source    CompletionSource
	registry  *capability.Registry
	snapshots snapshot.Store
}

func NewEngine(actx *agentctx.Store, source CompletionSource, registry *capability.Registry, snapshots snapshot.Store) *Engine {
	return &Engine{
		actx:      actx,
		source:    source,
		registry:  registry,
		snapshots: snapshots,
	}
}

func (e *Engine) params() providers.GenerationParams {
	s := e.actx.Settings()
	return providers.GenerationParams{
		MaxTokens:        s.MaxTokens,
		N:                s.N,
		Temperature:      s.Temperature,
		TopP:             s.TopP,
		FrequencyPenalty: s.FrequencyPenalty,
		PresencePenalty:  s.PresencePenalty,
	}
}

func (e *Engine) complete(ctx context.Context, system, user string) (*providers.CompletionResult, error) {
	return e.source.Complete(ctx, providers.CompletionRequest{
		SystemPrompt: system,
		UserPrompt:   user,
		Params:       e.params(),
	})
}

// Tick runs one full cycle: refresh the world context when enabled, pop
// and decompose the next task into execution steps, then drive every step
// through the function-call protocol and dispatch it. The execution buffer
// is cleared once all steps ran. Returns the per-step results; a non-nil
// error means the tick aborted and the remaining steps did not run.
func (e *Engine) Tick(ctx context.Context) ([]DispatchResult, error) {
	started := time.Now()

	if e.actx.Settings().WorldEnabled {
		if err := e.worldTick(ctx); err != nil {
			return nil, fmt.Errorf("world tick: %w", err)
		}
	}

	task, err := e.actx.PopNextTask()
	if err != nil {
		// ErrNoTasks surfaces as-is so callers can tell an idle tick from
		// a failed one.
		return nil, err
	}

	if err := e.taskTick(ctx, task); err != nil {
		return nil, fmt.Errorf("task tick: %w", err)
	}

	steps := e.actx.Execution()
	results := make([]DispatchResult, 0, len(steps))
	for _, step := range steps {
		res, err := e.executeStep(ctx, step)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}

	e.actx.ReplaceExecution(nil)
	e.persist(ctx)

	logger.InfoCF("engine", "tick completed", map[string]any{
		"session_id":  e.actx.SessionID(),
		"task":        task,
		"steps":       len(steps),
		"duration_ms": time.Since(started).Milliseconds(),
	})
	return results, nil
}

// worldTick replaces the world buffer with one observation per model
// choice.
func (e *Engine) worldTick(ctx context.Context) error {
	prompt := e.actx.Aggregate(true, true, false)
	result, err := e.complete(ctx, worldInstruction, prompt)
	if err != nil {
		return err
	}
	e.actx.ReplaceWorld(result.Contents())
	return nil
}

func (e *Engine) taskTick(ctx context.Context, task string) error {
	prompt := e.actx.Aggregate(true, true, true) +
		"\n\nNEXT TASK:\n" + task
	result, err := e.complete(ctx, taskInstruction, prompt)
	if err != nil {
		return err
	}

	var steps []string
	for _, part := range strings.Split(result.FirstContent(), "|") {
		if part = strings.TrimSpace(part); part != "" {
			steps = append(steps, part)
		}
	}
	e.actx.ReplaceExecution(steps)

	logger.DebugCF("engine", "task decomposed", map[string]any{
		"task":  task,
		"steps": len(steps),
	})
	return nil
}

// executeStep generates a function call for one step, regenerating with
// the same prompt on protocol violations up to the attempt budget, then
// dispatches it. A dispatch failure of any kind is fatal: the error comes
// back alongside the result and the tick aborts.
func (e *Engine) executeStep(ctx context.Context, step string) (DispatchResult, error) {
	prompt := e.actx.Aggregate(true, true, true) +
		"\n\nAVAILABLE CAPABILITIES:\n" + strings.Join(e.registry.Summaries(), "\n") +
		"\n\nCURRENT STEP:\n" + step

	var lastReply string
	for attempt := 1; attempt <= maxCallAttempts; attempt++ {
		result, err := e.complete(ctx, executionInstruction, prompt)
		if err != nil {
			return DispatchResult{Step: step}, err
		}
		reply := result.FirstContent()
		lastReply = reply

		payload := protocol.ExtractObject(reply)
		call, err := protocol.Parse(payload)
		if err != nil {
			logger.WarnCF("engine", "invalid function call, retrying", map[string]any{
				"step":    step,
				"attempt": attempt,
				"reply":   snippet(reply),
			})
			continue
		}

		output, err := e.registry.Dispatch(ctx, call)
		if err != nil {
			return DispatchResult{Step: step, Call: call, Err: err},
				fmt.Errorf("step %q: %w", step, err)
		}
		return DispatchResult{Step: step, Call: call, Output: output}, nil
	}

	return DispatchResult{Step: step}, &CallExhaustedError{
		Step:        step,
		Attempts:    maxCallAttempts,
		LastPayload: lastReply,
	}
}

// Persist writes the current context buffers to the snapshot store. The
// runner calls it on shutdown so a stop between ticks loses nothing.
func (e *Engine) Persist(ctx context.Context) {
	e.persist(ctx)
}

func (e *Engine) persist(ctx context.Context) {
	if e.snapshots == nil {
		return
	}
	err := e.snapshots.Save(ctx, snapshot.Snapshot{
		SessionID: e.actx.SessionID(),
		World:     e.actx.World(),
		Task:      e.actx.Task(),
		Execution: e.actx.Execution(),
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		logger.ErrorCF("engine", "snapshot save failed", map[string]any{"error": err.Error()})
	}
}
