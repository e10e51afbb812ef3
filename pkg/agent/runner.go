package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cobaltgrid/axon/pkg/agentctx"
	"github.com/cobaltgrid/axon/pkg/logger"
)

// EventKind tags the entries the runner publishes on its event channel.
type EventKind string

const (
	EventTickCompleted EventKind = "tick_completed"
	EventTickFailed    EventKind = "tick_failed"
	EventStopped       EventKind = "stopped"
)

// Event is one observation from the runner loop.
type Event struct {
	Kind    EventKind
	Results []DispatchResult
	Err     error
	At      time.Time
}

// Runner drives an Engine on a fixed interval until stopped. A fatal tick
// error stops the loop; transient no-task ticks do not.
type Runner struct {
	engine   *Engine
	interval time.Duration

	mu            sync.Mutex
	cancel        context.CancelFunc
	done          chan struct{}
	events        chan Event
	lastHeartbeat time.Time
}

func NewRunner(engine *Engine, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Runner{
		engine:   engine,
		interval: interval,
		events:   make(chan Event, 64),
	}
}

// Events exposes the runner's outcome stream. Slow consumers drop events
// rather than stall the loop.
func (r *Runner) Events() <-chan Event {
	return r.events
}

// LastHeartbeat reports when the loop last completed an iteration.
func (r *Runner) LastHeartbeat() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastHeartbeat
}

// Start launches the tick loop. The first tick runs immediately.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	logger.InfoCF("runner", "starting tick loop", map[string]any{
		"interval": r.interval.String(),
	})
	go r.loop(ctx)
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if !r.runOnce(ctx) {
			return
		}
		select {
		case <-ctx.Done():
			r.publish(Event{Kind: EventStopped, At: time.Now()})
			return
		case <-ticker.C:
		}
	}
}

// runOnce executes a single tick and reports whether the loop should
// continue.
func (r *Runner) runOnce(ctx context.Context) bool {
	results, err := r.engine.Tick(ctx)

	r.mu.Lock()
	r.lastHeartbeat = time.Now()
	r.mu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			r.publish(Event{Kind: EventStopped, At: time.Now()})
			return false
		}
		// An empty task queue means the loop idles until the next tick,
		// not that the loop dies.
		if errors.Is(err, agentctx.ErrNoTasks) {
			logger.DebugC("runner", "no tasks queued, idling")
			return true
		}
		logger.ErrorCF("runner", "tick failed", map[string]any{"error": err.Error()})
		r.publish(Event{Kind: EventTickFailed, Results: results, Err: err, At: time.Now()})
		return false
	}

	if len(results) > 0 {
		r.publish(Event{Kind: EventTickCompleted, Results: results, At: time.Now()})
	}
	return true
}

func (r *Runner) publish(ev Event) {
	select {
	case r.events <- ev:
	default:
	}
}

// Stop cancels the loop and waits for it to exit.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	r.engine.Persist(context.Background())
	logger.InfoC("runner", "tick loop stopped")
}
