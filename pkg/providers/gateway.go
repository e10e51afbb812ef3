package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cobaltgrid/axon/pkg/logger"
)

const DefaultMaxRetries = 3

// Gateway obtains completions with bounded retry against a primary endpoint
// and failover to an ordered backup list.
//
// Retry policy:
//   - MaxRetries is total attempts on the primary, not retries after the
//     first try: 3 means at most 3 primary calls.
//   - A 5xx status or a connection-level error escalates to the backup path
//     immediately, without consuming the remaining primary attempts.
//   - Any other failure is retried on the primary until attempts are
//     exhausted, then surfaced as *ExhaustedError.
//   - By default only backup index 0 is tried automatically; FailoverAll
//     walks the whole list in order, skipping endpoints in cooldown.
type Gateway struct {
	transport   Transport
	primary     Endpoint
	backups     []Endpoint
	maxRetries  int
	failoverAll bool
	cooldown    *CooldownTracker
}

type GatewayOption func(*Gateway)

// WithMaxRetries sets the total primary attempt budget.
func WithMaxRetries(n int) GatewayOption {
	return func(g *Gateway) {
		if n > 0 {
			g.maxRetries = n
		}
	}
}

// WithFailoverAll makes the gateway walk the entire backup list instead of
// stopping after backup index 0.
func WithFailoverAll() GatewayOption {
	return func(g *Gateway) {
		g.failoverAll = true
	}
}

func NewGateway(transport Transport, primary Endpoint, backups []Endpoint, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		transport:  transport,
		primary:    primary,
		backups:    backups,
		maxRetries: DefaultMaxRetries,
		cooldown:   NewCooldownTracker(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Attempt records one completion attempt for telemetry and error reporting.
type Attempt struct {
	Endpoint string
	Model    string
	Err      error
	Reason   FailoverReason
	Duration time.Duration
	Skipped  bool
}

// ExhaustedError means every permitted attempt failed.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("completion: all %d attempts failed:", len(e.Attempts)))
	for i, a := range e.Attempts {
		if a.Skipped {
			sb.WriteString(fmt.Sprintf("\n  [%d] %s/%s: skipped (cooldown)", i+1, a.Endpoint, a.Model))
			continue
		}
		sb.WriteString(fmt.Sprintf("\n  [%d] %s/%s: %v", i+1, a.Endpoint, a.Model, a.Err))
	}
	return sb.String()
}

// LastErr returns the error of the final non-skipped attempt.
func (e *ExhaustedError) LastErr() error {
	for i := len(e.Attempts) - 1; i >= 0; i-- {
		if !e.Attempts[i].Skipped {
			return e.Attempts[i].Err
		}
	}
	return nil
}

// Complete runs the full retry/failover algorithm for one request.
func (g *Gateway) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	var attempts []Attempt

	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, a := g.try(ctx, g.primary, req)
		attempts = append(attempts, a)
		if a.Err == nil {
			return res, nil
		}
		if errors.Is(a.Err, context.Canceled) {
			return nil, context.Canceled
		}

		// A server-side failure or a dead connection won't get better by
		// hammering the same endpoint: escalate to the backup path now.
		if len(g.backups) > 0 && (IsServerError(a.Err) || IsTransportError(a.Err)) {
			logger.WarnCF("gateway", "Primary failed, escalating to backup",
				map[string]any{
					"endpoint": g.primary.Name,
					"attempt":  attempt,
					"error":    a.Err.Error(),
				})
			return g.failover(ctx, req, attempts)
		}

		logger.WarnCF("gateway", "Completion attempt failed",
			map[string]any{
				"endpoint": g.primary.Name,
				"attempt":  attempt,
				"of":       g.maxRetries,
				"error":    a.Err.Error(),
			})
	}

	return nil, &ExhaustedError{Attempts: attempts}
}

// failover tries the backup list. Only index 0 is attempted unless the
// gateway was built with WithFailoverAll.
func (g *Gateway) failover(ctx context.Context, req CompletionRequest, attempts []Attempt) (*CompletionResult, error) {
	candidates := g.backups[:1]
	if g.failoverAll {
		candidates = g.backups
	}

	for _, backup := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ep := g.resolveBackup(backup)

		// Cooldown skipping only applies when there are more candidates to
		// move on to; the single-backup default always gets its shot.
		if g.failoverAll && !g.cooldown.IsAvailable(EndpointKey(ep)) {
			attempts = append(attempts, Attempt{
				Endpoint: ep.Name,
				Model:    ep.Model,
				Skipped:  true,
			})
			continue
		}

		res, a := g.try(ctx, ep, req)
		attempts = append(attempts, a)
		if a.Err == nil {
			return res, nil
		}
		if errors.Is(a.Err, context.Canceled) {
			return nil, context.Canceled
		}

		logger.WarnCF("gateway", "Backup attempt failed",
			map[string]any{
				"endpoint": ep.Name,
				"model":    ep.Model,
				"error":    a.Err.Error(),
			})
	}

	return nil, &ExhaustedError{Attempts: attempts}
}

// resolveBackup fills in fields a backup inherits from the primary.
func (g *Gateway) resolveBackup(backup Endpoint) Endpoint {
	if backup.APIKey == "" {
		backup.APIKey = g.primary.APIKey
	}
	if backup.Model == "" {
		backup.Model = g.primary.Model
	}
	return backup
}

func (g *Gateway) try(ctx context.Context, ep Endpoint, req CompletionRequest) (*CompletionResult, Attempt) {
	start := time.Now()
	res, err := g.transport.Complete(ctx, ep, req)
	elapsed := time.Since(start)

	a := Attempt{
		Endpoint: ep.Name,
		Model:    ep.Model,
		Err:      err,
		Duration: elapsed,
	}

	key := EndpointKey(ep)
	if err == nil {
		g.cooldown.MarkSuccess(key)
		if len(res.Choices) == 0 {
			a.Err = fmt.Errorf("endpoint %s returned no choices", ep.Name)
			return nil, a
		}
		return res, a
	}

	if classified := ClassifyError(err, ep.Name, ep.Model); classified != nil {
		a.Reason = classified.Reason
		g.cooldown.MarkFailure(key, classified.Reason)
	} else if !errors.Is(err, context.Canceled) {
		a.Reason = FailoverUnknown
		g.cooldown.MarkFailure(key, FailoverUnknown)
	}
	return nil, a
}
