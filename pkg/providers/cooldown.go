package providers

import (
	"sync"
	"time"
)

const (
	baseCooldown = 30 * time.Second
	maxCooldown  = 10 * time.Minute
)

// CooldownTracker keeps per-endpoint failure state so repeatedly failing
// backends are skipped for a while instead of burning attempts. Consecutive
// failures double the cooldown up to maxCooldown; one success resets it.
type CooldownTracker struct {
	mu      sync.Mutex
	entries map[string]*cooldownEntry
	now     func() time.Time
}

type cooldownEntry struct {
	failures int
	until    time.Time
}

func NewCooldownTracker() *CooldownTracker {
	return &CooldownTracker{
		entries: make(map[string]*cooldownEntry),
		now:     time.Now,
	}
}

// EndpointKey builds the tracking key for an endpoint.
func EndpointKey(ep Endpoint) string {
	return ep.Name + "/" + ep.Model
}

func (t *CooldownTracker) IsAvailable(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		return true
	}
	return !t.now().Before(e.until)
}

func (t *CooldownTracker) CooldownRemaining(key string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		return 0
	}
	remaining := e.until.Sub(t.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (t *CooldownTracker) MarkSuccess(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
}

func (t *CooldownTracker) MarkFailure(key string, reason FailoverReason) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok {
		e = &cooldownEntry{}
		t.entries[key] = e
	}
	e.failures++

	d := baseCooldown << (e.failures - 1)
	if d > maxCooldown || d <= 0 {
		d = maxCooldown
	}
	// Auth and billing failures won't clear on their own; back off hard.
	if reason == FailoverAuth || reason == FailoverBilling {
		d = maxCooldown
	}
	e.until = t.now().Add(d)
}
