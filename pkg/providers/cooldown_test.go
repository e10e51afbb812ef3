package providers

import (
	"testing"
	"time"
)

func newTestTracker(start time.Time) (*CooldownTracker, *time.Time) {
	current := start
	tr := NewCooldownTracker()
	tr.now = func() time.Time { return current }
	return tr, &current
}

func TestCooldownBackoff(t *testing.T) {
	tr, now := newTestTracker(time.Unix(1000, 0))
	key := "ep/model"

	if !tr.IsAvailable(key) {
		t.Fatal("fresh key should be available")
	}

	tr.MarkFailure(key, FailoverTimeout)
	if tr.IsAvailable(key) {
		t.Error("key should be cooling down after failure")
	}
	if got := tr.CooldownRemaining(key); got != 30*time.Second {
		t.Errorf("first cooldown = %v, want 30s", got)
	}

	// Second consecutive failure doubles the window.
	tr.MarkFailure(key, FailoverTimeout)
	if got := tr.CooldownRemaining(key); got != 60*time.Second {
		t.Errorf("second cooldown = %v, want 60s", got)
	}

	*now = now.Add(61 * time.Second)
	if !tr.IsAvailable(key) {
		t.Error("key should be available after cooldown expires")
	}
}

func TestCooldownCapsAtMax(t *testing.T) {
	tr, _ := newTestTracker(time.Unix(1000, 0))
	key := "ep/model"

	for i := 0; i < 12; i++ {
		tr.MarkFailure(key, FailoverTimeout)
	}
	if got := tr.CooldownRemaining(key); got != 10*time.Minute {
		t.Errorf("cooldown = %v, want capped at 10m", got)
	}
}

func TestCooldownAuthJumpsToMax(t *testing.T) {
	tr, _ := newTestTracker(time.Unix(1000, 0))

	tr.MarkFailure("a/m", FailoverAuth)
	if got := tr.CooldownRemaining("a/m"); got != 10*time.Minute {
		t.Errorf("auth cooldown = %v, want 10m", got)
	}

	tr.MarkFailure("b/m", FailoverBilling)
	if got := tr.CooldownRemaining("b/m"); got != 10*time.Minute {
		t.Errorf("billing cooldown = %v, want 10m", got)
	}
}

func TestCooldownSuccessResets(t *testing.T) {
	tr, _ := newTestTracker(time.Unix(1000, 0))
	key := "ep/model"

	tr.MarkFailure(key, FailoverTimeout)
	tr.MarkFailure(key, FailoverTimeout)
	tr.MarkSuccess(key)

	if !tr.IsAvailable(key) {
		t.Error("key should be available after success")
	}
	tr.MarkFailure(key, FailoverTimeout)
	if got := tr.CooldownRemaining(key); got != 30*time.Second {
		t.Errorf("cooldown after reset = %v, want 30s again", got)
	}
}

func TestEndpointKey(t *testing.T) {
	ep := Endpoint{Name: "backup-1", Model: "gpt-4o-mini"}
	if got := EndpointKey(ep); got != "backup-1/gpt-4o-mini" {
		t.Errorf("EndpointKey = %q", got)
	}
}
