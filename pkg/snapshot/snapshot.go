// Package snapshot persists agent context state between runs. The engine
// writes a snapshot on phase-out and restores it on phase-in; the stores
// never interpret buffer contents.
package snapshot

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Load when no snapshot exists for the session.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is one persisted view of an agent's three context buffers.
type Snapshot struct {
	SessionID string    `json:"session_id"`
	World     []string  `json:"world_context"`
	Task      []string  `json:"task_context"`
	Execution []string  `json:"execution_context"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the persistence sink. Save overwrites any previous snapshot for
// the same session; Load returns the latest.
type Store interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, sessionID string) (*Snapshot, error)
	Close() error
}
