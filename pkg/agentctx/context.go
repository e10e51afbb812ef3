// Package agentctx holds the mutable per-agent state: three ordered
// context buffers plus generation settings. Replacement is always
// wholesale; there are no partial-update operations.
package agentctx

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrNoTasks is the distinct empty-queue condition PopNextTask signals so
// callers can tell "nothing to do" from a real failure.
var ErrNoTasks = errors.New("task context is empty")

// Settings is the generation configuration carried with the context.
type Settings struct {
	MaxTokens        int
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
	N                int
	WorldEnabled     bool
}

// Store owns the world, task and execution buffers. One Store belongs to
// one agent; ticks are serialized by the engine, the mutex just keeps
// observers (snapshots, status commands) safe.
type Store struct {
	mu        sync.RWMutex
	sessionID string
	world     []string
	task      []string
	execution []string
	settings  Settings
}

func NewStore(settings Settings) *Store {
	return &Store{
		sessionID: uuid.NewString(),
		settings:  settings,
	}
}

// NewStoreWithSession restores a store bound to an existing session handle.
func NewStoreWithSession(sessionID string, settings Settings) *Store {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &Store{
		sessionID: sessionID,
		settings:  settings,
	}
}

func (s *Store) SessionID() string {
	return s.sessionID
}

func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *Store) World() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.world...)
}

func (s *Store) Task() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.task...)
}

func (s *Store) Execution() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.execution...)
}

func (s *Store) ReplaceWorld(items []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.world = append([]string(nil), items...)
}

func (s *Store) ReplaceTask(items []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.task = append([]string(nil), items...)
}

func (s *Store) ReplaceExecution(items []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execution = append([]string(nil), items...)
}

// PopNextTask removes and returns the first task item, or ErrNoTasks when
// the buffer is empty.
func (s *Store) PopNextTask() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.task) == 0 {
		return "", ErrNoTasks
	}
	next := s.task[0]
	s.task = append([]string(nil), s.task[1:]...)
	return next, nil
}

const (
	worldLabel     = "WORLD_CONTEXT:"
	taskLabel      = "TASK_CONTEXT:"
	executionLabel = "EXECUTION_CONTEXT:"
)

// Aggregate concatenates the requested buffers, each prefixed with its
// fixed label, items joined by newline. Label order is always world, task,
// execution regardless of which subset is requested; omitted buffers
// contribute no label. Pure: no side effects.
func (s *Store) Aggregate(world, task, execution bool) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sections []string
	if world {
		sections = append(sections, worldLabel+"\n"+strings.Join(s.world, "\n"))
	}
	if task {
		sections = append(sections, taskLabel+"\n"+strings.Join(s.task, "\n"))
	}
	if execution {
		sections = append(sections, executionLabel+"\n"+strings.Join(s.execution, "\n"))
	}
	return strings.Join(sections, "\n")
}
