package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps one row per session; Save upserts.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		session_id TEXT PRIMARY KEY,
		world_context TEXT NOT NULL,
		task_context TEXT NOT NULL,
		execution_context TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("init snapshots table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) error {
	world, err := json.Marshal(snap.World)
	if err != nil {
		return err
	}
	task, err := json.Marshal(snap.Task)
	if err != nil {
		return err
	}
	execution, err := json.Marshal(snap.Execution)
	if err != nil {
		return err
	}

	updatedAt := snap.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (session_id, world_context, task_context, execution_context, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   world_context=excluded.world_context,
		   task_context=excluded.task_context,
		   execution_context=excluded.execution_context,
		   updated_at=excluded.updated_at`,
		snap.SessionID, string(world), string(task), string(execution), updatedAt)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", snap.SessionID, err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, sessionID string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT world_context, task_context, execution_context, updated_at
		 FROM snapshots WHERE session_id=?`, sessionID)

	var world, task, execution string
	snap := &Snapshot{SessionID: sessionID}
	err := row.Scan(&world, &task, &execution, &snap.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", sessionID, err)
	}

	if err := json.Unmarshal([]byte(world), &snap.World); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(task), &snap.Task); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(execution), &snap.Execution); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
