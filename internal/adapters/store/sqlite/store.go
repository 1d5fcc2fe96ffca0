// Package sqlite provides the durable SQLite session store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aqinsight/aqinsight/internal/core/checkpoint"
	"github.com/aqinsight/aqinsight/internal/core/workflow"
	"github.com/aqinsight/aqinsight/pkg/serialization"
)

// Store implements checkpoint.Store on SQLite. One row per session;
// INSERT OR REPLACE keeps the swap atomic, so readers never see a
// half-written record.
type Store struct {
	db         *sql.DB
	serializer *serialization.Serializer
	tableName  string
}

// New wraps an existing database handle. A nil serializer selects the
// default MessagePack+zstd pipeline. CreateTable must be called before use.
func New(db *sql.DB, serializer *serialization.Serializer) *Store {
	if serializer == nil {
		serializer = serialization.Default()
	}
	return &Store{
		db:         db,
		serializer: serializer,
		tableName:  "sessions",
	}
}

// Open opens (or creates) the database at path and prepares the schema.
func Open(path string, serializer *serialization.Serializer) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %q: %w", path, err)
	}
	s := New(db, serializer)
	if err := s.CreateTable(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// CreateTable prepares the session schema.
func (s *Store) CreateTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			session_id TEXT PRIMARY KEY,
			run_id     TEXT NOT NULL,
			next_step  TEXT NOT NULL,
			suspended  INTEGER NOT NULL,
			last_error TEXT NOT NULL DEFAULT '',
			state      BLOB NOT NULL,
			updated_at INTEGER NOT NULL,
			version    TEXT NOT NULL DEFAULT '1.0'
		);
	`, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create session table: %w", err)
	}
	return nil
}

// Save stores a checkpoint, replacing any prior record for the session.
func (s *Store) Save(ctx context.Context, cp *checkpoint.Checkpoint) error {
	if err := cp.Validate(); err != nil {
		return fmt.Errorf("checkpoint validation failed: %w", err)
	}
	data, err := s.serializer.Serialize(cp.State)
	if err != nil {
		return fmt.Errorf("failed to serialize run state: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s (session_id, run_id, next_step, suspended, last_error, state, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, s.tableName)

	suspended := 0
	if cp.Suspended {
		suspended = 1
	}
	_, err = s.db.ExecContext(ctx, query,
		cp.SessionID, cp.RunID, string(cp.NextStep), suspended, cp.LastError, data, cp.UpdatedAt.Unix(), cp.Version)
	if err != nil {
		return fmt.Errorf("%w: %v", checkpoint.ErrSaveFailed, err)
	}
	return nil
}

// Load retrieves the checkpoint for a session.
func (s *Store) Load(ctx context.Context, sessionID string) (*checkpoint.Checkpoint, error) {
	if sessionID == "" {
		return nil, checkpoint.ErrInvalidSessionID
	}

	query := fmt.Sprintf(`
		SELECT session_id, run_id, next_step, suspended, last_error, state, updated_at, version
		FROM %s
		WHERE session_id = ?
	`, s.tableName)

	var cp checkpoint.Checkpoint
	var nextStep string
	var suspended int
	var data []byte
	var updatedAt int64

	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(
		&cp.SessionID, &cp.RunID, &nextStep, &suspended, &cp.LastError, &data, &updatedAt, &cp.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, checkpoint.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", checkpoint.ErrLoadFailed, err)
	}

	cp.NextStep = workflow.Step(nextStep)
	cp.Suspended = suspended != 0
	cp.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	if err := s.serializer.Deserialize(data, &cp.State); err != nil {
		return nil, fmt.Errorf("failed to deserialize run state: %w", err)
	}
	return &cp, nil
}

// Delete removes a session's checkpoint.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return checkpoint.ErrInvalidSessionID
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE session_id = ?", s.tableName)
	result, err := s.db.ExecContext(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("%w: %v", checkpoint.ErrDeleteFailed, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return checkpoint.ErrNotFound
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
