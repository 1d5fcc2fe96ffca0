// Package postgres provides the PostgreSQL session store for deployments
// where sessions must survive the host.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aqinsight/aqinsight/internal/core/checkpoint"
	"github.com/aqinsight/aqinsight/internal/core/workflow"
	"github.com/aqinsight/aqinsight/pkg/serialization"
)

// Store implements checkpoint.Store on PostgreSQL. One row per session,
// replaced with an UPSERT so a concurrent reader sees either the old or the
// new record, never a mix.
type Store struct {
	pool       *pgxpool.Pool
	serializer *serialization.Serializer
	tableName  string
}

// New wraps an existing connection pool. A nil serializer selects the
// default MessagePack+zstd pipeline. CreateTable must be called before use.
func New(pool *pgxpool.Pool, serializer *serialization.Serializer) *Store {
	if serializer == nil {
		serializer = serialization.Default()
	}
	return &Store{
		pool:       pool,
		serializer: serializer,
		tableName:  "sessions",
	}
}

// Open connects to the database at dsn and prepares the schema.
func Open(ctx context.Context, dsn string, serializer *serialization.Serializer) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	s := New(pool, serializer)
	if err := s.CreateTable(ctx); err != nil {
		pool.Close()
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
			suspended  BOOLEAN NOT NULL,
			last_error TEXT NOT NULL DEFAULT '',
			state      BYTEA NOT NULL,
			updated_at BIGINT NOT NULL,
			version    TEXT NOT NULL DEFAULT '1.0'
		)
	`, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
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
		INSERT INTO %s (session_id, run_id, next_step, suspended, last_error, state, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			next_step = EXCLUDED.next_step,
			suspended = EXCLUDED.suspended,
			last_error = EXCLUDED.last_error,
			state = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at,
			version = EXCLUDED.version
	`, s.tableName)

	_, err = s.pool.Exec(ctx, query,
		cp.SessionID, cp.RunID, string(cp.NextStep), cp.Suspended, cp.LastError, data, cp.UpdatedAt.Unix(), cp.Version)
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
		WHERE session_id = $1
	`, s.tableName)

	var cp checkpoint.Checkpoint
	var nextStep string
	var data []byte
	var updatedAt int64

	err := s.pool.QueryRow(ctx, query, sessionID).Scan(
		&cp.SessionID, &cp.RunID, &nextStep, &cp.Suspended, &cp.LastError, &data, &updatedAt, &cp.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, checkpoint.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", checkpoint.ErrLoadFailed, err)
	}

	cp.NextStep = workflow.Step(nextStep)
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

	query := fmt.Sprintf("DELETE FROM %s WHERE session_id = $1", s.tableName)
	tag, err := s.pool.Exec(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("%w: %v", checkpoint.ErrDeleteFailed, err)
	}
	if tag.RowsAffected() == 0 {
		return checkpoint.ErrNotFound
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
