// Package memory provides the in-memory session store, suitable for tests
// and single-process runs without durability requirements.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aqinsight/aqinsight/internal/core/checkpoint"
	"github.com/aqinsight/aqinsight/pkg/serialization"
)

// Store implements checkpoint.Store with a mutex-guarded map. Checkpoints
// are held serialized: Save snapshots the record, so later mutations of the
// caller's run state cannot leak into a stored checkpoint, and Load always
// hands back an independent copy.
type Store struct {
	mu         sync.RWMutex
	sessions   map[string][]byte
	serializer *serialization.Serializer
}

// New creates an in-memory store. A nil serializer selects the default
// MessagePack+zstd pipeline.
func New(serializer *serialization.Serializer) *Store {
	if serializer == nil {
		serializer = serialization.Default()
	}
	return &Store{
		sessions:   make(map[string][]byte),
		serializer: serializer,
	}
}

// Save atomically replaces the session's checkpoint.
func (s *Store) Save(_ context.Context, cp *checkpoint.Checkpoint) error {
	if err := cp.Validate(); err != nil {
		return fmt.Errorf("checkpoint validation failed: %w", err)
	}
	data, err := s.serializer.Serialize(cp)
	if err != nil {
		return fmt.Errorf("%w: %v", checkpoint.ErrSaveFailed, err)
	}

	s.mu.Lock()
	s.sessions[cp.SessionID] = data
	s.mu.Unlock()
	return nil
}

// Load retrieves the checkpoint for a session.
func (s *Store) Load(_ context.Context, sessionID string) (*checkpoint.Checkpoint, error) {
	s.mu.RLock()
	data, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, checkpoint.ErrNotFound
	}

	var cp checkpoint.Checkpoint
	if err := s.serializer.Deserialize(data, &cp); err != nil {
		return nil, fmt.Errorf("%w: %v", checkpoint.ErrLoadFailed, err)
	}
	return &cp, nil
}

// Delete removes a session's checkpoint.
func (s *Store) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return checkpoint.ErrNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}
