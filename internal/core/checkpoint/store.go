// Package checkpoint provides checkpoint persistence interfaces
package checkpoint

import "context"

// Store persists one checkpoint per session (DIP - Dependency Inversion).
// Save replaces the session's record atomically: a concurrent Load never
// observes a half-written checkpoint.
type Store interface {
	// Save persists the checkpoint, replacing any prior record for the
	// same session.
	Save(ctx context.Context, cp *Checkpoint) error

	// Load retrieves the checkpoint for a session.
	Load(ctx context.Context, sessionID string) (*Checkpoint, error)

	// Delete removes a session's checkpoint.
	Delete(ctx context.Context, sessionID string) error
}
