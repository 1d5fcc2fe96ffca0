// Package checkpoint provides the durable snapshot written after every
// workflow transition and the store interface that persists it, following
// Clean Architecture principles with zero external dependencies.
package checkpoint

import (
	"time"

	"github.com/aqinsight/aqinsight/internal/core/state"
	"github.com/aqinsight/aqinsight/internal/core/workflow"
)

// Version is the current checkpoint schema version.
const Version = "1.0"

// Checkpoint is one session's persisted run snapshot. Exactly one live
// checkpoint exists per session; a fresh Start under the same session id
// replaces it.
type Checkpoint struct {
	SessionID string        `json:"session_id" msgpack:"session_id"`
	RunID     string        `json:"run_id" msgpack:"run_id"`
	NextStep  workflow.Step `json:"next_step" msgpack:"next_step"` // empty once the run has terminated
	Suspended bool          `json:"suspended" msgpack:"suspended"` // parked at the suspend point awaiting approval
	LastError string        `json:"last_error,omitempty" msgpack:"last_error"`
	State     *state.Run    `json:"state" msgpack:"state"`
	UpdatedAt time.Time     `json:"updated_at" msgpack:"updated_at"`
	Version   string        `json:"version" msgpack:"version"`
}

// Validate ensures checkpoint integrity before persistence.
func (c *Checkpoint) Validate() error {
	if c.SessionID == "" {
		return ErrInvalidSessionID
	}
	if c.RunID == "" {
		return ErrInvalidRunID
	}
	if c.State == nil {
		return ErrNilState
	}
	if c.NextStep != "" && !workflow.Known(c.NextStep) {
		return ErrUnknownNextStep
	}
	return nil
}

// Terminated reports whether the recorded run has reached the terminal
// state. No step may execute after that.
func (c *Checkpoint) Terminated() bool {
	return c.NextStep == ""
}
