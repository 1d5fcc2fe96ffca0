// Package engine drives the fixed analysis graph. It executes steps in
// order, persists a checkpoint after every transition, parks execution at
// the suspend point until the caller issues an explicit resume, and bounds
// the summarize/critique cycle independent of critic policy.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/aqinsight/aqinsight/internal/app/summary"
	"github.com/aqinsight/aqinsight/internal/core/checkpoint"
	"github.com/aqinsight/aqinsight/internal/core/state"
	"github.com/aqinsight/aqinsight/internal/core/stats"
	"github.com/aqinsight/aqinsight/internal/core/workflow"
	"github.com/aqinsight/aqinsight/internal/infrastructure/metrics"
)

// DefaultMaxRefinements bounds the summarize/critique cycle when the caller
// does not configure a cap. It is a termination guarantee, not a tuning
// knob: the critic's own policy normally stops the loop much earlier.
const DefaultMaxRefinements = 10

// Config holds engine configuration.
type Config struct {
	// MaxRefinements is the most summarize passes a run may make. Zero
	// means DefaultMaxRefinements.
	MaxRefinements int
}

// Phase is the caller-visible condition of a session's run.
type Phase string

const (
	// PhaseSuspended means the run is parked, either at the suspend point
	// awaiting approval or at a step that has not run yet.
	PhaseSuspended Phase = "suspended"
	// PhaseCompleted means the run reached the terminal state.
	PhaseCompleted Phase = "completed"
	// PhaseFailed means the last attempted step returned a fatal error; the
	// run is parked at that step.
	PhaseFailed Phase = "failed"
)

// Status is what Start, Resume and Inspect hand back to the caller.
type Status struct {
	SessionID   string
	RunID       string
	Phase       Phase
	PendingStep workflow.Step // empty once the run has terminated
	State       *state.Run
	Err         string
}

// Engine executes analysis runs against a session store. Steps of one run
// execute strictly sequentially; distinct sessions are isolated by session
// id and may run concurrently.
type Engine struct {
	store          checkpoint.Store
	generator      *summary.Generator
	critic         summary.Critic
	maxRefinements int

	mu       sync.Mutex
	sessions map[string]*sync.Mutex
}

var validate = validator.New()

// New creates an engine. The store, generator and critic are required
// collaborators.
func New(store checkpoint.Store, generator *summary.Generator, critic summary.Critic, cfg Config) *Engine {
	max := cfg.MaxRefinements
	if max <= 0 {
		max = DefaultMaxRefinements
	}
	return &Engine{
		store:          store,
		generator:      generator,
		critic:         critic,
		maxRefinements: max,
		sessions:       make(map[string]*sync.Mutex),
	}
}

// Start begins a fresh run under the session id, discarding any previous
// checkpoint for that session. It executes steps until the suspend point,
// a fatal step error, or (should the graph ever lose its suspend point)
// termination, and returns the resulting status.
func (e *Engine) Start(ctx context.Context, sessionID string, run *state.Run) (*Status, error) {
	if sessionID == "" {
		return nil, checkpoint.ErrInvalidSessionID
	}
	if run == nil {
		return nil, ErrNilInitialState
	}
	if err := validate.Var(run.AnomalyThreshold, "gte=0,lte=1"); err != nil {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidThreshold, run.AnomalyThreshold)
	}

	unlock := e.lockSession(sessionID)
	defer unlock()

	metrics.IncRunsStarted()
	cp := &checkpoint.Checkpoint{
		SessionID: sessionID,
		RunID:     uuid.New().String(),
		NextStep:  workflow.Entry,
		State:     run,
		Version:   checkpoint.Version,
	}
	if err := e.saveCheckpoint(ctx, cp); err != nil {
		return nil, err
	}
	return e.advance(ctx, cp, false)
}

// Resume continues a session's run from exactly the step it is parked
// before. Resuming a run suspended at the suspend point counts as the
// caller's approval to cross it; resuming a run parked at a failed step
// retries that step. Resuming a terminated run returns its final status
// unchanged.
func (e *Engine) Resume(ctx context.Context, sessionID string) (*Status, error) {
	unlock := e.lockSession(sessionID)
	defer unlock()

	cp, err := e.loadCheckpoint(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cp.Terminated() {
		return e.status(cp), nil
	}

	metrics.IncResumes()
	approved := cp.Suspended && cp.NextStep == workflow.SuspendBefore
	cp.LastError = ""
	return e.advance(ctx, cp, approved)
}

// Inspect reports a session's current status without advancing it.
func (e *Engine) Inspect(ctx context.Context, sessionID string) (*Status, error) {
	cp, err := e.loadCheckpoint(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return e.status(cp), nil
}

// advance runs steps until suspension, a fatal error or termination. The
// approved flag lets exactly one crossing of the suspend point through; the
// graph visits that boundary once per run, so it never needs resetting.
func (e *Engine) advance(ctx context.Context, cp *checkpoint.Checkpoint, approved bool) (*Status, error) {
	for !cp.Terminated() {
		step := cp.NextStep

		if step == workflow.SuspendBefore && !approved {
			cp.Suspended = true
			if err := e.saveCheckpoint(ctx, cp); err != nil {
				return nil, err
			}
			metrics.IncSuspensions()
			return e.status(cp), nil
		}
		cp.Suspended = false

		decision, err := e.executeStep(ctx, step, cp.State)
		if err != nil {
			// The run stays parked at the failing step; the checkpoint does
			// not advance past it.
			cp.LastError = err.Error()
			if saveErr := e.saveCheckpoint(ctx, cp); saveErr != nil {
				return nil, saveErr
			}
			metrics.IncRunsFailed()
			return e.status(cp), err
		}

		next, done, err := workflow.Next(step, decision)
		if err != nil {
			return nil, err
		}
		if done {
			cp.NextStep = ""
		} else {
			cp.NextStep = next
		}
		if err := e.saveCheckpoint(ctx, cp); err != nil {
			return nil, err
		}
	}

	metrics.IncRunsCompleted()
	return e.status(cp), nil
}

// executeStep runs one step against the run state. The returned decision is
// meaningful only for critique, the graph's single branch.
func (e *Engine) executeStep(ctx context.Context, step workflow.Step, run *state.Run) (workflow.Decision, error) {
	metrics.IncStepExecuted(string(step))

	switch step {
	case workflow.StepValidate:
		return workflow.DecisionRefine, stats.Validate(run.Dataset)

	case workflow.StepDetectAnomalies:
		run.Anomalies = stats.DetectAnomalies(run.Dataset)

	case workflow.StepClassify:
		classification, err := stats.Classify(run.Dataset)
		if err != nil {
			return workflow.DecisionRefine, err
		}
		run.AirQuality = classification

	case workflow.StepAlertDecision:
		run.AlertTriggered = stats.AlertDecision(len(run.Anomalies), len(run.Dataset), run.AnomalyThreshold)

	case workflow.StepTrendSummary:
		run.TrendSummary = stats.TrendSummary(run.Dataset)

	case workflow.StepSummarize:
		e.generator.Summarize(ctx, run)
		metrics.IncRefinementPasses()

	case workflow.StepCritique:
		run.Feedback = e.critic.Review(run.FinalSummary, run.Iterations)
		return e.decide(run), nil

	default:
		return workflow.DecisionRefine, fmt.Errorf("%w: %q", workflow.ErrUnknownStep, step)
	}
	return workflow.DecisionRefine, nil
}

// decide maps critic feedback onto the conditional edge, forcing acceptance
// once the refinement cap is reached so the run terminates even under a
// critic that never accepts.
func (e *Engine) decide(run *state.Run) workflow.Decision {
	if run.Feedback == state.FeedbackAccepted {
		return workflow.DecisionAccept
	}
	if run.Iterations >= e.maxRefinements {
		return workflow.DecisionAccept
	}
	return workflow.DecisionRefine
}

func (e *Engine) saveCheckpoint(ctx context.Context, cp *checkpoint.Checkpoint) error {
	cp.UpdatedAt = time.Now().UTC()
	if err := e.store.Save(ctx, cp); err != nil {
		return fmt.Errorf("save checkpoint for session %s: %w", cp.SessionID, err)
	}
	metrics.IncCheckpointSaves()
	return nil
}

func (e *Engine) loadCheckpoint(ctx context.Context, sessionID string) (*checkpoint.Checkpoint, error) {
	if sessionID == "" {
		return nil, checkpoint.ErrInvalidSessionID
	}
	cp, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint for session %s: %w", sessionID, err)
	}
	metrics.IncCheckpointLoads()
	return cp, nil
}

func (e *Engine) status(cp *checkpoint.Checkpoint) *Status {
	st := &Status{
		SessionID:   cp.SessionID,
		RunID:       cp.RunID,
		PendingStep: cp.NextStep,
		State:       cp.State,
		Err:         cp.LastError,
	}
	switch {
	case cp.Terminated():
		st.Phase = PhaseCompleted
	case cp.LastError != "":
		st.Phase = PhaseFailed
	default:
		st.Phase = PhaseSuspended
	}
	return st
}

// lockSession serializes operations per session id while letting distinct
// sessions proceed concurrently.
func (e *Engine) lockSession(sessionID string) func() {
	e.mu.Lock()
	lock, ok := e.sessions[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		e.sessions[sessionID] = lock
	}
	e.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
