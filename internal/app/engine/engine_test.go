package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqinsight/aqinsight/internal/adapters/store/memory"
	"github.com/aqinsight/aqinsight/internal/app/summary"
	"github.com/aqinsight/aqinsight/internal/core/checkpoint"
	"github.com/aqinsight/aqinsight/internal/core/state"
	"github.com/aqinsight/aqinsight/internal/core/stats"
	"github.com/aqinsight/aqinsight/internal/core/workflow"
)

// longTextGen always succeeds with a summary long enough for the rule
// critic to accept on the first pass.
type longTextGen struct{}

func (longTextGen) Generate(context.Context, string) (string, error) {
	return strings.Repeat("The measured air quality stayed within the expected range today. ", 5), nil
}

// shortTextGen produces summaries the rule critic keeps rejecting.
type shortTextGen struct{}

func (shortTextGen) Generate(context.Context, string) (string, error) {
	return "Short.", nil
}

type acceptAllCritic struct{}

func (acceptAllCritic) Review(string, int) string { return state.FeedbackAccepted }

type rejectAllCritic struct{}

func (rejectAllCritic) Review(string, int) string { return "not good enough" }

func testDataset(t *testing.T) []state.Record {
	t.Helper()
	// Eleven calm readings plus one extreme spike: exactly one z-score
	// anomaly, ratio 1/12 over a 0.01 threshold.
	values := []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 1000}
	dataset := make([]state.Record, len(values))
	for i, v := range values {
		dataset[i] = state.Record{
			state.ColTimestamp: fmt.Sprintf("2024-03-%02dT08:00:00Z", i+1),
			state.ColPM25:      v,
			state.ColPM10:      v * 2,
		}
	}
	return dataset
}

func newTestEngine(store checkpoint.Store, textGen summary.TextGenerator, critic summary.Critic, cfg Config) *Engine {
	return New(store, summary.NewGenerator(textGen, nil), critic, cfg)
}

func TestEngineStartSuspendsBeforeAlertDecision(t *testing.T) {
	store := memory.New(nil)
	eng := newTestEngine(store, longTextGen{}, summary.NewRuleCritic(), Config{})

	st, err := eng.Start(context.Background(), "session-1", state.NewRun(testDataset(t), 0.01))
	require.NoError(t, err)

	assert.Equal(t, PhaseSuspended, st.Phase)
	assert.Equal(t, workflow.StepAlertDecision, st.PendingStep)
	assert.False(t, st.State.AlertTriggered, "alert decision must not have run yet")
	assert.Empty(t, st.State.FinalSummary)
	assert.NotEmpty(t, st.RunID)

	// The pre-suspension steps have run.
	assert.Len(t, st.State.Anomalies, 1)
	assert.Equal(t, stats.CategoryGood, st.State.AirQuality.Category)

	inspected, err := eng.Inspect(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StepAlertDecision, inspected.PendingStep)
	assert.False(t, inspected.State.AlertTriggered)
}

func TestEngineResumeRunsToCompletion(t *testing.T) {
	store := memory.New(nil)
	eng := newTestEngine(store, longTextGen{}, summary.NewRuleCritic(), Config{})

	_, err := eng.Start(context.Background(), "session-1", state.NewRun(testDataset(t), 0.01))
	require.NoError(t, err)

	st, err := eng.Resume(context.Background(), "session-1")
	require.NoError(t, err)

	assert.Equal(t, PhaseCompleted, st.Phase)
	assert.Empty(t, st.PendingStep)
	assert.True(t, st.State.AlertTriggered)
	assert.Equal(t, state.FeedbackAccepted, st.State.Feedback)
	assert.GreaterOrEqual(t, st.State.Iterations, 1)
	assert.NotEmpty(t, st.State.FinalSummary)
	assert.NotEmpty(t, st.State.TrendSummary)
}

func TestEngineResumeSurvivesProcessRestart(t *testing.T) {
	store := memory.New(nil)
	first := newTestEngine(store, longTextGen{}, summary.NewRuleCritic(), Config{})

	_, err := first.Start(context.Background(), "session-1", state.NewRun(testDataset(t), 0.01))
	require.NoError(t, err)

	// A different engine instance over the same store stands in for a new
	// process invocation.
	second := newTestEngine(store, longTextGen{}, summary.NewRuleCritic(), Config{})
	st, err := second.Resume(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, PhaseCompleted, st.Phase)
}

func TestEngineAcceptingCriticStopsAfterOnePass(t *testing.T) {
	store := memory.New(nil)
	eng := newTestEngine(store, shortTextGen{}, acceptAllCritic{}, Config{})

	_, err := eng.Start(context.Background(), "session-1", state.NewRun(testDataset(t), 0.01))
	require.NoError(t, err)
	st, err := eng.Resume(context.Background(), "session-1")
	require.NoError(t, err)

	assert.Equal(t, PhaseCompleted, st.Phase)
	assert.Equal(t, 1, st.State.Iterations)
}

func TestEngineRefinementCapBoundsRejectingCritic(t *testing.T) {
	store := memory.New(nil)
	eng := newTestEngine(store, shortTextGen{}, rejectAllCritic{}, Config{MaxRefinements: 4})

	_, err := eng.Start(context.Background(), "session-1", state.NewRun(testDataset(t), 0.01))
	require.NoError(t, err)
	st, err := eng.Resume(context.Background(), "session-1")
	require.NoError(t, err)

	assert.Equal(t, PhaseCompleted, st.Phase)
	assert.Equal(t, 4, st.State.Iterations, "exactly the cap, then forced acceptance")
	assert.NotEqual(t, state.FeedbackAccepted, st.State.Feedback)
}

func TestEngineCheckpointRoundTrip(t *testing.T) {
	store := memory.New(nil)
	eng := newTestEngine(store, longTextGen{}, summary.NewRuleCritic(), Config{})

	st, err := eng.Start(context.Background(), "session-1", state.NewRun(testDataset(t), 0.01))
	require.NoError(t, err)

	cp, err := store.Load(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StepAlertDecision, cp.NextStep)
	assert.True(t, cp.Suspended)
	assert.Equal(t, st.State, cp.State, "every run state field survives the round trip")
}

func TestEngineStartOverwritesExistingSession(t *testing.T) {
	store := memory.New(nil)
	eng := newTestEngine(store, longTextGen{}, summary.NewRuleCritic(), Config{})

	first, err := eng.Start(context.Background(), "session-1", state.NewRun(testDataset(t), 0.01))
	require.NoError(t, err)
	_, err = eng.Resume(context.Background(), "session-1")
	require.NoError(t, err)

	second, err := eng.Start(context.Background(), "session-1", state.NewRun(testDataset(t), 0.02))
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, PhaseSuspended, second.Phase)
	assert.Equal(t, 0, second.State.Iterations)
	assert.Equal(t, 0.02, second.State.AnomalyThreshold)
}

func TestEngineResumeOfCompletedRunIsANoOp(t *testing.T) {
	store := memory.New(nil)
	eng := newTestEngine(store, longTextGen{}, summary.NewRuleCritic(), Config{})

	_, err := eng.Start(context.Background(), "session-1", state.NewRun(testDataset(t), 0.01))
	require.NoError(t, err)
	done, err := eng.Resume(context.Background(), "session-1")
	require.NoError(t, err)
	require.Equal(t, PhaseCompleted, done.Phase)

	again, err := eng.Resume(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, PhaseCompleted, again.Phase)
	assert.Equal(t, done.State.Iterations, again.State.Iterations)
}

func TestEngineValidationFailureParksTheRun(t *testing.T) {
	store := memory.New(nil)
	eng := newTestEngine(store, longTextGen{}, summary.NewRuleCritic(), Config{})

	// No primary pollutant column anywhere: validate must fail.
	dataset := []state.Record{{state.ColPM10: 20.0}, {state.ColPM10: 30.0}}
	st, err := eng.Start(context.Background(), "session-1", state.NewRun(dataset, 0.01))
	require.Error(t, err)
	assert.ErrorIs(t, err, stats.ErrValidation)
	require.NotNil(t, st)
	assert.Equal(t, PhaseFailed, st.Phase)
	assert.Equal(t, workflow.StepValidate, st.PendingStep)
	assert.NotEmpty(t, st.Err)

	// The failure is durable and visible on inspect.
	inspected, err := eng.Inspect(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, PhaseFailed, inspected.Phase)

	// Resume retries the failing step; with unchanged data it fails again.
	retried, err := eng.Resume(context.Background(), "session-1")
	require.Error(t, err)
	assert.Equal(t, PhaseFailed, retried.Phase)
	assert.Equal(t, workflow.StepValidate, retried.PendingStep)
}

func TestEngineRejectsBadInput(t *testing.T) {
	store := memory.New(nil)
	eng := newTestEngine(store, longTextGen{}, summary.NewRuleCritic(), Config{})
	ctx := context.Background()

	t.Run("empty session id", func(t *testing.T) {
		_, err := eng.Start(ctx, "", state.NewRun(testDataset(t), 0.01))
		assert.ErrorIs(t, err, checkpoint.ErrInvalidSessionID)
	})

	t.Run("nil initial state", func(t *testing.T) {
		_, err := eng.Start(ctx, "session-1", nil)
		assert.ErrorIs(t, err, ErrNilInitialState)
	})

	t.Run("threshold out of range", func(t *testing.T) {
		_, err := eng.Start(ctx, "session-1", state.NewRun(testDataset(t), 1.5))
		assert.ErrorIs(t, err, ErrInvalidThreshold)
	})

	t.Run("resume of unknown session", func(t *testing.T) {
		_, err := eng.Resume(ctx, "no-such-session")
		assert.ErrorIs(t, err, checkpoint.ErrNotFound)
	})

	t.Run("inspect of unknown session", func(t *testing.T) {
		_, err := eng.Inspect(ctx, "no-such-session")
		assert.ErrorIs(t, err, checkpoint.ErrNotFound)
	})
}

func TestEngineIsolatesSessions(t *testing.T) {
	store := memory.New(nil)
	eng := newTestEngine(store, longTextGen{}, summary.NewRuleCritic(), Config{})
	ctx := context.Background()

	_, err := eng.Start(ctx, "session-a", state.NewRun(testDataset(t), 0.01))
	require.NoError(t, err)
	_, err = eng.Start(ctx, "session-b", state.NewRun(testDataset(t), 0.5))
	require.NoError(t, err)

	done, err := eng.Resume(ctx, "session-a")
	require.NoError(t, err)
	assert.Equal(t, PhaseCompleted, done.Phase)

	other, err := eng.Inspect(ctx, "session-b")
	require.NoError(t, err)
	assert.Equal(t, PhaseSuspended, other.Phase)
	assert.Equal(t, 0.5, other.State.AnomalyThreshold)
}
