//go:build integration
// +build integration

// Package integration exercises the full analysis pipeline over a real
// SQLite session store.
package integration

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqinsight/aqinsight/internal/adapters/store/sqlite"
	"github.com/aqinsight/aqinsight/internal/app/engine"
	"github.com/aqinsight/aqinsight/internal/app/summary"
	"github.com/aqinsight/aqinsight/internal/core/state"
	"github.com/aqinsight/aqinsight/internal/core/workflow"
)

type cannedTextGen struct{}

func (cannedTextGen) Generate(_ context.Context, _ string) (string, error) {
	return strings.Repeat("Air quality across the monitored period stayed close to seasonal norms. ", 5), nil
}

func spikeDataset() []state.Record {
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

func TestPipeline_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()

	newEngine := func(t *testing.T) (*engine.Engine, func()) {
		t.Helper()
		store, err := sqlite.Open(dbPath, nil)
		require.NoError(t, err)
		eng := engine.New(store, summary.NewGenerator(cannedTextGen{}, nil), summary.NewRuleCritic(), engine.Config{})
		return eng, func() { _ = store.Close() }
	}

	t.Run("start suspends before the alert decision", func(t *testing.T) {
		eng, closeStore := newEngine(t)
		defer closeStore()

		st, err := eng.Start(ctx, "ops-session", state.NewRun(spikeDataset(), 0.01))
		require.NoError(t, err)
		assert.Equal(t, engine.PhaseSuspended, st.Phase)
		assert.Equal(t, workflow.StepAlertDecision, st.PendingStep)
		assert.Len(t, st.State.Anomalies, 1)
		assert.False(t, st.State.AlertTriggered)
	})

	// A fresh store handle over the same file stands in for a new process.
	t.Run("resume after reopening the database", func(t *testing.T) {
		eng, closeStore := newEngine(t)
		defer closeStore()

		st, err := eng.Resume(ctx, "ops-session")
		require.NoError(t, err)
		assert.Equal(t, engine.PhaseCompleted, st.Phase)
		assert.True(t, st.State.AlertTriggered)
		assert.Equal(t, state.FeedbackAccepted, st.State.Feedback)
		assert.NotEmpty(t, st.State.FinalSummary)
		assert.GreaterOrEqual(t, st.State.Iterations, 1)
	})

	t.Run("completed run stays inspectable", func(t *testing.T) {
		eng, closeStore := newEngine(t)
		defer closeStore()

		st, err := eng.Inspect(ctx, "ops-session")
		require.NoError(t, err)
		assert.Equal(t, engine.PhaseCompleted, st.Phase)
		assert.NotEmpty(t, st.State.TrendSummary)
	})
}
