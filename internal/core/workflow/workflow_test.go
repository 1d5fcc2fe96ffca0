package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext(t *testing.T) {
	t.Run("follows the fixed order", func(t *testing.T) {
		order := []Step{
			StepValidate,
			StepDetectAnomalies,
			StepClassify,
			StepAlertDecision,
			StepTrendSummary,
			StepSummarize,
			StepCritique,
		}
		for i := 0; i < len(order)-1; i++ {
			next, done, err := Next(order[i], DecisionRefine)
			require.NoError(t, err)
			assert.False(t, done)
			assert.Equal(t, order[i+1], next)
		}
	})

	t.Run("critique accept terminates", func(t *testing.T) {
		next, done, err := Next(StepCritique, DecisionAccept)
		require.NoError(t, err)
		assert.True(t, done)
		assert.Empty(t, next)
	})

	t.Run("critique refine loops back to summarize", func(t *testing.T) {
		next, done, err := Next(StepCritique, DecisionRefine)
		require.NoError(t, err)
		assert.False(t, done)
		assert.Equal(t, StepSummarize, next)
	})

	t.Run("rejects unknown steps", func(t *testing.T) {
		_, _, err := Next(Step("bogus"), DecisionRefine)
		assert.ErrorIs(t, err, ErrUnknownStep)
	})
}

func TestKnown(t *testing.T) {
	for _, s := range []Step{StepValidate, StepDetectAnomalies, StepClassify, StepAlertDecision, StepTrendSummary, StepSummarize, StepCritique} {
		assert.True(t, Known(s), "step %s", s)
	}
	assert.False(t, Known(Step("bogus")))
}

func TestSuspendPoint(t *testing.T) {
	// The suspend boundary sits immediately before the alert decision.
	assert.Equal(t, StepAlertDecision, SuspendBefore)
	next, done, err := Next(StepClassify, DecisionRefine)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, SuspendBefore, next)
}
