package summary

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aqinsight/aqinsight/internal/core/state"
)

func TestRuleCritic(t *testing.T) {
	critic := NewRuleCritic()
	short := "Too short."
	long := strings.Repeat("word ", 35)

	t.Run("requests more detail for short summaries", func(t *testing.T) {
		feedback := critic.Review(short, 1)
		assert.NotEqual(t, state.FeedbackAccepted, feedback)
		assert.NotEmpty(t, feedback)
	})

	t.Run("accepts summaries of thirty words or more", func(t *testing.T) {
		assert.Equal(t, state.FeedbackAccepted, critic.Review(long, 1))
	})

	t.Run("accepts anything once the pass limit is reached", func(t *testing.T) {
		assert.Equal(t, state.FeedbackAccepted, critic.Review(short, 3))
	})
}
