package summary

import (
	"strings"

	"github.com/aqinsight/aqinsight/internal/core/state"
)

// Critic reviews a generated summary and returns feedback text.
// state.FeedbackAccepted means the summary is accepted as-is; anything else
// is a refinement request fed back into the next summarize pass.
type Critic interface {
	Review(summary string, iterations int) string
}

// RuleCritic is the default rule-based policy: request more detail while
// the summary is under MinWords words and fewer than MaxPasses passes have
// run, accept otherwise. The pass limit makes the policy terminating on its
// own, independent of the engine's refinement cap.
type RuleCritic struct {
	MinWords  int
	MaxPasses int
}

// NewRuleCritic returns the reference policy: 30 words, 3 passes.
func NewRuleCritic() *RuleCritic {
	return &RuleCritic{MinWords: 30, MaxPasses: 3}
}

// Review implements Critic.
func (c *RuleCritic) Review(summary string, iterations int) string {
	if len(strings.Fields(summary)) < c.MinWords && iterations < c.MaxPasses {
		return "The summary is too short. Please provide more detail and health recommendations."
	}
	return state.FeedbackAccepted
}
