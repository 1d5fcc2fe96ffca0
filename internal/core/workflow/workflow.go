// Package workflow fixes the analysis step graph: the step names, their
// total order, the single conditional edge out of critique, and the suspend
// point that is crossed only on an explicit resume.
package workflow

import (
	"errors"
	"fmt"
)

// Step names one vertex of the fixed analysis graph.
type Step string

const (
	StepValidate        Step = "validate"
	StepDetectAnomalies Step = "detect_anomalies"
	StepClassify        Step = "classify"
	StepAlertDecision   Step = "alert_decision"
	StepTrendSummary    Step = "trend_summary"
	StepSummarize       Step = "summarize"
	StepCritique        Step = "critique"
)

// Entry is the first step of every run.
const Entry = StepValidate

// SuspendBefore is the step boundary where execution parks until the caller
// issues a resume. The suspension is indefinite and survives restarts as
// long as the session's checkpoint does.
const SuspendBefore = StepAlertDecision

// Decision tags the conditional edge out of critique.
type Decision int

const (
	// DecisionRefine routes back to summarize for another pass.
	DecisionRefine Decision = iota
	// DecisionAccept terminates the run.
	DecisionAccept
)

// ErrUnknownStep reports a step name outside the fixed graph.
var ErrUnknownStep = errors.New("unknown workflow step")

// transitions holds the unconditional edges of the graph.
var transitions = map[Step]Step{
	StepValidate:        StepDetectAnomalies,
	StepDetectAnomalies: StepClassify,
	StepClassify:        StepAlertDecision,
	StepAlertDecision:   StepTrendSummary,
	StepTrendSummary:    StepSummarize,
	StepSummarize:       StepCritique,
}

// Next returns the step that follows s. The decision is consulted only at
// critique, the graph's single branch: DecisionAccept yields done=true and
// no successor, DecisionRefine routes back to summarize.
func Next(s Step, d Decision) (next Step, done bool, err error) {
	if s == StepCritique {
		if d == DecisionAccept {
			return "", true, nil
		}
		return StepSummarize, false, nil
	}
	t, ok := transitions[s]
	if !ok {
		return "", false, fmt.Errorf("%w: %q", ErrUnknownStep, s)
	}
	return t, false, nil
}

// Known reports whether s names a step of the graph.
func Known(s Step) bool {
	if s == StepCritique {
		return true
	}
	_, ok := transitions[s]
	return ok
}
