// Package summary produces the natural-language analysis report and the
// critique that drives the refinement loop. Text synthesis is delegated to
// an injected service handle; its failures degrade to a fallback summary
// and never fail the workflow.
package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/aqinsight/aqinsight/internal/core/state"
	"github.com/aqinsight/aqinsight/internal/core/stats"
	"github.com/aqinsight/aqinsight/internal/infrastructure/metrics"
)

// TextGenerator synthesizes prose from a prompt. Implementations are
// treated as unreliable.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GuidelineFunc looks up the health advisory for a category. Must be total:
// it cannot fail, whatever the input.
type GuidelineFunc func(category string) string

// Generator composes the analysis prompt from the run's computed statistics
// and delegates phrasing to the text-generation service.
type Generator struct {
	textGen    TextGenerator
	guidelines GuidelineFunc
}

// NewGenerator creates a generator around the given service handle. A nil
// guidelines function falls back to the built-in advisory table.
func NewGenerator(textGen TextGenerator, guidelines GuidelineFunc) *Generator {
	if guidelines == nil {
		guidelines = Guidelines
	}
	return &Generator{textGen: textGen, guidelines: guidelines}
}

// Summarize writes run.FinalSummary and increments run.Iterations by exactly
// one, whether generation succeeds or falls back. The health guideline for
// the classified category is fetched at most once per run, and only when
// the category is not Good.
func (g *Generator) Summarize(ctx context.Context, run *state.Run) {
	category := run.AirQuality.Category
	if len(run.ToolOutputs) == 0 && category != stats.CategoryGood {
		run.ToolOutputs = append(run.ToolOutputs, g.guidelines(category))
	}

	text, err := g.textGen.Generate(ctx, g.buildPrompt(run))
	if err != nil {
		metrics.IncGenerationFallbacks()
		text = fmt.Sprintf("AI summary currently unavailable. (Error: %v)", err)
	}
	run.FinalSummary = text
	run.Iterations++
}

func (g *Generator) buildPrompt(run *state.Run) string {
	alertStatus := "Not Triggered"
	if run.AlertTriggered {
		alertStatus = "TRIGGERED"
	}

	var b strings.Builder
	b.WriteString("Analyze the following air quality report:\n")
	fmt.Fprintf(&b, "- Average PM2.5: %.2f\n", run.TrendSummary[stats.TrendMeanPM25])
	fmt.Fprintf(&b, "- Max PM2.5: %.2f\n", run.TrendSummary[stats.TrendMaxPM25])
	fmt.Fprintf(&b, "- Average PM10: %.2f\n", run.TrendSummary[stats.TrendMeanPM10])
	fmt.Fprintf(&b, "- Classification: %s (Frequency: %v)\n", run.AirQuality.Category, run.AirQuality.Breakdown)
	fmt.Fprintf(&b, "- Alert Status: %s\n", alertStatus)

	if len(run.ToolOutputs) > 0 {
		fmt.Fprintf(&b, "\nHealth guidelines: %s\n", strings.Join(run.ToolOutputs, " "))
	}
	if run.Feedback != "" && run.Feedback != state.FeedbackAccepted {
		fmt.Fprintf(&b, "\nPrevious feedback for improvement: %s\n", run.Feedback)
	}

	b.WriteString("\nProvide a professional summary. Include the health guidelines if present.")
	return b.String()
}
