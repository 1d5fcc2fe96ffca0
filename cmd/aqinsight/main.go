// Package main provides the aqinsight CLI: the caller-facing control
// surface for starting, approving and inspecting analysis sessions.
package main

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	llm "github.com/aqinsight/aqinsight/internal/adapters/llm/openai"
	"github.com/aqinsight/aqinsight/internal/adapters/store/memory"
	"github.com/aqinsight/aqinsight/internal/adapters/store/postgres"
	"github.com/aqinsight/aqinsight/internal/adapters/store/sqlite"
	"github.com/aqinsight/aqinsight/internal/app/engine"
	"github.com/aqinsight/aqinsight/internal/app/summary"
	"github.com/aqinsight/aqinsight/internal/config"
	"github.com/aqinsight/aqinsight/internal/core/checkpoint"
	"github.com/aqinsight/aqinsight/internal/core/state"
)

// Version information set during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "aqinsight",
		Short:         "Air-quality analysis pipeline with human-in-the-loop approval",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var (
		file      string
		sessionID string
		threshold float64
	)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start a new analysis run (pauses before the alert decision)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, eng, cleanup, err := buildEngine()
			if err != nil {
				return err
			}
			defer cleanup()

			if !cmd.Flags().Changed("threshold") {
				threshold = cfg.Pipeline.AnomalyThreshold
			}
			dataset, err := loadCSV(file, cfg.Pipeline)
			if err != nil {
				return err
			}

			st, err := eng.Start(context.Background(), sessionID, state.NewRun(dataset, threshold))
			if err != nil && st == nil {
				return err
			}
			renderStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
	runCmd.Flags().StringVarP(&file, "file", "f", "", "CSV dataset to analyze")
	runCmd.Flags().StringVarP(&sessionID, "session", "s", "default", "session identifier")
	runCmd.Flags().Float64VarP(&threshold, "threshold", "t", 0, "anomaly alert threshold (fraction in [0,1])")
	_ = runCmd.MarkFlagRequired("file")

	resumeCmd := &cobra.Command{
		Use:   "resume",
		Short: "Approve a paused session and run it to completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, eng, cleanup, err := buildEngine()
			if err != nil {
				return err
			}
			defer cleanup()

			st, err := eng.Resume(context.Background(), sessionID)
			if err != nil && st == nil {
				return err
			}
			renderStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
	resumeCmd.Flags().StringVarP(&sessionID, "session", "s", "default", "session identifier")

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show a session's current state without advancing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, eng, cleanup, err := buildEngine()
			if err != nil {
				return err
			}
			defer cleanup()

			st, err := eng.Inspect(context.Background(), sessionID)
			if err != nil {
				return err
			}
			renderStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
	inspectCmd.Flags().StringVarP(&sessionID, "session", "s", "default", "session identifier")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "aqinsight %s (commit: %s, built: %s)\n", Version, Commit, BuildTime)
		},
	}

	root.AddCommand(runCmd, resumeCmd, inspectCmd, versionCmd)
	return root
}

// buildEngine wires the engine from configuration: session store backend,
// text-generation client, generator and critic.
func buildEngine() (*config.Config, *engine.Engine, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	store, cleanup, err := buildStore(cfg.Store)
	if err != nil {
		return nil, nil, nil, err
	}

	textGen := llm.NewClient(llm.Config{
		APIKey:         cfg.OpenAI.APIKey,
		Model:          cfg.OpenAI.Model,
		BaseURL:        cfg.OpenAI.BaseURL,
		MaxTokens:      cfg.OpenAI.MaxTokens,
		Temperature:    cfg.OpenAI.Temperature,
		RequestTimeout: cfg.OpenAI.RequestTimeout,
	})
	generator := summary.NewGenerator(textGen, nil)
	eng := engine.New(store, generator, summary.NewRuleCritic(), engine.Config{
		MaxRefinements: cfg.Pipeline.MaxRefinements,
	})
	return cfg, eng, cleanup, nil
}

func buildStore(cfg config.StoreConfig) (checkpoint.Store, func(), error) {
	switch cfg.Backend {
	case "memory":
		return memory.New(nil), func() {}, nil
	case "sqlite":
		s, err := sqlite.Open(cfg.SQLitePath, nil)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "postgres":
		s, err := postgres.Open(context.Background(), cfg.PostgresDSN, nil)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// renderStatus prints the caller-facing view of a run: where it is paused,
// what the analysis found, and the refined summary once it exists.
func renderStatus(w io.Writer, st *engine.Status) {
	fmt.Fprintf(w, "session: %s\nrun: %s\nphase: %s\n", st.SessionID, st.RunID, st.Phase)
	switch st.Phase {
	case engine.PhaseSuspended:
		fmt.Fprintf(w, "pending step: %s (resume to approve and continue)\n", st.PendingStep)
	case engine.PhaseFailed:
		fmt.Fprintf(w, "failed at step: %s\nerror: %s\n", st.PendingStep, st.Err)
	}

	run := st.State
	if run == nil {
		return
	}
	fmt.Fprintf(w, "records: %d\nanomalies: %d\n", len(run.Dataset), len(run.Anomalies))
	if run.AirQuality.Category != state.CategoryUnknown && run.AirQuality.Category != "" {
		fmt.Fprintf(w, "classification: %s (frequency: %v)\n", run.AirQuality.Category, run.AirQuality.Breakdown)
	}
	if run.AlertTriggered {
		fmt.Fprintln(w, "ALERT: unusual air quality spikes detected")
	}
	if len(run.TrendSummary) > 0 {
		fmt.Fprintf(w, "trends: mean PM2.5 %.2f, max PM2.5 %.2f, min PM2.5 %.2f, mean PM10 %.2f\n",
			run.TrendSummary["mean_pm25"], run.TrendSummary["max_pm25"],
			run.TrendSummary["min_pm25"], run.TrendSummary["mean_pm10"])
	}
	if run.FinalSummary != "" {
		fmt.Fprintf(w, "\n%s\n", run.FinalSummary)
		if run.Iterations > 1 {
			fmt.Fprintf(w, "(summary refined in %d iterations)\n", run.Iterations)
		}
	}
}
