package metrics

import (
	"expvar"
)

// Run lifecycle counters.
var (
	runsStarted   = new(expvar.Int)
	runsCompleted = new(expvar.Int)
	runsFailed    = new(expvar.Int)
)

// Engine counters. Steps are keyed by step name.
var (
	stepsExecuted    = expvar.NewMap("aqinsight_steps_executed_total")
	suspensionsTotal = new(expvar.Int)
	resumesTotal     = new(expvar.Int)
	refinementPasses = new(expvar.Int)
)

// Persistence and external-service counters.
var (
	checkpointSaves     = new(expvar.Int)
	checkpointLoads     = new(expvar.Int)
	generationFallbacks = new(expvar.Int)
)

func init() {
	expvar.Publish("aqinsight_runs_started_total", runsStarted)
	expvar.Publish("aqinsight_runs_completed_total", runsCompleted)
	expvar.Publish("aqinsight_runs_failed_total", runsFailed)
	expvar.Publish("aqinsight_suspensions_total", suspensionsTotal)
	expvar.Publish("aqinsight_resumes_total", resumesTotal)
	expvar.Publish("aqinsight_refinement_passes_total", refinementPasses)
	expvar.Publish("aqinsight_checkpoint_saves_total", checkpointSaves)
	expvar.Publish("aqinsight_checkpoint_loads_total", checkpointLoads)
	expvar.Publish("aqinsight_generation_fallbacks_total", generationFallbacks)
}

// Run lifecycle helpers
func IncRunsStarted()   { runsStarted.Add(1) }
func IncRunsCompleted() { runsCompleted.Add(1) }
func IncRunsFailed()    { runsFailed.Add(1) }

// Engine helpers
func IncStepExecuted(step string) { stepsExecuted.Add(step, 1) }
func IncSuspensions()             { suspensionsTotal.Add(1) }
func IncResumes()                 { resumesTotal.Add(1) }
func IncRefinementPasses()        { refinementPasses.Add(1) }

// Persistence / external-service helpers
func IncCheckpointSaves()     { checkpointSaves.Add(1) }
func IncCheckpointLoads()     { checkpointLoads.Add(1) }
func IncGenerationFallbacks() { generationFallbacks.Add(1) }
