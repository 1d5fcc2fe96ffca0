// Package state defines the run state record threaded through every step of
// one analysis workflow, following Clean Architecture principles with zero
// external dependencies.
package state

import "strconv"

// Canonical dataset column names. CSV input is mapped onto these at load
// time; Validate adds ColDate.
const (
	ColTimestamp = "timestamp"
	ColPM25      = "pm25"
	ColPM10      = "pm10"
	ColDate      = "date"
)

// DateUnknown groups records that carry no parseable timestamp.
const DateUnknown = "Unknown"

// CategoryUnknown is the air-quality category before classification runs.
const CategoryUnknown = "Unknown"

// FeedbackAccepted is the critic feedback meaning "stop refining".
const FeedbackAccepted = "Good"

// Record is one dataset row keyed by column name.
type Record map[string]any

// Float returns the numeric value of a column. It coerces the integer and
// string encodings that CSV input and codec round-trips produce.
func (r Record) Float(col string) (float64, bool) {
	switch v := r[col].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// String returns the string value of a column.
func (r Record) String(col string) (string, bool) {
	s, ok := r[col].(string)
	return s, ok
}

// Classification is a category label plus how often each category occurred
// across the dataset's days.
type Classification struct {
	Category  string         `json:"category" msgpack:"category"`
	Breakdown map[string]int `json:"breakdown" msgpack:"breakdown"`
}

// Run is the single mutable record threaded through one workflow execution.
// AnomalyThreshold is fixed at run initialization; Iterations only ever
// increases, by exactly one per summarize pass.
type Run struct {
	Dataset          []Record           `json:"dataset" msgpack:"dataset"`
	Anomalies        []string           `json:"anomalies" msgpack:"anomalies"`
	AnomalyThreshold float64            `json:"anomaly_threshold" msgpack:"anomaly_threshold"`
	AirQuality       Classification     `json:"air_quality_class" msgpack:"air_quality_class"`
	TrendSummary     map[string]float64 `json:"trend_summary" msgpack:"trend_summary"`
	FinalSummary     string             `json:"final_summary" msgpack:"final_summary"`
	AlertTriggered   bool               `json:"alert_triggered" msgpack:"alert_triggered"`
	Feedback         string             `json:"feedback" msgpack:"feedback"`
	Iterations       int                `json:"iterations" msgpack:"iterations"`
	ToolOutputs      []string           `json:"tool_outputs" msgpack:"tool_outputs"`

	// Approved is reserved for a future human-approval flag. No step reads
	// or writes it; the engine's suspend point is the actual gate.
	Approved bool `json:"approved" msgpack:"approved"`
}

// NewRun builds the initial state for a fresh analysis: caller-supplied
// dataset and threshold, every other field at its documented zero value.
func NewRun(dataset []Record, threshold float64) *Run {
	return &Run{
		Dataset:          dataset,
		Anomalies:        []string{},
		AnomalyThreshold: threshold,
		AirQuality:       Classification{Category: CategoryUnknown, Breakdown: map[string]int{}},
		TrendSummary:     map[string]float64{},
		ToolOutputs:      []string{},
	}
}
