// Package stats implements the pure statistical operations of the analysis
// pipeline: dataset validation, z-score anomaly detection, daily air-quality
// classification, trend aggregates and the alert decision. No function here
// keeps state or touches anything beyond its inputs.
package stats

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/aqinsight/aqinsight/internal/core/state"
)

// zScoreLimit is the absolute population z-score above which a reading of
// the primary pollutant counts as an anomaly.
const zScoreLimit = 3.0

// Air-quality categories, ordered best to worst.
const (
	CategoryGood      = "Good"
	CategoryModerate  = "Moderate"
	CategorySensitive = "Unhealthy for Sensitive Groups"
	CategoryUnhealthy = "Unhealthy"
	CategoryHazardous = "Hazardous"
)

// categoriesWorstFirst orders categories for deterministic tie-breaking:
// when two categories occur on the same number of days, classification
// reports the more severe one.
var categoriesWorstFirst = []string{
	CategoryHazardous,
	CategoryUnhealthy,
	CategorySensitive,
	CategoryModerate,
	CategoryGood,
}

// Categorize maps a primary-pollutant daily average onto its category using
// the fixed ascending boundaries 12 / 35 / 55 / 150.
func Categorize(pm25 float64) string {
	switch {
	case pm25 < 12:
		return CategoryGood
	case pm25 < 35:
		return CategoryModerate
	case pm25 < 55:
		return CategorySensitive
	case pm25 < 150:
		return CategoryUnhealthy
	default:
		return CategoryHazardous
	}
}

// timestampLayouts are the accepted ISO-8601 shapes, tried in order.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Validate cleans the dataset in place: it derives a calendar date from the
// timestamp column when present and coerces both pollutant columns to
// numeric, substituting each column's mean over its valid values for
// readings that do not parse. Running it again on its own output changes
// nothing. It fails with ErrValidation when a pollutant column is missing
// or entirely non-numeric, which leaves the mean undefined.
func Validate(dataset []state.Record) error {
	if len(dataset) == 0 {
		return fmt.Errorf("%w: no records", ErrValidation)
	}
	for _, rec := range dataset {
		rec[state.ColDate] = state.DateUnknown
		if ts, ok := rec.String(state.ColTimestamp); ok {
			if t, ok := parseTimestamp(ts); ok {
				rec[state.ColDate] = t.Format("2006-01-02")
			}
		}
	}
	for _, col := range []string{state.ColPM25, state.ColPM10} {
		if err := coerceNumeric(dataset, col); err != nil {
			return err
		}
	}
	return nil
}

// coerceNumeric rewrites a column as float64, filling unparseable readings
// with the mean of the column's valid ones.
func coerceNumeric(dataset []state.Record, col string) error {
	var sum float64
	var n int
	for _, rec := range dataset {
		if v, ok := rec.Float(col); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return fmt.Errorf("%w: column %q missing or entirely non-numeric", ErrValidation, col)
	}
	mean := sum / float64(n)
	for _, rec := range dataset {
		if v, ok := rec.Float(col); ok {
			rec[col] = v
		} else {
			rec[col] = mean
		}
	}
	return nil
}

// DetectAnomalies flags every record whose primary-pollutant population
// z-score exceeds the limit in absolute value. A zero standard deviation
// flags nothing. Identifiers are the original timestamp strings when every
// record carries a parseable one, positional indices otherwise; the two
// schemes are never mixed within one dataset.
func DetectAnomalies(dataset []state.Record) []string {
	anomalies := []string{}
	n := len(dataset)
	if n == 0 {
		return anomalies
	}

	values := make([]float64, n)
	for i, rec := range dataset {
		values[i], _ = rec.Float(state.ColPM25)
	}
	mean, std := meanStd(values)
	if std == 0 {
		return anomalies
	}

	useTimestamps := allTimestamped(dataset)
	for i, v := range values {
		if math.Abs((v-mean)/std) <= zScoreLimit {
			continue
		}
		if useTimestamps {
			ts, _ := dataset[i].String(state.ColTimestamp)
			anomalies = append(anomalies, ts)
		} else {
			anomalies = append(anomalies, strconv.Itoa(i))
		}
	}
	return anomalies
}

func meanStd(values []float64) (mean, std float64) {
	n := float64(len(values))
	for _, v := range values {
		mean += v
	}
	mean /= n
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(variance / n)
}

func allTimestamped(dataset []state.Record) bool {
	for _, rec := range dataset {
		ts, ok := rec.String(state.ColTimestamp)
		if !ok {
			return false
		}
		if _, ok := parseTimestamp(ts); !ok {
			return false
		}
	}
	return true
}

// Classify groups records by calendar date, averages the primary pollutant
// per day, maps each daily average onto a category and returns the most
// frequent category plus the full frequency breakdown. Ties go to the more
// severe category.
func Classify(dataset []state.Record) (state.Classification, error) {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, rec := range dataset {
		v, ok := rec.Float(state.ColPM25)
		if !ok {
			continue
		}
		date, ok := rec.String(state.ColDate)
		if !ok {
			date = state.DateUnknown
		}
		sums[date] += v
		counts[date]++
	}
	if len(counts) == 0 {
		return state.Classification{}, fmt.Errorf("%w: no rows after daily grouping", ErrEmptyDataset)
	}

	breakdown := map[string]int{}
	for date, c := range counts {
		breakdown[Categorize(sums[date]/float64(c))]++
	}

	top := ""
	best := 0
	for _, cat := range categoriesWorstFirst {
		if breakdown[cat] > best {
			top = cat
			best = breakdown[cat]
		}
	}
	return state.Classification{Category: top, Breakdown: breakdown}, nil
}

// Trend statistic names as they appear in the trend summary map.
const (
	TrendMeanPM25 = "mean_pm25"
	TrendMaxPM25  = "max_pm25"
	TrendMinPM25  = "min_pm25"
	TrendMeanPM10 = "mean_pm10"
)

// TrendSummary returns mean/max/min of the primary pollutant and the mean
// of the secondary pollutant.
func TrendSummary(dataset []state.Record) map[string]float64 {
	summary := map[string]float64{
		TrendMeanPM25: 0,
		TrendMaxPM25:  0,
		TrendMinPM25:  0,
		TrendMeanPM10: 0,
	}

	var sum25, sum10, max25, min25 float64
	var n25, n10 int
	for _, rec := range dataset {
		if v, ok := rec.Float(state.ColPM25); ok {
			if n25 == 0 || v > max25 {
				max25 = v
			}
			if n25 == 0 || v < min25 {
				min25 = v
			}
			sum25 += v
			n25++
		}
		if v, ok := rec.Float(state.ColPM10); ok {
			sum10 += v
			n10++
		}
	}
	if n25 > 0 {
		summary[TrendMeanPM25] = sum25 / float64(n25)
		summary[TrendMaxPM25] = max25
		summary[TrendMinPM25] = min25
	}
	if n10 > 0 {
		summary[TrendMeanPM10] = sum10 / float64(n10)
	}
	return summary
}

// AlertDecision reports whether the anomaly fraction exceeds the threshold.
// An empty dataset defines the ratio as zero, so it never alerts.
func AlertDecision(anomalyCount, totalCount int, threshold float64) bool {
	if totalCount == 0 {
		return false
	}
	return float64(anomalyCount)/float64(totalCount) > threshold
}
