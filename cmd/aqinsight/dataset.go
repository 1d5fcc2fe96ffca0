package main

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/aqinsight/aqinsight/internal/config"
	"github.com/aqinsight/aqinsight/internal/core/state"
)

// loadCSV reads an air-quality CSV into the ordered record sequence the
// workflow consumes. The configured timestamp and pollutant headers are
// mapped onto the canonical column names; any other column is carried
// through under its own header. Values stay strings here - the validate
// step does the numeric coercion.
func loadCSV(path string, cols config.PipelineConfig) ([]state.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %q: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read dataset %q: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("dataset %q has no data rows", path)
	}

	canonical := map[string]string{
		cols.TimestampColumn: state.ColTimestamp,
		cols.PM25Column:      state.ColPM25,
		cols.PM10Column:      state.ColPM10,
	}
	header := rows[0]
	keys := make([]string, len(header))
	for i, h := range header {
		if key, ok := canonical[h]; ok {
			keys[i] = key
		} else {
			keys[i] = h
		}
	}

	dataset := make([]state.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := state.Record{}
		for i, value := range row {
			if i < len(keys) {
				rec[keys[i]] = value
			}
		}
		dataset = append(dataset, rec)
	}
	return dataset, nil
}
