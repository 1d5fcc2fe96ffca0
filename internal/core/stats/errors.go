// Package stats defines domain-specific errors
package stats

import "errors"

var (
	// ErrValidation covers structurally unusable input: a required
	// measurement column absent or entirely non-numeric. Fatal to the run.
	ErrValidation = errors.New("dataset validation failed")

	// ErrEmptyDataset is returned when no rows remain after daily grouping.
	// Fatal to the run.
	ErrEmptyDataset = errors.New("empty dataset")
)
