package engine

import "errors"

var (
	ErrNilInitialState  = errors.New("initial run state is required")
	ErrInvalidThreshold = errors.New("anomaly threshold must be within [0,1]")
)
