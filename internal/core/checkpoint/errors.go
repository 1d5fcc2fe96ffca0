// Package checkpoint defines domain-specific errors
package checkpoint

import "errors"

var (
	// Checkpoint validation errors
	ErrInvalidSessionID = errors.New("invalid session ID")
	ErrInvalidRunID     = errors.New("invalid run ID")
	ErrNilState         = errors.New("checkpoint state cannot be nil")
	ErrUnknownNextStep  = errors.New("next step is not part of the workflow")

	// Persistence errors
	ErrNotFound     = errors.New("no checkpoint for session")
	ErrSaveFailed   = errors.New("failed to save checkpoint")
	ErrLoadFailed   = errors.New("failed to load checkpoint")
	ErrDeleteFailed = errors.New("failed to delete checkpoint")
)
