package pipeline

import "errors"

var (
	// ErrDrained indicates the run stopped issuing calls on request before
	// every segment was processed. Completed segments remain in Run.Results.
	ErrDrained = errors.New("run drained before completion")

	// ErrNoReviewer indicates a review pass was requested without a review transform.
	ErrNoReviewer = errors.New("review requested but no review transform configured")
)
