package schema

import "errors"

// Sentinel errors shared across the pipeline.
var (
	ErrUnknownSensorKind = errors.New("unknown sensor kind")
	ErrDuplicateBucket   = errors.New("bucket already aggregated")
	ErrInvalidBatch      = errors.New("invalid batch")
	ErrQueueFull         = errors.New("task queue is full")
	ErrPoolClosed        = errors.New("worker pool is closed")
)
