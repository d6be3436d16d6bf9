package jobs

import "errors"

var (
	// ErrJobNotFound is returned by a JobStore for an unknown job id.
	ErrJobNotFound = errors.New("job not found")

	// ErrQueueClosed is returned when publishing to or starting a stopped queue.
	ErrQueueClosed = errors.New("queue is closed")
)
