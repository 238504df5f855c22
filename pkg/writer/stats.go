package writer

import "errors"

// AsyncWriterStats reports autosave activity.
type AsyncWriterStats struct {
	// QueueDepth is the number of snapshots waiting to be saved
	QueueDepth int

	// DroppedWrites is the number of snapshots dropped due to backpressure
	DroppedWrites int64

	// TotalWrites is the number of snapshots accepted into the queue
	TotalWrites int64

	// FailedWrites is the number of saves the store rejected
	FailedWrites int64
}

// Errors returned by async writer operations.
var (
	// ErrQueueFull is returned when the write queue is full and MaxWaitTime exceeded
	ErrQueueFull = errors.New("writer: queue full, write dropped")

	// ErrWriterClosed is returned when attempting to write to a closed writer
	ErrWriterClosed = errors.New("writer: writer is closed")

	// ErrFlushTimeout is returned when Flush() times out waiting for queue to drain
	ErrFlushTimeout = errors.New("writer: flush timeout exceeded")
)
