package writer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"bank-ledger/pkg/logging"
	"bank-ledger/pkg/metrics"
	"bank-ledger/pkg/storage"

	"go.uber.org/zap"
)

// AsyncWriter saves bank snapshots in the background through a bounded queue.
// A single worker drains the queue, so snapshots reach the store in the order
// they were enqueued and a later snapshot never gets overwritten by an earlier one.
type AsyncWriter struct {
	store      storage.Store
	queue      chan writeOp
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
	config     AsyncWriterConfig
	metrics    metrics.MetricsCollector
	logger     *logging.Logger
	storeName  string

	// Statistics (accessed atomically)
	droppedWrites int64
	totalWrites   int64
	failedWrites  int64
	pending       int64

	// Metrics ticker for periodic queue depth reporting
	metricsTicker *time.Ticker
	metricsStop   chan struct{}
}

// writeOp is a pending snapshot save.
type writeOp struct {
	snap     storage.Snapshot
	enqueued time.Time
}

// AsyncWriterConfig configures the async writer behavior.
type AsyncWriterConfig struct {
	// QueueSize is the bounded queue size (default: 64)
	QueueSize int

	// MaxWaitTime is the max time to wait if queue is full.
	// 0 means the default of 10ms.
	MaxWaitTime time.Duration

	// SaveTimeout bounds each background Save (default: 10s)
	SaveTimeout time.Duration
}

// NewAsyncWriter creates a new async writer with a bounded queue.
// The writer starts processing immediately and must be closed with Close().
func NewAsyncWriter(store storage.Store, config AsyncWriterConfig) *AsyncWriter {
	return NewAsyncWriterWithMetrics(store, config, metrics.NoOpCollector{})
}

// NewAsyncWriterWithMetrics creates a new async writer with custom metrics collector.
func NewAsyncWriterWithMetrics(store storage.Store, config AsyncWriterConfig, metricsCollector metrics.MetricsCollector) *AsyncWriter {
	if config.QueueSize <= 0 {
		config.QueueSize = 64
	}
	if config.MaxWaitTime == 0 {
		config.MaxWaitTime = 10 * time.Millisecond
	}
	if config.SaveTimeout <= 0 {
		config.SaveTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := &AsyncWriter{
		store:         store,
		queue:         make(chan writeOp, config.QueueSize),
		ctx:           ctx,
		cancelFunc:    cancel,
		config:        config,
		metrics:       metricsCollector,
		logger:        logging.Global().Named("writer").Named(store.Name()),
		storeName:     store.Name(),
		metricsTicker: time.NewTicker(5 * time.Second), // Report queue depth every 5s
		metricsStop:   make(chan struct{}),
	}

	w.wg.Add(1)
	go w.worker()

	go w.reportMetrics()

	return w
}

// Write enqueues snap for saving.
// If the queue is full, it waits up to MaxWaitTime before dropping the snapshot.
// Returns ErrQueueFull if the snapshot was dropped due to backpressure.
func (w *AsyncWriter) Write(ctx context.Context, snap storage.Snapshot) error {
	select {
	case <-w.ctx.Done():
		return ErrWriterClosed
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	op := writeOp{snap: snap, enqueued: time.Now()}

	timer := time.NewTimer(w.config.MaxWaitTime)
	defer timer.Stop()

	atomic.AddInt64(&w.pending, 1)
	select {
	case w.queue <- op:
		atomic.AddInt64(&w.totalWrites, 1)
		return nil
	case <-timer.C:
		atomic.AddInt64(&w.pending, -1)
		atomic.AddInt64(&w.droppedWrites, 1)
		w.metrics.RecordWriteDropped(w.storeName)
		w.logger.Warn("autosave dropped, queue full",
			logging.SnapshotID(snap.Meta.SnapshotID),
			zap.Int("queue_size", w.config.QueueSize),
		)
		return ErrQueueFull
	case <-ctx.Done():
		atomic.AddInt64(&w.pending, -1)
		return ctx.Err()
	case <-w.ctx.Done():
		atomic.AddInt64(&w.pending, -1)
		return ErrWriterClosed
	}
}

// worker saves snapshots from the queue until Close, then drains what is left.
func (w *AsyncWriter) worker() {
	defer w.wg.Done()

	for {
		select {
		case op := <-w.queue:
			w.save(op)
		case <-w.ctx.Done():
			for {
				select {
				case op := <-w.queue:
					w.save(op)
				default:
					return
				}
			}
		}
	}
}

func (w *AsyncWriter) save(op writeOp) {
	defer atomic.AddInt64(&w.pending, -1)

	ctx, cancel := context.WithTimeout(context.Background(), w.config.SaveTimeout)
	defer cancel()

	start := time.Now()
	err := w.store.Save(ctx, op.snap)
	duration := time.Since(start)

	w.metrics.RecordAsyncWrite(w.storeName, err == nil, duration)

	if err != nil {
		atomic.AddInt64(&w.failedWrites, 1)
		w.logger.Error("autosave failed",
			logging.SnapshotID(op.snap.Meta.SnapshotID),
			zap.Duration("queued", start.Sub(op.enqueued)),
			zap.Error(err),
		)
		return
	}

	w.logger.Debug("autosave complete",
		logging.SnapshotID(op.snap.Meta.SnapshotID),
		zap.Duration("duration", duration),
	)
}

// Flush waits until every enqueued snapshot has been saved, or until timeout.
func (w *AsyncWriter) Flush(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		if atomic.LoadInt64(&w.pending) == 0 {
			return nil
		}

		if time.Now().After(deadline) {
			return ErrFlushTimeout
		}

		time.Sleep(5 * time.Millisecond)
	}
}

// Close stops accepting new snapshots and waits for queued ones to be saved.
// It does not close the underlying store.
func (w *AsyncWriter) Close() error {
	w.closeOnce.Do(func() {
		close(w.metricsStop)
		w.metricsTicker.Stop()

		w.cancelFunc()
		w.wg.Wait()
	})
	return nil
}

// reportMetrics periodically reports queue depth.
func (w *AsyncWriter) reportMetrics() {
	for {
		select {
		case <-w.metricsTicker.C:
			w.metrics.RecordQueueDepth(w.storeName, len(w.queue))
		case <-w.metricsStop:
			return
		}
	}
}

// Stats returns current statistics about the async writer.
func (w *AsyncWriter) Stats() AsyncWriterStats {
	return AsyncWriterStats{
		QueueDepth:    len(w.queue),
		DroppedWrites: atomic.LoadInt64(&w.droppedWrites),
		TotalWrites:   atomic.LoadInt64(&w.totalWrites),
		FailedWrites:  atomic.LoadInt64(&w.failedWrites),
	}
}
