package resilience

import (
	"context"
	"errors"
	"time"

	"bank-ledger/pkg/logging"
	"bank-ledger/pkg/metrics"
	"bank-ledger/pkg/storage"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ResilientStore wraps a storage.Store with a circuit breaker and a
// per-operation timeout. A Load that finds no snapshot is not a failure.
type ResilientStore struct {
	store   storage.Store
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	metrics metrics.MetricsCollector
	logger  *logging.Logger
}

// NewResilientStore wraps store using a no-op metrics collector.
func NewResilientStore(store storage.Store, config ResilientConfig) *ResilientStore {
	return NewResilientStoreWithMetrics(store, config, metrics.NoOpCollector{})
}

// NewResilientStoreWithMetrics wraps store and reports to metricsCollector.
func NewResilientStoreWithMetrics(store storage.Store, config ResilientConfig, metricsCollector metrics.MetricsCollector) *ResilientStore {
	logger := logging.Global().Named("resilience").Named(store.Name())

	rs := &ResilientStore{
		store:   store,
		timeout: config.Timeout,
		metrics: metricsCollector,
		logger:  logger,
	}

	logger.Info("resilient store initialized",
		logging.Store(store.Name()),
		zap.Duration("timeout", config.Timeout),
		zap.Uint32("max_requests", config.CircuitBreakerConfig.MaxRequests),
		zap.Duration("circuit_interval", config.CircuitBreakerConfig.Interval),
		zap.Duration("circuit_timeout", config.CircuitBreakerConfig.Timeout),
	)

	settings := gobreaker.Settings{
		Name:        store.Name(),
		MaxRequests: config.CircuitBreakerConfig.MaxRequests,
		Interval:    config.CircuitBreakerConfig.Interval,
		Timeout:     config.CircuitBreakerConfig.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			c := Counts{
				Requests:             counts.Requests,
				TotalSuccesses:       counts.TotalSuccesses,
				TotalFailures:        counts.TotalFailures,
				ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
				ConsecutiveFailures:  counts.ConsecutiveFailures,
			}
			if config.CircuitBreakerConfig.ReadyToTrip != nil {
				return config.CircuitBreakerConfig.ReadyToTrip(c)
			}
			return c.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || storage.IsNotFound(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				logging.Store(name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)

			var state metrics.CircuitState
			switch to {
			case gobreaker.StateClosed:
				state = metrics.CircuitClosed
			case gobreaker.StateHalfOpen:
				state = metrics.CircuitHalfOpen
			case gobreaker.StateOpen:
				state = metrics.CircuitOpen
			}
			rs.metrics.RecordCircuitState(name, state)
		},
	}

	rs.cb = gobreaker.NewCircuitBreaker(settings)

	return rs
}

// Name returns the name of the underlying store.
func (rs *ResilientStore) Name() string {
	return rs.store.Name()
}

// State reports the breaker state.
func (rs *ResilientStore) State() metrics.CircuitState {
	switch rs.cb.State() {
	case gobreaker.StateOpen:
		return metrics.CircuitOpen
	case gobreaker.StateHalfOpen:
		return metrics.CircuitHalfOpen
	default:
		return metrics.CircuitClosed
	}
}

// Save writes snap through the breaker.
func (rs *ResilientStore) Save(ctx context.Context, snap storage.Snapshot) error {
	_, err := rs.execute(ctx, "save", func(ctx context.Context) (storage.Snapshot, error) {
		return storage.Snapshot{}, rs.store.Save(ctx, snap)
	})
	return err
}

// Load reads the latest snapshot through the breaker.
func (rs *ResilientStore) Load(ctx context.Context) (storage.Snapshot, error) {
	return rs.execute(ctx, "load", rs.store.Load)
}

func (rs *ResilientStore) execute(ctx context.Context, operation string, fn func(context.Context) (storage.Snapshot, error)) (storage.Snapshot, error) {
	start := time.Now()
	name := rs.store.Name()

	if rs.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rs.timeout)
		defer cancel()
	}

	result, err := rs.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})

	duration := time.Since(start)
	rs.metrics.RecordStoreOp(name, operation, err == nil || storage.IsNotFound(err), duration)

	if err != nil {
		if storage.IsNotFound(err) {
			return storage.Snapshot{}, err
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			rs.logger.Warn("circuit breaker open - request rejected",
				zap.String("operation", operation),
			)
			err = storage.ErrCircuitOpen
		} else if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			rs.logger.Warn("operation timeout",
				zap.String("operation", operation),
				zap.Duration("timeout", rs.timeout),
				zap.Duration("elapsed", duration),
			)
			err = storage.ErrTimeout
		} else {
			rs.logger.Error(operation+" operation failed",
				zap.String("operation", operation),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		}

		rs.metrics.RecordStoreError(name, operation, storage.ClassifyError(err))
		return storage.Snapshot{}, err
	}

	snap, _ := result.(storage.Snapshot)
	return snap, nil
}

// Close closes the underlying store.
func (rs *ResilientStore) Close() error {
	return rs.store.Close()
}
