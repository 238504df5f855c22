package metrics

import (
	"time"
)

// MetricsCollector defines the interface for collecting ledger metrics.
// Implementations can export metrics to various backends (Prometheus, in-memory for tests).
type MetricsCollector interface {
	// Ledger operations. outcome is ledger.ClassifyError of the result ("none" when accepted).
	RecordTransaction(kind, outcome string)
	RecordAccrual(kind string, feeCharged bool)
	RecordAccountOpened(kind string)
	RecordLookup(outcome LookupOutcome)

	// Store operations
	RecordStoreOp(store, operation string, success bool, duration time.Duration)
	RecordStoreError(store, operation, errorType string)

	// Circuit breaker
	RecordCircuitState(store string, state CircuitState)

	// Async writer
	RecordQueueDepth(store string, depth int)
	RecordWriteDropped(store string)
	RecordAsyncWrite(store string, success bool, duration time.Duration)

	// Chain-level
	RecordChainLoad(hit bool, replicaIndex int, totalDuration time.Duration)
}

// LookupOutcome labels an account lookup by id.
type LookupOutcome string

const (
	LookupFound LookupOutcome = "found"
	// LookupMissing means the id passed the filter but no account exists.
	LookupMissing LookupOutcome = "missing"
	// LookupFiltered means the bloom filter ruled the id out.
	LookupFiltered LookupOutcome = "filtered"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed means the circuit breaker is allowing requests through.
	CircuitClosed CircuitState = iota
	// CircuitOpen means the circuit breaker is blocking requests.
	CircuitOpen
	// CircuitHalfOpen means the circuit breaker is testing if the service has recovered.
	CircuitHalfOpen
)

// String returns the string representation of the circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// NoOpCollector is a no-op implementation of MetricsCollector.
// It's used as the default collector when metrics are not needed.
type NoOpCollector struct{}

func (NoOpCollector) RecordTransaction(kind, outcome string)                                      {}
func (NoOpCollector) RecordAccrual(kind string, feeCharged bool)                                  {}
func (NoOpCollector) RecordAccountOpened(kind string)                                             {}
func (NoOpCollector) RecordLookup(outcome LookupOutcome)                                          {}
func (NoOpCollector) RecordStoreOp(store, operation string, success bool, duration time.Duration) {}
func (NoOpCollector) RecordStoreError(store, operation, errorType string)                         {}
func (NoOpCollector) RecordCircuitState(store string, state CircuitState)                         {}
func (NoOpCollector) RecordQueueDepth(store string, depth int)                                    {}
func (NoOpCollector) RecordWriteDropped(store string)                                             {}
func (NoOpCollector) RecordAsyncWrite(store string, success bool, duration time.Duration)         {}
func (NoOpCollector) RecordChainLoad(hit bool, replicaIndex int, totalDuration time.Duration)     {}
