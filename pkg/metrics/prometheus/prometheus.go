package prometheus

import (
	"strconv"
	"time"

	"bank-ledger/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements MetricsCollector for Prometheus.
type PrometheusCollector struct {
	namespace string

	// Ledger
	transactions   *prometheus.CounterVec
	accruals       *prometheus.CounterVec
	feesCharged    *prometheus.CounterVec
	accountsOpened *prometheus.CounterVec
	lookups        *prometheus.CounterVec

	// Stores
	storeOps     *prometheus.CounterVec
	storeErrors  *prometheus.CounterVec
	storeLatency *prometheus.HistogramVec

	// Circuit breaker
	circuitOpens *prometheus.CounterVec
	circuitState *prometheus.GaugeVec

	// Async writer
	queueDepth    *prometheus.GaugeVec
	droppedWrites *prometheus.CounterVec
	asyncWrites   *prometheus.CounterVec
	asyncLatency  *prometheus.HistogramVec

	// Chain-level
	chainHits    *prometheus.CounterVec
	chainMisses  *prometheus.CounterVec
	chainLatency *prometheus.HistogramVec
}

// NewPrometheusCollector creates a new Prometheus metrics collector.
func NewPrometheusCollector(namespace string) *PrometheusCollector {
	pc := &PrometheusCollector{
		namespace: namespace,
		transactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_total",
				Help:      "Total number of proposed transactions per account kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		accruals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "accruals_total",
				Help:      "Total number of interest accruals per account kind",
			},
			[]string{"kind"},
		),
		feesCharged: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fees_charged_total",
				Help:      "Total number of low balance fees charged per account kind",
			},
			[]string{"kind"},
		),
		accountsOpened: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "accounts_opened_total",
				Help:      "Total number of accounts opened per kind",
			},
			[]string{"kind"},
		),
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "account_lookups_total",
				Help:      "Total number of account lookups by outcome (found, missing, filtered)",
			},
			[]string{"outcome"},
		),
		storeOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total number of snapshot store operations",
			},
			[]string{"store", "operation", "status"},
		),
		storeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_errors_total",
				Help:      "Total number of snapshot store errors by type",
			},
			[]string{"store", "operation", "error_type"},
		),
		storeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Snapshot store operation latency",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15), // 0.1ms to ~3s
			},
			[]string{"store", "operation"},
		),
		circuitOpens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_opens_total",
				Help:      "Total number of circuit breaker opens per store",
			},
			[]string{"store"},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_state",
				Help:      "Current circuit breaker state per store (0=closed, 1=open, 2=half-open)",
			},
			[]string{"store"},
		),
		queueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "autosave_queue_depth",
				Help:      "Current autosave queue depth per store",
			},
			[]string{"store"},
		),
		droppedWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "autosave_dropped_total",
				Help:      "Total number of dropped autosaves per store",
			},
			[]string{"store"},
		),
		asyncWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "autosave_writes_total",
				Help:      "Total number of autosaves per store",
			},
			[]string{"store", "status"},
		),
		asyncLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "autosave_duration_seconds",
				Help:      "Autosave latency",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15),
			},
			[]string{"store"},
		),
		chainHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chain_load_hits_total",
				Help:      "Total number of replicated loads served, by replica index",
			},
			[]string{"replica_index"},
		),
		chainMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chain_load_misses_total",
				Help:      "Total number of replicated loads that found no snapshot",
			},
			[]string{},
		),
		chainLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "chain_load_duration_seconds",
				Help:      "Replicated load total latency",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15),
			},
			[]string{"hit"},
		),
	}

	return pc
}

// Register registers all metrics with the given Prometheus registry.
func (pc *PrometheusCollector) Register(registry prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		pc.transactions,
		pc.accruals,
		pc.feesCharged,
		pc.accountsOpened,
		pc.lookups,
		pc.storeOps,
		pc.storeErrors,
		pc.storeLatency,
		pc.circuitOpens,
		pc.circuitState,
		pc.queueDepth,
		pc.droppedWrites,
		pc.asyncWrites,
		pc.asyncLatency,
		pc.chainHits,
		pc.chainMisses,
		pc.chainLatency,
	}

	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

func (pc *PrometheusCollector) RecordTransaction(kind, outcome string) {
	pc.transactions.WithLabelValues(kind, outcome).Inc()
}

func (pc *PrometheusCollector) RecordAccrual(kind string, feeCharged bool) {
	pc.accruals.WithLabelValues(kind).Inc()
	if feeCharged {
		pc.feesCharged.WithLabelValues(kind).Inc()
	}
}

func (pc *PrometheusCollector) RecordAccountOpened(kind string) {
	pc.accountsOpened.WithLabelValues(kind).Inc()
}

func (pc *PrometheusCollector) RecordLookup(outcome metrics.LookupOutcome) {
	pc.lookups.WithLabelValues(string(outcome)).Inc()
}

// RecordStoreOp records a snapshot save or load.
func (pc *PrometheusCollector) RecordStoreOp(store, operation string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	pc.storeOps.WithLabelValues(store, operation, status).Inc()
	pc.storeLatency.WithLabelValues(store, operation).Observe(duration.Seconds())
}

// RecordStoreError records an error by type.
func (pc *PrometheusCollector) RecordStoreError(store, operation, errorType string) {
	pc.storeErrors.WithLabelValues(store, operation, errorType).Inc()
}

// RecordCircuitState records the current circuit breaker state.
func (pc *PrometheusCollector) RecordCircuitState(store string, state metrics.CircuitState) {
	pc.circuitState.WithLabelValues(store).Set(float64(state))
	if state == metrics.CircuitOpen {
		pc.circuitOpens.WithLabelValues(store).Inc()
	}
}

// RecordQueueDepth records the current autosave queue depth.
func (pc *PrometheusCollector) RecordQueueDepth(store string, depth int) {
	pc.queueDepth.WithLabelValues(store).Set(float64(depth))
}

// RecordWriteDropped records a dropped autosave.
func (pc *PrometheusCollector) RecordWriteDropped(store string) {
	pc.droppedWrites.WithLabelValues(store).Inc()
}

// RecordAsyncWrite records an autosave.
func (pc *PrometheusCollector) RecordAsyncWrite(store string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	pc.asyncWrites.WithLabelValues(store, status).Inc()
	pc.asyncLatency.WithLabelValues(store).Observe(duration.Seconds())
}

// RecordChainLoad records a chain-level load.
func (pc *PrometheusCollector) RecordChainLoad(hit bool, replicaIndex int, totalDuration time.Duration) {
	hitLabel := "false"
	if hit {
		pc.chainHits.WithLabelValues(strconv.Itoa(replicaIndex)).Inc()
		hitLabel = "true"
	} else {
		pc.chainMisses.WithLabelValues().Inc()
	}
	pc.chainLatency.WithLabelValues(hitLabel).Observe(totalDuration.Seconds())
}
