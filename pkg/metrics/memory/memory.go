package memory

import (
	"sync"
	"time"

	"bank-ledger/pkg/metrics"
)

// MemoryCollector implements MetricsCollector for in-memory testing.
type MemoryCollector struct {
	mu sync.RWMutex

	// Ledger metrics
	transactions   map[string]map[string]int64 // kind -> outcome -> count
	accruals       map[string]int64
	feesCharged    map[string]int64
	accountsOpened map[string]int64
	lookups        map[metrics.LookupOutcome]int64

	// Per-store metrics
	storeMetrics map[string]*StoreMetrics

	// Chain-level metrics
	chainHits          int64
	chainMisses        int64
	chainHitsByReplica map[int]int64
}

// StoreMetrics holds metrics for a single snapshot store.
type StoreMetrics struct {
	// Operation counts
	Saves  int64
	Loads  int64
	Errors int64

	// Error types (by error_type label)
	ErrorsByType map[string]int64

	// Circuit breaker
	CircuitState metrics.CircuitState
	CircuitOpens int64

	// Async writer
	QueueDepth    int
	DroppedWrites int64
	AsyncWrites   int64
	AsyncErrors   int64

	// Latencies (simple stats)
	SaveLatencies  []time.Duration
	LoadLatencies  []time.Duration
	AsyncLatencies []time.Duration
}

// NewMemoryCollector creates a new in-memory metrics collector.
func NewMemoryCollector() *MemoryCollector {
	mc := &MemoryCollector{}
	mc.reset()
	return mc
}

func (mc *MemoryCollector) reset() {
	mc.transactions = make(map[string]map[string]int64)
	mc.accruals = make(map[string]int64)
	mc.feesCharged = make(map[string]int64)
	mc.accountsOpened = make(map[string]int64)
	mc.lookups = make(map[metrics.LookupOutcome]int64)
	mc.storeMetrics = make(map[string]*StoreMetrics)
	mc.chainHits = 0
	mc.chainMisses = 0
	mc.chainHitsByReplica = make(map[int]int64)
}

// store returns the StoreMetrics for name, creating it if needed. Caller holds mc.mu.
func (mc *MemoryCollector) store(name string) *StoreMetrics {
	sm, exists := mc.storeMetrics[name]
	if !exists {
		sm = &StoreMetrics{ErrorsByType: make(map[string]int64)}
		mc.storeMetrics[name] = sm
	}
	return sm
}

// RecordTransaction records a proposed transaction and its outcome.
func (mc *MemoryCollector) RecordTransaction(kind, outcome string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.transactions[kind] == nil {
		mc.transactions[kind] = make(map[string]int64)
	}
	mc.transactions[kind][outcome]++
}

// RecordAccrual records a completed accrual.
func (mc *MemoryCollector) RecordAccrual(kind string, feeCharged bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.accruals[kind]++
	if feeCharged {
		mc.feesCharged[kind]++
	}
}

// RecordAccountOpened records a new account.
func (mc *MemoryCollector) RecordAccountOpened(kind string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.accountsOpened[kind]++
}

// RecordLookup records an account lookup by id.
func (mc *MemoryCollector) RecordLookup(outcome metrics.LookupOutcome) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.lookups[outcome]++
}

// RecordStoreOp records a snapshot save or load.
func (mc *MemoryCollector) RecordStoreOp(store, operation string, success bool, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	sm := mc.store(store)
	switch operation {
	case "save":
		sm.Saves++
		sm.SaveLatencies = append(sm.SaveLatencies, duration)
	case "load":
		sm.Loads++
		sm.LoadLatencies = append(sm.LoadLatencies, duration)
	}
	if !success {
		sm.Errors++
	}
}

// RecordStoreError records an error by type.
func (mc *MemoryCollector) RecordStoreError(store, operation, errorType string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.store(store).ErrorsByType[errorType]++
}

// RecordCircuitState records the current circuit breaker state.
func (mc *MemoryCollector) RecordCircuitState(store string, state metrics.CircuitState) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	sm := mc.store(store)
	oldState := sm.CircuitState
	sm.CircuitState = state

	// Count transitions to open
	if oldState != metrics.CircuitOpen && state == metrics.CircuitOpen {
		sm.CircuitOpens++
	}
}

// RecordQueueDepth records the current async writer queue depth.
func (mc *MemoryCollector) RecordQueueDepth(store string, depth int) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.store(store).QueueDepth = depth
}

// RecordWriteDropped records a dropped async write.
func (mc *MemoryCollector) RecordWriteDropped(store string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.store(store).DroppedWrites++
}

// RecordAsyncWrite records an async write operation.
func (mc *MemoryCollector) RecordAsyncWrite(store string, success bool, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	sm := mc.store(store)
	sm.AsyncWrites++
	if !success {
		sm.AsyncErrors++
	}
	sm.AsyncLatencies = append(sm.AsyncLatencies, duration)
}

// RecordChainLoad records a chain-level load.
func (mc *MemoryCollector) RecordChainLoad(hit bool, replicaIndex int, totalDuration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if hit {
		mc.chainHits++
		mc.chainHitsByReplica[replicaIndex]++
	} else {
		mc.chainMisses++
	}
}

// Snapshot is a copy of the collected metrics.
type Snapshot struct {
	Transactions       map[string]map[string]int64
	Accruals           map[string]int64
	FeesCharged        map[string]int64
	AccountsOpened     map[string]int64
	Lookups            map[metrics.LookupOutcome]int64
	StoreMetrics       map[string]StoreMetrics
	ChainHits          int64
	ChainMisses        int64
	ChainHitsByReplica map[int]int64
}

// Snapshot returns a copy of the current metrics state.
func (mc *MemoryCollector) Snapshot() Snapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	snapshot := Snapshot{
		Transactions:       make(map[string]map[string]int64, len(mc.transactions)),
		Accruals:           copyCounts(mc.accruals),
		FeesCharged:        copyCounts(mc.feesCharged),
		AccountsOpened:     copyCounts(mc.accountsOpened),
		Lookups:            make(map[metrics.LookupOutcome]int64, len(mc.lookups)),
		StoreMetrics:       make(map[string]StoreMetrics, len(mc.storeMetrics)),
		ChainHits:          mc.chainHits,
		ChainMisses:        mc.chainMisses,
		ChainHitsByReplica: make(map[int]int64, len(mc.chainHitsByReplica)),
	}

	for kind, outcomes := range mc.transactions {
		snapshot.Transactions[kind] = copyCounts(outcomes)
	}
	for outcome, n := range mc.lookups {
		snapshot.Lookups[outcome] = n
	}
	for name, sm := range mc.storeMetrics {
		c := *sm
		c.ErrorsByType = copyCounts(sm.ErrorsByType)
		snapshot.StoreMetrics[name] = c
	}
	for idx, hits := range mc.chainHitsByReplica {
		snapshot.ChainHitsByReplica[idx] = hits
	}

	return snapshot
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Reset clears all collected metrics.
func (mc *MemoryCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.reset()
}

// TransactionCount returns how many transactions of kind ended with outcome.
func (mc *MemoryCollector) TransactionCount(kind, outcome string) int64 {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return mc.transactions[kind][outcome]
}

// GetStoreMetrics returns the metrics for a specific store.
func (mc *MemoryCollector) GetStoreMetrics(store string) *StoreMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if sm, exists := mc.storeMetrics[store]; exists {
		c := *sm
		c.ErrorsByType = copyCounts(sm.ErrorsByType)
		return &c
	}
	return nil
}
