package memory

import (
	"testing"
	"time"

	"bank-ledger/pkg/metrics"
)

var _ metrics.MetricsCollector = (*MemoryCollector)(nil)

func TestMemoryCollector_Ledger(t *testing.T) {
	mc := NewMemoryCollector()

	mc.RecordTransaction("savings", "none")
	mc.RecordTransaction("savings", "none")
	mc.RecordTransaction("savings", "limit")
	mc.RecordAccrual("checking", true)
	mc.RecordAccrual("savings", false)
	mc.RecordAccountOpened("checking")
	mc.RecordLookup(metrics.LookupFiltered)

	if got := mc.TransactionCount("savings", "none"); got != 2 {
		t.Errorf("accepted savings = %d, want 2", got)
	}
	if got := mc.TransactionCount("savings", "limit"); got != 1 {
		t.Errorf("limited savings = %d, want 1", got)
	}

	snap := mc.Snapshot()
	if snap.Accruals["checking"] != 1 || snap.FeesCharged["checking"] != 1 || snap.FeesCharged["savings"] != 0 {
		t.Errorf("accruals = %v, fees = %v", snap.Accruals, snap.FeesCharged)
	}
	if snap.AccountsOpened["checking"] != 1 || snap.Lookups[metrics.LookupFiltered] != 1 {
		t.Errorf("opened = %v, lookups = %v", snap.AccountsOpened, snap.Lookups)
	}
}

func TestMemoryCollector_Stores(t *testing.T) {
	mc := NewMemoryCollector()

	mc.RecordStoreOp("redis", "save", true, time.Millisecond)
	mc.RecordStoreOp("redis", "load", false, time.Millisecond)
	mc.RecordStoreError("redis", "load", "timeout")
	mc.RecordCircuitState("redis", metrics.CircuitOpen)
	mc.RecordCircuitState("redis", metrics.CircuitOpen)
	mc.RecordCircuitState("redis", metrics.CircuitHalfOpen)
	mc.RecordQueueDepth("redis", 4)
	mc.RecordWriteDropped("redis")
	mc.RecordAsyncWrite("redis", false, time.Millisecond)
	mc.RecordChainLoad(true, 1, time.Millisecond)
	mc.RecordChainLoad(false, -1, time.Millisecond)

	sm := mc.GetStoreMetrics("redis")
	if sm == nil {
		t.Fatal("expected redis metrics")
	}
	if sm.Saves != 1 || sm.Loads != 1 || sm.Errors != 1 || sm.ErrorsByType["timeout"] != 1 {
		t.Errorf("store ops = %+v", sm)
	}
	if sm.CircuitOpens != 1 || sm.CircuitState != metrics.CircuitHalfOpen {
		t.Errorf("circuit opens = %d, state = %s", sm.CircuitOpens, sm.CircuitState)
	}
	if sm.QueueDepth != 4 || sm.DroppedWrites != 1 || sm.AsyncWrites != 1 || sm.AsyncErrors != 1 {
		t.Errorf("async = %+v", sm)
	}

	snap := mc.Snapshot()
	if snap.ChainHits != 1 || snap.ChainMisses != 1 || snap.ChainHitsByReplica[1] != 1 {
		t.Errorf("chain = %d/%d %v", snap.ChainHits, snap.ChainMisses, snap.ChainHitsByReplica)
	}

	mc.Reset()
	if mc.GetStoreMetrics("redis") != nil {
		t.Error("Reset should clear store metrics")
	}
}

func TestCircuitState_String(t *testing.T) {
	tests := map[metrics.CircuitState]string{
		metrics.CircuitClosed:   "closed",
		metrics.CircuitOpen:     "open",
		metrics.CircuitHalfOpen: "half-open",
		metrics.CircuitState(9): "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("CircuitState(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}
