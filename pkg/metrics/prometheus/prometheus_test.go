package prometheus

import (
	"testing"
	"time"

	"bank-ledger/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// value reads the current value of a single counter or gauge child.
func value(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()

	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	switch {
	case m.Counter != nil:
		return m.GetCounter().GetValue()
	case m.Gauge != nil:
		return m.GetGauge().GetValue()
	}
	t.Fatalf("metric is neither counter nor gauge")
	return 0
}

var _ metrics.MetricsCollector = (*PrometheusCollector)(nil)

func TestPrometheusCollector_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	pc := NewPrometheusCollector("ledger")

	if err := pc.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := pc.Register(reg); err == nil {
		t.Error("registering twice should fail")
	}
}

func TestPrometheusCollector_Records(t *testing.T) {
	pc := NewPrometheusCollector("ledger")

	pc.RecordTransaction("checking", "none")
	pc.RecordTransaction("checking", "overdraw")
	pc.RecordTransaction("checking", "none")
	pc.RecordAccrual("checking", true)
	pc.RecordLookup(metrics.LookupMissing)
	pc.RecordStoreOp("file", "save", false, 2*time.Millisecond)
	pc.RecordCircuitState("file", metrics.CircuitOpen)
	pc.RecordQueueDepth("file", 3)
	pc.RecordChainLoad(true, 2, time.Millisecond)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"accepted", value(t, pc.transactions.WithLabelValues("checking", "none")), 2},
		{"overdraw", value(t, pc.transactions.WithLabelValues("checking", "overdraw")), 1},
		{"accruals", value(t, pc.accruals.WithLabelValues("checking")), 1},
		{"fees", value(t, pc.feesCharged.WithLabelValues("checking")), 1},
		{"lookups", value(t, pc.lookups.WithLabelValues("missing")), 1},
		{"store errors", value(t, pc.storeOps.WithLabelValues("file", "save", "error")), 1},
		{"circuit state", value(t, pc.circuitState.WithLabelValues("file")), 1},
		{"circuit opens", value(t, pc.circuitOpens.WithLabelValues("file")), 1},
		{"queue depth", value(t, pc.queueDepth.WithLabelValues("file")), 3},
		{"chain hits", value(t, pc.chainHits.WithLabelValues("2")), 1},
	}

	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}
