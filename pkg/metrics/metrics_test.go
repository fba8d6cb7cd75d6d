package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

func TestMetrics_NilSafe(t *testing.T) {
	// All methods on a nil *Metrics must not panic.
	var m *Metrics

	m.ObserveScan(time.Millisecond, 3, nil)
	m.ObserveScan(time.Millisecond, 3, errors.New("boom"))
	m.ObserveStoreLookup(true)
	m.ObserveStoreLookup(false)
	m.SetStoreEntries(5)
	m.ObserveReap(2)
	m.SetHealthScore(`C:\Shared`, 87.5)
	m.SetIssuesActive("broken_inheritance", 1)
	m.ObserveMonitorCycle(time.Second, 1)
	m.ObserveChangeDetected("high")
	m.SetActiveConnections(4)
	m.ObserveMessageSent()
	m.ObserveDisconnect()
}

func TestNew_CreatesAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.ScanDuration == nil || m.ScanTotal == nil || m.StoreEntries == nil || m.HealthScore == nil {
		t.Error("expected all metric fields to be initialized")
	}
}

func TestObserveScan_RecordsResultLabel(t *testing.T) {
	resetForTest()
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveScan(10*time.Millisecond, 5, nil)
	m.ObserveScan(10*time.Millisecond, 5, errors.New("denied"))
	m.ObserveScan(10*time.Millisecond, 5, nil)

	if got := counterValue(t, m.ScanTotal, "ok"); got != 2 {
		t.Errorf("ScanTotal{result=ok} = %v, want 2", got)
	}
	if got := counterValue(t, m.ScanTotal, "error"); got != 1 {
		t.Errorf("ScanTotal{result=error} = %v, want 1", got)
	}
}

func TestSetHealthScore_PerPathGauge(t *testing.T) {
	resetForTest()
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SetHealthScore(`C:\Finance`, 42.0)

	if got := gaugeValue(t, m.HealthScore, `C:\Finance`); got != 42.0 {
		t.Errorf("HealthScore{path} = %v, want 42.0", got)
	}
}

// resetForTest clears the package-level singleton so each test that needs
// to observe metric values starts from a freshly registered instance.
func resetForTest() {
	once = sync.Once{}
	instance = nil
}

func counterValue(t *testing.T, cv *prometheus.CounterVec, label string) float64 {
	t.Helper()
	counter, err := cv.GetMetricWithLabelValues(label)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%q): %v", label, err)
	}
	var metric io_prometheus_client.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	return metric.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, gv *prometheus.GaugeVec, label string) float64 {
	t.Helper()
	gauge, err := gv.GetMetricWithLabelValues(label)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%q): %v", label, err)
	}
	var metric io_prometheus_client.Metric
	if err := gauge.Write(&metric); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	return metric.GetGauge().GetValue()
}
