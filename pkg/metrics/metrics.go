// Package metrics exposes Prometheus instrumentation for the scanner,
// snapshot store, health analyzer, monitor loop, and notification service.
//
// Methods handle a nil receiver gracefully, so a nil *Metrics acts as a
// no-op and callers never need to branch on whether metrics are enabled.
// This follows the pattern used by the ACL evaluator's metrics in the
// filesystem this module grew out of.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks Prometheus metrics across every ShareGuard subsystem.
// All metric names use the "shareguard_" prefix.
type Metrics struct {
	// ScanDuration tracks time to scan one path's ACL (not including its
	// recursive descendants).
	ScanDuration prometheus.Histogram

	// ScanTotal counts completed scans by outcome.
	// Labels: result=[ok, error]
	ScanTotal *prometheus.CounterVec

	// ScanACECount tracks the consolidated ACE count observed per scan.
	ScanACECount prometheus.Histogram

	// StoreEntries is the current number of entries in the snapshot store.
	StoreEntries prometheus.Gauge

	// StoreHitTotal / StoreMissTotal count Get() outcomes.
	StoreHitTotal  prometheus.Counter
	StoreMissTotal prometheus.Counter

	// StoreReapTotal counts entries removed by the periodic reap.
	StoreReapTotal prometheus.Counter

	// HealthScore is the most recently computed aggregate health score,
	// one gauge per scanned path.
	HealthScore *prometheus.GaugeVec

	// HealthIssuesActive is the current count of active issues by type.
	HealthIssuesActive *prometheus.GaugeVec

	// MonitorCycleDuration tracks the wall time of one monitor loop cycle.
	MonitorCycleDuration prometheus.Histogram

	// MonitorCycleErrors counts per-path scan/diff failures isolated
	// during a monitor cycle.
	MonitorCycleErrors prometheus.Counter

	// MonitorChangesDetected counts significant changes found by the
	// monitor loop, by severity.
	// Labels: severity=[low, medium, high, critical]
	MonitorChangesDetected *prometheus.CounterVec

	// NotifyActiveConnections is the current number of connected
	// notification subscribers.
	NotifyActiveConnections prometheus.Gauge

	// NotifyMessagesSent counts messages successfully delivered to
	// subscribers.
	NotifyMessagesSent prometheus.Counter

	// NotifyDisconnectsTotal counts subscriptions dropped due to a send
	// failure.
	NotifyDisconnectsTotal prometheus.Counter
}

var (
	once     sync.Once
	instance *Metrics
)

// New creates and registers ShareGuard's Prometheus metrics.
//
// If registerer is nil, prometheus.DefaultRegisterer is used. Idempotent:
// uses sync.Once so repeated calls return the same instance instead of
// attempting to register the same metric names twice.
func New(registerer prometheus.Registerer) *Metrics {
	once.Do(func() {
		if registerer == nil {
			registerer = prometheus.DefaultRegisterer
		}

		m := &Metrics{
			ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "shareguard_scan_duration_seconds",
				Help:    "Time to scan and consolidate ACL entries for one path",
				Buckets: prometheus.DefBuckets,
			}),
			ScanTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "shareguard_scan_total",
				Help: "Total ACL scans by result",
			}, []string{"result"}),
			ScanACECount: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "shareguard_scan_ace_count",
				Help:    "Number of consolidated ACEs observed per scanned path",
				Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200},
			}),
			StoreEntries: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "shareguard_store_entries",
				Help: "Current number of entries held in the snapshot store",
			}),
			StoreHitTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "shareguard_store_hit_total",
				Help: "Total snapshot store lookups that found a cached entry",
			}),
			StoreMissTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "shareguard_store_miss_total",
				Help: "Total snapshot store lookups that found nothing cached",
			}),
			StoreReapTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "shareguard_store_reap_total",
				Help: "Total snapshot store entries removed by the periodic reap",
			}),
			HealthScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "shareguard_health_score",
				Help: "Most recently computed aggregate health score for a path",
			}, []string{"path"}),
			HealthIssuesActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "shareguard_health_issues_active",
				Help: "Current count of active health issues by type",
			}, []string{"issue_type"}),
			MonitorCycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "shareguard_monitor_cycle_duration_seconds",
				Help:    "Wall time of one monitor loop watch-set cycle",
				Buckets: prometheus.DefBuckets,
			}),
			MonitorCycleErrors: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "shareguard_monitor_cycle_errors_total",
				Help: "Total per-path failures isolated during monitor cycles",
			}),
			MonitorChangesDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "shareguard_monitor_changes_detected_total",
				Help: "Total significant changes detected by the monitor loop",
			}, []string{"severity"}),
			NotifyActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "shareguard_notify_active_connections",
				Help: "Current number of connected notification subscribers",
			}),
			NotifyMessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "shareguard_notify_messages_sent_total",
				Help: "Total notification messages delivered to subscribers",
			}),
			NotifyDisconnectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "shareguard_notify_disconnects_total",
				Help: "Total subscriptions dropped due to a send failure",
			}),
		}

		registerer.MustRegister(
			m.ScanDuration,
			m.ScanTotal,
			m.ScanACECount,
			m.StoreEntries,
			m.StoreHitTotal,
			m.StoreMissTotal,
			m.StoreReapTotal,
			m.HealthScore,
			m.HealthIssuesActive,
			m.MonitorCycleDuration,
			m.MonitorCycleErrors,
			m.MonitorChangesDetected,
			m.NotifyActiveConnections,
			m.NotifyMessagesSent,
			m.NotifyDisconnectsTotal,
		)

		instance = m
	})

	return instance
}

// ObserveScan records a completed scan's duration, ACE count, and outcome.
func (m *Metrics) ObserveScan(duration time.Duration, aceCount int, err error) {
	if m == nil {
		return
	}
	m.ScanDuration.Observe(duration.Seconds())
	m.ScanACECount.Observe(float64(aceCount))
	if err != nil {
		m.ScanTotal.WithLabelValues("error").Inc()
		return
	}
	m.ScanTotal.WithLabelValues("ok").Inc()
}

// ObserveStoreLookup records a Get() hit or miss.
func (m *Metrics) ObserveStoreLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.StoreHitTotal.Inc()
		return
	}
	m.StoreMissTotal.Inc()
}

// SetStoreEntries sets the current snapshot store size.
func (m *Metrics) SetStoreEntries(n int) {
	if m == nil {
		return
	}
	m.StoreEntries.Set(float64(n))
}

// ObserveReap records the number of entries removed by a reap pass.
func (m *Metrics) ObserveReap(removed int) {
	if m == nil {
		return
	}
	m.StoreReapTotal.Add(float64(removed))
}

// SetHealthScore records the aggregate health score for a path.
func (m *Metrics) SetHealthScore(path string, score float64) {
	if m == nil {
		return
	}
	m.HealthScore.WithLabelValues(path).Set(score)
}

// SetIssuesActive records the current active-issue count for one issue type.
func (m *Metrics) SetIssuesActive(issueType string, count int) {
	if m == nil {
		return
	}
	m.HealthIssuesActive.WithLabelValues(issueType).Set(float64(count))
}

// ObserveMonitorCycle records a completed monitor loop cycle's duration
// and isolated error count.
func (m *Metrics) ObserveMonitorCycle(duration time.Duration, errors int) {
	if m == nil {
		return
	}
	m.MonitorCycleDuration.Observe(duration.Seconds())
	m.MonitorCycleErrors.Add(float64(errors))
}

// ObserveChangeDetected records a significant change found by the monitor
// loop, by severity.
func (m *Metrics) ObserveChangeDetected(severity string) {
	if m == nil {
		return
	}
	m.MonitorChangesDetected.WithLabelValues(severity).Inc()
}

// SetActiveConnections records the current notification subscriber count.
func (m *Metrics) SetActiveConnections(n int) {
	if m == nil {
		return
	}
	m.NotifyActiveConnections.Set(float64(n))
}

// ObserveMessageSent records one successfully delivered notification.
func (m *Metrics) ObserveMessageSent() {
	if m == nil {
		return
	}
	m.NotifyMessagesSent.Inc()
}

// ObserveDisconnect records one subscription dropped due to a send failure.
func (m *Metrics) ObserveDisconnect() {
	if m == nil {
		return
	}
	m.NotifyDisconnectsTotal.Inc()
}
