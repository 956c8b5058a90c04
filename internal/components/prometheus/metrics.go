package prometheus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the controller's domain metric set.
type Metrics struct {
	DispatchAssignments   *prometheus.CounterVec // policy label
	DispatchSkipped       prometheus.Counter
	LifecycleTransitions  *prometheus.CounterVec // from, to labels
	AssignmentTimeouts    prometheus.Counter
	OrphanCancels         prometheus.Counter
	MonitorCycleDuration  *prometheus.HistogramVec // monitor label
	MonitorCycleFailures  *prometheus.CounterVec   // monitor label
	ConnectedSSEClients   prometheus.Gauge
	SlowConsumerClosures  prometheus.Counter
	OnlineSkalds          prometheus.Gauge
	MonitoredTasks        prometheus.Gauge
}

func newMetrics(namespace string, reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		DispatchAssignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_assignments_total",
			Help:      "Tasks assigned to an executor, by policy.",
		}, []string{"policy"}),
		DispatchSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_skipped_total",
			Help:      "Dispatch attempts skipped (no candidate or lost CAS).",
		}),
		LifecycleTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_transitions_total",
			Help:      "Task lifecycle transitions applied by the reconciler.",
		}, []string{"from", "to"}),
		AssignmentTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assignment_timeouts_total",
			Help:      "Tasks demoted to Created after the assignment timeout.",
		}),
		OrphanCancels: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphan_cancels_total",
			Help:      "Cancellation events emitted for ghost workers.",
		}),
		MonitorCycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "monitor_cycle_duration_seconds",
			Help:      "Wall time of one monitor cycle.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"monitor"}),
		MonitorCycleFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_cycle_failures_total",
			Help:      "Monitor cycles skipped due to adapter errors.",
		}, []string{"monitor"}),
		ConnectedSSEClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sse_connected_clients",
			Help:      "Currently connected server-push clients.",
		}),
		SlowConsumerClosures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sse_slow_consumer_closures_total",
			Help:      "Streams closed because the client could not keep up.",
		}),
		OnlineSkalds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "skalds_online",
			Help:      "Skalds currently classified online.",
		}),
		MonitoredTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_monitored",
			Help:      "Tasks currently in Assigning or Running.",
		}),
	}
	reg.MustRegister(
		m.DispatchAssignments, m.DispatchSkipped, m.LifecycleTransitions,
		m.AssignmentTimeouts, m.OrphanCancels, m.MonitorCycleDuration,
		m.MonitorCycleFailures, m.ConnectedSSEClients, m.SlowConsumerClosures,
		m.OnlineSkalds, m.MonitoredTasks,
	)
	return m
}

var (
	globalMu  sync.RWMutex
	globalCmp *Component
)

func registerGlobal(c *Component) {
	globalMu.Lock()
	globalCmp = c
	globalMu.Unlock()
}

// M returns the domain metric set, or nil when the exporter is disabled.
// Callers nil-check; metrics are never load-bearing.
func M() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalCmp == nil {
		return nil
	}
	return globalCmp.metrics
}
