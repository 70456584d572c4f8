package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lexflow_notifier"

// States reported by the connection state gauge.
var States = []string{"idle", "connecting", "open", "pending_retry", "terminal"}

// Metrics holds all Prometheus metrics for the notifier.
type Metrics struct {
	// Connection lifecycle
	ConnectAttemptsTotal prometheus.Counter
	OpensTotal           prometheus.Counter
	ClosesTotal          prometheus.Counter
	RetriesScheduled     prometheus.Counter
	RetryDelaySeconds    prometheus.Histogram
	RetryExhaustedTotal  prometheus.Counter
	ConnectionState      *prometheus.GaugeVec

	// Frames and delivery
	FramesReceivedTotal prometheus.Counter
	FramesDroppedTotal  *prometheus.CounterVec
	DeliveredTotal      prometheus.Counter
	AlertFailuresTotal  prometheus.Counter

	// Archive
	ArchiveInsertsTotal   prometheus.Counter
	ArchiveConflictsTotal prometheus.Counter
	ArchiveErrorsTotal    prometheus.Counter
	ArchiveDroppedTotal   prometheus.Counter

	registry *prometheus.Registry
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	m := &Metrics{
		ConnectAttemptsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_attempts_total",
			Help:      "Total number of transports dialed",
		}),
		OpensTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_opens_total",
			Help:      "Total number of successful transport opens",
		}),
		ClosesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_closes_total",
			Help:      "Total number of unexpected transport closes",
		}),
		RetriesScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_scheduled_total",
			Help:      "Total number of reconnect timers armed",
		}),
		RetryDelaySeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retry_delay_seconds",
			Help:      "Backoff delay of scheduled reconnects",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
		}),
		RetryExhaustedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retry_exhausted_total",
			Help:      "Total number of times the retry ceiling was reached",
		}),
		ConnectionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "Current connection state (1 for the active state)",
		}, []string{"state"}),
		FramesReceivedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Total number of frames received",
		}),
		FramesDroppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Total number of frames discarded by the decoder",
		}, []string{"reason"}),
		DeliveredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_delivered_total",
			Help:      "Total number of notifications delivered to the store",
		}),
		AlertFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_failures_total",
			Help:      "Total number of transient alerts that failed",
		}),
		ArchiveInsertsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_inserts_total",
			Help:      "Total number of notifications inserted into the archive",
		}),
		ArchiveConflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_conflicts_total",
			Help:      "Total number of archive inserts skipped as duplicates",
		}),
		ArchiveErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_errors_total",
			Help:      "Total number of failed archive batches",
		}),
		ArchiveDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_dropped_total",
			Help:      "Total number of notifications not enqueued for the archive",
		}),
	}

	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(
		m.ConnectAttemptsTotal,
		m.OpensTotal,
		m.ClosesTotal,
		m.RetriesScheduled,
		m.RetryDelaySeconds,
		m.RetryExhaustedTotal,
		m.ConnectionState,
		m.FramesReceivedTotal,
		m.FramesDroppedTotal,
		m.DeliveredTotal,
		m.AlertFailuresTotal,
		m.ArchiveInsertsTotal,
		m.ArchiveConflictsTotal,
		m.ArchiveErrorsTotal,
		m.ArchiveDroppedTotal,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	m.SetState("idle")
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ConnectAttempt records a dialed transport.
func (m *Metrics) ConnectAttempt() {
	if m == nil {
		return
	}
	m.ConnectAttemptsTotal.Inc()
}

// ConnectionOpened records a successful open.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.OpensTotal.Inc()
}

// ConnectionClosed records an unexpected close.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.ClosesTotal.Inc()
}

// RetryScheduled records an armed reconnect timer.
func (m *Metrics) RetryScheduled(delay time.Duration) {
	if m == nil {
		return
	}
	m.RetriesScheduled.Inc()
	m.RetryDelaySeconds.Observe(delay.Seconds())
}

// RetryExhausted records reaching the retry ceiling.
func (m *Metrics) RetryExhausted() {
	if m == nil {
		return
	}
	m.RetryExhaustedTotal.Inc()
}

// SetState marks state as the active connection state.
func (m *Metrics) SetState(state string) {
	if m == nil {
		return
	}
	for _, s := range States {
		v := 0.0
		if s == state {
			v = 1
		}
		m.ConnectionState.WithLabelValues(s).Set(v)
	}
}

// FrameReceived records an incoming frame.
func (m *Metrics) FrameReceived() {
	if m == nil {
		return
	}
	m.FramesReceivedTotal.Inc()
}

// FrameDropped records a frame discarded by the decoder.
func (m *Metrics) FrameDropped(reason string) {
	if m == nil {
		return
	}
	m.FramesDroppedTotal.WithLabelValues(reason).Inc()
}

// NotificationDelivered records a delivered notification.
func (m *Metrics) NotificationDelivered() {
	if m == nil {
		return
	}
	m.DeliveredTotal.Inc()
}

// AlertFailed records a failed transient alert.
func (m *Metrics) AlertFailed() {
	if m == nil {
		return
	}
	m.AlertFailuresTotal.Inc()
}

// ArchiveFlushed records a successful archive batch.
func (m *Metrics) ArchiveFlushed(inserted, conflicts int) {
	if m == nil {
		return
	}
	m.ArchiveInsertsTotal.Add(float64(inserted))
	m.ArchiveConflictsTotal.Add(float64(conflicts))
}

// ArchiveFailed records a failed archive batch.
func (m *Metrics) ArchiveFailed() {
	if m == nil {
		return
	}
	m.ArchiveErrorsTotal.Inc()
}

// ArchiveDropped records a notification that could not be enqueued.
func (m *Metrics) ArchiveDropped() {
	if m == nil {
		return
	}
	m.ArchiveDroppedTotal.Inc()
}
