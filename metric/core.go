package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "stellanow"

// Connection state values exported by the connection_state gauge.
const (
	StateDisconnected = 0
	StateConnecting   = 1
	StateConnected    = 2
	StateStopped      = 3
)

// Metrics contains the delivery pipeline metrics.
//
// All Record methods are nil-safe so components can hold a nil *Metrics when
// metrics are disabled.
type Metrics struct {
	// Queue
	QueueLength      prometheus.Gauge
	QueueInFlight    prometheus.Gauge
	MessagesEnqueued prometheus.Counter
	MessagesAcked    prometheus.Counter
	MessagesRequeued prometheus.Counter

	// Publishing
	MessagesPublished prometheus.Counter
	PublishFailures   prometheus.Counter
	PublishDuration   prometheus.Histogram

	// Connection
	ConnectionState prometheus.Gauge
	ConnectAttempts prometheus.Counter
	AuthFailures    *prometheus.CounterVec
}

// NewMetrics creates the delivery metrics. They are not registered anywhere;
// NewMetricsRegistry does that.
func NewMetrics() *Metrics {
	return &Metrics{
		QueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_length",
			Help:      "Number of events waiting in the delivery queue",
		}),
		QueueInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_in_flight",
			Help:      "Number of events dequeued and awaiting acknowledgement",
		}),
		MessagesEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_enqueued_total",
			Help:      "Total number of events accepted into the delivery queue",
		}),
		MessagesAcked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_acked_total",
			Help:      "Total number of events acknowledged by the broker",
		}),
		MessagesRequeued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_requeued_total",
			Help:      "Total number of in-flight events returned to the queue",
		}),
		MessagesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_published_total",
			Help:      "Total number of successful publishes",
		}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "Total number of failed publishes",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_duration_seconds",
			Help:      "Time from publish to broker acknowledgement",
			Buckets:   prometheus.DefBuckets,
		}),
		ConnectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "Connection state (0=disconnected, 1=connecting, 2=connected, 3=stopped)",
		}),
		ConnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_attempts_total",
			Help:      "Total number of connection attempts",
		}),
		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Total number of authentication failures by kind",
		}, []string{"kind"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.QueueLength,
		m.QueueInFlight,
		m.MessagesEnqueued,
		m.MessagesAcked,
		m.MessagesRequeued,
		m.MessagesPublished,
		m.PublishFailures,
		m.PublishDuration,
		m.ConnectionState,
		m.ConnectAttempts,
		m.AuthFailures,
	}
}

// RecordQueueSize sets the queue length and in-flight gauges
func (m *Metrics) RecordQueueSize(queued, inFlight int) {
	if m == nil {
		return
	}
	m.QueueLength.Set(float64(queued))
	m.QueueInFlight.Set(float64(inFlight))
}

// RecordEnqueued increments the enqueued counter
func (m *Metrics) RecordEnqueued() {
	if m == nil {
		return
	}
	m.MessagesEnqueued.Inc()
}

// RecordAcked increments the acknowledged counter
func (m *Metrics) RecordAcked() {
	if m == nil {
		return
	}
	m.MessagesAcked.Inc()
}

// RecordRequeued adds n to the requeued counter
func (m *Metrics) RecordRequeued(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.MessagesRequeued.Add(float64(n))
}

// RecordPublish records the outcome and duration of one publish
func (m *Metrics) RecordPublish(duration time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.PublishFailures.Inc()
		return
	}
	m.MessagesPublished.Inc()
	m.PublishDuration.Observe(duration.Seconds())
}

// RecordConnectionState sets the connection state gauge
func (m *Metrics) RecordConnectionState(state int) {
	if m == nil {
		return
	}
	m.ConnectionState.Set(float64(state))
}

// RecordConnectAttempt increments the connection attempt counter
func (m *Metrics) RecordConnectAttempt() {
	if m == nil {
		return
	}
	m.ConnectAttempts.Inc()
}

// RecordAuthFailure increments the auth failure counter for kind
// (discovery, grant, token).
func (m *Metrics) RecordAuthFailure(kind string) {
	if m == nil {
		return
	}
	m.AuthFailures.WithLabelValues(kind).Inc()
}
