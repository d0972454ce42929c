package metric

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stella-systems/stellanow-sdk-go/errors"
)

func gatheredNames(t *testing.T, r *MetricsRegistry) map[string]bool {
	t.Helper()
	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	return names
}

func TestNewMetricsRegistry_RegistersDeliveryMetrics(t *testing.T) {
	registry := NewMetricsRegistry()
	require.NotNil(t, registry.CoreMetrics())

	// Vectors only appear once a label set has been observed
	registry.CoreMetrics().RecordAuthFailure("grant")

	names := gatheredNames(t, registry)
	for _, name := range []string{
		"stellanow_queue_length",
		"stellanow_queue_in_flight",
		"stellanow_messages_enqueued_total",
		"stellanow_messages_acked_total",
		"stellanow_messages_requeued_total",
		"stellanow_messages_published_total",
		"stellanow_publish_failures_total",
		"stellanow_connection_state",
		"stellanow_connect_attempts_total",
		"stellanow_auth_failures_total",
		"go_goroutines",
	} {
		assert.True(t, names[name], "missing %s", name)
	}
}

func TestMetricsRegistry_RegisterCustom(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "app_events_total", Help: "test"})
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "app_backlog", Help: "test"})
	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "app_latency_seconds", Help: "test"})

	require.NoError(t, registry.RegisterCounter("app", "events", counter))
	require.NoError(t, registry.RegisterGauge("app", "backlog", gauge))
	require.NoError(t, registry.RegisterHistogram("app", "latency", histogram))

	counter.Inc()
	gauge.Set(3)
	histogram.Observe(0.2)

	names := gatheredNames(t, registry)
	assert.True(t, names["app_events_total"])
	assert.True(t, names["app_backlog"])
	assert.True(t, names["app_latency_seconds"])
}

func TestMetricsRegistry_DuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	first := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_total", Help: "dup"})
	second := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_total", Help: "dup"})

	require.NoError(t, registry.RegisterCounter("a", "dup", first))

	err := registry.RegisterCounter("a", "dup", second)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	// Same collector name under a different key collides in prometheus
	err = registry.RegisterCounter("b", "dup", second)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestMetricsRegistry_Unregister(t *testing.T) {
	registry := NewMetricsRegistry()
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "tmp_gauge", Help: "tmp"}, []string{"k"})

	require.NoError(t, registry.RegisterGaugeVec("c", "tmp", vec))
	assert.True(t, registry.Unregister("c", "tmp"))
	assert.False(t, registry.Unregister("c", "tmp"))

	// Can register again after unregistering
	require.NoError(t, registry.RegisterGaugeVec("c", "tmp", vec))
}

func TestMetricsRegistry_ConcurrentRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: fmt.Sprintf("concurrent_%d_total", i),
				Help: "concurrent",
			}, []string{"k"})
			errs <- registry.RegisterCounterVec("c", fmt.Sprintf("m%d", i), c)
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestMetrics_Record(t *testing.T) {
	m := NewMetricsRegistry().CoreMetrics()

	m.RecordQueueSize(7, 2)
	m.RecordEnqueued()
	m.RecordEnqueued()
	m.RecordAcked()
	m.RecordRequeued(3)
	m.RecordRequeued(0)
	m.RecordPublish(10*time.Millisecond, nil)
	m.RecordPublish(0, fmt.Errorf("boom"))
	m.RecordConnectionState(StateConnected)
	m.RecordConnectAttempt()
	m.RecordAuthFailure("discovery")

	assert.Equal(t, 7.0, testutil.ToFloat64(m.QueueLength))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueueInFlight))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MessagesEnqueued))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesAcked))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.MessagesRequeued))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesPublished))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublishFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ConnectionState))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConnectAttempts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthFailures.WithLabelValues("discovery")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordQueueSize(1, 1)
		m.RecordEnqueued()
		m.RecordAcked()
		m.RecordRequeued(1)
		m.RecordPublish(time.Second, nil)
		m.RecordConnectionState(StateStopped)
		m.RecordConnectAttempt()
		m.RecordAuthFailure("grant")
	})

	var r *MetricsRegistry
	assert.Nil(t, r.CoreMetrics())
}
