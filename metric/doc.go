// Package metric provides Prometheus metrics for the delivery pipeline and an HTTP
// server exposing them.
//
// MetricsRegistry wraps a private prometheus.Registry. It registers the SDK's
// delivery metrics (Metrics) and the Go runtime collectors at construction, and
// lets embedding applications register their own collectors through the
// MetricsRegistrar interface.
//
// # Delivery Metrics
//
//   - stellanow_queue_length, stellanow_queue_in_flight
//   - stellanow_messages_enqueued_total, stellanow_messages_acked_total,
//     stellanow_messages_requeued_total
//   - stellanow_messages_published_total, stellanow_publish_failures_total,
//     stellanow_publish_duration_seconds
//   - stellanow_connection_state, stellanow_connect_attempts_total
//   - stellanow_auth_failures_total{kind}
//
// Components receive a *Metrics (possibly nil) and call its Record methods:
//
//	registry := metric.NewMetricsRegistry()
//	q := queue.NewFIFO(queue.WithMetrics(registry))
//
// # Server
//
//	server := metric.NewServer(9090, "/metrics", registry,
//	    metric.WithHealthFunc(sdk.Health))
//	go func() {
//	    if err := server.Start(); err != nil {
//	        logger.Error("metrics server failed", "error", err)
//	    }
//	}()
//	defer server.Stop(ctx)
package metric
