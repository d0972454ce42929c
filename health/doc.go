// Package health reports the state of the delivery pipeline.
//
// The package supports three health states:
//   - Healthy: connected to the broker, events are flowing
//   - Degraded: reconnecting or authenticating, events accumulate in the queue
//   - Unhealthy: stopped, or the last attempt failed
//
// A Status carries an optional Metrics snapshot (queue length, in-flight count,
// connection attempts, last error) and optional sub-statuses. Aggregate combines
// sub-statuses with "worst wins" semantics:
//
//	status := health.Aggregate("stellanow-sdk", []health.Status{
//	    health.NewHealthy("sink", "connected"),
//	    health.NewDegraded("queue", "1200 events waiting"),
//	})
//	// status.IsDegraded() == true
//
// Error text exposed through a Status is passed through Sanitize, which masks
// broker URLs, file paths, IP addresses, ports and credentials.
package health
