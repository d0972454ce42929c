package sdk

import (
	"fmt"
	"time"

	"github.com/stella-systems/stellanow-sdk-go/health"
	"github.com/stella-systems/stellanow-sdk-go/sink"
)

// Health reports delivery health: healthy while connected, degraded while a
// connection attempt is under way, unhealthy when disconnected or stopped.
func (s *SDK) Health() health.Status {
	stats := s.Stats()

	var conn health.Status
	switch stats.State {
	case sink.StateConnected:
		conn = health.NewHealthy("connection", "connected")
	case sink.StateConnecting:
		conn = health.NewDegraded("connection", fmt.Sprintf("connecting, attempt %d", stats.Attempts))
	case sink.StateStopped:
		conn = health.NewUnhealthy("connection", "stopped")
	default:
		conn = health.NewUnhealthy("connection", fmt.Sprintf("disconnected after %d attempts", stats.Attempts))
	}

	q := health.NewHealthy("queue", fmt.Sprintf("%d queued, %d in flight", stats.QueueLength, stats.InFlight))

	status := health.Aggregate("stellanow-sdk", []health.Status{conn, q})

	m := &health.Metrics{
		Uptime:          s.sink.Uptime(),
		QueueLength:     stats.QueueLength,
		InFlight:        stats.InFlight,
		ConnectAttempts: stats.Attempts,
		ErrorCount:      stats.ErrorCount,
	}
	if err := s.sink.LastError(); err != nil {
		m.LastError = health.Sanitize(err.Error())
	}
	if t, ok := s.lastAck.Load().(time.Time); ok {
		m.LastActivity = t
	}
	return status.WithMetrics(m)
}
