package sink

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/stella-systems/stellanow-sdk-go/metric"
)

// Option configures a Sink
type Option func(*Sink) error

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// WithClock replaces the clock driving backoff and polling. Tests pass a mock.
func WithClock(clk clock.Clock) Option {
	return func(s *Sink) error {
		if clk == nil {
			return fmt.Errorf("clock is nil")
		}
		s.clock = clk
		return nil
	}
}

// WithBackoff sets the reconnect delay bounds: base doubles per failed attempt
// up to max.
func WithBackoff(base, max time.Duration) Option {
	return func(s *Sink) error {
		s.backoff.InitialDelay = base
		s.backoff.MaxDelay = max
		return s.backoff.Validate()
	}
}

// WithPollInterval sets how often a connected sink checks its transport
func WithPollInterval(d time.Duration) Option {
	return func(s *Sink) error {
		if d <= 0 {
			return fmt.Errorf("poll interval must be positive, got %v", d)
		}
		s.pollInterval = d
		return nil
	}
}

// WithConnectTimeout bounds each authenticate-and-connect attempt. Zero, the
// default, leaves attempts bounded only by the transport.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *Sink) error {
		if d < 0 {
			return fmt.Errorf("connect timeout must not be negative, got %v", d)
		}
		s.connectTimeout = d
		return nil
	}
}

// WithMetrics records connection state, attempts and publish outcomes
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(s *Sink) error {
		s.metrics = registry.CoreMetrics()
		return nil
	}
}
