package sdk

import (
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/stella-systems/stellanow-sdk-go/metric"
)

// Options are the delivery settings of an SDK
type Options struct {
	OrganizationID string
	ProjectID      string

	// PumpInterval is the pump tick period
	PumpInterval time.Duration
	// BatchSize caps events dispatched per tick; 0 drains the whole queue
	BatchSize int
	// MaxConcurrentPublishes bounds publishes in flight within one tick
	MaxConcurrentPublishes int
	// PublishRate limits dispatches per second; 0 disables limiting
	PublishRate float64
}

// DefaultOptions returns the delivery defaults for an organization and project
func DefaultOptions(organizationID, projectID string) Options {
	return Options{
		OrganizationID:         organizationID,
		ProjectID:              projectID,
		PumpInterval:           100 * time.Millisecond,
		BatchSize:              100,
		MaxConcurrentPublishes: 10,
	}
}

type settings struct {
	logger   *slog.Logger
	clock    clock.Clock
	registry *metric.MetricsRegistry
}

// Option configures ambient dependencies of an SDK
type Option func(*settings)

// WithLogger sets the logger. Components built by NewFromConfig derive their
// loggers from it.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces the clock driving the pump. Tests pass a mock.
func WithClock(clk clock.Clock) Option {
	return func(s *settings) {
		if clk != nil {
			s.clock = clk
		}
	}
}

// WithMetrics registers the metrics of components built by NewFromConfig in
// registry
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(s *settings) {
		s.registry = registry
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		logger: slog.Default(),
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
