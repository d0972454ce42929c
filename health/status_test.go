package health

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Predicates(t *testing.T) {
	tests := []struct {
		status    string
		healthy   bool
		degraded  bool
		unhealthy bool
	}{
		{StatusHealthy, true, false, false},
		{StatusDegraded, false, true, false},
		{StatusUnhealthy, false, false, true},
		{"unknown", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			s := Status{Status: tt.status}
			assert.Equal(t, tt.healthy, s.IsHealthy())
			assert.Equal(t, tt.degraded, s.IsDegraded())
			assert.Equal(t, tt.unhealthy, s.IsUnhealthy())
		})
	}
}

func TestStatus_WithMetrics(t *testing.T) {
	original := NewHealthy("sdk", "connected")
	metrics := &Metrics{QueueLength: 3, InFlight: 1, Uptime: time.Minute}

	withMetrics := original.WithMetrics(metrics)
	assert.Nil(t, original.Metrics)
	assert.Equal(t, metrics, withMetrics.Metrics)
}

func TestStatus_WithSubStatusIsolation(t *testing.T) {
	base := NewHealthy("sdk", "ok")
	a := base.WithSubStatus(NewHealthy("sink", "connected"))
	b := a.WithSubStatus(NewDegraded("queue", "backlog"))
	c := a.WithSubStatus(NewUnhealthy("auth", "grant failed"))

	assert.Empty(t, base.SubStatuses)
	require.Len(t, a.SubStatuses, 1)
	require.Len(t, b.SubStatuses, 2)
	require.Len(t, c.SubStatuses, 2)
	assert.Equal(t, "queue", b.SubStatuses[1].Component)
	assert.Equal(t, "auth", c.SubStatuses[1].Component)
}

func TestStatus_JSON(t *testing.T) {
	s := NewDegraded("sdk", "reconnecting").WithMetrics(&Metrics{QueueLength: 5, InFlight: 2})

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "degraded", decoded["status"])
	assert.Equal(t, false, decoded["healthy"])

	metrics := decoded["metrics"].(map[string]any)
	assert.Equal(t, float64(5), metrics["queue_length"])
	assert.Equal(t, float64(2), metrics["in_flight"])
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"file path", "failed to open /etc/stellanow/config.yaml", "failed to open [PATH]"},
		{"https URL", "discovery failed for https://auth.example.com/realms/org", "discovery failed for [URL]"},
		{"mqtt URL", "cannot connect to ssl://ingestor.example.com:8883", "cannot connect to [URL]"},
		{"nats URL", "cannot connect to nats://localhost:4222", "cannot connect to [URL]"},
		{"IP address", "timeout connecting to 10.0.0.12", "timeout connecting to [IP]"},
		{"port", "failed to bind to :9090", "failed to bind to [PORT]"},
		{"password", "grant failed password=hunter2", "grant failed [REDACTED]"},
		{"bearer token", "rejected Bearer eyJhbGciOi.abc.def", "rejected [REDACTED]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Sanitize(tt.input))
		})
	}
}
