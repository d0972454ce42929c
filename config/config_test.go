package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stella-systems/stellanow-sdk-go/errors"
)

func validConfig() Config {
	cfg := Default()
	cfg.Organization = Organization{ID: "acme", ProjectID: "proj-1"}
	cfg.Auth.Authority = "https://auth.example.com"
	cfg.Auth.Username = "ingest@acme.io"
	cfg.Auth.Password = "s3cret"
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, AuthModeOIDC, cfg.Auth.Mode)
	assert.Equal(t, "event-ingestor", cfg.Auth.ClientID)
	assert.Equal(t, TransportMQTT, cfg.Broker.Transport)
	assert.Equal(t, 100*time.Millisecond, cfg.Delivery.PumpInterval)
	assert.Equal(t, 100, cfg.Delivery.BatchSize)
	assert.Equal(t, 10, cfg.Delivery.MaxConcurrentPublishes)
	assert.Equal(t, 5*time.Second, cfg.Delivery.ReconnectBaseDelay)
	assert.Equal(t, 60*time.Second, cfg.Delivery.ReconnectMaxDelay)

	// Defaults alone lack an organization
	err := cfg.Validate()
	assert.ErrorIs(t, err, errors.ErrMissingConfig)
	assert.True(t, errors.IsFatal(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"no auth needs no credentials", func(c *Config) {
			c.Auth = Auth{Mode: AuthModeNone}
		}, nil},
		{"nats transport", func(c *Config) {
			c.Broker.Transport = TransportNATS
			c.Broker.URL = "nats://localhost:4222"
		}, nil},
		{"missing organization", func(c *Config) { c.Organization.ID = "" }, errors.ErrMissingConfig},
		{"organization with slash", func(c *Config) { c.Organization.ID = "acme/eu" }, errors.ErrInvalidConfig},
		{"organization with dot", func(c *Config) { c.Organization.ID = "acme.eu" }, errors.ErrInvalidConfig},
		{"missing project", func(c *Config) { c.Organization.ProjectID = "" }, errors.ErrMissingConfig},
		{"missing authority", func(c *Config) { c.Auth.Authority = "" }, errors.ErrMissingConfig},
		{"relative authority", func(c *Config) { c.Auth.Authority = "auth.example.com" }, errors.ErrInvalidConfig},
		{"missing username", func(c *Config) { c.Auth.Username = "" }, errors.ErrMissingConfig},
		{"missing password", func(c *Config) { c.Auth.Password = "" }, errors.ErrMissingConfig},
		{"unknown auth mode", func(c *Config) { c.Auth.Mode = "basic" }, errors.ErrInvalidConfig},
		{"unknown transport", func(c *Config) { c.Broker.Transport = "kafka" }, errors.ErrInvalidConfig},
		{"missing broker url", func(c *Config) { c.Broker.URL = "" }, errors.ErrMissingConfig},
		{"client cert without key", func(c *Config) { c.Broker.TLS.CertFile = "client.pem" }, errors.ErrInvalidConfig},
		{"mutual tls", func(c *Config) {
			c.Broker.TLS.CertFile = "client.pem"
			c.Broker.TLS.KeyFile = "client.key"
		}, nil},
		{"unknown tls version", func(c *Config) { c.Broker.TLS.MinVersion = "1.1" }, errors.ErrInvalidConfig},
		{"zero pump interval", func(c *Config) { c.Delivery.PumpInterval = 0 }, errors.ErrInvalidConfig},
		{"negative batch", func(c *Config) { c.Delivery.BatchSize = -1 }, errors.ErrInvalidConfig},
		{"unbounded batch", func(c *Config) { c.Delivery.BatchSize = 0 }, nil},
		{"no concurrency", func(c *Config) { c.Delivery.MaxConcurrentPublishes = 0 }, errors.ErrInvalidConfig},
		{"negative rate", func(c *Config) { c.Delivery.PublishRate = -1 }, errors.ErrInvalidConfig},
		{"max below base", func(c *Config) { c.Delivery.ReconnectMaxDelay = time.Second }, errors.ErrInvalidConfig},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }, errors.ErrInvalidConfig},
		{"metrics port out of range", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Port = 70000
		}, errors.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, errors.IsFatal(err))
		})
	}
}

func TestString_RedactsPassword(t *testing.T) {
	cfg := validConfig()
	out := cfg.String()

	assert.NotContains(t, out, "s3cret")
	assert.Contains(t, out, "[REDACTED]")
	assert.Contains(t, out, "acme")
	assert.Contains(t, out, "pump_interval: 100ms")

	// The receiver is a copy
	assert.Equal(t, "s3cret", cfg.Auth.Password)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stellanow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
organization:
  id: acme
  project_id: proj-1
auth:
  mode: none
broker:
  transport: nats
  url: nats://broker:4222
  stream: EVENTS
delivery:
  pump_interval: 250ms
  batch_size: 5
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "acme", cfg.Organization.ID)
	assert.Equal(t, AuthModeNone, cfg.Auth.Mode)
	assert.Equal(t, TransportNATS, cfg.Broker.Transport)
	assert.Equal(t, "EVENTS", cfg.Broker.Stream)
	assert.Equal(t, 250*time.Millisecond, cfg.Delivery.PumpInterval)
	assert.Equal(t, 5, cfg.Delivery.BatchSize)

	// Unset fields take their defaults
	assert.Equal(t, 10, cfg.Delivery.MaxConcurrentPublishes)
	assert.Equal(t, 30*time.Second, cfg.Broker.KeepAlive)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stellanow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("organization:\n  id: acme\n"), 0o600))

	t.Setenv("STELLANOW_ORGANIZATION_ID", "globex")
	t.Setenv("STELLANOW_PASSWORD", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "globex", cfg.Organization.ID)
	assert.Equal(t, "from-env", cfg.Auth.Password)
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("STELLANOW_ORGANIZATION_ID", "acme")
	t.Setenv("STELLANOW_PROJECT_ID", "proj-1")
	t.Setenv("STELLANOW_AUTH_MODE", AuthModeNone)
	t.Setenv("STELLANOW_RECONNECT_MAX_DELAY", "2m")

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	want := Default()
	want.Organization = Organization{ID: "acme", ProjectID: "proj-1"}
	want.Auth.Mode = AuthModeNone
	want.Delivery.ReconnectMaxDelay = 2 * time.Minute
	assert.Equal(t, want, cfg)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestUsage(t *testing.T) {
	usage := Usage()
	assert.Contains(t, usage, "STELLANOW_ORGANIZATION_ID")
	assert.Contains(t, usage, "STELLANOW_BROKER_URL")
}
