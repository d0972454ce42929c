package sdk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stella-systems/stellanow-sdk-go/config"
	"github.com/stella-systems/stellanow-sdk-go/errors"
	"github.com/stella-systems/stellanow-sdk-go/metric"
	"github.com/stella-systems/stellanow-sdk-go/sink"
)

func baseConfig() config.Config {
	cfg := config.Default()
	cfg.Organization = config.Organization{ID: "acme", ProjectID: "proj-1"}
	cfg.Auth = config.Auth{Mode: config.AuthModeNone}
	return cfg
}

func TestNewFromConfig_Invalid(t *testing.T) {
	cfg := baseConfig()
	cfg.Organization.ID = ""

	_, err := NewFromConfig(cfg)
	assert.ErrorIs(t, err, errors.ErrMissingConfig)
	assert.True(t, errors.IsFatal(err))
}

func TestNewFromConfig_Variants(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"mqtt without auth", func(*config.Config) {}},
		{"nats with stream", func(c *config.Config) {
			c.Broker.Transport = config.TransportNATS
			c.Broker.URL = "nats://localhost:4222"
			c.Broker.Stream = "STELLANOW"
		}},
		{"oidc", func(c *config.Config) {
			c.Auth = config.Auth{
				Mode:      config.AuthModeOIDC,
				Authority: "https://auth.example.com",
				ClientID:  "event-ingestor",
				Username:  "ingest@acme.io",
				Password:  "s3cret",
			}
		}},
		{"mqtt over tls", func(c *config.Config) {
			c.Broker.URL = "ssl://broker.example.com:8883"
			c.Broker.TLS.MinVersion = "1.3"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(&cfg)

			s, err := NewFromConfig(cfg, WithMetrics(metric.NewMetricsRegistry()))
			require.NoError(t, err)

			assert.Equal(t, "acme", s.opts.OrganizationID)
			assert.Equal(t, cfg.Delivery.BatchSize, s.opts.BatchSize)
			assert.Equal(t, sink.StateDisconnected, s.Stats().State)
			assert.False(t, s.IsConnected())
		})
	}
}

func TestNewFromConfig_BadTLS(t *testing.T) {
	cfg := baseConfig()
	cfg.Broker.TLS.CAFiles = []string{"/nonexistent/ca.pem"}

	_, err := NewFromConfig(cfg)
	assert.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestBrokerTLS(t *testing.T) {
	plain, err := brokerTLS(config.Broker{URL: "tcp://localhost:1883"})
	require.NoError(t, err)
	assert.Nil(t, plain)

	secure, err := brokerTLS(config.Broker{URL: "mqtts://broker:8883"})
	require.NoError(t, err)
	assert.NotNil(t, secure)

	insecure, err := brokerTLS(config.Broker{
		URL: "tcp://localhost:1883",
		TLS: config.BrokerTLS{InsecureSkipVerify: true},
	})
	require.NoError(t, err)
	require.NotNil(t, insecure)
	assert.True(t, insecure.InsecureSkipVerify)
}

func TestSecureScheme(t *testing.T) {
	for url, want := range map[string]bool{
		"ssl://b:8883":   true,
		"tls://b:4443":   true,
		"mqtts://b:8883": true,
		"wss://b/mqtt":   true,
		"tcp://b:1883":   false,
		"ws://b/mqtt":    false,
		"nats://b:4222":  false,
		"::bad":          false,
	} {
		assert.Equal(t, want, secureScheme(url), url)
	}
}
