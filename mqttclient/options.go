package mqttclient

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"
)

// Option is a functional option for configuring the Client
type Option func(*Client) error

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// WithKeepAlive sets the MQTT keep-alive interval
func WithKeepAlive(d time.Duration) Option {
	return func(c *Client) error {
		if d < time.Second {
			return fmt.Errorf("keep-alive must be at least 1s, got %v", d)
		}
		c.keepAlive = d
		return nil
	}
}

// WithConnectTimeout bounds the CONNECT handshake
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("connect timeout must be positive, got %v", d)
		}
		c.connectTimeout = d
		return nil
	}
}

// WithWriteTimeout bounds each publish write. Zero waits indefinitely.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Client) error {
		c.writeTimeout = d
		return nil
	}
}

// WithCleanSession sets the MQTT clean-session flag
func WithCleanSession(clean bool) Option {
	return func(c *Client) error {
		c.cleanSession = clean
		return nil
	}
}

// WithTLSConfig sets the TLS configuration for ssl:// and wss:// brokers
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *Client) error {
		c.tlsConfig = cfg
		return nil
	}
}

// WithInsecureSkipVerify disables broker certificate verification. Development only.
func WithInsecureSkipVerify() Option {
	return func(c *Client) error {
		if c.tlsConfig == nil {
			c.tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		c.tlsConfig.InsecureSkipVerify = true //nolint:gosec // opt-in for local brokers
		return nil
	}
}
