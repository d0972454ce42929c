// Package mqttclient provides an MQTT 3.1.1 implementation of transport.Transport.
package mqttclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/stella-systems/stellanow-sdk-go/errors"
	"github.com/stella-systems/stellanow-sdk-go/transport"
)

// QoS used for every publish: at least once, confirmed by PUBACK.
const QoS = 1

// clientFactory builds the underlying paho client. Replaced in tests.
type clientFactory func(*mqtt.ClientOptions) mqtt.Client

// Client is a transport.Transport over MQTT. Automatic reconnection is disabled;
// a lost connection is reported through Handlers.OnConnectionLost.
type Client struct {
	brokerURL string
	logger    *slog.Logger

	keepAlive      time.Duration
	connectTimeout time.Duration
	writeTimeout   time.Duration
	cleanSession   bool
	tlsConfig      *tls.Config
	disconnectWait uint

	newClient clientFactory

	mu          sync.RWMutex
	client      mqtt.Client
	handlers    transport.Handlers
	credentials transport.Credentials
}

var _ transport.Transport = (*Client)(nil)

// NewClient creates an MQTT transport for brokerURL (tcp://, ssl://, ws:// or wss://).
func NewClient(brokerURL string, opts ...Option) (*Client, error) {
	if brokerURL == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Client", "NewClient", "broker url")
	}

	c := &Client{
		brokerURL:      brokerURL,
		logger:         slog.Default().With("component", "mqttclient"),
		keepAlive:      30 * time.Second,
		connectTimeout: 30 * time.Second,
		cleanSession:   true,
		disconnectWait: 250,
		newClient:      mqtt.NewClient,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}
	return c, nil
}

// BrokerURL returns the configured broker URL
func (c *Client) BrokerURL() string {
	return c.brokerURL
}

// IsConnected implements transport.Authenticatable
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()
	return client != nil && client.IsConnectionOpen()
}

// SetCredentials implements transport.Authenticatable. They take effect on the
// next Connect.
func (c *Client) SetCredentials(creds transport.Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credentials = creds
}

// Open implements transport.Transport
func (c *Client) Open(h transport.Handlers) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = h
	return nil
}

// clientOptions builds paho options from the current configuration and credentials.
func (c *Client) clientOptions() *mqtt.ClientOptions {
	c.mu.RLock()
	creds := c.credentials
	c.mu.RUnlock()

	opts := mqtt.NewClientOptions().
		AddBroker(c.brokerURL).
		SetClientID(creds.ClientID).
		SetUsername(creds.Username).
		SetPassword(creds.Password).
		SetCleanSession(c.cleanSession).
		SetKeepAlive(c.keepAlive).
		SetConnectTimeout(c.connectTimeout).
		SetWriteTimeout(c.writeTimeout).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetProtocolVersion(4).
		SetOnConnectHandler(c.handleConnect).
		SetConnectionLostHandler(c.handleConnectionLost)

	if c.tlsConfig != nil {
		opts.SetTLSConfig(c.tlsConfig)
	}
	return opts
}

// Connect dials the broker with the last credentials set. A fresh paho client
// is created for every attempt so rotated tokens are always used.
func (c *Client) Connect(ctx context.Context) error {
	client := c.newClient(c.clientOptions())

	token := client.Connect()
	if err := wait(ctx, token); err != nil {
		return errors.WrapTransient(err, "Client", "Connect", "connect to broker")
	}

	c.mu.Lock()
	old := c.client
	c.client = client
	c.mu.Unlock()

	if old != nil && old != client {
		old.Disconnect(0)
	}

	c.logger.Info("connected", "broker", c.brokerURL)
	return nil
}

// Publish publishes at QoS 1 and returns once the broker's PUBACK arrives.
func (c *Client) Publish(ctx context.Context, pub transport.Publication) error {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil || !client.IsConnectionOpen() {
		return errors.WrapTransient(errors.ErrNotConnected, "Client", "Publish", "check connection")
	}

	token := client.Publish(pub.Topic, QoS, false, pub.Payload)
	if err := wait(ctx, token); err != nil {
		return errors.WrapTransient(errors.Join(errors.ErrPublishFailed, err),
			"Client", "Publish", fmt.Sprintf("publish to %s", pub.Topic))
	}
	return nil
}

// Close disconnects from the broker. Safe to call when not connected.
func (c *Client) Close() error {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()

	if client != nil && client.IsConnected() {
		client.Disconnect(c.disconnectWait)
	}
	return nil
}

func (c *Client) handleConnect(_ mqtt.Client) {
	c.mu.RLock()
	onConnect := c.handlers.OnConnect
	c.mu.RUnlock()

	if onConnect != nil {
		onConnect()
	}
}

func (c *Client) handleConnectionLost(client mqtt.Client, err error) {
	c.mu.RLock()
	current := c.client
	onLost := c.handlers.OnConnectionLost
	c.mu.RUnlock()

	// A client replaced by a newer Connect is not our connection any more
	if current != client {
		return
	}

	c.logger.Warn("connection lost", "broker", c.brokerURL, "error", err)
	if onLost != nil {
		onLost(errors.Join(errors.ErrConnectionLost, err))
	}
}

// wait blocks on a paho token or ctx, whichever finishes first.
func wait(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return errors.Join(errors.ErrConnectionTimeout, ctx.Err())
	}
}
