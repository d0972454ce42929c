// Package natsclient provides a NATS JetStream transport for the connection sink.
package natsclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/stella-systems/stellanow-sdk-go/errors"
	"github.com/stella-systems/stellanow-sdk-go/transport"
)

// ConnectionStatus represents the state of the NATS connection
type ConnectionStatus int

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Client is a transport.Transport over NATS JetStream. It never reconnects on
// its own; a lost connection is reported through Handlers.OnConnectionLost.
type Client struct {
	url    string
	status atomic.Value // stores ConnectionStatus
	logger *slog.Logger

	conn *nats.Conn
	js   jetstream.JetStream

	handlers    transport.Handlers
	credentials transport.Credentials

	// Connection options
	pingInterval time.Duration
	timeout      time.Duration

	// TLS
	tlsEnabled  bool
	tlsCertFile string
	tlsKeyFile  string
	tlsCAFile   string
	tlsConfig   *tls.Config

	clientName  string
	compression bool

	// Stream created on connect when set
	streamName string

	mu sync.RWMutex
}

var _ transport.Transport = (*Client)(nil)

// NewClient creates a NATS transport with optional configuration
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		url:          url,
		logger:       slog.Default().With("component", "natsclient"),
		pingInterval: 30 * time.Second,
		timeout:      5 * time.Second,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}

	c.status.Store(StatusDisconnected)
	return c, nil
}

// URL returns the NATS server URL
func (c *Client) URL() string {
	return c.url
}

// Status returns the current connection status
func (c *Client) Status() ConnectionStatus {
	val := c.status.Load()
	if val == nil {
		return StatusDisconnected
	}
	return val.(ConnectionStatus)
}

func (c *Client) setStatus(status ConnectionStatus) {
	c.status.Store(status)
}

// IsConnected implements transport.Authenticatable
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	return c.Status() == StatusConnected && conn != nil && conn.IsConnected()
}

// SetCredentials implements transport.Authenticatable. A username without a
// password is treated as a bearer token.
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

// buildConnectionOptions builds NATS connection options from client configuration
func (c *Client) buildConnectionOptions() []nats.Option {
	c.mu.RLock()
	creds := c.credentials
	c.mu.RUnlock()

	opts := []nats.Option{
		nats.NoReconnect(),
		nats.PingInterval(c.pingInterval),
		nats.Timeout(c.timeout),
		nats.DisconnectErrHandler(c.handleDisconnect),
		nats.ErrorHandler(c.handleError),
	}

	switch {
	case creds.Username != "" && creds.Password != "":
		opts = append(opts, nats.UserInfo(creds.Username, creds.Password))
	case creds.Username != "":
		opts = append(opts, nats.Token(creds.Username))
	}

	if c.tlsConfig != nil {
		opts = append(opts, nats.Secure(c.tlsConfig))
	}
	if c.tlsEnabled {
		if c.tlsCertFile != "" && c.tlsKeyFile != "" {
			opts = append(opts, nats.ClientCert(c.tlsCertFile, c.tlsKeyFile))
		}
		if c.tlsCAFile != "" {
			opts = append(opts, nats.RootCAs(c.tlsCAFile))
		}
	}

	name := c.clientName
	if creds.ClientID != "" {
		name = creds.ClientID
	}
	if name != "" {
		opts = append(opts, nats.Name(name))
	}

	if c.compression {
		opts = append(opts, nats.Compression(true))
	}

	return opts
}

// Connect establishes a connection to the NATS server and initializes JetStream
func (c *Client) Connect(ctx context.Context) error {
	c.setStatus(StatusConnecting)
	c.logger.Debug("connecting", "url", c.url)

	opts := c.buildConnectionOptions()

	type result struct {
		conn *nats.Conn
		js   jetstream.JetStream
		err  error
	}
	connectDone := make(chan result, 1)
	go func() {
		conn, err := nats.Connect(c.url, opts...)
		if err != nil {
			connectDone <- result{err: err}
			return
		}
		js, err := jetstream.New(conn)
		if err != nil {
			conn.Close()
			connectDone <- result{err: err}
			return
		}
		connectDone <- result{conn: conn, js: js}
	}()

	var res result
	select {
	case res = <-connectDone:
	case <-ctx.Done():
		c.setStatus(StatusDisconnected)
		// Late connections are closed once they arrive
		go func() {
			if r := <-connectDone; r.conn != nil {
				r.conn.Close()
			}
		}()
		return errors.WrapTransient(errors.Join(errors.ErrConnectionTimeout, ctx.Err()),
			"Client", "Connect", "connection cancelled")
	}

	if res.err != nil {
		c.setStatus(StatusDisconnected)
		return errors.WrapTransient(res.err, "Client", "Connect", "establish connection")
	}

	if c.streamName != "" {
		if _, err := EnsureStream(ctx, res.js, c.streamName); err != nil {
			res.conn.Close()
			c.setStatus(StatusDisconnected)
			return errors.WrapTransient(err, "Client", "Connect", "ensure stream")
		}
	}

	c.mu.Lock()
	c.conn = res.conn
	c.js = res.js
	onConnect := c.handlers.OnConnect
	c.mu.Unlock()

	c.setStatus(StatusConnected)
	c.logger.Info("connected", "url", c.url)

	if onConnect != nil {
		go onConnect()
	}
	return nil
}

// Publish publishes to JetStream and waits for the PubAck. The message id is
// sent as Nats-Msg-Id so the server drops redelivered duplicates within the
// stream's duplicate window.
func (c *Client) Publish(ctx context.Context, pub transport.Publication) error {
	c.mu.RLock()
	js := c.js
	conn := c.conn
	c.mu.RUnlock()

	if js == nil || conn == nil || !conn.IsConnected() {
		return errors.WrapTransient(errors.ErrNotConnected, "Client", "Publish", "check connection")
	}

	opts := []jetstream.PublishOpt{}
	if pub.MessageID != "" {
		opts = append(opts, jetstream.WithMsgID(pub.MessageID))
	}

	if _, err := js.Publish(ctx, Subject(pub.Topic), pub.Payload, opts...); err != nil {
		return errors.WrapTransient(errors.Join(errors.ErrPublishFailed, err),
			"Client", "Publish", fmt.Sprintf("publish to %s", Subject(pub.Topic)))
	}
	return nil
}

// Close closes the NATS connection. It does not fire OnConnectionLost.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.js = nil
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	c.setStatus(StatusDisconnected)
	return nil
}

// handleDisconnect reports loss of the current connection. Callbacks from a
// connection that was closed or already replaced are ignored.
func (c *Client) handleDisconnect(conn *nats.Conn, err error) {
	c.mu.RLock()
	current := c.conn
	onLost := c.handlers.OnConnectionLost
	c.mu.RUnlock()

	if conn == nil || conn != current {
		c.logger.Debug("ignoring disconnect from a previous connection", "error", err)
		return
	}
	c.setStatus(StatusDisconnected)

	if err == nil {
		err = errors.ErrConnectionLost
	}
	c.logger.Warn("connection lost", "error", err)

	if onLost != nil {
		go onLost(errors.Join(errors.ErrConnectionLost, err))
	}
}

func (c *Client) handleError(_ *nats.Conn, _ *nats.Subscription, err error) {
	c.logger.Error("nats error", "error", err)
}

// Subject maps an ingestion topic ("in/{org}") to a NATS subject ("in.{org}").
func Subject(topic string) string {
	return strings.ReplaceAll(topic, "/", ".")
}

// EnsureStream creates or updates a stream capturing every ingestion subject.
func EnsureStream(ctx context.Context, js jetstream.JetStream, name string) (jetstream.Stream, error) {
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       name,
		Subjects:   []string{Subject("in/*")},
		Storage:    jetstream.FileStorage,
		Duplicates: 2 * time.Minute,
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "natsclient", "EnsureStream", fmt.Sprintf("create stream %s", name))
	}
	return stream, nil
}
