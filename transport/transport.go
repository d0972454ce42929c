// Package transport defines the publish connection the sink drives.
//
// Implementations live in mqttclient (MQTT 3.1.1, QoS 1) and natsclient
// (NATS JetStream). They run in manual-connect mode: they never reconnect on
// their own, the sink's monitor loop is the only reconnection driver.
package transport

import "context"

// Credentials are applied on the next Connect.
type Credentials struct {
	Username string
	Password string
	ClientID string
}

// Authenticatable is the part of a transport an auth strategy needs.
type Authenticatable interface {
	IsConnected() bool
	SetCredentials(Credentials)
}

// Handlers receive connection events. Both may be called from transport-owned
// goroutines and must not block.
type Handlers struct {
	OnConnect        func()
	OnConnectionLost func(error)
}

// Publication is one message to publish.
type Publication struct {
	Topic     string
	MessageID string
	Payload   []byte
}

// Transport is a broker connection in manual-connect mode.
type Transport interface {
	Authenticatable

	// Open registers handlers and prepares the client. It performs no I/O.
	Open(Handlers) error

	// Connect dials the broker using the last credentials set.
	Connect(ctx context.Context) error

	// Publish returns after the broker has confirmed receipt.
	Publish(ctx context.Context, pub Publication) error

	// Close disconnects. Closing a closed transport is a no-op.
	Close() error
}
