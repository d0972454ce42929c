// Package auth obtains broker credentials before each connection attempt.
package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/stella-systems/stellanow-sdk-go/transport"
)

// ClientIDPrefix prefixes generated MQTT client ids.
const ClientIDPrefix = "StellaNowSDKGo_"

// Strategy prepares a transport's credentials. Auth is called by the sink
// before every connection attempt and must be a no-op on a connected client.
type Strategy interface {
	Auth(ctx context.Context, client transport.Authenticatable) error
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(ctx context.Context, client transport.Authenticatable) error

// Auth calls f.
func (f StrategyFunc) Auth(ctx context.Context, client transport.Authenticatable) error {
	return f(ctx, client)
}

// NewClientID returns a random client id with ClientIDPrefix.
func NewClientID() string {
	return ClientIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

// NoAuth connects without credentials, presenting only a client id. Intended
// for local brokers.
type NoAuth struct {
	ClientID string
}

// NewNoAuth returns a NoAuth with a generated client id when clientID is empty.
func NewNoAuth(clientID string) *NoAuth {
	if clientID == "" {
		clientID = NewClientID()
	}
	return &NoAuth{ClientID: clientID}
}

// Auth implements Strategy.
func (n *NoAuth) Auth(_ context.Context, client transport.Authenticatable) error {
	if client.IsConnected() {
		return nil
	}
	client.SetCredentials(transport.Credentials{ClientID: n.ClientID})
	return nil
}
