// Package natsclient provides a NATS JetStream implementation of
// transport.Transport.
//
// The client runs in manual-connect mode: reconnection is disabled on the
// underlying nats.Conn and a lost connection is reported once through
// Handlers.OnConnectionLost. The connection sink decides when to dial again.
//
// # Topics and Subjects
//
// Ingestion topics use MQTT separators ("in/{organizationId}"). Subject maps
// them to NATS subjects ("in.{organizationId}"). WithStream makes Connect
// create a file-backed stream bound to "in.*".
//
// # Delivery Guarantees
//
// Publish waits for the JetStream PubAck, so a nil error means the server has
// persisted the message. The message id travels in the Nats-Msg-Id header and
// the stream deduplicates redeliveries inside its two minute window, which
// turns most at-least-once redeliveries into a single stored message.
//
// # Credentials
//
// Credentials set by the auth strategy are applied on the next Connect. A
// username without a password is sent as a token (the OIDC access token); a
// username and password pair is sent as user info. The client id becomes the
// connection name.
//
// # Testing
//
// NewTestServer starts a JetStream-enabled server in a container via
// testcontainers. Integration tests are behind the "integration" build tag:
//
//	go test -tags integration ./natsclient/...
package natsclient
