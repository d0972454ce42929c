// Package sink owns the broker connection: it authenticates, connects,
// reconnects with exponential backoff, and publishes events.
//
// # State Machine
//
//	Disconnected -> Connecting -> Connected
//	     ^              |             |
//	     +--- failure --+--- loss ----+
//	any  -> Stopped (Stop)
//
// A monitor goroutine runs between Start and Stop. While disconnected it calls
// the auth.Strategy and then Transport.Connect. After a failed attempt it waits
// min(5s * 2^(attempt-1), 60s) on the sink clock and tries again, forever.
// While connected it polls the transport and reacts to loss reports at once.
//
// # Notifications
//
//   - OnConnected: each established connection
//   - OnDisconnected: an established connection ended (loss, publish failure, Stop)
//   - OnError: every failed attempt, publish failure and loss
//   - OnMessageAck: message id of each publish the broker confirmed
//
// Listeners run synchronously on the goroutine that caused the event and must
// not block.
//
// # Publishing
//
// Publish fails fast with ErrNotConnected when disconnected. A transport error
// tears the connection down so the monitor reconnects; the caller decides
// whether to retry the event. Each established connection carries a
// generation number, and a failure that outlives its connection is ignored
// rather than closing the one that replaced it.
package sink
