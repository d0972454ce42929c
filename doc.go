// Package stellanow is the StellaNow Go SDK: reliable, at-least-once delivery
// of business events to the StellaNow ingestion broker.
//
// # Architecture
//
// Events flow through four layers:
//
//	sdk.SendMessage -> queue.FIFO -> pump -> sink.Sink -> transport (MQTT | NATS)
//	                        ^                    |
//	                        +---- ack / requeue -+
//
//   - message: the Message model, metadata wrapping and the wire envelope
//   - queue: pending events in FIFO order plus in-flight tracking by message id
//   - auth: credentials before every connection attempt (OIDC or none)
//   - sink: connection state machine with exponential reconnect backoff
//   - sdk: the facade and the pump that moves events from queue to sink
//
// Ambient packages: config (cleanenv), errors (classified errors), metric
// (Prometheus), health, signal (observer lists), pkg/retry, pkg/timestamp and
// pkg/tlsutil.
//
// # Delivery Guarantees
//
// An event leaves the queue only when the broker acknowledges its publish.
// Failed publishes and events whose outcome was lost with a connection are
// queued again, so events may be delivered more than once. Nothing is
// persisted across process restarts.
//
// # Quick Start
//
//	cfg, _ := config.Load("stellanow.yaml")
//	client, err := sdk.NewFromConfig(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	_ = client.Start(ctx)
//	id, err := client.SendMessage(message.NewMessage("patron_visit",
//		message.NewJSONPayload(visit), message.NewEntityType("patron", "P1")))
package stellanow
