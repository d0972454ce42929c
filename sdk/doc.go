// Package sdk is the entry point of the StellaNow Go SDK.
//
// An SDK accepts messages, wraps them in metadata, queues them and delivers
// them to the broker with at-least-once semantics.
//
// # Basic Usage
//
//	cfg, err := config.Load("stellanow.yaml")
//	if err != nil {
//		return err
//	}
//	client, err := sdk.NewFromConfig(cfg, sdk.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	if err := client.Start(ctx); err != nil {
//		return err
//	}
//	defer client.Stop(context.Background())
//
//	id, err := client.SendMessage(message.NewMessage("patron_visit",
//		message.NewJSONPayload(visit), message.NewEntityType("patron", "P1")))
//
// # Delivery
//
// SendMessage returns as soon as the event is queued. Every PumpInterval the
// pump takes up to BatchSize events from the queue and publishes them, at most
// MaxConcurrentPublishes at a time. An event stays in flight until the broker
// acknowledges it. A failed publish puts the event back at the tail of the
// queue and the sink reconnects. Events still in flight when a connection ends
// are queued again once the next connection is up, so an event may be
// delivered more than once but is never dropped while the process runs.
//
// Nothing is persisted: events queued at process exit are lost.
package sdk
