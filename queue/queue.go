// Package queue holds events between SendMessage and broker acknowledgement.
package queue

import "github.com/stella-systems/stellanow-sdk-go/message"

// Queue is the delivery queue contract. Implementations must be safe for
// concurrent use: the pump dequeues while acknowledgement callbacks and
// reconnect recovery mutate the in-flight set from other goroutines.
//
// Every event is in exactly one of two places until it is acknowledged: the
// pending sequence, or the in-flight set keyed by message id.
type Queue interface {
	// Enqueue appends ev to the tail. It never fails.
	Enqueue(ev *message.Event)

	// TryDequeue removes the head and records it as in flight.
	// Returns false when nothing is pending.
	TryDequeue() (*message.Event, bool)

	// MarkAck forgets an in-flight event. Unknown ids are ignored.
	MarkAck(messageID string)

	// ReEnqueueAll moves every in-flight event back to the tail, in dequeue
	// order, and returns how many were moved.
	ReEnqueueAll() int

	// Requeue moves one in-flight event back to the tail. It reports false,
	// and does nothing, when the id is no longer in flight.
	Requeue(messageID string) bool

	// IsEmpty reports whether nothing is pending. In-flight events do not count.
	IsEmpty() bool

	// Len returns the number of pending events.
	Len() int

	// NumberInFlight returns the number of in-flight events.
	NumberInFlight() int
}
