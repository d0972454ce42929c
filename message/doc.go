// Package message defines the immutable value types that flow through the delivery
// pipeline.
//
// # Overview
//
// An application builds a Message (event type, entity references, payload). The SDK
// wraps it into a Wrapper, which assigns a unique message id and a UTC origin date and
// serializes the payload to a string. An EventKey is derived from the first entity
// reference, and Key plus Wrapper form the Event: the unit stored in the delivery queue
// and published to the broker.
//
//	Message ──Wrap──▶ Wrapper ──NewEventKey──▶ EventKey
//	                     └──────────┬────────────┘
//	                              Event ──Envelope()──▶ wire JSON
//
// # Payload Contract
//
// Payloads are statically typed. Every payload implements Payload (Validate plus
// json.Marshaler); there is no runtime inspection of arbitrary values. Two
// implementations cover most needs:
//
//	// Any JSON-serializable struct
//	payload := message.NewJSONPayload(PatronVisit{PatronID: "P1", Venue: "north"})
//
//	// Pre-encoded JSON
//	payload := message.RawPayload(`{"patronId":"P1"}`)
//
// Generated message types may implement Payload directly.
//
// # Wire Format
//
//	{
//	  "key": {"organizationId", "projectId", "entityId", "entityTypeDefinitionId"},
//	  "value": {
//	    "metadata": {
//	      "messageId", "messageOriginDateUTC", "eventTypeDefinitionId",
//	      "entityTypeIds": [{"entityTypeDefinitionId", "entityId"}]
//	    },
//	    "payload": "<string-encoded JSON>"
//	  }
//	}
//
// messageOriginDateUTC is ISO-8601 UTC with microsecond precision.
//
// # Immutability
//
// All types are immutable after construction: entity reference slices are copied on
// the way in and on the way out, and there are no setters. A message id is assigned
// exactly once, by Wrap.
package message
