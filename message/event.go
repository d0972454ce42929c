package message

import (
	"encoding/json"
	"fmt"

	"github.com/stella-systems/stellanow-sdk-go/errors"
	"github.com/stella-systems/stellanow-sdk-go/pkg/timestamp"
)

// TopicPrefix is prepended to the organization id to form the publish topic.
const TopicPrefix = "in/"

// Topic returns the ingestion topic for an organization: "in/{organizationId}".
func Topic(organizationID string) string {
	return TopicPrefix + organizationID
}

// EventKey routes an event: the organization and project it belongs to and the
// primary (first) entity reference of its message.
type EventKey struct {
	OrganizationID         string `json:"organizationId"`
	ProjectID              string `json:"projectId"`
	EntityID               string `json:"entityId"`
	EntityTypeDefinitionID string `json:"entityTypeDefinitionId"`
}

// NewEventKey derives a key from the first entity reference of w.
// It fails with ErrNoEntityReferences when w declares none.
func NewEventKey(organizationID, projectID string, w *Wrapper) (EventKey, error) {
	if w == nil || len(w.metadata.EntityTypeIDs) == 0 {
		return EventKey{}, errors.WrapInvalid(errors.ErrNoEntityReferences,
			"message", "NewEventKey", "derive primary entity")
	}

	primary := w.metadata.EntityTypeIDs[0]
	return EventKey{
		OrganizationID:         organizationID,
		ProjectID:              projectID,
		EntityID:               primary.EntityID,
		EntityTypeDefinitionID: primary.EntityTypeDefinitionID,
	}, nil
}

// Event is a keyed, wrapped message: the unit stored in the delivery queue.
type Event struct {
	key   EventKey
	value *Wrapper
}

// NewEvent pairs a key with a wrapper.
func NewEvent(key EventKey, value *Wrapper) *Event {
	return &Event{key: key, value: value}
}

// Key returns the routing key.
func (e *Event) Key() EventKey {
	return e.key
}

// Value returns the wrapped message.
func (e *Event) Value() *Wrapper {
	return e.value
}

// MessageID returns the id of the wrapped message; the queue indexes events by it.
func (e *Event) MessageID() string {
	return e.value.MessageID()
}

// Topic returns the publish topic for the event's organization.
func (e *Event) Topic() string {
	return Topic(e.key.OrganizationID)
}

type envelope struct {
	Key   EventKey `json:"key"`
	Value *Wrapper `json:"value"`
}

// Envelope encodes the event in its wire form.
func (e *Event) Envelope() ([]byte, error) {
	return json.Marshal(envelope{Key: e.key, Value: e.value})
}

// MarshalJSON is equivalent to Envelope.
func (e *Event) MarshalJSON() ([]byte, error) {
	return e.Envelope()
}

// DecodeEnvelope parses an encoded event.
func DecodeEnvelope(data []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.WrapInvalid(err, "message", "DecodeEnvelope", "unmarshal envelope")
	}
	if env.Value == nil || env.Value.MessageID() == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("envelope has no message id"),
			"message", "DecodeEnvelope", "validate envelope")
	}
	if err := timestamp.Validate(env.Value.OriginDate()); err != nil {
		return nil, errors.WrapInvalid(err, "message", "DecodeEnvelope", "validate origin date")
	}
	return &Event{key: env.Key, value: env.Value}, nil
}
