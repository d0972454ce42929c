package message

import "strings"

// EntityType references the entity a message is about: the entity type definition
// and the id of the entity instance.
type EntityType struct {
	EntityTypeDefinitionID string `json:"entityTypeDefinitionId"`
	EntityID               string `json:"entityId"`
}

// NewEntityType creates an entity reference.
func NewEntityType(entityTypeDefinitionID, entityID string) EntityType {
	return EntityType{
		EntityTypeDefinitionID: entityTypeDefinitionID,
		EntityID:               entityID,
	}
}

// String returns "type/id".
func (e EntityType) String() string {
	return e.EntityTypeDefinitionID + "/" + e.EntityID
}

// Message is an application-level event: an event type definition id, an ordered
// list of entity references and a payload. Messages are immutable.
//
// Construction:
//
//	msg := message.NewMessage("patron_visit", message.NewJSONPayload(visit),
//	    message.NewEntityType("patron", "P1"))
type Message struct {
	eventTypeDefinitionID string
	entities              []EntityType
	payload               Payload
}

// NewMessage creates a Message. The entity list is copied; its order is preserved
// and the first entry is the primary entity used for routing.
func NewMessage(eventTypeDefinitionID string, payload Payload, entities ...EntityType) *Message {
	return &Message{
		eventTypeDefinitionID: eventTypeDefinitionID,
		entities:              cloneEntities(entities),
		payload:               payload,
	}
}

// EventTypeDefinitionID returns the event type identifier.
func (m *Message) EventTypeDefinitionID() string {
	return m.eventTypeDefinitionID
}

// EntityTypeIDs returns a copy of the entity references in declaration order.
func (m *Message) EntityTypeIDs() []EntityType {
	return cloneEntities(m.entities)
}

// Payload returns the message payload.
func (m *Message) Payload() Payload {
	return m.payload
}

// String returns a short description for logging.
func (m *Message) String() string {
	refs := make([]string, len(m.entities))
	for i, e := range m.entities {
		refs[i] = e.String()
	}
	return m.eventTypeDefinitionID + "[" + strings.Join(refs, ",") + "]"
}

func cloneEntities(in []EntityType) []EntityType {
	if len(in) == 0 {
		return []EntityType{}
	}
	out := make([]EntityType, len(in))
	copy(out, in)
	return out
}
