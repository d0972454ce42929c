package message

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stella-systems/stellanow-sdk-go/errors"
	"github.com/stella-systems/stellanow-sdk-go/pkg/timestamp"
)

// Metadata is the tracking information attached to every wrapped message.
type Metadata struct {
	MessageID             string
	MessageOriginDateUTC  time.Time
	EventTypeDefinitionID string
	EntityTypeIDs         []EntityType
}

type metadataJSON struct {
	MessageID             string       `json:"messageId"`
	MessageOriginDateUTC  string       `json:"messageOriginDateUTC"`
	EventTypeDefinitionID string       `json:"eventTypeDefinitionId"`
	EntityTypeIDs         []EntityType `json:"entityTypeIds"`
}

// MarshalJSON renders the origin date with microsecond precision.
func (m Metadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(metadataJSON{
		MessageID:             m.MessageID,
		MessageOriginDateUTC:  timestamp.Format(m.MessageOriginDateUTC),
		EventTypeDefinitionID: m.EventTypeDefinitionID,
		EntityTypeIDs:         cloneEntities(m.EntityTypeIDs),
	})
}

// UnmarshalJSON parses the wire form produced by MarshalJSON.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw metadataJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	origin, err := timestamp.Parse(raw.MessageOriginDateUTC)
	if err != nil {
		return err
	}
	*m = Metadata{
		MessageID:             raw.MessageID,
		MessageOriginDateUTC:  origin,
		EventTypeDefinitionID: raw.EventTypeDefinitionID,
		EntityTypeIDs:         cloneEntities(raw.EntityTypeIDs),
	}
	return nil
}

// Wrapper is a Message plus generated metadata, with the payload already
// serialized. It is immutable; the message id never changes once assigned.
type Wrapper struct {
	metadata Metadata
	payload  string
}

// WrapOption configures Wrap.
type WrapOption func(*wrapConfig)

type wrapConfig struct {
	now   func() time.Time
	newID func() string
}

// WithTime sets a specific origin date instead of the current time.
// Useful for historical data import or testing.
func WithTime(t time.Time) WrapOption {
	return func(c *wrapConfig) {
		c.now = func() time.Time { return t }
	}
}

// WithClock sets the function used to read the current time.
func WithClock(now func() time.Time) WrapOption {
	return func(c *wrapConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator replaces the UUID generator used for message ids.
func WithIDGenerator(newID func() string) WrapOption {
	return func(c *wrapConfig) {
		if newID != nil {
			c.newID = newID
		}
	}
}

// Wrap assigns a fresh message id and origin date to msg and serializes its payload.
// Payload validation and serialization failures are returned as invalid-class errors.
func Wrap(msg *Message, opts ...WrapOption) (*Wrapper, error) {
	if msg == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: message is nil", errors.ErrInvalidPayload),
			"message", "Wrap", "check message")
	}

	cfg := wrapConfig{
		now:   timestamp.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	payload, err := serialize(msg.payload)
	if err != nil {
		return nil, errors.WrapInvalid(err, "message", "Wrap", "serialize payload")
	}

	return &Wrapper{
		metadata: Metadata{
			MessageID:             cfg.newID(),
			MessageOriginDateUTC:  timestamp.Normalize(cfg.now()),
			EventTypeDefinitionID: msg.eventTypeDefinitionID,
			EntityTypeIDs:         cloneEntities(msg.entities),
		},
		payload: payload,
	}, nil
}

// MessageID returns the unique id assigned at wrap time.
func (w *Wrapper) MessageID() string {
	return w.metadata.MessageID
}

// OriginDate returns the UTC origin timestamp.
func (w *Wrapper) OriginDate() time.Time {
	return w.metadata.MessageOriginDateUTC
}

// EventTypeDefinitionID returns the event type identifier.
func (w *Wrapper) EventTypeDefinitionID() string {
	return w.metadata.EventTypeDefinitionID
}

// EntityTypeIDs returns a copy of the entity references.
func (w *Wrapper) EntityTypeIDs() []EntityType {
	return cloneEntities(w.metadata.EntityTypeIDs)
}

// Metadata returns a copy of the metadata.
func (w *Wrapper) Metadata() Metadata {
	md := w.metadata
	md.EntityTypeIDs = cloneEntities(md.EntityTypeIDs)
	return md
}

// Payload returns the serialized payload.
func (w *Wrapper) Payload() string {
	return w.payload
}

type wrapperJSON struct {
	Metadata Metadata `json:"metadata"`
	Payload  string   `json:"payload"`
}

// MarshalJSON renders {"metadata": {...}, "payload": "<json string>"}.
func (w *Wrapper) MarshalJSON() ([]byte, error) {
	return json.Marshal(wrapperJSON{Metadata: w.metadata, Payload: w.payload})
}

// UnmarshalJSON parses the form produced by MarshalJSON.
func (w *Wrapper) UnmarshalJSON(data []byte) error {
	var raw wrapperJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	w.metadata = raw.Metadata
	w.payload = raw.Payload
	return nil
}
