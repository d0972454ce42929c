package message

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stella-systems/stellanow-sdk-go/errors"
)

type visit struct {
	PatronID string `json:"patronId"`
	Venue    string `json:"venue"`
}

func (v visit) Validate() error {
	if v.PatronID == "" {
		return fmt.Errorf("patronId is required")
	}
	return nil
}

func TestNewMessage_CopiesEntities(t *testing.T) {
	entities := []EntityType{NewEntityType("patron", "P1"), NewEntityType("venue", "V1")}
	msg := NewMessage("patron_visit", RawPayload(`{}`), entities...)

	entities[0].EntityID = "mutated"
	assert.Equal(t, "P1", msg.EntityTypeIDs()[0].EntityID)

	got := msg.EntityTypeIDs()
	got[1].EntityID = "mutated"
	assert.Equal(t, "V1", msg.EntityTypeIDs()[1].EntityID)

	assert.Equal(t, "patron_visit", msg.EventTypeDefinitionID())
	assert.Equal(t, "patron_visit[patron/P1,venue/V1]", msg.String())
}

func TestJSONPayload_Validate(t *testing.T) {
	assert.NoError(t, NewJSONPayload(visit{PatronID: "P1"}).Validate())
	assert.Error(t, NewJSONPayload(visit{}).Validate())

	// Values without a Validate method always pass
	assert.NoError(t, NewJSONPayload(map[string]int{"a": 1}).Validate())
}

func TestRawPayload_Validate(t *testing.T) {
	assert.NoError(t, RawPayload(`{"a":1}`).Validate())
	assert.ErrorIs(t, RawPayload("").Validate(), errors.ErrInvalidPayload)
	assert.ErrorIs(t, RawPayload(`{"a":`).Validate(), errors.ErrInvalidPayload)
}

func TestWrap_AssignsMetadata(t *testing.T) {
	origin := time.Date(2024, 3, 1, 9, 15, 42, 123456789, time.FixedZone("CET", 3600))
	msg := NewMessage("patron_visit", NewJSONPayload(visit{PatronID: "P1", Venue: "V1"}),
		NewEntityType("patron", "P1"))

	w, err := Wrap(msg, WithTime(origin), WithIDGenerator(func() string { return "id-1" }))
	require.NoError(t, err)

	assert.Equal(t, "id-1", w.MessageID())
	assert.Equal(t, time.UTC, w.OriginDate().Location())
	assert.Equal(t, 123456000, w.OriginDate().Nanosecond())
	assert.Equal(t, "patron_visit", w.EventTypeDefinitionID())
	assert.Equal(t, []EntityType{{EntityTypeDefinitionID: "patron", EntityID: "P1"}}, w.EntityTypeIDs())
	assert.JSONEq(t, `{"patronId":"P1","venue":"V1"}`, w.Payload())
}

func TestWrap_UniqueIDs(t *testing.T) {
	msg := NewMessage("e", RawPayload(`{}`), NewEntityType("t", "1"))
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		w, err := Wrap(msg)
		require.NoError(t, err)
		require.NotEmpty(t, w.MessageID())
		require.False(t, seen[w.MessageID()], "duplicate id %s", w.MessageID())
		seen[w.MessageID()] = true
	}
}

func TestWrap_InvalidPayload(t *testing.T) {
	tests := []struct {
		name string
		msg  *Message
	}{
		{"nil message", nil},
		{"nil payload", NewMessage("e", nil, NewEntityType("t", "1"))},
		{"failing validation", NewMessage("e", NewJSONPayload(visit{}), NewEntityType("t", "1"))},
		{"malformed raw", NewMessage("e", RawPayload(`{`), NewEntityType("t", "1"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Wrap(tt.msg)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidPayload)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestNewEventKey_UsesFirstEntity(t *testing.T) {
	msg := NewMessage("e", RawPayload(`{}`),
		NewEntityType("patron", "P1"), NewEntityType("venue", "V1"))
	w, err := Wrap(msg)
	require.NoError(t, err)

	key, err := NewEventKey("org-1", "proj-1", w)
	require.NoError(t, err)
	assert.Equal(t, EventKey{
		OrganizationID:         "org-1",
		ProjectID:              "proj-1",
		EntityID:               "P1",
		EntityTypeDefinitionID: "patron",
	}, key)
}

func TestNewEventKey_NoEntities(t *testing.T) {
	w, err := Wrap(NewMessage("e", RawPayload(`{}`)))
	require.NoError(t, err)

	_, err = NewEventKey("org-1", "proj-1", w)
	assert.ErrorIs(t, err, errors.ErrNoEntityReferences)
	assert.True(t, errors.IsInvalid(err))
}

func TestEvent_Envelope(t *testing.T) {
	origin := time.Date(2024, 3, 1, 9, 15, 42, 123456000, time.UTC)
	msg := NewMessage("patron_visit", RawPayload(`{"patronId":"P1"}`), NewEntityType("patron", "P1"))
	w, err := Wrap(msg, WithTime(origin), WithIDGenerator(func() string { return "m-1" }))
	require.NoError(t, err)
	key, err := NewEventKey("org-1", "proj-1", w)
	require.NoError(t, err)

	ev := NewEvent(key, w)
	assert.Equal(t, "m-1", ev.MessageID())
	assert.Equal(t, "in/org-1", ev.Topic())

	data, err := ev.Envelope()
	require.NoError(t, err)

	expected := `{
		"key": {
			"organizationId": "org-1",
			"projectId": "proj-1",
			"entityId": "P1",
			"entityTypeDefinitionId": "patron"
		},
		"value": {
			"metadata": {
				"messageId": "m-1",
				"messageOriginDateUTC": "2024-03-01T09:15:42.123456Z",
				"eventTypeDefinitionId": "patron_visit",
				"entityTypeIds": [{"entityTypeDefinitionId": "patron", "entityId": "P1"}]
			},
			"payload": "{\"patronId\":\"P1\"}"
		}
	}`
	assert.JSONEq(t, expected, string(data))

	// The payload is a string, not a nested object
	var raw map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, byte('"'), raw["value"]["payload"][0])
}

func TestDecodeEnvelope(t *testing.T) {
	msg := NewMessage("e", NewJSONPayload(visit{PatronID: "P9"}), NewEntityType("patron", "P9"))
	w, err := Wrap(msg)
	require.NoError(t, err)
	key, err := NewEventKey("org", "proj", w)
	require.NoError(t, err)

	data, err := NewEvent(key, w).Envelope()
	require.NoError(t, err)

	decoded, err := DecodeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, key, decoded.Key())
	assert.Equal(t, w.MessageID(), decoded.MessageID())
	assert.True(t, w.OriginDate().Equal(decoded.Value().OriginDate()))
	assert.Equal(t, w.Payload(), decoded.Value().Payload())

	_, err = DecodeEnvelope([]byte(`{"key":{}}`))
	assert.Error(t, err)
	_, err = DecodeEnvelope([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecodeEnvelope_RejectsOriginDate(t *testing.T) {
	msg := NewMessage("e", RawPayload(`{}`), NewEntityType("patron", "P9"))

	tests := []struct {
		name   string
		origin time.Time
	}{
		{"unset", time.Time{}},
		{"far future", time.Date(3001, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := Wrap(msg, WithTime(tt.origin))
			require.NoError(t, err)
			key, err := NewEventKey("org", "proj", w)
			require.NoError(t, err)
			data, err := NewEvent(key, w).Envelope()
			require.NoError(t, err)

			_, err = DecodeEnvelope(data)
			assert.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "in/abc", Topic("abc"))
}
