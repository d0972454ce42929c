package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/stella-systems/stellanow-sdk-go/message"
)

// maxLineSize bounds a single input line
const maxLineSize = 1 << 20

// inputLine is one message on stdin:
//
//	{"eventType":"patron_visit","entities":[{"entityTypeDefinitionId":"patron","entityId":"P1"}],"payload":{...}}
type inputLine struct {
	EventType string               `json:"eventType"`
	Entities  []message.EntityType `json:"entities"`
	Payload   json.RawMessage      `json:"payload"`
}

func (l inputLine) toMessage() (*message.Message, error) {
	if l.EventType == "" {
		return nil, fmt.Errorf("eventType is required")
	}
	if len(l.Payload) == 0 {
		return nil, fmt.Errorf("payload is required")
	}
	return message.NewMessage(l.EventType, message.RawPayload(l.Payload), l.Entities...), nil
}

// readMessages calls fn for each non-empty line of r. Malformed lines are
// reported through onInvalid and skipped.
func readMessages(r io.Reader, fn func(line int, msg *message.Message), onInvalid func(line int, err error)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	n := 0
	for scanner.Scan() {
		n++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var in inputLine
		if err := json.Unmarshal(raw, &in); err != nil {
			onInvalid(n, err)
			continue
		}
		msg, err := in.toMessage()
		if err != nil {
			onInvalid(n, err)
			continue
		}
		fn(n, msg)
	}
	return scanner.Err()
}
