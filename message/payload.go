package message

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/stella-systems/stellanow-sdk-go/errors"
)

// Payload is the serialization contract every message payload implements.
// Validate checks the payload before it is serialized; MarshalJSON produces the
// JSON document that travels as the envelope's string-encoded payload.
type Payload interface {
	Validate() error
	json.Marshaler
}

// Validator may be implemented by values wrapped in JSONPayload to take part in
// validation.
type Validator interface {
	Validate() error
}

// JSONPayload adapts any JSON-serializable value to Payload.
type JSONPayload[T any] struct {
	value T
}

// NewJSONPayload wraps v. If v (or *v) implements Validator it is consulted by Validate.
func NewJSONPayload[T any](v T) JSONPayload[T] {
	return JSONPayload[T]{value: v}
}

// Value returns the wrapped value.
func (p JSONPayload[T]) Value() T {
	return p.value
}

// Validate delegates to the wrapped value when it implements Validator.
func (p JSONPayload[T]) Validate() error {
	if v, ok := any(p.value).(Validator); ok {
		return v.Validate()
	}
	if v, ok := any(&p.value).(Validator); ok {
		return v.Validate()
	}
	return nil
}

// MarshalJSON encodes the wrapped value.
func (p JSONPayload[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.value)
}

// RawPayload is a pre-encoded JSON document.
type RawPayload string

// Validate reports whether the document is well-formed JSON.
func (p RawPayload) Validate() error {
	if p == "" {
		return fmt.Errorf("%w: empty raw payload", errors.ErrInvalidPayload)
	}
	if !json.Valid([]byte(p)) {
		return fmt.Errorf("%w: raw payload is not valid JSON", errors.ErrInvalidPayload)
	}
	return nil
}

// MarshalJSON returns the document unchanged.
func (p RawPayload) MarshalJSON() ([]byte, error) {
	return []byte(p), nil
}

// serialize validates and encodes a payload into the string carried on the wire.
func serialize(p Payload) (string, error) {
	if p == nil {
		return "", fmt.Errorf("%w: payload is nil", errors.ErrInvalidPayload)
	}
	if err := p.Validate(); err != nil {
		if stderrors.Is(err, errors.ErrInvalidPayload) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", errors.ErrInvalidPayload, err)
	}
	data, err := p.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("%w: marshal: %w", errors.ErrInvalidPayload, err)
	}
	return string(data), nil
}
