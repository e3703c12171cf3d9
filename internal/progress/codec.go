package progress

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownMessage is returned when an envelope carries an unregistered type.
var ErrUnknownMessage = errors.New("unknown message type")

// Envelope is the wire form of a Message.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type decodeFunc func(json.RawMessage) (Message, error)

var decoders = map[string]decodeFunc{
	TypeJob:                decodeAs[JobMessage],
	TypeSummary:            decodeAs[SummaryMessage],
	TypeSearch:             decodeAs[SearchMessage],
	TypePlaceStatus:        decodeAs[PlaceStatusMessage],
	TypeSearchDone:         decodeAs[SearchDoneMessage],
	TypeSupportedLocales:   decodeAs[SupportedLocalesMessage],
	TypeSupportedCountries: decodeAs[SupportedCountriesMessage],
	TypeContactPlace:       decodeAs[ContactPlaceMessage],
	TypeJobFailed:          decodeAs[JobFailedMessage],
	TypeError:              decodeAs[ErrorMessage],
}

func decodeAs[T Message](raw json.RawMessage) (Message, error) {
	var msg T
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Known reports whether t is a registered message type.
func Known(t string) bool {
	_, ok := decoders[t]
	return ok
}

// Encode wraps msg in an envelope and marshals it.
func Encode(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, errors.New("nil message")
	}
	if !Known(msg.Type()) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type())
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msg.Type(), err)
	}
	data, err := json.Marshal(Envelope{Type: msg.Type(), Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return data, nil
}

// Decode parses an envelope and its payload.
func Decode(data []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	decode, ok := decoders[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
	}
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return nil, fmt.Errorf("decode %s: payload is missing", env.Type)
	}
	msg, err := decode(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return msg, nil
}
