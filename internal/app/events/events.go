// Package events classifies messages received on the session's event channel.
package events

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/VoiceLink/internal/domain"
)

type Kind int

const (
	KindUnrecognized Kind = iota
	KindTextDelta
	KindResponseCompleted
	KindResponseError
)

func (k Kind) String() string {
	switch k {
	case KindTextDelta:
		return "text_delta"
	case KindResponseCompleted:
		return "response_completed"
	case KindResponseError:
		return "response_error"
	default:
		return "unrecognized"
	}
}

type Event struct {
	Kind Kind
	Type string
	// Text is set for KindTextDelta.
	Text string
	// Error is the raw error payload for KindResponseError.
	Error json.RawMessage
}

type envelope struct {
	Type  string          `json:"type"`
	Delta json.RawMessage `json:"delta"`
	Error json.RawMessage `json:"error"`
}

type matcher func(env envelope) (Event, bool)

// matchers are tried in order; the first match wins.
var matchers = []matcher{
	matchResponseDelta,
	matchOutputTextDelta,
	matchResponseCompleted,
	matchResponseError,
}

// Parse decodes a raw event channel payload into an Event.
func Parse(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// Valid JSON of the wrong shape is just an event we don't know.
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return Event{Kind: KindUnrecognized}, nil
		}
		return Event{}, &domain.MessageParseError{Raw: string(raw), Err: err}
	}
	for _, m := range matchers {
		if ev, ok := m(env); ok {
			return ev, nil
		}
	}
	return Event{Kind: KindUnrecognized, Type: env.Type}, nil
}

// {"type":"response.delta","delta":{"type":"output_text","text":"..."}}
func matchResponseDelta(env envelope) (Event, bool) {
	if env.Type != "response.delta" || len(env.Delta) == 0 {
		return Event{}, false
	}
	var d struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(env.Delta, &d); err != nil || d.Type != "output_text" {
		return Event{}, false
	}
	return Event{Kind: KindTextDelta, Type: env.Type, Text: d.Text}, true
}

// {"type":"response.output_text.delta","delta":"..."} or "delta":{"text":"..."}
func matchOutputTextDelta(env envelope) (Event, bool) {
	if env.Type != "response.output_text.delta" {
		return Event{}, false
	}
	ev := Event{Kind: KindTextDelta, Type: env.Type}
	if len(env.Delta) == 0 {
		return ev, true
	}
	var s string
	if err := json.Unmarshal(env.Delta, &s); err == nil {
		ev.Text = s
		return ev, true
	}
	var d struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(env.Delta, &d); err == nil {
		ev.Text = d.Text
	}
	return ev, true
}

func matchResponseCompleted(env envelope) (Event, bool) {
	if env.Type != "response.completed" {
		return Event{}, false
	}
	return Event{Kind: KindResponseCompleted, Type: env.Type}, true
}

func matchResponseError(env envelope) (Event, bool) {
	if env.Type != "response.error" {
		return Event{}, false
	}
	payload := env.Error
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return Event{Kind: KindResponseError, Type: env.Type, Error: payload}, true
}
