package orch

import (
	"encoding/json"

	"github.com/dkeye/VoiceLink/internal/core"
	"github.com/dkeye/VoiceLink/internal/domain"
	"github.com/rs/zerolog/log"
)

type responseCreateEvent struct {
	Type     string         `json:"type"`
	Response responseConfig `json:"response"`
}

type responseConfig struct {
	Modalities   []string `json:"modalities"`
	Instructions string   `json:"instructions"`
}

// SendText clears the transcript and asks for a text only response.
func (o *Orchestrator) SendText(text string) error {
	if o.State() != domain.Connected {
		return ErrNotConnected
	}
	o.Classifier.Reset()
	return o.requestResponse([]string{"text"}, text)
}

// StartVoiceResponse asks for a spoken response with its text transcript.
func (o *Orchestrator) StartVoiceResponse(instructions string) error {
	if o.State() != domain.Connected {
		return ErrNotConnected
	}
	return o.requestResponse([]string{"audio", "text"}, instructions)
}

func (o *Orchestrator) requestResponse(modalities []string, instructions string) error {
	o.mu.Lock()
	a := o.cur
	var t core.PeerTransport
	if a != nil {
		t = a.transport
	}
	o.mu.Unlock()
	if t == nil {
		return ErrNotConnected
	}

	b, err := json.Marshal(responseCreateEvent{
		Type:     "response.create",
		Response: responseConfig{Modalities: modalities, Instructions: instructions},
	})
	if err != nil {
		return err
	}
	if err := t.Send(b); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(a.sid)).Msg("send failed")
		return err
	}
	log.Debug().Str("module", "orch").Str("sid", string(a.sid)).Strs("modalities", modalities).Msg("response requested")
	return nil
}
