package events

import (
	"errors"
	"strings"
	"sync"

	"github.com/dkeye/VoiceLink/internal/app/observe"
	"github.com/dkeye/VoiceLink/internal/domain"
	"github.com/rs/zerolog/log"
)

type responseState int

const (
	stateIdle responseState = iota
	stateAccumulating
)

// Classifier folds parsed events into the transcript and the diagnostic log.
// Handle must be called from a single goroutine, in arrival order.
type Classifier struct {
	logs       *observe.LogRing
	transcript *observe.Cell[string]

	mu    sync.Mutex
	buf   strings.Builder
	state responseState
}

func NewClassifier(logs *observe.LogRing) *Classifier {
	return &Classifier{
		logs:       logs,
		transcript: observe.NewCell(""),
	}
}

// Handle classifies one raw message. Malformed payloads are logged and dropped.
func (c *Classifier) Handle(raw []byte) Event {
	ev, err := Parse(raw)
	if err != nil {
		var pe *domain.MessageParseError
		if errors.As(err, &pe) {
			c.logs.Add("Non-JSON message: " + pe.Raw)
		}
		return Event{Kind: KindUnrecognized}
	}

	switch ev.Kind {
	case KindTextDelta:
		c.mu.Lock()
		c.state = stateAccumulating
		c.buf.WriteString(ev.Text)
		text := c.buf.String()
		c.mu.Unlock()
		c.transcript.Set(text)
	case KindResponseCompleted:
		c.setIdle()
		c.logs.Add("Response completed")
	case KindResponseError:
		c.setIdle()
		rerr := &domain.RemoteResponseError{Payload: ev.Error}
		log.Warn().Str("module", "events").Err(rerr).Msg("remote response error")
		c.logs.Add("Response error: " + string(ev.Error))
	default:
		log.Debug().Str("module", "events").Str("type", ev.Type).Msg("ignored event")
	}
	return ev
}

// Reset clears the transcript ahead of a new text request.
func (c *Classifier) Reset() {
	c.mu.Lock()
	c.buf.Reset()
	c.state = stateIdle
	c.mu.Unlock()
	c.transcript.Set("")
}

func (c *Classifier) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// Accumulating reports whether a response is currently streaming text.
func (c *Classifier) Accumulating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateAccumulating
}

func (c *Classifier) TranscriptCell() *observe.Cell[string] { return c.transcript }

func (c *Classifier) setIdle() {
	c.mu.Lock()
	c.state = stateIdle
	c.mu.Unlock()
}
