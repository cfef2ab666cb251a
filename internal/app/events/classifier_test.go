package events

import (
	"strings"
	"testing"

	"github.com/dkeye/VoiceLink/internal/app/observe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClassifier() (*Classifier, *observe.LogRing) {
	logs := observe.NewLogRing(observe.DefaultLogCapacity)
	return NewClassifier(logs), logs
}

func TestClassifierAccumulatesConsecutiveDeltas(t *testing.T) {
	c, _ := newClassifier()
	c.Handle([]byte(`{"type":"response.output_text.delta","delta":"Hel"}`))
	c.Handle([]byte(`{"type":"response.output_text.delta","delta":"lo"}`))

	assert.Equal(t, "Hello", c.Transcript())
	assert.Equal(t, "Hello", c.TranscriptCell().Get())
	assert.True(t, c.Accumulating())
}

func TestClassifierMixesBothDeltaShapes(t *testing.T) {
	c, _ := newClassifier()
	msgs := []string{
		`{"type":"response.delta","delta":{"type":"output_text","text":"a"}}`,
		`{"type":"response.output_text.delta","delta":"b"}`,
		`{"type":"session.updated"}`,
		`{"type":"response.output_text.delta","delta":{"text":"c"}}`,
		`{"type":"response.delta","delta":{"type":"output_text","text":"d"}}`,
	}
	for _, m := range msgs {
		c.Handle([]byte(m))
	}
	assert.Equal(t, "abcd", c.Transcript())
}

func TestClassifierResetStartsNewTranscript(t *testing.T) {
	c, _ := newClassifier()
	c.Handle([]byte(`{"type":"response.output_text.delta","delta":"old"}`))
	c.Reset()
	assert.Equal(t, "", c.Transcript())
	assert.False(t, c.Accumulating())

	c.Handle([]byte(`{"type":"response.output_text.delta","delta":"new"}`))
	assert.Equal(t, "new", c.Transcript())
}

func TestClassifierMalformedMessageIsLogged(t *testing.T) {
	c, logs := newClassifier()
	c.Handle([]byte(`{"type":"response.output_text.delta","delta":"keep"}`))
	c.Handle([]byte("not json"))

	assert.Equal(t, "keep", c.Transcript())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Non-JSON message: not json", logs.Entries()[0])
}

func TestClassifierResponseErrorIsLogged(t *testing.T) {
	c, logs := newClassifier()
	c.Handle([]byte(`{"type":"response.output_text.delta","delta":"par"}`))
	ev := c.Handle([]byte(`{"type":"response.error","error":{"message":"x"}}`))

	assert.Equal(t, KindResponseError, ev.Kind)
	assert.False(t, c.Accumulating())
	assert.Equal(t, "par", c.Transcript())
	require.NotEmpty(t, logs.Entries())
	assert.True(t, strings.Contains(logs.Entries()[0], "x"))
}

func TestClassifierCompletedReturnsToIdle(t *testing.T) {
	c, logs := newClassifier()
	c.Handle([]byte(`{"type":"response.output_text.delta","delta":"done"}`))
	c.Handle([]byte(`{"type":"response.completed"}`))

	assert.False(t, c.Accumulating())
	assert.Equal(t, "done", c.Transcript())
	assert.Equal(t, "Response completed", logs.Entries()[0])
}

func TestClassifierNonObjectJSONIsIgnored(t *testing.T) {
	c, logs := newClassifier()
	c.Handle([]byte(`{"type":"response.output_text.delta","delta":"keep"}`))
	c.Handle([]byte(`"hi"`))
	c.Handle([]byte(`123`))

	assert.Equal(t, "keep", c.Transcript())
	assert.Equal(t, 0, logs.Len())
}
