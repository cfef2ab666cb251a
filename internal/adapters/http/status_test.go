package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/VoiceLink/internal/app/observe"
	"github.com/dkeye/VoiceLink/internal/config"
	"github.com/dkeye/VoiceLink/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStatus() Status {
	return Status{
		State:      observe.NewCell(domain.Disconnected),
		Transcript: observe.NewCell(""),
		Level:      observe.NewCell(0.0),
		Logs:       observe.NewLogRing(observe.DefaultLogCapacity),
	}
}

func TestStateSnapshot(t *testing.T) {
	st := newStatus()
	st.State.Set(domain.Connected)
	st.Transcript.Set("Hello")
	st.Level.Set(0.25)
	st.Logs.Add("DataChannel open")

	r := SetupStatusRouter(context.Background(), &config.Config{Mode: "test"}, st)
	w := get(r, "/api/state", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"state":"connected","transcript":"Hello","level":0.25,"logs":["DataChannel open"]}`, w.Body.String())
}

func TestStateStream(t *testing.T) {
	st := newStatus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(SetupStatusRouter(ctx, &config.Config{Mode: "test", PingPeriod: time.Second}, st))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/state"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	next := func() map[string]any {
		require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := ws.ReadMessage()
		require.NoError(t, err)
		var frame map[string]any
		require.NoError(t, json.Unmarshal(data, &frame))
		return frame
	}

	// primed values arrive first, in any order
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		seen[next()["type"].(string)] = true
	}
	assert.Equal(t, map[string]bool{"state": true, "transcript": true, "level": true}, seen)

	st.Transcript.Set("Hel")
	frame := next()
	assert.Equal(t, "transcript", frame["type"])
	assert.Equal(t, "Hel", frame["text"])

	st.State.Set(domain.Connecting)
	frame = next()
	assert.Equal(t, "state", frame["type"])
	assert.Equal(t, "connecting", frame["state"])

	st.Level.Set(0.5)
	frame = next()
	assert.Equal(t, "level", frame["type"])
	assert.Equal(t, 0.5, frame["level"])
}
