package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dkeye/VoiceLink/internal/app/observe"
	"github.com/dkeye/VoiceLink/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Status is the set of observables the client exposes to local consumers.
type Status struct {
	State      *observe.Cell[domain.ConnectionState]
	Transcript *observe.Cell[string]
	Level      *observe.Cell[float64]
	Logs       *observe.LogRing
}

type statusSnapshot struct {
	State      string   `json:"state"`
	Transcript string   `json:"transcript"`
	Level      float64  `json:"level"`
	Logs       []string `json:"logs"`
}

type statusFrame struct {
	Type  string   `json:"type"`
	State string   `json:"state,omitempty"`
	Text  *string  `json:"text,omitempty"`
	Level *float64 `json:"level,omitempty"`
}

type StatusController struct {
	status     Status
	readLimit  int64
	pingPeriod time.Duration
}

func NewStatusController(status Status, readLimit int64, pingPeriod time.Duration) *StatusController {
	if pingPeriod <= 0 {
		pingPeriod = 54 * time.Second
	}
	if readLimit <= 0 {
		readLimit = 4096
	}
	return &StatusController{status: status, readLimit: readLimit, pingPeriod: pingPeriod}
}

func (ctl *StatusController) HandleState(c *gin.Context) {
	c.JSON(http.StatusOK, statusSnapshot{
		State:      ctl.status.State.Get().String(),
		Transcript: ctl.status.Transcript.Get(),
		Level:      ctl.status.Level.Get(),
		Logs:       ctl.status.Logs.Entries(),
	})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *StatusController) HandleStream(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "status").Msg("ws upgrade")
		return
	}
	log.Info().Str("module", "status").Str("remote", c.ClientIP()).Msg("status stream opened")

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, ws)
	go ctl.readPump(cancel, ws)
}

// readPump only services control frames; it cancels the stream when the peer goes away.
func (ctl *StatusController) readPump(cancel context.CancelFunc, ws *websocket.Conn) {
	defer cancel()

	pongWait := ctl.pingPeriod * 10 / 9
	ws.SetReadLimit(ctl.readLimit)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			log.Info().Err(err).Str("module", "status").Msg("readPump closing")
			return
		}
	}
}

func (ctl *StatusController) writePump(ctx context.Context, ws *websocket.Conn) {
	states, stopStates := ctl.status.State.Subscribe()
	texts, stopTexts := ctl.status.Transcript.Subscribe()
	levels, stopLevels := ctl.status.Level.Subscribe()
	ping := time.NewTicker(ctl.pingPeriod)
	defer func() {
		ping.Stop()
		stopStates()
		stopTexts()
		stopLevels()
		_ = ws.Close()
	}()

	for {
		var frame statusFrame
		select {
		case <-ctx.Done():
			log.Info().Str("module", "status").Msg("writePump ctx done")
			return
		case s := <-states:
			frame = statusFrame{Type: "state", State: s.String()}
		case t := <-texts:
			frame = statusFrame{Type: "transcript", Text: &t}
		case l := <-levels:
			frame = statusFrame{Type: "level", Level: &l}
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				log.Error().Err(err).Str("module", "status").Msg("writePump ping")
				return
			}
			continue
		}

		data, err := json.Marshal(frame)
		if err != nil {
			log.Error().Err(err).Str("module", "status").Msg("writePump marshal")
			continue
		}
		if err := ws.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
			log.Error().Err(err).Str("module", "status").Msg("writePump set deadline")
			return
		}
		if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Error().Err(err).Str("module", "status").Msg("writePump write error")
			return
		}
	}
}
