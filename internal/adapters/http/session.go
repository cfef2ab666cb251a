package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dkeye/VoiceLink/internal/app/broker"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type Minter interface {
	Mint(ctx context.Context, model string) (json.RawMessage, error)
}

// SessionHandler serves GET /api/realtime/session[?model=].
func SessionHandler(minter Minter, metrics *broker.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		model := c.Query("model")
		data, err := minter.Mint(c.Request.Context(), model)
		metrics.ObserveMint(err)
		if err != nil {
			var ue *broker.UpstreamError
			switch {
			case errors.Is(err, broker.ErrMissingAPIKey):
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Missing OPENAI_API_KEY"})
			case errors.As(err, &ue):
				c.JSON(ue.StatusCode, gin.H{"error": "OpenAI session error", "details": ue.Body})
			default:
				log.Error().Err(err).Str("module", "adapters.http").Msg("mint session")
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}
		c.Data(http.StatusOK, "application/json", data)
	}
}
