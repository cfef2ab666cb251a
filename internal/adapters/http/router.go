package http

import (
	"context"
	"net/http"

	"github.com/dkeye/VoiceLink/internal/app/broker"
	"github.com/dkeye/VoiceLink/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func newEngine(mode string) *gin.Engine {
	if mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	if mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	return r
}

// SetupBrokerRouter serves the credential broker.
func SetupBrokerRouter(cfg *config.Config, minter Minter, limiter broker.Limiter, metrics *broker.Metrics) *gin.Engine {
	r := newEngine(cfg.Mode)
	r.Use(RequestMetrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	api.Use(OriginFilter(cfg.Broker.AllowedOrigins))
	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	api.Use(sessions.Sessions("VoiceLinkSessions", store))
	api.Use(ClientTokenMiddleware())
	if cfg.Broker.JWTSecret != "" {
		api.Use(JWTAuth(cfg.Broker.JWTSecret))
	}
	api.Use(RateLimit(limiter, metrics))

	api.GET("/realtime/session", SessionHandler(minter, metrics))
	api.OPTIONS("/realtime/session", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	log.Info().
		Str("module", "adapters.http").
		Bool("jwt", cfg.Broker.JWTSecret != "").
		Strs("origins", cfg.Broker.AllowedOrigins).
		Msg("broker router setup")
	return r
}

// SetupStatusRouter serves the client's local status API.
func SetupStatusRouter(ctx context.Context, cfg *config.Config, status Status) *gin.Engine {
	r := newEngine(cfg.Mode)
	ctl := NewStatusController(status, cfg.ReadLimit, cfg.PingPeriod)

	api := r.Group("/api")
	api.GET("/state", ctl.HandleState)
	api.GET("/ws/state", func(c *gin.Context) {
		ctl.HandleStream(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Msg("status router setup")
	return r
}
