package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/VoiceLink/internal/adapters/http"
	"github.com/dkeye/VoiceLink/internal/app/broker"
	"github.com/dkeye/VoiceLink/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if cfg.Broker.APIKey == "" {
		log.Warn().Str("module", "broker").Msg("OPENAI_API_KEY is not set, session requests will fail")
	}

	var limiter broker.Limiter
	if cfg.Broker.Redis.Addr != "" {
		client, err := broker.Connect(ctx, cfg.Broker.Redis.Addr, cfg.Broker.Redis.Password, cfg.Broker.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("redis")
		}
		defer client.Close()
		limiter = broker.NewRedisLimiter(client, cfg.Broker.RateLimit.Limit, cfg.Broker.RateLimit.Interval)
		log.Info().Str("module", "broker").Str("redis", cfg.Broker.Redis.Addr).Msg("shared rate limiter")
	} else {
		limiter = broker.NewMemoryLimiter(cfg.Broker.RateLimit.Limit, cfg.Broker.RateLimit.Interval)
	}

	svc := broker.NewService(&http.Client{Timeout: 30 * time.Second}, cfg.Broker)
	r := router.SetupBrokerRouter(cfg, svc, limiter, broker.NewMetrics())
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("VoiceLink broker started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
