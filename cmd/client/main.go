package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/dkeye/VoiceLink/internal/adapters/backend"
	router "github.com/dkeye/VoiceLink/internal/adapters/http"
	"github.com/dkeye/VoiceLink/internal/adapters/rtc"
	sdpsignal "github.com/dkeye/VoiceLink/internal/adapters/signal"
	"github.com/dkeye/VoiceLink/internal/app/audio"
	"github.com/dkeye/VoiceLink/internal/app/events"
	"github.com/dkeye/VoiceLink/internal/app/observe"
	"github.com/dkeye/VoiceLink/internal/app/orch"
	"github.com/dkeye/VoiceLink/internal/config"
	"github.com/dkeye/VoiceLink/internal/core"
	"github.com/dkeye/VoiceLink/internal/domain"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	flags := config.ClientFlags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatal().Err(err).Msg("flags")
	}

	if err := run(flags); err != nil {
		log.Error().Err(err).Msg("client stopped")
		os.Exit(1)
	}
}

func run(flags *pflag.FlagSet) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	codec, err := rtc.CodecFor(cfg.RTC.Codec)
	if err != nil {
		return err
	}
	api, err := rtc.NewAPI(codec)
	if err != nil {
		return fmt.Errorf("webrtc api: %w", err)
	}
	pcCfg := rtc.DefaultWebRTCConfig(cfg.RTC.ICEServers)
	mic := audio.NewMicrophone()

	logs := observe.NewLogRing(observe.DefaultLogCapacity)
	classifier := events.NewClassifier(logs)
	analyzer := audio.NewAnalyzer(audio.ConfigFrom(cfg.Audio))

	o := orch.New(
		backend.NewFetcher(http.DefaultClient, cfg.Backend.SessionURL, cfg.Backend.Token),
		sdpsignal.NewExchange(http.DefaultClient, cfg.Realtime.URL, cfg.Realtime.BetaHeader),
		func(sid core.SessionID) core.PeerTransport {
			return rtc.NewWebRTCConnection(api, pcCfg, codec.RTPCodecCapability, mic, sid)
		},
		classifier,
		analyzer,
		logs,
	)
	o.DefaultModel = cfg.Realtime.Model
	defer o.Disconnect()

	if cfg.StatusPort > 0 {
		srv := startStatusServer(ctx, cfg, router.Status{
			State:      o.StateCell(),
			Transcript: classifier.TranscriptCell(),
			Level:      analyzer.Level(),
			Logs:       logs,
		})
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	opts := domain.ConnectOptions{
		Model: cfg.Session.Model,
		Media: domain.MediaConfig{SendMic: cfg.Session.Mic, ReceiveAudio: cfg.Session.AudioOut},
	}
	if err := o.Connect(ctx, opts); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	stopPrint := printTranscript(classifier.TranscriptCell())
	defer stopPrint()

	runCommands(ctx, o, opts, logs)
	return nil
}

func startStatusServer(ctx context.Context, cfg *config.Config, status router.Status) *http.Server {
	addr := fmt.Sprintf("127.0.0.1:%d", cfg.StatusPort)
	srv := &http.Server{
		Addr:    addr,
		Handler: router.SetupStatusRouter(ctx, cfg, status),
	}
	go func() {
		log.Info().Str("addr", addr).Msg("status server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("status server error")
		}
	}()
	return srv
}

// runCommands reads stdin until EOF, /quit or ctx is done.
func runCommands(ctx context.Context, o *orch.Orchestrator, opts domain.ConnectOptions, logs *observe.LogRing) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			line = strings.TrimSpace(line)
			var err error
			switch {
			case line == "":
				continue
			case line == "/quit":
				return
			case line == "/state":
				fmt.Println(o.State())
			case line == "/logs":
				for _, e := range logs.Entries() {
					fmt.Println(e)
				}
			case line == "/disconnect":
				o.Disconnect()
			case line == "/connect":
				err = o.Connect(ctx, opts)
			case strings.HasPrefix(line, "/voice "):
				err = o.StartVoiceResponse(strings.TrimPrefix(line, "/voice "))
			default:
				err = o.SendText(line)
			}
			if err != nil {
				log.Warn().Err(err).Str("module", "client").Msg("command failed")
			}
		}
	}
}

// printTranscript writes transcript growth to stdout as it streams in.
func printTranscript(cell *observe.Cell[string]) func() {
	updates, stop := cell.Subscribe()
	go func() {
		var shown string
		for text := range updates {
			switch {
			case text == "":
				if shown != "" {
					fmt.Println()
				}
			case strings.HasPrefix(text, shown):
				fmt.Print(text[len(shown):])
			default:
				fmt.Print("\n" + text)
			}
			shown = text
		}
	}()
	return stop
}
