package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dkeye/VoiceLink/internal/config"
	"github.com/rs/zerolog/log"
)

var ErrMissingAPIKey = errors.New("missing api key")

// UpstreamError is a non-2xx answer from the session minting endpoint.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Body)
}

type turnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMS   int     `json:"prefix_padding_ms"`
	SilenceDurationMS int     `json:"silence_duration_ms"`
}

type sessionRequest struct {
	Model         string        `json:"model"`
	Voice         string        `json:"voice"`
	Modalities    []string      `json:"modalities"`
	TurnDetection turnDetection `json:"turn_detection"`
	Instructions  string        `json:"instructions,omitempty"`
}

// Service mints ephemeral realtime sessions with the server side API key.
type Service struct {
	client *http.Client
	cfg    config.BrokerConfig
}

func NewService(client *http.Client, cfg config.BrokerConfig) *Service {
	if client == nil {
		client = http.DefaultClient
	}
	return &Service{client: client, cfg: cfg}
}

// Mint creates a session for model (the configured model when empty) and returns the
// upstream JSON unchanged.
func (s *Service) Mint(ctx context.Context, model string) (json.RawMessage, error) {
	if s.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if model == "" {
		model = s.cfg.Model
	}

	body, err := json.Marshal(sessionRequest{
		Model:      model,
		Voice:      s.cfg.Voice,
		Modalities: s.cfg.Modalities,
		TurnDetection: turnDetection{
			Type:              "server_vad",
			Threshold:         0.5,
			PrefixPaddingMS:   300,
			SilenceDurationMS: 700,
		},
		Instructions: s.cfg.Instructions,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.UpstreamURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OpenAI-Beta", "realtime=v1")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("session request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn().Str("module", "broker").Int("status", resp.StatusCode).Str("model", model).Msg("upstream rejected session")
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("session response is not JSON")
	}

	log.Info().Str("module", "broker").Str("model", model).Msg("session minted")
	return data, nil
}
