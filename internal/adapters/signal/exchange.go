package signal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dkeye/VoiceLink/internal/domain"
	"github.com/rs/zerolog/log"
)

// Exchange posts the local offer to the realtime endpoint and returns its answer.
type Exchange struct {
	client     *http.Client
	baseURL    string
	betaHeader string
}

func NewExchange(client *http.Client, baseURL, betaHeader string) *Exchange {
	if client == nil {
		client = http.DefaultClient
	}
	return &Exchange{client: client, baseURL: baseURL, betaHeader: betaHeader}
}

func (e *Exchange) Exchange(ctx context.Context, offerSDP string, cred domain.Credential, model string) (string, error) {
	u, err := url.Parse(e.baseURL)
	if err != nil {
		return "", &domain.SignalingError{Err: fmt.Errorf("realtime url: %w", err)}
	}
	q := u.Query()
	q.Set("model", model)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(offerSDP))
	if err != nil {
		return "", &domain.SignalingError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+cred.Token)
	req.Header.Set("Content-Type", "application/sdp")
	if e.betaHeader != "" {
		req.Header.Set("OpenAI-Beta", e.betaHeader)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", &domain.SignalingError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &domain.SignalingError{StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn().Str("module", "signal").Int("status", resp.StatusCode).Str("model", model).Msg("offer rejected")
		return "", &domain.SignalingError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	log.Info().Str("module", "signal").Str("model", model).Int("answer_len", len(body)).Msg("answer received")
	return string(body), nil
}
