package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/dkeye/VoiceLink/internal/domain"
	"github.com/rs/zerolog/log"
)

// sessionPayload is the subset of the broker response the client needs.
type sessionPayload struct {
	Model        string `json:"model"`
	ClientSecret struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"client_secret"`
}

// Fetcher obtains ephemeral credentials from the trusted broker.
type Fetcher struct {
	client     *http.Client
	sessionURL string
	token      string
}

func NewFetcher(client *http.Client, sessionURL, token string) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, sessionURL: sessionURL, token: token}
}

func (f *Fetcher) Fetch(ctx context.Context, modelHint string) (domain.Credential, error) {
	u, err := url.Parse(f.sessionURL)
	if err != nil {
		return domain.Credential{}, &domain.CredentialError{Err: fmt.Errorf("session url: %w", err)}
	}
	if modelHint != "" {
		q := u.Query()
		q.Set("model", modelHint)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return domain.Credential{}, &domain.CredentialError{Err: err}
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.Credential{}, &domain.CredentialError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Credential{}, &domain.CredentialError{StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn().Str("module", "backend").Int("status", resp.StatusCode).Msg("credential request rejected")
		return domain.Credential{}, &domain.CredentialError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var payload sessionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.Credential{}, &domain.CredentialError{Err: fmt.Errorf("decode session: %w", err)}
	}
	if payload.ClientSecret.Value == "" {
		return domain.Credential{}, &domain.CredentialError{Err: errMissingSecret}
	}

	log.Info().Str("module", "backend").Str("model", payload.Model).Msg("credential issued")
	return domain.Credential{Token: payload.ClientSecret.Value, Model: payload.Model}, nil
}

var errMissingSecret = fmt.Errorf("response has no client_secret.value")
