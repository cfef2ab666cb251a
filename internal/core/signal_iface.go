package core

import (
	"context"

	"github.com/dkeye/VoiceLink/internal/domain"
)

type SessionID string

type CredentialFetcher interface {
	Fetch(ctx context.Context, modelHint string) (domain.Credential, error)
}

// SignalingExchange performs the single offer/answer round trip with the remote endpoint.
type SignalingExchange interface {
	Exchange(ctx context.Context, offerSDP string, cred domain.Credential, model string) (string, error)
}
