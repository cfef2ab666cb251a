package domain

import (
	"encoding/json"
	"fmt"
)

// CredentialError is returned when the broker is unavailable or its payload lacks a token.
type CredentialError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *CredentialError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("credential: status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("credential: %v", e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// MediaAccessError reports a microphone that could not be acquired.
type MediaAccessError struct {
	Err error
}

func (e *MediaAccessError) Error() string { return fmt.Sprintf("media access: %v", e.Err) }
func (e *MediaAccessError) Unwrap() error { return e.Err }

type NegotiationError struct {
	Err error
}

func (e *NegotiationError) Error() string { return fmt.Sprintf("negotiation: %v", e.Err) }
func (e *NegotiationError) Unwrap() error { return e.Err }

// SignalingError carries the remote endpoint's response body for diagnostics.
type SignalingError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *SignalingError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("signaling: status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("signaling: %v", e.Err)
}

func (e *SignalingError) Unwrap() error { return e.Err }

type MessageParseError struct {
	Raw string
	Err error
}

func (e *MessageParseError) Error() string { return fmt.Sprintf("non-JSON message: %s", e.Raw) }
func (e *MessageParseError) Unwrap() error { return e.Err }

// RemoteResponseError is an application level error reported for a single response.
type RemoteResponseError struct {
	Payload json.RawMessage
}

func (e *RemoteResponseError) Error() string {
	return fmt.Sprintf("response error: %s", string(e.Payload))
}
