package core

import (
	"context"

	"github.com/dkeye/VoiceLink/internal/domain"
	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

type TransportEventKind int

const (
	EventChannelOpen TransportEventKind = iota
	EventChannelClose
	EventChannelError
	EventMessage
	EventRemoteTrack
)

func (k TransportEventKind) String() string {
	switch k {
	case EventChannelOpen:
		return "channel_open"
	case EventChannelClose:
		return "channel_close"
	case EventChannelError:
		return "channel_error"
	case EventMessage:
		return "message"
	case EventRemoteTrack:
		return "remote_track"
	default:
		return "unknown"
	}
}

// TransportEvent is one entry of the transport's single-consumer event queue.
type TransportEvent struct {
	Kind  TransportEventKind
	Data  []byte
	Err   error
	Track RemoteTrack
}

// RemoteTrack is the inbound side of a negotiated media track.
// *webrtc.TrackRemote satisfies it.
type RemoteTrack interface {
	ID() string
	Codec() webrtc.RTPCodecParameters
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// PeerTransport owns one peer connection and its event channel for the lifetime of a session.
type PeerTransport interface {
	// Open builds the connection and returns the local offer SDP once ICE gathering is complete.
	Open(ctx context.Context, media domain.MediaConfig) (string, error)
	ApplyRemoteAnswer(sdp string) error
	// Send writes a text message on the event channel.
	Send(data []byte) error
	Events() <-chan TransportEvent
	// Close is idempotent.
	Close()
}

// LocalAudio is an acquired capture device publishing into a local track.
type LocalAudio interface {
	Track() webrtc.TrackLocal
	Stop()
}

type Microphone interface {
	Acquire(ctx context.Context, codec webrtc.RTPCodecCapability) (LocalAudio, error)
}
