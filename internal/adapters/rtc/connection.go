package rtc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/VoiceLink/internal/core"
	"github.com/dkeye/VoiceLink/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

const eventChannelLabel = "oai-events"

var (
	ErrClosed         = errors.New("transport closed")
	ErrAlreadyOpen    = errors.New("transport already open")
	ErrChannelNotOpen = errors.New("event channel not open")
	ErrPeerLost       = errors.New("peer connection lost")
)

// WebRTCConnection is the pion backed core.PeerTransport.
type WebRTCConnection struct {
	api   *webrtc.API
	cfg   webrtc.Configuration
	codec webrtc.RTPCodecCapability
	mic   core.Microphone
	sid   core.SessionID

	mu     sync.Mutex
	pc     *webrtc.PeerConnection
	dc     *webrtc.DataChannel
	local  core.LocalAudio
	closed bool

	events    chan core.TransportEvent
	done      chan struct{}
	closeOnce sync.Once
}

func NewWebRTCConnection(
	api *webrtc.API,
	cfg webrtc.Configuration,
	codec webrtc.RTPCodecCapability,
	mic core.Microphone,
	sid core.SessionID,
) *WebRTCConnection {
	return &WebRTCConnection{
		api:    api,
		cfg:    cfg,
		codec:  codec,
		mic:    mic,
		sid:    sid,
		events: make(chan core.TransportEvent, 256),
		done:   make(chan struct{}),
	}
}

func (c *WebRTCConnection) Events() <-chan core.TransportEvent { return c.events }

func (c *WebRTCConnection) Open(ctx context.Context, media domain.MediaConfig) (string, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrClosed
	}
	if c.pc != nil {
		c.mu.Unlock()
		return "", ErrAlreadyOpen
	}
	pc, err := c.api.NewPeerConnection(c.cfg)
	if err != nil {
		c.mu.Unlock()
		return "", &domain.NegotiationError{Err: err}
	}
	c.pc = pc
	c.mu.Unlock()

	c.bindPeer(pc)

	dc, err := pc.CreateDataChannel(eventChannelLabel, nil)
	if err != nil {
		return "", &domain.NegotiationError{Err: err}
	}
	c.mu.Lock()
	c.dc = dc
	c.mu.Unlock()
	c.bindChannel(dc)

	if media.SendMic {
		if err := c.attachMicrophone(ctx, pc); err != nil {
			return "", err
		}
	} else {
		// receive-only, and also the fallback when no direction is requested
		if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		}); err != nil {
			return "", &domain.NegotiationError{Err: err}
		}
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return "", &domain.NegotiationError{Err: err}
	}
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		return "", &domain.NegotiationError{Err: err}
	}
	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return "", ctx.Err()
	case <-c.done:
		return "", ErrClosed
	}

	local := pc.LocalDescription()
	if sd, err := parseDescription(local.SDP); err == nil {
		log.Info().Str("module", "webrtc").Str("sid", string(c.sid)).Strs("media", mediaSummary(sd)).Msg("local offer ready")
	}
	return local.SDP, nil
}

func (c *WebRTCConnection) attachMicrophone(ctx context.Context, pc *webrtc.PeerConnection) error {
	local, err := c.mic.Acquire(ctx, c.codec)
	if err != nil {
		var mae *domain.MediaAccessError
		if errors.As(err, &mae) {
			return err
		}
		return &domain.MediaAccessError{Err: err}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		local.Stop()
		return ErrClosed
	}
	c.local = local
	c.mu.Unlock()

	if _, err := pc.AddTrack(local.Track()); err != nil {
		return &domain.NegotiationError{Err: err}
	}
	return nil
}

func (c *WebRTCConnection) ApplyRemoteAnswer(answer string) error {
	sd, err := parseDescription(answer)
	if err != nil {
		return &domain.NegotiationError{Err: err}
	}

	c.mu.Lock()
	pc, closed := c.pc, c.closed
	c.mu.Unlock()
	if closed {
		return &domain.NegotiationError{Err: ErrClosed}
	}
	if pc == nil {
		return &domain.NegotiationError{Err: errors.New("transport not open")}
	}

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answer}); err != nil {
		return &domain.NegotiationError{Err: err}
	}
	log.Info().Str("module", "webrtc").Str("sid", string(c.sid)).Strs("media", mediaSummary(sd)).Msg("remote answer applied")
	return nil
}

func (c *WebRTCConnection) Send(data []byte) error {
	c.mu.Lock()
	dc := c.dc
	c.mu.Unlock()
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrChannelNotOpen
	}
	return dc.SendText(string(data))
}

// Close stops local capture, every sender, the event channel and the peer connection.
func (c *WebRTCConnection) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		pc, dc, local := c.pc, c.dc, c.local
		c.mu.Unlock()

		close(c.done)

		if local != nil {
			local.Stop()
		}
		if pc != nil {
			for _, s := range pc.GetSenders() {
				if err := s.Stop(); err != nil {
					log.Debug().Err(err).Str("module", "webrtc").Str("sid", string(c.sid)).Msg("sender stop")
				}
			}
		}
		if dc != nil {
			if err := dc.Close(); err != nil {
				log.Debug().Err(err).Str("module", "webrtc").Str("sid", string(c.sid)).Msg("channel close")
			}
		}
		if pc != nil {
			if err := pc.Close(); err != nil {
				log.Error().Err(err).Str("module", "webrtc").Str("sid", string(c.sid)).Msg("close error")
			} else {
				log.Info().Str("module", "webrtc").Str("sid", string(c.sid)).Msg("closed")
			}
		}
	})
}

func (c *WebRTCConnection) emit(ev core.TransportEvent) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// handlePeerState reports a peer connection that failed or was closed from the far side
// as a channel error, so the session is torn down instead of going silent.
func (c *WebRTCConnection) handlePeerState(s webrtc.PeerConnectionState) {
	log.Info().Str("module", "webrtc").Str("sid", string(c.sid)).Str("peer_connection_state", s.String()).Msg("Peer state")
	switch s {
	case webrtc.PeerConnectionStateFailed:
	case webrtc.PeerConnectionStateClosed:
		c.mu.Lock()
		local := c.closed
		c.mu.Unlock()
		if local {
			return
		}
	default:
		return
	}
	c.emit(core.TransportEvent{Kind: core.EventChannelError, Err: fmt.Errorf("%w: %s", ErrPeerLost, s)})
}

func (c *WebRTCConnection) bindPeer(pc *webrtc.PeerConnection) {
	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Info().Str("module", "webrtc").Str("sid", string(c.sid)).Str("ice_state", s.String()).Msg("ICE state")
	})

	pc.OnConnectionStateChange(c.handlePeerState)

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "webrtc").
			Str("sid", string(c.sid)).
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("codec", track.Codec().MimeType).
			Msg("OnTrack received")
		if track.Kind() != webrtc.RTPCodecTypeAudio {
			return
		}
		c.emit(core.TransportEvent{Kind: core.EventRemoteTrack, Track: track})
	})
}

func (c *WebRTCConnection) bindChannel(dc *webrtc.DataChannel) {
	dc.OnOpen(func() {
		c.emit(core.TransportEvent{Kind: core.EventChannelOpen})
	})
	dc.OnClose(func() {
		c.emit(core.TransportEvent{Kind: core.EventChannelClose})
	})
	dc.OnError(func(err error) {
		c.emit(core.TransportEvent{Kind: core.EventChannelError, Err: err})
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		data := make([]byte, len(msg.Data))
		copy(data, msg.Data)
		c.emit(core.TransportEvent{Kind: core.EventMessage, Data: data})
	})
}
