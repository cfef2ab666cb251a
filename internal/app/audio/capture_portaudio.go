//go:build portaudio

package audio

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dkeye/VoiceLink/internal/core"
	"github.com/dkeye/VoiceLink/internal/domain"
	"github.com/gordonklaus/portaudio"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog/log"
)

const (
	captureSampleRate = 8000
	// 20ms at 8kHz
	captureFrames = 160
	frameDuration = 20 * time.Millisecond
)

type portAudioMicrophone struct{}

// NewMicrophone returns the default input device as a Microphone.
func NewMicrophone() core.Microphone { return portAudioMicrophone{} }

func (portAudioMicrophone) Acquire(ctx context.Context, codec webrtc.RTPCodecCapability) (core.LocalAudio, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.MediaAccessError{Err: err}
	}
	encode, err := encoderFor(codec.MimeType)
	if err != nil {
		return nil, &domain.MediaAccessError{Err: err}
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, &domain.MediaAccessError{Err: err}
	}

	in := make([]int16, captureFrames)
	stream, err := portaudio.OpenDefaultStream(1, 0, captureSampleRate, len(in), in)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, &domain.MediaAccessError{Err: err}
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, &domain.MediaAccessError{Err: err}
	}

	track, err := webrtc.NewTrackLocalStaticSample(codec, "audio", "voicelink-mic")
	if err != nil {
		_ = stream.Stop()
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, &domain.MediaAccessError{Err: err}
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	c := &portAudioCapture{
		stream: stream,
		track:  track,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go c.loop(loopCtx, in, encode)
	log.Info().Str("module", "audio").Str("codec", codec.MimeType).Msg("microphone opened")
	return c, nil
}

type portAudioCapture struct {
	stream *portaudio.Stream
	track  *webrtc.TrackLocalStaticSample
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (c *portAudioCapture) Track() webrtc.TrackLocal { return c.track }

func (c *portAudioCapture) loop(ctx context.Context, in []int16, encode encodeFunc) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := c.stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				continue
			}
			log.Error().Err(err).Str("module", "audio").Msg("microphone read")
			return
		}
		sample := media.Sample{Data: encode(in), Duration: frameDuration}
		if err := c.track.WriteSample(sample); err != nil {
			log.Error().Err(err).Str("module", "audio").Msg("microphone write sample")
			return
		}
	}
}

func (c *portAudioCapture) Stop() {
	c.once.Do(func() {
		c.cancel()
		<-c.done
		_ = c.stream.Stop()
		_ = c.stream.Close()
		_ = portaudio.Terminate()
		log.Info().Str("module", "audio").Msg("microphone released")
	})
}
