package audio

import (
	"context"

	"github.com/dkeye/VoiceLink/internal/core"
	"github.com/rs/zerolog"
)

// TrackReader decodes a remote G.711 track into a SampleBuffer.
type TrackReader struct {
	track  core.RemoteTrack
	buf    *SampleBuffer
	decode decodeFunc
}

func NewTrackReader(track core.RemoteTrack, buf *SampleBuffer) (*TrackReader, error) {
	decode, err := decoderFor(track.Codec().MimeType)
	if err != nil {
		return nil, err
	}
	return &TrackReader{track: track, buf: buf, decode: decode}, nil
}

// Run reads RTP until the track ends or ctx is done.
func (r *TrackReader) Run(ctx context.Context, logger *zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("track reader ctx done")
			return
		default:
		}
		pkt, _, err := r.track.ReadRTP()
		if err != nil {
			logger.Info().Err(err).Msg("track reader stopped")
			return
		}
		if len(pkt.Payload) == 0 {
			continue
		}
		r.buf.WritePCM(r.decode(pkt.Payload))
	}
}
