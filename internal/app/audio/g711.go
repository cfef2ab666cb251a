package audio

import (
	"fmt"
	"strings"

	"github.com/pion/webrtc/v4"
	"github.com/zaf/g711"
)

type decodeFunc func(payload []byte) []int16
type encodeFunc func(pcm []int16) []byte

func decoderFor(mimeType string) (decodeFunc, error) {
	switch {
	case strings.EqualFold(mimeType, webrtc.MimeTypePCMU):
		return func(p []byte) []int16 {
			out := make([]int16, len(p))
			for i, b := range p {
				out[i] = g711.DecodeUlawFrame(b)
			}
			return out
		}, nil
	case strings.EqualFold(mimeType, webrtc.MimeTypePCMA):
		return func(p []byte) []int16 {
			out := make([]int16, len(p))
			for i, b := range p {
				out[i] = g711.DecodeAlawFrame(b)
			}
			return out
		}, nil
	}
	return nil, fmt.Errorf("unsupported codec %q", mimeType)
}

func encoderFor(mimeType string) (encodeFunc, error) {
	switch {
	case strings.EqualFold(mimeType, webrtc.MimeTypePCMU):
		return func(pcm []int16) []byte {
			out := make([]byte, len(pcm))
			for i, s := range pcm {
				out[i] = g711.EncodeUlawFrame(s)
			}
			return out
		}, nil
	case strings.EqualFold(mimeType, webrtc.MimeTypePCMA):
		return func(pcm []int16) []byte {
			out := make([]byte, len(pcm))
			for i, s := range pcm {
				out[i] = g711.EncodeAlawFrame(s)
			}
			return out
		}, nil
	}
	return nil, fmt.Errorf("unsupported codec %q", mimeType)
}
