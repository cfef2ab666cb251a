//go:build !portaudio

package audio

import (
	"context"
	"errors"

	"github.com/dkeye/VoiceLink/internal/core"
	"github.com/dkeye/VoiceLink/internal/domain"
	"github.com/pion/webrtc/v4"
)

var errNoCapture = errors.New("microphone capture needs the portaudio build tag")

type unavailableMicrophone struct{}

// NewMicrophone returns a Microphone that always fails; build with -tags portaudio for capture.
func NewMicrophone() core.Microphone { return unavailableMicrophone{} }

func (unavailableMicrophone) Acquire(context.Context, webrtc.RTPCodecCapability) (core.LocalAudio, error) {
	return nil, &domain.MediaAccessError{Err: errNoCapture}
}
