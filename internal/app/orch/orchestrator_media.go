package orch

import (
	"github.com/dkeye/VoiceLink/internal/app/audio"
	"github.com/dkeye/VoiceLink/internal/core"
	"github.com/dkeye/VoiceLink/internal/domain"
	"github.com/rs/zerolog/log"
)

// dispatchLoop is the single consumer of the transport's event queue.
func (o *Orchestrator) dispatchLoop(a *attempt, t core.PeerTransport) {
	defer a.dispatch.Done()
	evs := t.Events()
	for {
		select {
		case <-a.ctx.Done():
			return
		case ev, ok := <-evs:
			if !ok {
				return
			}
			if stop := o.handleEvent(a, ev); stop {
				return
			}
		}
	}
}

func (o *Orchestrator) handleEvent(a *attempt, ev core.TransportEvent) bool {
	switch ev.Kind {
	case core.EventChannelOpen:
		o.mu.Lock()
		if o.cur == a && o.state.Get() == domain.Connecting {
			o.state.Set(domain.Connected)
		}
		o.mu.Unlock()
		log.Info().Str("module", "orch").Str("sid", string(a.sid)).Msg("event channel open")
		o.Logs.Add("DataChannel open")
	case core.EventMessage:
		o.Classifier.Handle(ev.Data)
	case core.EventChannelClose:
		o.Logs.Add("DataChannel closed")
		o.release(a, false)
		return true
	case core.EventChannelError:
		o.Logs.Add("DataChannel error: " + errString(ev.Err))
		o.release(a, false)
		return true
	case core.EventRemoteTrack:
		o.OnTrack(a, ev.Track)
	}
	return false
}

// OnTrack starts decoding a remote audio track and points the analyzer at it.
func (o *Orchestrator) OnTrack(a *attempt, track core.RemoteTrack) {
	logger := log.With().Str("module", "orch").Str("sid", string(a.sid)).Str("track_id", track.ID()).Logger()
	if !a.media.ReceiveAudio {
		logger.Info().Msg("remote track ignored, audio out disabled")
		return
	}

	buf := audio.NewSampleBuffer(o.SampleBuffer)
	reader, err := audio.NewTrackReader(track, buf)
	if err != nil {
		logger.Warn().Err(err).Msg("remote track not analysable")
		return
	}

	a.readers.Add(1)
	go func() {
		defer a.readers.Done()
		reader.Run(a.ctx, &logger)
	}()
	o.Analyzer.Attach(buf)
	o.Logs.Add("Remote audio track: " + track.Codec().MimeType)
}

func errString(err error) string {
	if err == nil {
		return "unknown"
	}
	return err.Error()
}
