package orch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dkeye/VoiceLink/internal/app/audio"
	"github.com/dkeye/VoiceLink/internal/app/events"
	"github.com/dkeye/VoiceLink/internal/app/observe"
	"github.com/dkeye/VoiceLink/internal/core"
	"github.com/dkeye/VoiceLink/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	// ErrDisconnected is returned by Connect when Disconnect was requested while it was in flight.
	ErrDisconnected = errors.New("disconnected while connecting")
	ErrNotConnected = errors.New("not connected")
)

const defaultSampleBuffer = 4096

type TransportFactory func(sid core.SessionID) core.PeerTransport

type Orchestrator struct {
	Credentials  core.CredentialFetcher
	Signaling    core.SignalingExchange
	NewTransport TransportFactory
	Classifier   *events.Classifier
	Analyzer     *audio.Analyzer
	Logs         *observe.LogRing
	// DefaultModel is used when neither the credential nor the caller names a model.
	DefaultModel string
	SampleBuffer int

	state *observe.Cell[domain.ConnectionState]

	mu  sync.Mutex
	cur *attempt
}

// attempt owns every resource created by one Connect call.
type attempt struct {
	sid   core.SessionID
	media domain.MediaConfig

	ctx    context.Context
	cancel context.CancelFunc

	// guarded by Orchestrator.mu
	transport core.PeerTransport
	settled   bool
	abandoned bool

	readers  sync.WaitGroup
	dispatch sync.WaitGroup
	torn     atomic.Bool
	// released is closed once the teardown has finished.
	released chan struct{}
}

func New(
	credentials core.CredentialFetcher,
	signaling core.SignalingExchange,
	newTransport TransportFactory,
	classifier *events.Classifier,
	analyzer *audio.Analyzer,
	logs *observe.LogRing,
) *Orchestrator {
	return &Orchestrator{
		Credentials:  credentials,
		Signaling:    signaling,
		NewTransport: newTransport,
		Classifier:   classifier,
		Analyzer:     analyzer,
		Logs:         logs,
		SampleBuffer: defaultSampleBuffer,
		state:        observe.NewCell(domain.Disconnected),
	}
}

func (o *Orchestrator) State() domain.ConnectionState { return o.state.Get() }

// StateCell publishes every connection state transition.
func (o *Orchestrator) StateCell() *observe.Cell[domain.ConnectionState] { return o.state }

// Connect fetches a credential, opens the transport and completes the offer/answer exchange.
// It returns once the answer is applied; the state becomes Connected when the event channel opens.
// Connect is a no-op unless the state is Disconnected.
func (o *Orchestrator) Connect(ctx context.Context, opts domain.ConnectOptions) error {
	o.mu.Lock()
	if o.cur != nil || o.state.Get() != domain.Disconnected {
		o.mu.Unlock()
		log.Debug().Str("module", "orch").Msg("connect ignored, session active")
		return nil
	}
	a := &attempt{sid: core.SessionID(uuid.NewString()), media: opts.Media, released: make(chan struct{})}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	o.cur = a
	o.state.Set(domain.Connecting)
	o.mu.Unlock()

	logger := log.With().Str("module", "orch").Str("sid", string(a.sid)).Logger()
	logger.Info().Bool("mic", opts.Media.SendMic).Bool("audio_out", opts.Media.ReceiveAudio).Msg("connecting")

	cred, err := o.Credentials.Fetch(ctx, opts.Model)
	if err != nil {
		return o.fail(a, err)
	}
	model := firstNonEmpty(cred.Model, opts.Model, o.DefaultModel)

	t := o.NewTransport(a.sid)
	o.mu.Lock()
	a.transport = t
	o.mu.Unlock()

	a.dispatch.Add(1)
	go o.dispatchLoop(a, t)

	offer, err := t.Open(ctx, opts.Media)
	if err != nil {
		return o.fail(a, err)
	}
	answer, err := o.Signaling.Exchange(ctx, offer, cred, model)
	if err != nil {
		return o.fail(a, err)
	}
	if err := t.ApplyRemoteAnswer(answer); err != nil {
		return o.fail(a, err)
	}

	o.mu.Lock()
	a.settled = true
	abandoned := a.abandoned
	o.mu.Unlock()
	if abandoned {
		o.teardown(a)
		return ErrDisconnected
	}

	logger.Info().Str("model", model).Msg("negotiated")
	o.Logs.Add("WebRTC connected")
	return nil
}

func (o *Orchestrator) fail(a *attempt, err error) error {
	log.Error().Err(err).Str("module", "orch").Str("sid", string(a.sid)).Msg("connect failed")
	o.Logs.Add(fmt.Sprintf("Connect failed: %v", err))
	o.teardown(a)
	return err
}

// Disconnect tears down the current session. It is idempotent. While a Connect call is in
// flight the teardown is deferred until that call settles.
func (o *Orchestrator) Disconnect() {
	o.mu.Lock()
	a := o.cur
	if a == nil {
		o.mu.Unlock()
		o.state.Set(domain.Disconnected)
		return
	}
	if !a.settled {
		a.abandoned = true
		o.mu.Unlock()
		log.Info().Str("module", "orch").Str("sid", string(a.sid)).Msg("disconnect deferred until connect settles")
		return
	}
	o.mu.Unlock()
	o.teardown(a)
}

// teardown releases the attempt's resources in order: dispatch loop, analyzer, transport,
// then the track readers blocked on it. Every step tolerates a missing resource.
func (o *Orchestrator) teardown(a *attempt) {
	o.release(a, true)
}

// release runs the teardown once. Callers other than the dispatch loop block until the
// teardown in progress has finished; the dispatch loop must not, since the winner waits for it.
func (o *Orchestrator) release(a *attempt, waitDispatch bool) {
	if !a.torn.CompareAndSwap(false, true) {
		if waitDispatch {
			<-a.released
		}
		return
	}
	defer close(a.released)

	a.cancel()
	if waitDispatch {
		a.dispatch.Wait()
	}

	o.Analyzer.Detach()

	o.mu.Lock()
	t := a.transport
	o.mu.Unlock()
	if t != nil {
		t.Close()
	}
	a.readers.Wait()

	o.mu.Lock()
	if o.cur == a {
		o.cur = nil
		o.state.Set(domain.Disconnected)
	}
	o.mu.Unlock()

	log.Info().Str("module", "orch").Str("sid", string(a.sid)).Msg("session closed")
	o.Logs.Add("Disconnected")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
