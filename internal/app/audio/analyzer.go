package audio

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/VoiceLink/internal/app/observe"
	"github.com/dkeye/VoiceLink/internal/config"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Analyser  AnalyserConfig
	Meter     MeterConfig
	FrameRate int
}

func DefaultConfig() Config {
	return Config{Analyser: DefaultAnalyserConfig(), Meter: DefaultMeterConfig(), FrameRate: 60}
}

func ConfigFrom(c config.AudioConfig) Config {
	return Config{
		Analyser: AnalyserConfig{
			FFTSize:     c.FFTSize,
			Smoothing:   c.Smoothing,
			MinDecibels: c.MinDecibels,
			MaxDecibels: c.MaxDecibels,
		},
		Meter: MeterConfig{
			Bins:           c.Bins,
			Exponent:       c.Exponent,
			Gain:           c.Gain,
			SilenceEpsilon: c.SilenceEpsilon,
			SilenceFrames:  c.SilenceFrames,
		},
		FrameRate: c.FrameRate,
	}
}

// Analyzer samples a SampleSource once per frame and publishes the intensity level.
// Its sampling loop is the only writer of Level().
type Analyzer struct {
	cfg   Config
	level *observe.Cell[float64]

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewAnalyzer(cfg Config) *Analyzer {
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = 60
	}
	return &Analyzer{cfg: cfg, level: observe.NewCell(0.0)}
}

func (a *Analyzer) Level() *observe.Cell[float64] { return a.level }

// Attach starts sampling src, replacing any loop already running.
func (a *Analyzer) Attach(src SampleSource) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopLocked() {
		log.Info().Str("module", "audio").Msg("replacing existing sampling loop")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	a.cancel, a.done = cancel, done
	go a.loop(ctx, src, done)
}

// Detach stops sampling and publishes 0. Safe when never attached.
func (a *Analyzer) Detach() {
	a.mu.Lock()
	a.stopLocked()
	a.mu.Unlock()
	a.level.Set(0)
}

func (a *Analyzer) stopLocked() bool {
	if a.cancel == nil {
		return false
	}
	a.cancel()
	<-a.done
	a.cancel, a.done = nil, nil
	return true
}

func (a *Analyzer) loop(ctx context.Context, src SampleSource, done chan struct{}) {
	defer close(done)

	analyser := NewAnalyser(a.cfg.Analyser)
	meter := NewMeter(a.cfg.Meter)
	samples := make([]float64, analyser.Size())
	bins := make([]uint8, analyser.BinCount())

	ticker := time.NewTicker(time.Second / time.Duration(a.cfg.FrameRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			src.Snapshot(samples)
			analyser.ByteFrequencyData(samples, bins)
			a.level.Set(meter.Step(bins))
		}
	}
}
