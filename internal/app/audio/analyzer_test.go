package audio

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/dkeye/VoiceLink/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type toneSource struct {
	calls atomic.Int64
	amp   float64
}

func (s *toneSource) Snapshot(dst []float64) {
	s.calls.Add(1)
	copy(dst, sine(250, 8000, len(dst), s.amp))
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.FrameRate = 200
	return cfg
}

func TestAnalyzerPublishesLevel(t *testing.T) {
	a := NewAnalyzer(fastConfig())
	a.Attach(&toneSource{amp: 0.9})
	defer a.Detach()

	require.Eventually(t, func() bool { return a.Level().Get() > 0.1 }, 2*time.Second, 5*time.Millisecond)
	assert.LessOrEqual(t, a.Level().Get(), 1.0)
}

func TestAnalyzerReattachReplacesLoop(t *testing.T) {
	a := NewAnalyzer(fastConfig())
	first := &toneSource{amp: 0.9}
	second := &toneSource{amp: 0.9}

	a.Attach(first)
	require.Eventually(t, func() bool { return first.calls.Load() > 0 }, 2*time.Second, 5*time.Millisecond)
	a.Attach(second)

	stopped := first.calls.Load()
	require.Eventually(t, func() bool { return second.calls.Load() > 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, stopped, first.calls.Load())

	a.Detach()
}

func TestAnalyzerDetachResetsLevel(t *testing.T) {
	a := NewAnalyzer(fastConfig())
	src := &toneSource{amp: 0.9}
	a.Attach(src)
	require.Eventually(t, func() bool { return a.Level().Get() > 0 }, 2*time.Second, 5*time.Millisecond)

	a.Detach()
	assert.Equal(t, 0.0, a.Level().Get())

	calls := src.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, src.calls.Load())
	assert.Equal(t, 0.0, a.Level().Get())
}

func TestAnalyzerDetachWithoutAttach(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())
	assert.NotPanics(t, func() {
		a.Detach()
		a.Detach()
	})
	assert.Equal(t, 0.0, a.Level().Get())
}

func TestAnalyzerSilentSourceSettlesAtZero(t *testing.T) {
	a := NewAnalyzer(fastConfig())
	a.Attach(&toneSource{amp: 0})
	defer a.Detach()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0.0, a.Level().Get())
}

func TestConfigFromAudioSection(t *testing.T) {
	cfg := ConfigFrom(config.AudioConfig{
		FFTSize: 256, Smoothing: 0.8, MinDecibels: -100, MaxDecibels: -30,
		Bins: 20, Exponent: 0.5, Gain: 1.5, SilenceEpsilon: 0.02, SilenceFrames: 8, FrameRate: 60,
	})
	assert.Equal(t, DefaultConfig(), cfg)
}
