package audio

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(freq, rate float64, n int, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/rate)
	}
	return out
}

func TestAnalyserSilenceIsZero(t *testing.T) {
	a := NewAnalyser(DefaultAnalyserConfig())
	bins := make([]uint8, a.BinCount())
	a.ByteFrequencyData(make([]float64, a.Size()), bins)
	for _, b := range bins {
		require.Equal(t, uint8(0), b)
	}
}

func TestAnalyserLowToneFillsLowBins(t *testing.T) {
	cfg := DefaultAnalyserConfig()
	cfg.Smoothing = 0
	a := NewAnalyser(cfg)
	bins := make([]uint8, a.BinCount())

	// bin width at 8kHz/256 is 31.25Hz; 250Hz lands on bin 8
	a.ByteFrequencyData(sine(250, 8000, a.Size(), 0.8), bins)
	assert.Greater(t, bins[8], uint8(200))
	assert.Less(t, bins[100], bins[8])
}

func TestAnalyserShortInputIsPadded(t *testing.T) {
	a := NewAnalyser(DefaultAnalyserConfig())
	bins := make([]uint8, a.BinCount())
	assert.NotPanics(t, func() { a.ByteFrequencyData([]float64{0.5, -0.5}, bins) })
}

func TestLevelBoundedForAnyInput(t *testing.T) {
	a := NewAnalyser(DefaultAnalyserConfig())
	m := NewMeter(DefaultMeterConfig())
	bins := make([]uint8, a.BinCount())
	rng := rand.New(rand.NewSource(7))

	inputs := [][]float64{
		sine(100, 8000, 256, 1e300),
		{math.NaN(), math.Inf(1), math.Inf(-1)},
	}
	for i := 0; i < 50; i++ {
		s := make([]float64, 256)
		for j := range s {
			s[j] = (rng.Float64()*2 - 1) * math.Pow(10, float64(rng.Intn(12)-6))
		}
		inputs = append(inputs, s)
	}

	for _, in := range inputs {
		a.ByteFrequencyData(in, bins)
		v := m.Step(bins)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestSampleBufferSnapshot(t *testing.T) {
	b := NewSampleBuffer(4)
	dst := make([]float64, 3)

	b.WritePCM([]int16{16384})
	b.Snapshot(dst)
	assert.Equal(t, []float64{0, 0, 0.5}, dst)

	b.WritePCM([]int16{-16384, 0, 16384, -32768})
	b.Snapshot(dst)
	assert.Equal(t, []float64{0, 0.5, -1}, dst)
}
