// Package audio derives a normalized intensity signal from inbound session audio.
package audio

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

type AnalyserConfig struct {
	FFTSize     int
	Smoothing   float64
	MinDecibels float64
	MaxDecibels float64
}

func DefaultAnalyserConfig() AnalyserConfig {
	return AnalyserConfig{FFTSize: 256, Smoothing: 0.8, MinDecibels: -100, MaxDecibels: -30}
}

// Analyser turns a window of time-domain samples into byte-scaled frequency bins,
// with the same windowing, smoothing and decibel mapping as a browser AnalyserNode.
type Analyser struct {
	cfg      AnalyserConfig
	fft      *fourier.FFT
	window   []float64
	frame    []float64
	coeffs   []complex128
	smoothed []float64
}

func NewAnalyser(cfg AnalyserConfig) *Analyser {
	if cfg.FFTSize < 32 || cfg.FFTSize&(cfg.FFTSize-1) != 0 {
		cfg.FFTSize = 256
	}
	if cfg.MaxDecibels <= cfg.MinDecibels {
		cfg.MinDecibels, cfg.MaxDecibels = -100, -30
	}
	cfg.Smoothing = clamp(cfg.Smoothing, 0, 1)

	n := cfg.FFTSize
	window := make([]float64, n)
	for i := range window {
		x := 2 * math.Pi * float64(i) / float64(n)
		window[i] = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
	}
	return &Analyser{
		cfg:      cfg,
		fft:      fourier.NewFFT(n),
		window:   window,
		frame:    make([]float64, n),
		coeffs:   make([]complex128, n/2+1),
		smoothed: make([]float64, n/2),
	}
}

func (a *Analyser) Size() int     { return a.cfg.FFTSize }
func (a *Analyser) BinCount() int { return a.cfg.FFTSize / 2 }

// ByteFrequencyData analyses the last Size() samples and writes BinCount() bins into dst.
// Missing samples are treated as silence.
func (a *Analyser) ByteFrequencyData(samples []float64, dst []uint8) {
	n := a.cfg.FFTSize
	offset := len(samples) - n
	for i := 0; i < n; i++ {
		var s float64
		if j := offset + i; j >= 0 {
			s = samples[j]
		}
		if math.IsNaN(s) || math.IsInf(s, 0) {
			s = 0
		}
		a.frame[i] = s * a.window[i]
	}

	a.coeffs = a.fft.Coefficients(a.coeffs, a.frame)

	span := a.cfg.MaxDecibels - a.cfg.MinDecibels
	tau := a.cfg.Smoothing
	for k := 0; k < len(a.smoothed) && k < len(dst); k++ {
		mag := math.Hypot(real(a.coeffs[k]), imag(a.coeffs[k])) / float64(n)
		a.smoothed[k] = tau*a.smoothed[k] + (1-tau)*mag

		db := a.cfg.MinDecibels
		if a.smoothed[k] > 0 {
			db = 20 * math.Log10(a.smoothed[k])
		}
		v := 255 * (db - a.cfg.MinDecibels) / span
		dst[k] = uint8(clamp(v, 0, 255))
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
