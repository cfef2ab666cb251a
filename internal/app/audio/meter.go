package audio

import "math"

type MeterConfig struct {
	// Bins is how many low-frequency bins are averaged.
	Bins           int
	Exponent       float64
	Gain           float64
	SilenceEpsilon float64
	// SilenceFrames is the number of consecutive quiet frames after which the level is forced to 0.
	SilenceFrames int
}

func DefaultMeterConfig() MeterConfig {
	return MeterConfig{Bins: 20, Exponent: 0.5, Gain: 1.5, SilenceEpsilon: 0.02, SilenceFrames: 8}
}

// Meter maps frequency bins to a perceptual level in [0,1].
// Rises are reported immediately; quiet is only reported as exact 0 after SilenceFrames frames.
type Meter struct {
	cfg    MeterConfig
	silent int
}

func NewMeter(cfg MeterConfig) *Meter {
	if cfg.Bins <= 0 {
		cfg.Bins = 20
	}
	if cfg.Exponent <= 0 || cfg.Exponent >= 1 {
		cfg.Exponent = 0.5
	}
	if cfg.Gain <= 0 {
		cfg.Gain = 1
	}
	if cfg.SilenceFrames <= 0 {
		cfg.SilenceFrames = 1
	}
	return &Meter{cfg: cfg}
}

func (m *Meter) Step(bins []uint8) float64 {
	n := m.cfg.Bins
	if n > len(bins) {
		n = len(bins)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(bins[i])
	}
	var v float64
	if n > 0 {
		v = sum / float64(n) / 255
	}
	v = clamp(math.Pow(v, m.cfg.Exponent)*m.cfg.Gain, 0, 1)

	if v < m.cfg.SilenceEpsilon {
		m.silent++
		if m.silent >= m.cfg.SilenceFrames {
			return 0
		}
		return v
	}
	m.silent = 0
	return v
}

func (m *Meter) Reset() { m.silent = 0 }
