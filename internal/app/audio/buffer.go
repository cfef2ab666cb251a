package audio

import "sync"

// SampleSource exposes the most recent decoded samples.
type SampleSource interface {
	// Snapshot fills dst with the newest len(dst) samples, zero-padded at the front.
	Snapshot(dst []float64)
}

// SampleBuffer is a fixed size ring of normalized samples in [-1,1].
type SampleBuffer struct {
	mu   sync.Mutex
	ring []float64
	pos  int
	n    int
}

func NewSampleBuffer(size int) *SampleBuffer {
	if size <= 0 {
		size = 2048
	}
	return &SampleBuffer{ring: make([]float64, size)}
}

func (b *SampleBuffer) WritePCM(samples []int16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range samples {
		b.ring[b.pos] = float64(s) / 32768
		b.pos = (b.pos + 1) % len(b.ring)
		if b.n < len(b.ring) {
			b.n++
		}
	}
}

func (b *SampleBuffer) Snapshot(dst []float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	avail := b.n
	if avail > len(dst) {
		avail = len(dst)
	}
	pad := len(dst) - avail
	for i := 0; i < pad; i++ {
		dst[i] = 0
	}
	start := (b.pos - avail + len(b.ring)) % len(b.ring)
	for i := 0; i < avail; i++ {
		dst[pad+i] = b.ring[(start+i)%len(b.ring)]
	}
}
