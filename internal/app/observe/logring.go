package observe

import (
	"sync"

	"github.com/rs/zerolog/log"
)

const DefaultLogCapacity = 200

// LogRing keeps the most recent diagnostics, newest first.
type LogRing struct {
	mu      sync.RWMutex
	entries []string
	cap     int
}

func NewLogRing(capacity int) *LogRing {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &LogRing{cap: capacity}
}

// Add records a diagnostic and mirrors it to the process log.
func (r *LogRing) Add(msg string) {
	log.Info().Str("module", "session.log").Msg(msg)

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) < r.cap {
		r.entries = append(r.entries, "")
	}
	copy(r.entries[1:], r.entries[:len(r.entries)-1])
	r.entries[0] = msg
}

// Entries returns a snapshot, newest first.
func (r *LogRing) Entries() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *LogRing) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
