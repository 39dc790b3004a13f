package audio

import "sync"

// Scope keeps the most recent output samples (mono, mixed down from
// stereo) in a ring so the UI can draw a waveform without touching the
// render loop's buffers.
type Scope struct {
	mu   sync.Mutex
	ring []float32
	pos  int
	full bool
}

func NewScope(capacity int) *Scope {
	if capacity < 1 {
		capacity = 1
	}
	return &Scope{ring: make([]float32, capacity)}
}

// Push records one stereo frame. Called from the render loop.
func (s *Scope) Push(l, r float32) {
	s.mu.Lock()
	s.ring[s.pos] = (l + r) * 0.5
	s.pos++
	if s.pos >= len(s.ring) {
		s.pos = 0
		s.full = true
	}
	s.mu.Unlock()
}

// Snapshot returns up to n of the most recent samples, oldest first.
// Missing history is zero-padded so the caller always gets n values.
func (s *Scope) Snapshot(n int) []float32 {
	if n < 1 {
		return nil
	}
	out := make([]float32, n)
	s.mu.Lock()
	avail := s.pos
	if s.full {
		avail = len(s.ring)
	}
	if avail > n {
		avail = n
	}
	// Walk backwards from the write head, filling out from the end.
	idx := s.pos
	for i := 0; i < avail; i++ {
		idx--
		if idx < 0 {
			idx = len(s.ring) - 1
		}
		out[n-1-i] = s.ring[idx]
	}
	s.mu.Unlock()
	return out
}
