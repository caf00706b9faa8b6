// Package shutdown provides a single process-wide cooperative shutdown
// signal. The orchestrator's run loop selects on Done(), and the orchestrator
// and router check Fired() before starting a new transcription or delivering
// text. The capture loop and the transcription executor do not read the
// signal; they are stopped through Capture.Stop and context cancellation.
package shutdown

import "sync"

// Signal is a one-shot, idempotent shutdown flag.
type Signal struct {
	once sync.Once
	ch   chan struct{}
	init sync.Once
}

// New returns a Signal that has not yet fired.
func New() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Fire closes Done(), waking every waiter. Safe to call multiple times or
// concurrently; only the first call has effect.
func (s *Signal) Fire() {
	s.once.Do(func() { close(s.ch) })
}

// Done returns a channel that is closed once Fire has been called.
func (s *Signal) Done() <-chan struct{} {
	return s.ch
}

// Fired reports whether Fire has already been called, without blocking.
func (s *Signal) Fired() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}
