// Package recording owns the one-writer audio buffer, the Idle/Recording/
// Processing state machine, and the "last completed recording" retention
// slot. It has no knowledge of hotkeys, denoising, or transcription — those
// are driven by the orchestrator against the operations exposed here.
package recording

import (
	"errors"
	"strconv"
	"sync"
	"time"
)

// ErrInvalidTransition is returned when an operation is attempted from a
// state that does not permit it. State is left unmodified.
var ErrInvalidTransition = errors.New("recording: invalid state transition")

// State is one of Idle, Recording, or Processing.
type State int

const (
	Idle State = iota
	Recording
	Processing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Processing:
		return "processing"
	default:
		return "unknown"
	}
}

// StopReason enumerates why a recording ended. The zero value is never a
// valid reason on an emitted event — callers always set one explicitly.
type StopReason int

const (
	_ StopReason = iota
	BufferFull
	LockError
	StreamError
	ResampleOverflow
	SilenceAfterSpeech
	NoSpeechTimeout
	UserStop
	UserCancel
)

func (r StopReason) String() string {
	switch r {
	case BufferFull:
		return "BufferFull"
	case LockError:
		return "LockError"
	case StreamError:
		return "StreamError"
	case ResampleOverflow:
		return "ResampleOverflow"
	case SilenceAfterSpeech:
		return "SilenceAfterSpeech"
	case NoSpeechTimeout:
		return "NoSpeechTimeout"
	case UserStop:
		return "UserStop"
	case UserCancel:
		return "UserCancel"
	default:
		return "Unknown"
	}
}

// SampleRate is the pipeline-wide normalized sample rate; every buffer
// downstream of capture is at this rate.
const SampleRate = 16000

// MaxSamples is the 10-minute hard cap on a single recording's buffer.
const MaxSamples = SampleRate * 60 * 10

// AudioBuffer is an ordered sequence of f32 samples for one recording. The
// audio callback is the sole writer; every other reader must go through
// TryAppend or the read-only accessors, never mutate Samples directly.
type AudioBuffer struct {
	mu         sync.Mutex
	samples    []float32
	sampleRate int
}

// NewAudioBuffer returns an empty buffer for sampleRate (always 16000 once
// normalized, but kept as a parameter so tests can exercise other rates).
func NewAudioBuffer(sampleRate int) *AudioBuffer {
	return &AudioBuffer{sampleRate: sampleRate}
}

// TryAppend attempts to append samples without blocking. If the buffer is
// contended, it returns false immediately (LockError semantics belong to the
// caller — this method only reports contention, it never blocks).
func (b *AudioBuffer) TryAppend(samples []float32) (full bool, ok bool) {
	if !b.mu.TryLock() {
		return false, false
	}
	defer b.mu.Unlock()

	room := MaxSamples - len(b.samples)
	if room <= 0 {
		return true, true
	}
	if len(samples) > room {
		b.samples = append(b.samples, samples[:room]...)
		return true, true
	}
	b.samples = append(b.samples, samples...)
	return false, true
}

// Len returns the current sample count.
func (b *AudioBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// Snapshot returns a copy of the accumulated samples.
func (b *AudioBuffer) Snapshot() []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]float32, len(b.samples))
	copy(out, b.samples)
	return out
}

// SampleRate returns the buffer's sample rate.
func (b *AudioBuffer) SampleRate() int { return b.sampleRate }

// Artifact is the completed artifact of one Recording->Processing pass.
type Artifact struct {
	ID         string
	Buffer     *AudioBuffer
	StopReason StopReason
	Duration   time.Duration
	StartedAt  time.Time
}

// Machine owns the current state, the active buffer, and the retained last
// recording. All transitions are serialized by mu; mu is held only across
// the transition itself, never across I/O or inference.
type Machine struct {
	mu      sync.Mutex
	state   State
	active  *Artifact
	last    *Artifact
	nextID  uint64
}

// New returns a Machine in the Idle state.
func New() *Machine {
	return &Machine{state: Idle}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// StartRecording allocates a fresh buffer and transitions Idle->Recording.
// Permitted only from Idle.
func (m *Machine) StartRecording(sampleRate int) (*AudioBuffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Idle {
		return nil, ErrInvalidTransition
	}
	m.nextID++
	buf := NewAudioBuffer(sampleRate)
	m.active = &Artifact{
		ID:        recordingID(m.nextID),
		Buffer:    buf,
		StartedAt: now(),
	}
	m.state = Recording
	return buf, nil
}

// TransitionTo enforces the legal-transition table:
//
//	Idle      -> Recording  (start_recording only)
//	Recording -> Processing (stop)
//	Processing-> Idle       (transcription done)
//	Recording -> Idle       (abort/cancel only)
//
// Any other source/target pair fails without mutating state.
func (m *Machine) TransitionTo(target State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionLocked(target)
}

func (m *Machine) transitionLocked(target State) error {
	switch {
	case m.state == Recording && target == Processing:
	case m.state == Processing && target == Idle:
	case m.state == Recording && target == Idle:
	default:
		return ErrInvalidTransition
	}
	m.state = target
	return nil
}

// StopRecording moves Recording->Processing, snapshots the active recording
// with the given reason/duration, and returns it. The active slot is
// retained internally until FinishProcessing or AbortRecording resolves it.
func (m *Machine) StopRecording(reason StopReason) (*Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Recording {
		return nil, ErrInvalidTransition
	}
	if err := m.transitionLocked(Processing); err != nil {
		return nil, err
	}
	m.active.StopReason = reason
	m.active.Duration = now().Sub(m.active.StartedAt)
	return m.active, nil
}

// FinishProcessing transitions Processing->Idle. On success it first
// promotes the active recording to "last" and then clears the active slot;
// on failure (wrong source state) neither slot is mutated.
func (m *Machine) FinishProcessing() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Processing {
		return ErrInvalidTransition
	}
	if err := m.transitionLocked(Idle); err != nil {
		return err
	}
	m.last = m.active
	m.active = nil
	return nil
}

// AbortRecording discards the active buffer without promoting it to "last".
// Valid from Recording or Processing back to Idle; used only by cancel.
func (m *Machine) AbortRecording() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Recording && m.state != Processing {
		return ErrInvalidTransition
	}
	m.state = Idle
	m.active = nil
	return nil
}

// GetAudioBuffer returns the active buffer iff state is Recording or
// Processing; nil otherwise.
func (m *Machine) GetAudioBuffer() *AudioBuffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Recording && m.state != Processing {
		return nil
	}
	return m.active.Buffer
}

// GetLastRecording returns the retained post-completion recording, or nil.
func (m *Machine) GetLastRecording() *Artifact {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// ClearLastRecording releases the retained recording.
func (m *Machine) ClearLastRecording() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = nil
}

// now is a seam for deterministic tests.
var now = time.Now

func recordingID(n uint64) string {
	return "rec-" + strconv.FormatUint(n, 10)
}
