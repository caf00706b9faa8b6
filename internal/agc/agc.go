// Package agc implements software automatic gain control for the capture
// path: mono float32 PCM at 16 kHz, processed in the pipeline's 512-sample
// (32 ms) chunks before the denoiser, VAD, and transcription see them.
//
// Dictation microphones vary wildly in level — a quiet laptop mic and a hot
// USB interface should both land near the same RMS by the time the ASR
// front end computes features. The AGC tracks per-chunk RMS and steers a
// multiplicative gain toward the target with asymmetric attack/release
// smoothing, clamped so near-silence is never boosted into audible noise.
package agc

import (
	"dictation/internal/vad"
)

const (
	// DefaultTarget is the desired RMS level (linear, ~-14 dBFS), a
	// comfortable level for both the VAD threshold and ASR features.
	DefaultTarget = 0.20

	// MinGain and MaxGain clamp the correction to ±20 dB.
	MinGain = 0.1
	MaxGain = 10.0

	// AttackCoeff controls how quickly gain is pulled down when a chunk
	// exceeds the target. At 32 ms per chunk (~31 updates/s) this settles
	// in roughly two chunks, fast enough that a shout does not clip the
	// first word of an utterance.
	AttackCoeff = 0.85
	// ReleaseCoeff recovers gain after a loud transient. Kept well below
	// attack so pauses between words do not pump the noise floor up and
	// down within a single recording.
	ReleaseCoeff = 0.03

	// minRMS suppresses gain updates on near-silent chunks; adapting to
	// the noise floor would slowly crank a muted mic up to MaxGain.
	minRMS = 0.001
)

// AGC is a single-channel automatic gain control stage. Zero value is not
// usable; use New(). Not safe for concurrent use — the capture loop is the
// sole caller during a recording.
type AGC struct {
	target float64 // desired RMS level [0.0, 1.0]
	gain   float64 // current linear gain multiplier
}

// New returns an AGC with DefaultTarget and unity gain.
func New() *AGC {
	return &AGC{target: DefaultTarget, gain: 1.0}
}

// SetTarget sets the desired RMS level from a UI slider value in [0, 100],
// mapped linearly onto [0.01, 0.50].
func (a *AGC) SetTarget(level int) {
	if level < 0 {
		level = 0
	}
	if level > 100 {
		level = 100
	}
	a.target = 0.01 + float64(level)/100.0*0.49
}

// Process applies the current gain to chunk in-place, hard-limiting to
// [-1.0, 1.0], then updates the gain estimate from the chunk's pre-gain
// RMS. Returns the same slice for chaining.
func (a *AGC) Process(chunk []float32) []float32 {
	if len(chunk) == 0 {
		return chunk
	}

	rms := float64(vad.RMS(chunk))

	for i, s := range chunk {
		v := s * float32(a.gain)
		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}
		chunk[i] = v
	}

	if rms < minRMS {
		return chunk
	}

	desired := a.target / rms
	if desired < MinGain {
		desired = MinGain
	} else if desired > MaxGain {
		desired = MaxGain
	}

	coeff := ReleaseCoeff
	if desired < a.gain {
		coeff = AttackCoeff
	}
	a.gain += coeff * (desired - a.gain)

	return chunk
}

// Gain returns the current linear gain multiplier (informational).
func (a *AGC) Gain() float64 { return a.gain }

// Reset returns the gain to unity without changing the target. Called at
// the start of every recording so one session's level never leaks into the
// next.
func (a *AGC) Reset() { a.gain = 1.0 }
