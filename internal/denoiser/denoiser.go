// Package denoiser implements a two-stage neural noise suppressor: a
// frequency-domain magnitude mask (stage 1) followed by a
// time-domain refinement (stage 2), both stateful LSTMs, reconstructed with
// Hann-windowed overlap-add at 75% overlap.
package denoiser

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// FrameSize is 32 ms at 16 kHz.
const FrameSize = 512

// HopSize is the 8 ms stride between frames (75% overlap).
const HopSize = 128

// FFTBins is FrameSize/2 + 1, the real-FFT bin count.
const FFTBins = FrameSize/2 + 1

// LSTMStateLen is the flattened length of the (1, 2, 128, 2)-shaped LSTM
// hidden+cell state each stage carries between frames.
const LSTMStateLen = 1 * 2 * 128 * 2

// Stage runs one of the two DTLN-style model graphs: it consumes the
// current frame plus carried state and returns the model's output for this
// frame along with the updated state. Implementations are not required to
// be safe for concurrent use — Denoiser serializes all access, and the
// orchestrator wraps a single shared Denoiser instance in a mutex in turn.
type Stage interface {
	// Run executes one frame of inference. input is FFTBins (stage 1,
	// magnitude spectrum) or FrameSize (stage 2, time-domain) long; state
	// is LSTMStateLen long. Returns the model output and the next state.
	Run(input []float32, state []float32) (output []float32, nextState []float32, err error)
	Close() error
}

// Denoiser holds the accumulation buffers, carried LSTM states, and window
// coefficients for the two-stage pipeline. Not thread-safe: exactly one
// shared instance is reused across recordings (model load is multi-second),
// with a single external mutex serializing the audio-processing path that
// calls Process/Reset.
type Denoiser struct {
	stage1, stage2 Stage

	window []float32

	intake []float32   // accumulates input samples until a full frame is available
	output []float32   // overlap-add accumulator, length FrameSize
	state1 []float32
	state2 []float32
}

// New returns a Denoiser wrapping the two stage models, with zeroed LSTM
// states and a fresh Hann window.
func New(stage1, stage2 Stage) *Denoiser {
	d := &Denoiser{
		stage1: stage1,
		stage2: stage2,
		window: hannWindow(FrameSize),
		output: make([]float32, FrameSize),
		state1: make([]float32, LSTMStateLen),
		state2: make([]float32, LSTMStateLen),
	}
	return d
}

// Reset zeroes both LSTM states and both intake/output buffers. Must be
// called exactly once at the start of every recording, never mid-stream —
// recurrent state must never leak across recordings.
func (d *Denoiser) Reset() {
	d.intake = d.intake[:0]
	for i := range d.output {
		d.output[i] = 0
	}
	for i := range d.state1 {
		d.state1[i] = 0
	}
	for i := range d.state2 {
		d.state2[i] = 0
	}
}

// Process accumulates samples and runs every complete frame through the
// two-stage pipeline, returning whatever ready output the overlap-add
// reconstruction has produced so far (possibly empty, due to pipeline
// latency). A frame whose inference fails is substituted with the
// original, un-denoised samples for that frame only — the recording is
// never aborted and no frame is ever dropped.
func (d *Denoiser) Process(samples []float32) []float32 {
	d.intake = append(d.intake, samples...)

	var ready []float32
	for len(d.intake) >= FrameSize {
		frame := d.intake[:FrameSize]
		processed := d.processFrame(frame)

		for i, s := range processed {
			d.output[i] += s
		}

		ready = append(ready, d.output[:HopSize]...)

		copy(d.output, d.output[HopSize:])
		for i := FrameSize - HopSize; i < FrameSize; i++ {
			d.output[i] = 0
		}
		d.intake = d.intake[HopSize:]
	}
	return ready
}

func (d *Denoiser) processFrame(frame []float32) []float32 {
	windowed := make([]float32, FrameSize)
	for i, s := range frame {
		windowed[i] = s * d.window[i]
	}

	spectrum := fft.FFTReal(toFloat64(windowed))
	magnitude := make([]float32, FFTBins)
	phase := make([]float32, FFTBins)
	for i := 0; i < FFTBins; i++ {
		magnitude[i] = float32(cmplxAbs(spectrum[i]))
		phase[i] = float32(cmplxPhase(spectrum[i]))
	}

	maskedMagnitude := magnitude
	mask, nextState1, err := d.stage1.Run(magnitude, d.state1)
	if err == nil {
		maskedMagnitude = make([]float32, FFTBins)
		for i := range magnitude {
			m := float32(1.0)
			if i < len(mask) {
				m = mask[i]
			}
			maskedMagnitude[i] = magnitude[i] * m
		}
		d.state1 = nextState1
	}
	// On stage-1 failure, maskedMagnitude stays equal to the original
	// magnitude (an identity mask) — substitute the noisy frame, don't
	// drop it, and keep the previous state for the next call.

	full := make([]complex128, FrameSize)
	for i := 0; i < FFTBins; i++ {
		c := polarToComplex(float64(maskedMagnitude[i]), float64(phase[i]))
		full[i] = c
		if i > 0 && i < FFTBins-1 {
			full[FrameSize-i] = complexConj(c)
		}
	}
	timeDomain32 := toFloat32(fft.IFFT(full))

	refined := timeDomain32
	if out2, nextState2, err2 := d.stage2.Run(timeDomain32, d.state2); err2 == nil {
		refined = out2
		d.state2 = nextState2
	}
	// Same per-frame-only fallback as stage 1: use the (already
	// stage-1-processed) time-domain frame as-is.

	synthesized := make([]float32, FrameSize)
	for i := 0; i < FrameSize && i < len(refined); i++ {
		synthesized[i] = refined[i] * d.window[i]
	}
	return synthesized
}

func hannWindow(n int) []float32 {
	w := make([]float32, n)
	for i := 0; i < n; i++ {
		w[i] = float32(0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n))))
	}
	return w
}

func toFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func toFloat32(in []complex128) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(real(v))
	}
	return out
}

func cmplxAbs(c complex128) float64   { return math.Hypot(real(c), imag(c)) }
func cmplxPhase(c complex128) float64 { return math.Atan2(imag(c), real(c)) }

func polarToComplex(mag, phase float64) complex128 {
	return complex(mag*math.Cos(phase), mag*math.Sin(phase))
}

func complexConj(c complex128) complex128 { return complex(real(c), -imag(c)) }
