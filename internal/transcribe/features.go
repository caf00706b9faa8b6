package transcribe

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// featureFrameSize matches the denoiser's 512-sample frame; the ASR
// encoder's input features hop by 256 samples (50% overlap), not by the
// denoiser's 128.
const (
	featureFrameSize = 512
	featureHopSize   = 256
)

// extractFeatures turns raw 16 kHz mono samples into a sequence of
// encoderHiddenSize-wide frames (zero-padded magnitude spectra) for the
// encoder graph. sampleRate is accepted for interface symmetry with Model;
// the pipeline normalizes everything to 16 kHz upstream.
func extractFeatures(samples []float32, sampleRate int) []float32 {
	if len(samples) == 0 {
		return make([]float32, encoderHiddenSize)
	}

	window := hannWindow(featureFrameSize)
	var out []float32
	for start := 0; start+featureFrameSize <= len(samples) || start == 0; start += featureHopSize {
		end := start + featureFrameSize
		frame := make([]float64, featureFrameSize)
		for i := 0; i < featureFrameSize; i++ {
			idx := start + i
			if idx < len(samples) {
				frame[i] = float64(samples[idx]) * float64(window[i])
			}
		}
		spectrum := fft.FFTReal(frame)
		bins := featureFrameSize/2 + 1
		frameOut := make([]float32, encoderHiddenSize)
		for i := 0; i < bins && i < encoderHiddenSize; i++ {
			frameOut[i] = float32(math.Hypot(real(spectrum[i]), imag(spectrum[i])))
		}
		out = append(out, frameOut...)
		if end >= len(samples) {
			break
		}
	}
	if len(out) == 0 {
		out = make([]float32, encoderHiddenSize)
	}
	return out
}

func hannWindow(n int) []float32 {
	w := make([]float32, n)
	for i := 0; i < n; i++ {
		w[i] = float32(0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n))))
	}
	return w
}
