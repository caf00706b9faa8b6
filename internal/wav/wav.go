// Package wav persists recorded audio as 16-bit PCM mono WAV files under the
// app-data recordings/ directory named recording-YYYY-MM-DD-HHMMSS.wav.
package wav

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// FileName returns the recording-YYYY-MM-DD-HHMMSS.wav basename for t.
func FileName(t time.Time) string {
	return fmt.Sprintf("recording-%s.wav", t.Format("2006-01-02-150405"))
}

// Write clamps samples to [-1.0, 1.0], scales to 16-bit PCM, and encodes a
// mono WAV file at sampleRate under dir, creating dir if needed. Returns the
// full path written.
func Write(dir string, t time.Time, sampleRate int, samples []float32) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("wav: create dir: %w", err)
	}
	path := filepath.Join(dir, FileName(t))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("wav: create file: %w", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           toPCM16(samples),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return "", fmt.Errorf("wav: write samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("wav: finalize: %w", err)
	}
	return path, nil
}

// toPCM16 clamps each sample to [-1.0, 1.0] and scales to an int16 range.
func toPCM16(samples []float32) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		out[i] = int(int16(s * 32767))
	}
	return out
}
