package main

import (
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/gordonklaus/portaudio"

	"dictation/internal/agc"
	"dictation/internal/audioio"
	"dictation/internal/noisegate"
	"dictation/internal/vad"
)

// AudioDevice describes an available input device, shaped for the frontend.
type AudioDevice struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// micTestFrames is the preview stream's callback chunk size; latency only
// matters for meter responsiveness here, not for recording quality.
const micTestFrames = 512

// MicTester runs a short-lived preview capture stream so the settings UI
// can show a live input level before the user commits to a recording. The
// preview path reuses the capture-side conditioning stages (noise gate,
// AGC) so the meter reflects what a recording would actually hear.
type MicTester struct {
	mu      sync.Mutex
	stream  *portaudio.Stream
	stop    chan struct{}
	done    chan struct{}
	running bool

	gate *noisegate.Gate
	gain *agc.AGC

	levelMu sync.Mutex
	level   float64
}

// NewMicTester returns an idle MicTester.
func NewMicTester() *MicTester {
	return &MicTester{
		gate: noisegate.New(),
		gain: agc.New(),
	}
}

// Start opens a preview stream on deviceID (-1 for the default input),
// conditioned with the same gate/AGC flags the recording pipeline uses.
// Starting while already running restarts on the requested device.
func (m *MicTester) Start(deviceID int, gateEnabled, agcEnabled bool) error {
	m.Stop()

	m.mu.Lock()
	defer m.mu.Unlock()

	devices, err := portaudio.Devices()
	if err != nil {
		return fmt.Errorf("mic test: list devices: %w", err)
	}
	var dev *portaudio.DeviceInfo
	if deviceID >= 0 && deviceID < len(devices) {
		dev = devices[deviceID]
	} else if dev, err = portaudio.DefaultInputDevice(); err != nil {
		return fmt.Errorf("mic test: no input device: %w", err)
	}

	buf := make([]float32, micTestFrames)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(audioio.TargetSampleRate),
		FramesPerBuffer: micTestFrames,
	}, buf)
	if err != nil {
		return fmt.Errorf("mic test: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("mic test: start stream: %w", err)
	}

	m.stream = stream
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	m.running = true
	m.gate.SetEnabled(gateEnabled)
	m.gate.Reset()
	m.gain.Reset()

	go m.meterLoop(buf, agcEnabled, m.stop, m.done)
	return nil
}

// Stop closes the preview stream. Safe to call when not running.
func (m *MicTester) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	close(m.stop)
	m.running = false
	stream := m.stream
	done := m.done
	m.mu.Unlock()

	<-done
	stream.Stop()
	stream.Close()

	m.levelMu.Lock()
	m.level = 0
	m.levelMu.Unlock()
}

// Level returns the most recent meter level: the post-conditioning RMS
// scaled by 3 and clamped to [0, 1].
func (m *MicTester) Level() float64 {
	m.levelMu.Lock()
	defer m.levelMu.Unlock()
	return m.level
}

func (m *MicTester) meterLoop(buf []float32, agcEnabled bool, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		default:
		}

		if err := m.stream.Read(); err != nil {
			log.Printf("mic test: read: %v", err)
			return
		}

		frame := buf
		m.gate.Process(frame) // passes through untouched when disabled
		if agcEnabled {
			frame = m.gain.Process(frame)
		}

		level := math.Min(1.0, float64(vad.RMS(frame))*3) // scaled so normal speech fills most of the meter
		m.levelMu.Lock()
		m.level = level
		m.levelMu.Unlock()
	}
}
