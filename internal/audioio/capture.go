// Package audioio implements the audio capture backend: it acquires
// microphone samples, normalizes them to 16 kHz mono f32, and delivers
// them to the recording buffer and a separate tee'd frame stream for the
// denoiser/VAD — never by reading the buffer's own ring, which can wrap
// during long recordings.
package audioio

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"dictation/internal/agc"
	"dictation/internal/noisegate"
	"dictation/internal/recording"
)

// TargetSampleRate is the pipeline-wide normalized capture rate.
const TargetSampleRate = recording.SampleRate

// FramesPerBuffer is the PortAudio callback chunk size. It is not the
// denoiser/VAD frame size (512) — downstream consumers re-chunk as needed.
const FramesPerBuffer = 512

// resampleIntakeCap bounds the raw intake buffer used when the device's
// native rate differs from 16 kHz: roughly 3 s at 48 kHz.
const resampleIntakeCap = 3 * 48000

// Sentinel capture errors.
var (
	ErrNoDevice     = errors.New("audioio: no input device available")
	ErrDeviceError  = errors.New("audioio: device error")
	ErrStreamError  = errors.New("audioio: stream error")
	ErrAlreadyStart = errors.New("audioio: capture already in progress")
)

// Device describes a selectable input device.
type Device struct {
	ID   int
	Name string
}

type paStream interface {
	Start() error
	Stop() error
	Close() error
	Read() error
}

// Capture is the real-time audio capture backend. One Capture instance is
// reused across recordings (Start/Stop), never recreated per recording.
type Capture struct {
	mu      sync.Mutex
	running bool

	deviceID int // -1 = default
	stream   paStream
	nativeSR float64

	stopCh chan struct{}
	wg     sync.WaitGroup

	// intake buffers raw native-rate samples between callbacks when
	// resampling is needed; its monotonic push counter is fresh per
	// recording.
	intake *recording.CircularBuffer

	// Conditioning stages applied to every chunk before the tee and the
	// buffer append, so the denoiser, VAD, and recorded audio all see the
	// same gated/leveled signal. The atomics let config changes land
	// mid-recording without the capture loop taking a lock.
	gate        *noisegate.Gate
	gain        *agc.AGC
	gateEnabled atomic.Bool
	agcEnabled  atomic.Bool
}

// New returns an idle Capture using the default input device, with
// conditioning disabled until SetConditioning is called.
func New() *Capture {
	return &Capture{
		deviceID: -1,
		gate:     noisegate.New(),
		gain:     agc.New(),
	}
}

// SetConditioning enables or disables the noise gate and AGC stages.
func (c *Capture) SetConditioning(gateOn, agcOn bool) {
	c.gateEnabled.Store(gateOn)
	c.agcEnabled.Store(agcOn)
}

// SetDevice selects an input device by ID, or -1 for the system default.
func (c *Capture) SetDevice(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deviceID = id
}

// ListDevices enumerates available input devices.
func ListDevices() ([]Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceError, err)
	}
	var out []Device
	for i, d := range devices {
		if d.MaxInputChannels > 0 {
			out = append(out, Device{ID: i, Name: d.Name})
		}
	}
	return out, nil
}

// Start acquires the configured input device and begins streaming 16 kHz
// mono f32 samples into buffer. frames receives the same (post-resample,
// pre-append) samples for the denoiser/VAD tap. stopSignal receives exactly
// one StopReason if the backend has to end the recording on its own
// (BufferFull, LockError, StreamError, ResampleOverflow); it is never
// written to on a clean Stop(). Calling Start while already capturing
// returns ErrAlreadyStart — capture-in-progress is never silently
// re-initialized.
func (c *Capture) Start(buffer *recording.AudioBuffer, frames chan<- []float32, stopSignal chan<- recording.StopReason) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return ErrAlreadyStart
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceError, err)
	}

	inputDev, err := resolveDevice(devices, c.deviceID)
	if err != nil {
		return err
	}
	if inputDev.MaxInputChannels < 1 {
		return ErrNoDevice
	}

	capBuf := make([]float32, FramesPerBuffer)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   inputDev,
			Channels: 1,
			Latency:  inputDev.DefaultLowInputLatency,
		},
		SampleRate:      float64(TargetSampleRate),
		FramesPerBuffer: FramesPerBuffer,
	}
	stream, err := portaudio.OpenStream(params, capBuf)
	nativeSR := float64(TargetSampleRate)
	if err != nil {
		// Device doesn't support 16 kHz natively: fall back to its default
		// rate and resample in the callback loop.
		params.SampleRate = inputDev.DefaultSampleRate
		nativeSR = inputDev.DefaultSampleRate
		stream, err = portaudio.OpenStream(params, capBuf)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStreamError, err)
		}
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("%w: %v", ErrStreamError, err)
	}

	c.stream = stream
	c.nativeSR = nativeSR
	c.stopCh = make(chan struct{})
	c.running = true
	c.gate.Reset()
	c.gain.Reset()
	if nativeSR != float64(TargetSampleRate) {
		c.intake = recording.NewCircularBuffer(resampleIntakeCap)
	} else {
		c.intake = nil
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.captureLoop(capBuf, buffer, frames, stopSignal)
	}()
	return nil
}

// Stop signals the capture loop to quiesce, waits for the loop to exit, and
// then stops and closes the stream, all before returning. It does not
// return immediately. Safe to call when not capturing.
func (c *Capture) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	close(c.stopCh)
	c.running = false
	stream := c.stream
	c.mu.Unlock()

	c.wg.Wait()
	if stream != nil {
		stream.Stop()
		stream.Close()
	}
}

func resolveDevice(devices []*portaudio.DeviceInfo, id int) (*portaudio.DeviceInfo, error) {
	if id >= 0 && id < len(devices) {
		return devices[id], nil
	}
	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	return dev, nil
}

// captureLoop is the "real-time thread": it must never block on a
// contended lock, allocate unboundedly, or log synchronously — on
// contention it drops the chunk and reports LockError instead.
func (c *Capture) captureLoop(buf []float32, buffer *recording.AudioBuffer, frames chan<- []float32, stopSignal chan<- recording.StopReason) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("audioio: capture callback panic recovered: %v", r)
			trySignal(stopSignal, recording.StreamError)
		}
	}()

	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		if err := c.stream.Read(); err != nil {
			trySignal(stopSignal, recording.StreamError)
			return
		}

		chunk := c.toTargetRate(buf)
		if chunk == nil {
			trySignal(stopSignal, recording.ResampleOverflow)
			return
		}
		if len(chunk) == 0 {
			continue
		}

		c.condition(chunk)

		select {
		case frames <- append([]float32(nil), chunk...):
		default:
			// Tee consumer (denoiser/VAD feeder) is slower than capture;
			// drop this chunk for the tap only, the buffer append below
			// still happens so the final audio is complete.
		}

		full, ok := buffer.TryAppend(chunk)
		if !ok {
			trySignal(stopSignal, recording.LockError)
			continue
		}
		if full {
			trySignal(stopSignal, recording.BufferFull)
			return
		}
	}
}

// condition runs the noise gate and AGC over chunk in-place. Both stages
// are plain per-sample math with no allocation or locking, so they are safe
// inside the capture loop's no-blocking budget.
func (c *Capture) condition(chunk []float32) {
	if c.gateEnabled.Load() {
		c.gate.Process(chunk)
	}
	if c.agcEnabled.Load() {
		c.gain.Process(chunk)
	}
}

// toTargetRate returns buf resampled to 16 kHz, or nil if the resample
// intake overflowed its bound (samples were overwritten before they could
// be resampled).
func (c *Capture) toTargetRate(buf []float32) []float32 {
	if c.intake == nil {
		return buf
	}

	if dropped := c.intake.Push(buf); dropped > 0 {
		return nil
	}
	return linearResample(c.intake.Drain(), c.nativeSR, float64(TargetSampleRate))
}

func trySignal(stopSignal chan<- recording.StopReason, reason recording.StopReason) {
	select {
	case stopSignal <- reason:
	default:
	}
}
