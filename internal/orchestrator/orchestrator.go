// Package orchestrator implements the recording control plane that interprets hotkey events, drives the
// recording state machine, wires capture into the buffer, feeds frames to
// the denoiser/VAD, and hands completed recordings to the transcription
// executor and output router. It is the single owner of every other
// component handle — detectors and capture publish onto channels the
// orchestrator drains, never the reverse.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"dictation/internal/denoiser"
	"dictation/internal/hotkey"
	"dictation/internal/recording"
	"dictation/internal/router"
	"dictation/internal/shutdown"
	"dictation/internal/transcribe"
	"dictation/internal/vad"
)

// Capture abstracts the audio capture backend (internal/audioio.Capture)
// so the orchestrator can be tested without a real audio device.
type Capture interface {
	Start(buffer *recording.AudioBuffer, frames chan<- []float32, stopSignal chan<- recording.StopReason) error
	Stop()
}

// Recorder persists a completed recording's audio, e.g. to a WAV file.
// Returns the path written, or "" if persistence is disabled.
type Recorder func(sampleRate int, samples []float32) (string, error)

// Config tunes the orchestrator's behavior; zero values fall back to the
// documented defaults.
type Config struct {
	Mode              hotkey.Mode
	DebounceMs        int
	DoubleTapWindowMs int
	SilenceEnabled    bool
	DenoiserEnabled   bool
	CaptureStopWait   time.Duration // bounded wait for capture to quiesce on stop (default 500ms)
}

// DefaultCaptureStopWait bounds how long the stop path waits for capture
// to quiesce before proceeding anyway.
const DefaultCaptureStopWait = 500 * time.Millisecond

// Orchestrator ties C1-C5 and C7-C8 together behind the state machine (C4).
type Orchestrator struct {
	cfg Config

	machine    *recording.Machine
	capture    Capture
	denoiserMu sync.Mutex
	denoiser   *denoiser.Denoiser
	vadDet     *vad.Detector
	hotkeyDisp *hotkey.Dispatcher
	hotkeySrc  *hotkey.Source
	doubleTap  *hotkey.DoubleTapDetector
	transcribe *transcribe.Executor
	router     *router.Router
	shutdown   *shutdown.Signal
	events     EventSink
	recorder   Recorder

	frames     chan []float32
	stopSignal chan recording.StopReason

	commands chan command

	runCtx       context.Context
	feederCancel context.CancelFunc
	feederDone   chan struct{}
}

// command is a control request injected into the Run loop from another
// goroutine (typically a UI binding). Keeping these on a channel means the
// loop goroutine stays the sole mutator of feeder/escape bookkeeping.
type command int

const (
	cmdStart command = iota
	cmdStop
	cmdCancel
)

// New returns an Orchestrator wiring together every component. capture,
// denoise, vadDet, and transcribeExec must already be constructed (model
// loading is multi-second work that happens once at process startup,
// never per-recording). recorder may be nil to disable WAV persistence.
func New(
	cfg Config,
	capture Capture,
	denoise *denoiser.Denoiser,
	vadDet *vad.Detector,
	hotkeySrc *hotkey.Source,
	transcribeExec *transcribe.Executor,
	rtr *router.Router,
	shutdownSignal *shutdown.Signal,
	events EventSink,
	recorder Recorder,
) *Orchestrator {
	if events == nil {
		events = NopEventSink{}
	}
	o := &Orchestrator{
		cfg:        cfg,
		machine:    recording.New(),
		capture:    capture,
		denoiser:   denoise,
		vadDet:     vadDet,
		hotkeySrc:  hotkeySrc,
		hotkeyDisp: hotkey.NewDispatcher(cfg.Mode, time.Duration(cfg.DebounceMs)*time.Millisecond),
		transcribe: transcribeExec,
		router:     rtr,
		shutdown:   shutdownSignal,
		events:     events,
		recorder:   recorder,
		frames:     make(chan []float32, 8),
		stopSignal: make(chan recording.StopReason, 1),
		commands:   make(chan command, 4),
	}
	o.doubleTap = hotkey.NewDoubleTapDetector(time.Duration(cfg.DoubleTapWindowMs)*time.Millisecond, func() {
		o.cancelRecording("double-tap-escape")
	})
	return o
}

// State exposes the current recording state for diagnostics/UI polling.
func (o *Orchestrator) State() recording.State { return o.machine.State() }

// LastRecording exposes the retained post-completion recording for UI access.
func (o *Orchestrator) LastRecording() *recording.Artifact { return o.machine.GetLastRecording() }

// ClearLastRecording releases the retained recording.
func (o *Orchestrator) ClearLastRecording() { o.machine.ClearLastRecording() }

// RequestStart asks the Run loop to start a recording, as if the hotkey had
// been pressed. No-op if the loop's command queue is full or the machine is
// not Idle when the request is handled.
func (o *Orchestrator) RequestStart() { o.request(cmdStart) }

// RequestStop asks the Run loop to stop the active recording with UserStop.
func (o *Orchestrator) RequestStop() { o.request(cmdStop) }

// RequestCancel asks the Run loop to cancel the active recording, discarding
// its audio exactly like a double-tap Escape.
func (o *Orchestrator) RequestCancel() { o.request(cmdCancel) }

func (o *Orchestrator) request(c command) {
	select {
	case o.commands <- c:
	default:
		log.Printf("orchestrator: command queue congested, dropping request %d", c)
	}
}

// Run registers the hotkey taps and drains hotkey/capture-error events
// until ctx is cancelled or shutdown fires. It must run on the OS thread
// golang.design/x/hotkey requires (see internal/hotkey.Source.Register).
func (o *Orchestrator) Run(ctx context.Context) error {
	o.runCtx = ctx
	if err := o.hotkeySrc.Register(); err != nil {
		return fmt.Errorf("orchestrator: register hotkeys: %w", err)
	}
	defer o.hotkeySrc.Unregister()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-o.shutdown.Done():
			return nil
		case ev := <-o.hotkeySrc.Events():
			o.handleHotkeyEvent(ev)
		case cmd := <-o.commands:
			o.handleCommand(cmd)
		case reason := <-o.stopSignal:
			o.handleCaptureStopSignal(reason)
		}
	}
}

func (o *Orchestrator) handleCommand(cmd command) {
	switch cmd {
	case cmdStart:
		o.startRecording()
	case cmdStop:
		o.stopRecording(recording.UserStop)
	case cmdCancel:
		o.cancelRecording("user-request")
	}
}

func (o *Orchestrator) handleHotkeyEvent(ev hotkey.Event) {
	switch ev.Kind {
	case hotkey.EventRecord:
		active := o.machine.State() == recording.Recording
		var action hotkey.Action
		if ev.Down {
			action = o.hotkeyDisp.OnPress(active)
		} else {
			action = o.hotkeyDisp.OnRelease(active)
		}
		switch action {
		case hotkey.ActionStart:
			o.startRecording()
		case hotkey.ActionStop:
			o.stopRecording(recording.UserStop)
		}
	case hotkey.EventEscape:
		if !ev.Down || !o.hotkeySrc.ConsumingEscape() {
			return
		}
		o.doubleTap.OnTap()
	}
}

// startRecording is the capture start path.
func (o *Orchestrator) startRecording() {
	if o.machine.State() != recording.Idle {
		return // resets below must never run mid-recording
	}
	o.denoiserMu.Lock()
	if o.cfg.DenoiserEnabled && o.denoiser != nil {
		o.denoiser.Reset()
	}
	o.denoiserMu.Unlock()
	if o.vadDet != nil {
		o.vadDet.Reset()
	}

	buf, err := o.machine.StartRecording(recording.SampleRate)
	if err != nil {
		return // not Idle: ignore
	}

	o.drainStale()

	if err := o.capture.Start(buf, o.frames, o.stopSignal); err != nil {
		_ = o.machine.AbortRecording()
		o.events.RecordingError(fmt.Sprintf("capture start: %v", err))
		return
	}

	o.hotkeySrc.SetConsumeEscape(true)
	o.doubleTap.Reset()

	feederCtx, cancel := context.WithCancel(o.runCtx)
	o.feederCancel = cancel
	o.feederDone = make(chan struct{})
	if o.cfg.Mode == hotkey.ModeToggle && o.cfg.SilenceEnabled {
		go o.runSilenceFeeder(feederCtx)
	} else {
		close(o.feederDone)
	}

	o.events.RecordingStarted(nowRFC3339())
}

// runSilenceFeeder is the Toggle-mode silence-detection feeder: it reads
// the tee'd frame stream (never the capture ring itself, which can wrap on
// long recordings), runs each
// chunk through the denoiser and then the VAD, and drives an auto-stop when
// a verdict fires.
func (o *Orchestrator) runSilenceFeeder(ctx context.Context) {
	defer close(o.feederDone)
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-o.frames:
			if !ok {
				return
			}
			analyzed := chunk
			if o.cfg.DenoiserEnabled && o.denoiser != nil {
				o.denoiserMu.Lock()
				analyzed = o.denoiser.Process(chunk)
				o.denoiserMu.Unlock()
			}
			if o.vadDet == nil || len(analyzed) == 0 {
				continue
			}
			verdict, err := o.vadDet.Process(analyzed)
			if err != nil {
				log.Printf("orchestrator: vad error: %v", err)
				continue
			}
			switch verdict {
			case vad.VerdictSilenceAfterSpeech:
				o.signalStop(recording.SilenceAfterSpeech)
				return
			case vad.VerdictNoSpeechTimeout:
				o.signalStop(recording.NoSpeechTimeout)
				return
			}
		}
	}
}

// signalStop publishes a stop reason onto the same channel the capture
// backend uses, so the Run loop is the only goroutine that ever drives the
// stop path. The feeder calls this rather than stopRecording directly —
// stopping waits for the feeder to exit, so the feeder must never stop.
func (o *Orchestrator) signalStop(reason recording.StopReason) {
	select {
	case o.stopSignal <- reason:
	default:
	}
}

// handleCaptureStopSignal reacts to BufferFull/LockError/StreamError/
// ResampleOverflow signaled by the capture backend and to the silence
// feeder's verdicts: all of these still produce
// valid audio, so the normal stop path runs.
func (o *Orchestrator) handleCaptureStopSignal(reason recording.StopReason) {
	if o.machine.State() != recording.Recording {
		return // a concurrent user stop already won the race
	}
	o.stopRecording(reason)
}

// stopRecording is the capture stop path. Safe to call redundantly —
// StopRecording only succeeds once per recording (the state lock decides
// the winner when a detector and a user action race).
func (o *Orchestrator) stopRecording(reason recording.StopReason) {
	o.hotkeySrc.SetConsumeEscape(false)
	o.doubleTap.Reset()
	o.stopFeeder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		o.capture.Stop()
	}()
	select {
	case <-done:
	case <-time.After(captureStopWait(o.cfg)):
		// Bounded wait expired; proceed anyway.
	}

	rec, err := o.machine.StopRecording(reason)
	if err != nil {
		return // already not Recording
	}

	samples := rec.Buffer.Snapshot()
	durationSecs := rec.Duration.Seconds()

	var filePath string
	if o.recorder != nil && len(samples) > 0 {
		path, werr := o.recorder(rec.Buffer.SampleRate(), samples)
		if werr != nil {
			log.Printf("orchestrator: wav persist failed: %v", werr)
		} else {
			filePath = path
		}
	}

	o.events.RecordingStopped(StoppedMetadata{
		DurationSecs: durationSecs,
		SampleCount:  uint64(len(samples)),
		FilePath:     filePath,
		StopReason:   reason.String(),
	})

	go o.transcribeAndRoute(samples, rec.Buffer.SampleRate())
}

// cancelRecording discards the active recording: idempotent, audio
// dropped, no recording_stopped, no transcription.
func (o *Orchestrator) cancelRecording(reason string) {
	if o.machine.State() != recording.Recording {
		return // re-check under the state machine's own lock: already moved on
	}
	o.hotkeySrc.SetConsumeEscape(false)
	o.doubleTap.Reset()
	o.stopFeeder()
	o.capture.Stop()

	if err := o.machine.AbortRecording(); err != nil {
		return
	}
	o.events.RecordingCancelled(reason, nowRFC3339())
}

// transcribeAndRoute submits the finished recording's audio to the
// transcription executor and, on success, routes the resulting text
// through the output router. Runs off the orchestrator's select loop so
// transcription's suspension points never block hotkey/capture handling.
func (o *Orchestrator) transcribeAndRoute(samples []float32, sampleRate int) {
	defer func() {
		if err := o.machine.FinishProcessing(); err != nil {
			log.Printf("orchestrator: finish processing: %v", err)
		}
	}()

	if o.shutdown.Fired() {
		o.events.TranscriptionError("shutdown in progress")
		return
	}

	o.events.TranscriptionStarted(nowRFC3339())
	result, err := o.transcribe.Submit(o.runCtx, samples, sampleRate)
	if err != nil {
		o.events.TranscriptionError(err.Error())
		return
	}
	o.events.TranscriptionCompleted(result.Text, result.DurationMs)

	if o.router == nil {
		return
	}
	outcome, err := o.router.Route(o.runCtx, result.Text)
	if err != nil {
		o.events.RecordingError(fmt.Sprintf("output routing: %v", err))
		return
	}
	switch outcome.Kind {
	case router.OutcomeCommandExecuted:
		o.events.CommandMatched(outcome.Command)
		o.events.CommandExecuted(outcome.Command, outcome.Message)
	case router.OutcomeCommandFailed:
		o.events.CommandMatched(outcome.Command)
		o.events.CommandFailed(outcome.Command, outcome.Message)
	case router.OutcomeCommandAmbiguous:
		o.events.CommandAmbiguous(outcome.Candidates)
	}
}

func captureStopWait(cfg Config) time.Duration {
	if cfg.CaptureStopWait <= 0 {
		return DefaultCaptureStopWait
	}
	return cfg.CaptureStopWait
}

// stopFeeder cancels the silence feeder and waits (bounded) for it to exit,
// so a feeder mid-inference can never observe the next recording's denoiser
// reset or steal its frames.
func (o *Orchestrator) stopFeeder() {
	if o.feederCancel == nil {
		return
	}
	o.feederCancel()
	select {
	case <-o.feederDone:
	case <-time.After(200 * time.Millisecond):
	}
}

// drainStale empties frames and stop signals left over from the previous
// recording so the new feeder never analyzes another recording's audio.
func (o *Orchestrator) drainStale() {
	for {
		select {
		case <-o.frames:
		case <-o.stopSignal:
		default:
			return
		}
	}
}

func nowRFC3339() string { return time.Now().UTC().Format(time.RFC3339) }
