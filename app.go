package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	goruntime "runtime"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	wailsrt "github.com/wailsapp/wails/v2/pkg/runtime"

	"dictation/internal/audioio"
	"dictation/internal/config"
	"dictation/internal/denoiser"
	"dictation/internal/dictionary"
	"dictation/internal/hotkey"
	"dictation/internal/orchestrator"
	"dictation/internal/router"
	"dictation/internal/shutdown"
	"dictation/internal/transcribe"
	"dictation/internal/vad"
	"dictation/internal/voicecmd"
	"dictation/internal/wav"
)

// App bridges the Go backend with the Wails frontend. Wails-bound methods
// (Get*, Set*, Start*, Stop*) are callable from JS. Keep this struct thin —
// it composes the pipeline at startup and delegates everything to the
// orchestrator afterwards.
type App struct {
	ctx context.Context

	cfgMu sync.Mutex
	cfg   config.Config

	shutdownSignal *shutdown.Signal
	capture        *audioio.Capture
	executor       *transcribe.Executor
	rtr            *router.Router
	orch           *orchestrator.Orchestrator
	mic            *MicTester

	orchCancel context.CancelFunc
	orchDone   chan struct{}
	wakeStop   chan struct{}
}

var (
	buildCommit = "dev"
	buildTime   = ""
)

// BuildInfo contains local app build/runtime details shown in Settings > About.
type BuildInfo struct {
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	GOOS      string `json:"goos"`
	GOARCH    string `json:"goarch"`
}

// NewApp creates a new App.
func NewApp() *App {
	return &App{
		shutdownSignal: shutdown.New(),
		capture:        audioio.New(),
		mic:            NewMicTester(),
	}
}

// startup is called when the Wails app starts. It loads configuration,
// constructs every pipeline component exactly once (model loading is
// multi-second work that must be amortized across the process lifetime),
// and starts the orchestrator loop on its own locked OS thread.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	if err := portaudio.Initialize(); err != nil {
		log.Printf("[app] portaudio init: %v", err)
	}

	cfg := config.Load()
	a.cfgMu.Lock()
	a.cfg = cfg
	a.cfgMu.Unlock()

	a.capture.SetDevice(cfg.InputDeviceID)
	a.capture.SetConditioning(cfg.NoiseGateEnabled, cfg.AGCEnabled)

	denoise := a.buildDenoiser(cfg)
	vadDet := a.buildVAD(cfg)
	a.executor = a.buildTranscriber(cfg)
	a.rtr = a.buildRouter()

	binding, err := hotkey.ParseBinding(cfg.HotkeyBinding)
	if err != nil {
		log.Printf("[app] bad hotkey binding %q, falling back to F9: %v", cfg.HotkeyBinding, err)
		binding, _ = hotkey.ParseBinding("F9")
	}
	hotkeySrc := hotkey.NewSource(binding)

	var recorder orchestrator.Recorder
	if cfg.SaveRecordings {
		dir := recordingsDir()
		recorder = func(sampleRate int, samples []float32) (string, error) {
			return wav.Write(dir, time.Now(), sampleRate, samples)
		}
	}

	mode := hotkey.ModeToggle
	if cfg.RecordingMode == config.ModePTT {
		mode = hotkey.ModePTT
	}
	a.orch = orchestrator.New(
		orchestrator.Config{
			Mode:              mode,
			DebounceMs:        cfg.DebounceMs,
			DoubleTapWindowMs: cfg.DoubleTapWindowMs,
			SilenceEnabled:    cfg.SilenceDetection.Enabled,
			DenoiserEnabled:   cfg.NoiseEnabled && denoise != nil,
		},
		a.capture,
		denoise,
		vadDet,
		hotkeySrc,
		a.executor,
		a.rtr,
		a.shutdownSignal,
		&wailsSink{ctx: ctx},
		recorder,
	)

	orchCtx, cancel := context.WithCancel(context.Background())
	a.orchCancel = cancel
	a.orchDone = make(chan struct{})
	go func() {
		// The hotkey tap registration wants a stable OS thread for the
		// lifetime of the registration.
		goruntime.LockOSThread()
		defer close(a.orchDone)
		if err := a.orch.Run(orchCtx); err != nil {
			log.Printf("[app] orchestrator: %v", err)
			wailsrt.EventsEmit(ctx, "recording_error", map[string]any{"message": err.Error()})
		}
	}()

	a.wakeStop = make(chan struct{})
	go a.watchSystemWake()
}

// shutdown is called when the Wails app is closing. In-flight work drains
// briefly; new transcriptions and keystroke synthesis are gated off first.
func (a *App) shutdown(_ context.Context) {
	a.shutdownSignal.Fire()
	if a.wakeStop != nil {
		close(a.wakeStop)
	}
	if a.orchCancel != nil {
		a.orchCancel()
	}
	if a.orchDone != nil {
		select {
		case <-a.orchDone:
		case <-time.After(2 * time.Second):
		}
	}
	a.mic.Stop()
	a.capture.Stop()
	if a.executor != nil {
		_ = a.executor.Close()
	}
	portaudio.Terminate()
}

// buildDenoiser loads the two-stage denoiser, or returns nil (denoising
// disabled) when it is turned off or its model files are unavailable.
func (a *App) buildDenoiser(cfg config.Config) *denoiser.Denoiser {
	if !cfg.NoiseEnabled {
		return nil
	}
	s1Path := cfg.DenoiserStage1Path
	s2Path := cfg.DenoiserStage2Path
	if s1Path == "" || s2Path == "" {
		s1Path = filepath.Join(modelsDir(), "denoiser_stage_1.onnx")
		s2Path = filepath.Join(modelsDir(), "denoiser_stage_2.onnx")
	}
	stage1, err := denoiser.NewStage1(s1Path)
	if err != nil {
		log.Printf("[app] denoiser stage 1 unavailable, denoising disabled: %v", err)
		return nil
	}
	stage2, err := denoiser.NewStage2(s2Path)
	if err != nil {
		log.Printf("[app] denoiser stage 2 unavailable, denoising disabled: %v", err)
		_ = stage1.Close()
		return nil
	}
	return denoiser.New(stage1, stage2)
}

// buildVAD constructs the silence detector. VAD model init failure disables
// silence detection but is never fatal — the recording still runs, stopped
// only by the user or buffer-full.
func (a *App) buildVAD(cfg config.Config) *vad.Detector {
	var model vad.Model
	if cfg.SilenceDetection.Enabled {
		path := cfg.VADModelPath
		if path == "" {
			path = filepath.Join(modelsDir(), "vad.onnx")
		}
		m, err := vad.NewONNXModel(path, audioio.TargetSampleRate)
		if err != nil {
			log.Printf("[app] vad model unavailable, silence detection disabled: %v", err)
		} else {
			model = m
		}
	}
	det, err := vad.NewDetector(model, vad.Config{
		SampleRate:        audioio.TargetSampleRate,
		Threshold:         float32(cfg.SilenceDetection.Threshold),
		SilenceDurationMs: cfg.SilenceDetection.SilenceDurationMs,
		NoSpeechTimeoutMs: cfg.SilenceDetection.NoSpeechTimeoutMs,
	})
	if err != nil {
		log.Printf("[app] vad detector: %v", err)
		return nil
	}
	return det
}

// buildTranscriber pre-loads the shared ASR model. If loading fails the
// executor still exists — every submission then returns the model-not-loaded
// error until a reload (e.g. after system wake) succeeds.
func (a *App) buildTranscriber(cfg config.Config) *transcribe.Executor {
	dir := cfg.ASRModelDir
	if dir == "" {
		dir = filepath.Join(modelsDir(), "asr")
	}
	loader := func() (transcribe.Model, error) { return transcribe.NewONNXModel(dir) }
	model, err := loader()
	if err != nil {
		log.Printf("[app] asr model load failed: %v", err)
		model = nil
	}
	return transcribe.New(model, loader, transcribe.Config{
		MaxConcurrent: cfg.MaxConcurrentTranscriptions,
		Timeout:       time.Duration(cfg.TranscriptionTimeoutSecs) * time.Second,
	})
}

// buildRouter wires the output router with the built-in action handlers.
// Custom actions stay unregistered until the host adds them.
func (a *App) buildRouter() *router.Router {
	rtr := router.New(a.shutdownSignal)
	rtr.Dispatcher.Register(voicecmd.ActionOpenApp, openAppAction)
	rtr.Dispatcher.Register(voicecmd.ActionTypeText, func(ctx context.Context, params map[string]string) (string, error) {
		text := params["text"]
		if text == "" {
			text = params["param"]
		}
		if err := rtr.Output.Paste(ctx, text); err != nil {
			return "", err
		}
		return fmt.Sprintf("typed %d characters", len(text)), nil
	})
	rtr.Dispatcher.Register(voicecmd.ActionSystemControl, systemControlAction)
	return rtr
}

// watchSystemWake detects a system sleep/wake cycle by watching for wall
// clock jumps across a coarse ticker. After a wake the ASR model is treated
// as possibly invalid and reloaded before the next transcription.
func (a *App) watchSystemWake() {
	const interval = 30 * time.Second
	last := time.Now()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-a.wakeStop:
			return
		case now := <-ticker.C:
			if now.Sub(last) > 2*interval {
				log.Printf("[app] system wake detected (clock jumped %v), scheduling asr reload", now.Sub(last))
				a.executor.NotifySystemWake()
			}
			last = now
		}
	}
}

// ── Wails-bound methods ──

// GetBuildInfo reports build metadata for Settings > About.
func (a *App) GetBuildInfo() BuildInfo {
	return BuildInfo{
		Commit:    buildCommit,
		BuildTime: buildTime,
		GoVersion: goruntime.Version(),
		GOOS:      goruntime.GOOS,
		GOARCH:    goruntime.GOARCH,
	}
}

// GetConfig returns the active configuration.
func (a *App) GetConfig() Config {
	a.cfgMu.Lock()
	defer a.cfgMu.Unlock()
	return a.cfg
}

// SaveConfig persists cfg. Model paths, hotkey binding, and recording mode
// take effect on next launch; device selection applies immediately.
func (a *App) SaveConfig(cfg Config) string {
	if err := SaveConfig(cfg); err != nil {
		return err.Error()
	}
	a.cfgMu.Lock()
	a.cfg = cfg
	a.cfgMu.Unlock()
	a.capture.SetDevice(cfg.InputDeviceID)
	a.capture.SetConditioning(cfg.NoiseGateEnabled, cfg.AGCEnabled)
	return ""
}

// GetInputDevices enumerates selectable microphones.
func (a *App) GetInputDevices() []AudioDevice {
	devices, err := audioio.ListDevices()
	if err != nil {
		log.Printf("[app] list devices: %v", err)
		return nil
	}
	out := make([]AudioDevice, len(devices))
	for i, d := range devices {
		out[i] = AudioDevice{ID: d.ID, Name: d.Name}
	}
	return out
}

// SetInputDevice selects the capture device for subsequent recordings.
func (a *App) SetInputDevice(id int) {
	a.capture.SetDevice(id)
	a.cfgMu.Lock()
	a.cfg.InputDeviceID = id
	cfg := a.cfg
	a.cfgMu.Unlock()
	if err := config.Save(cfg); err != nil {
		log.Printf("[app] save config: %v", err)
	}
}

// GetRecordingState reports idle/recording/processing for UI polling.
func (a *App) GetRecordingState() string {
	if a.orch == nil {
		return ""
	}
	return a.orch.State().String()
}

// StartRecording asks the orchestrator to start a recording, exactly as if
// the hotkey had been pressed.
func (a *App) StartRecording() {
	if a.orch != nil {
		a.orch.RequestStart()
	}
}

// StopRecording asks the orchestrator to stop the active recording.
func (a *App) StopRecording() {
	if a.orch != nil {
		a.orch.RequestStop()
	}
}

// CancelRecording discards the active recording without transcribing it.
func (a *App) CancelRecording() {
	if a.orch != nil {
		a.orch.RequestCancel()
	}
}

// LastRecordingInfo summarizes the retained post-completion recording.
type LastRecordingInfo struct {
	ID           string  `json:"id"`
	DurationSecs float64 `json:"durationSecs"`
	SampleCount  int     `json:"sampleCount"`
	StopReason   string  `json:"stopReason"`
}

// GetLastRecording returns info about the most recently completed recording,
// or an empty struct when none is retained.
func (a *App) GetLastRecording() LastRecordingInfo {
	if a.orch == nil {
		return LastRecordingInfo{}
	}
	rec := a.orch.LastRecording()
	if rec == nil {
		return LastRecordingInfo{}
	}
	return LastRecordingInfo{
		ID:           rec.ID,
		DurationSecs: rec.Duration.Seconds(),
		SampleCount:  rec.Buffer.Len(),
		StopReason:   rec.StopReason.String(),
	}
}

// ClearLastRecording releases the retained recording's audio.
func (a *App) ClearLastRecording() {
	if a.orch != nil {
		a.orch.ClearLastRecording()
	}
}

// SetDictionaryEntries replaces the active dictionary set. Returns a
// user-readable error string, or "" on success.
func (a *App) SetDictionaryEntries(entries []dictionary.Entry) string {
	if err := a.rtr.Dictionary.Set(entries); err != nil {
		return err.Error()
	}
	return ""
}

// GetDictionaryEntries returns the active dictionary set.
func (a *App) GetDictionaryEntries() []dictionary.Entry {
	return a.rtr.Dictionary.Entries()
}

// SetVoiceCommands replaces the active voice-command set. Returns a
// user-readable error string, or "" on success.
func (a *App) SetVoiceCommands(commands []voicecmd.Command) string {
	if err := a.rtr.Commands.Set(commands); err != nil {
		return err.Error()
	}
	return ""
}

// GetVoiceCommands returns every registered command, enabled or not.
func (a *App) GetVoiceCommands() []voicecmd.Command {
	return a.rtr.Commands.All()
}

// NotifySystemWake marks the ASR model as possibly invalid so it is
// reloaded before the next transcription. Bound so a platform layer with
// real wake notifications can signal directly.
func (a *App) NotifySystemWake() {
	if a.executor != nil {
		a.executor.NotifySystemWake()
	}
}

// StartMicTest opens a preview capture stream so the settings UI can show a
// live input level. Returns an error string or "".
func (a *App) StartMicTest() string {
	a.cfgMu.Lock()
	deviceID := a.cfg.InputDeviceID
	gateOn := a.cfg.NoiseGateEnabled
	agcOn := a.cfg.AGCEnabled
	a.cfgMu.Unlock()
	if err := a.mic.Start(deviceID, gateOn, agcOn); err != nil {
		return err.Error()
	}
	return ""
}

// StopMicTest closes the preview stream.
func (a *App) StopMicTest() { a.mic.Stop() }

// GetInputLevel reports the current mic-test meter level (scaled RMS) in [0, 1].
func (a *App) GetInputLevel() float64 { return a.mic.Level() }

// ── event sink ──

// wailsSink maps orchestrator events onto Wails runtime events with the
// camelCase wire payloads the IPC layer expects.
type wailsSink struct {
	ctx context.Context
}

func (s *wailsSink) RecordingStarted(timestamp string) {
	wailsrt.EventsEmit(s.ctx, "recording_started", map[string]any{"timestamp": timestamp})
}

func (s *wailsSink) RecordingStopped(meta orchestrator.StoppedMetadata) {
	wailsrt.EventsEmit(s.ctx, "recording_stopped", map[string]any{
		"metadata": map[string]any{
			"durationSecs": meta.DurationSecs,
			"sampleCount":  meta.SampleCount,
			"filePath":     meta.FilePath,
			"stopReason":   meta.StopReason,
		},
	})
}

func (s *wailsSink) RecordingCancelled(reason, timestamp string) {
	wailsrt.EventsEmit(s.ctx, "recording_cancelled", map[string]any{
		"reason":    reason,
		"timestamp": timestamp,
	})
}

func (s *wailsSink) RecordingError(message string) {
	wailsrt.EventsEmit(s.ctx, "recording_error", map[string]any{"message": message})
}

func (s *wailsSink) TranscriptionStarted(timestamp string) {
	wailsrt.EventsEmit(s.ctx, "transcription_started", map[string]any{"timestamp": timestamp})
}

func (s *wailsSink) TranscriptionCompleted(text string, durationMs int64) {
	wailsrt.EventsEmit(s.ctx, "transcription_completed", map[string]any{
		"text":       text,
		"durationMs": durationMs,
	})
}

func (s *wailsSink) TranscriptionError(errMsg string) {
	wailsrt.EventsEmit(s.ctx, "transcription_error", map[string]any{"error": errMsg})
}

func (s *wailsSink) CommandMatched(cmd voicecmd.Command) {
	wailsrt.EventsEmit(s.ctx, "command_matched", commandPayload(cmd))
}

func (s *wailsSink) CommandExecuted(cmd voicecmd.Command, message string) {
	p := commandPayload(cmd)
	p["message"] = message
	wailsrt.EventsEmit(s.ctx, "command_executed", p)
}

func (s *wailsSink) CommandFailed(cmd voicecmd.Command, reason string) {
	p := commandPayload(cmd)
	p["reason"] = reason
	wailsrt.EventsEmit(s.ctx, "command_failed", p)
}

func (s *wailsSink) CommandAmbiguous(candidates []voicecmd.Candidate) {
	list := make([]map[string]any, len(candidates))
	for i, c := range candidates {
		list[i] = map[string]any{
			"commandId": c.Command.ID,
			"trigger":   c.Command.Trigger,
			"score":     c.Score,
		}
	}
	wailsrt.EventsEmit(s.ctx, "command_ambiguous", map[string]any{"candidates": list})
}

func commandPayload(cmd voicecmd.Command) map[string]any {
	return map[string]any{
		"commandId": cmd.ID,
		"trigger":   cmd.Trigger,
		"action":    string(cmd.Action),
	}
}

// ── paths ──

func appDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "dictation")
}

func modelsDir() string     { return filepath.Join(appDataDir(), "models") }
func recordingsDir() string { return filepath.Join(appDataDir(), "recordings") }
