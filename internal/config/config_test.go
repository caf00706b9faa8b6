package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"dictation/internal/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	if cfg.Theme != "dark" {
		t.Errorf("expected theme 'dark', got %q", cfg.Theme)
	}
	if cfg.Volume != 1.0 {
		t.Errorf("expected volume 1.0, got %v", cfg.Volume)
	}
	if cfg.InputDeviceID != -1 {
		t.Error("expected input device ID to default to -1")
	}
	if !cfg.NoiseEnabled {
		t.Error("expected noise suppression enabled by default")
	}
	if !cfg.NoiseGateEnabled {
		t.Error("expected noise gate enabled by default")
	}
	if !cfg.AGCEnabled {
		t.Error("expected AGC enabled by default")
	}
	if cfg.RecordingMode != config.ModeToggle {
		t.Errorf("expected default recording mode toggle, got %q", cfg.RecordingMode)
	}
	if !cfg.SilenceDetection.Enabled {
		t.Error("expected silence detection enabled by default")
	}
	if cfg.SilenceDetection.SilenceDurationMs != 2000 {
		t.Errorf("expected default silence duration 2000ms, got %d", cfg.SilenceDetection.SilenceDurationMs)
	}
	if cfg.SilenceDetection.NoSpeechTimeoutMs != 5000 {
		t.Errorf("expected default no-speech timeout 5000ms, got %d", cfg.SilenceDetection.NoSpeechTimeoutMs)
	}
	if cfg.DebounceMs != 200 {
		t.Errorf("expected default debounce 200ms, got %d", cfg.DebounceMs)
	}
	if cfg.DoubleTapWindowMs != 300 {
		t.Errorf("expected default double-tap window 300ms, got %d", cfg.DoubleTapWindowMs)
	}
	if cfg.MaxConcurrentTranscriptions != 2 {
		t.Errorf("expected default max concurrent transcriptions 2, got %d", cfg.MaxConcurrentTranscriptions)
	}
	if cfg.TranscriptionTimeoutSecs != 60 {
		t.Errorf("expected default transcription timeout 60s, got %d", cfg.TranscriptionTimeoutSecs)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg := config.Config{
		Theme:             "dracula",
		InputDeviceID:     2,
		Volume:            0.75,
		NoiseEnabled:      true,
		AGCEnabled:        true,
		RecordingMode:     config.ModePTT,
		HotkeyBinding:     "Space",
		DoubleTapWindowMs: 400,
		DebounceMs:        30,
		SilenceDetection: config.SilenceDetectionConfig{
			Enabled:           true,
			Threshold:         0.6,
			SilenceDurationMs: 1500,
			NoSpeechTimeoutMs: 4000,
		},
		MaxConcurrentTranscriptions: 3,
		TranscriptionTimeoutSecs:    45,
		SaveRecordings:              true,
	}

	if err := config.Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := config.Load()
	if loaded.Theme != cfg.Theme {
		t.Errorf("theme: want %q got %q", cfg.Theme, loaded.Theme)
	}
	if loaded.InputDeviceID != cfg.InputDeviceID {
		t.Errorf("input device: want %d got %d", cfg.InputDeviceID, loaded.InputDeviceID)
	}
	if loaded.Volume != cfg.Volume {
		t.Errorf("volume: want %v got %v", cfg.Volume, loaded.Volume)
	}
	if loaded.NoiseEnabled != cfg.NoiseEnabled {
		t.Errorf("noise enabled: want %v got %v", cfg.NoiseEnabled, loaded.NoiseEnabled)
	}
	if loaded.AGCEnabled != cfg.AGCEnabled {
		t.Errorf("agc enabled: want %v got %v", cfg.AGCEnabled, loaded.AGCEnabled)
	}
	if loaded.RecordingMode != cfg.RecordingMode {
		t.Errorf("recording mode: want %q got %q", cfg.RecordingMode, loaded.RecordingMode)
	}
	if loaded.HotkeyBinding != cfg.HotkeyBinding {
		t.Errorf("hotkey binding: want %q got %q", cfg.HotkeyBinding, loaded.HotkeyBinding)
	}
	if loaded.SilenceDetection != cfg.SilenceDetection {
		t.Errorf("silence detection: want %+v got %+v", cfg.SilenceDetection, loaded.SilenceDetection)
	}
	if loaded.MaxConcurrentTranscriptions != cfg.MaxConcurrentTranscriptions {
		t.Errorf("max concurrent: want %d got %d", cfg.MaxConcurrentTranscriptions, loaded.MaxConcurrentTranscriptions)
	}
	if loaded.SaveRecordings != cfg.SaveRecordings {
		t.Errorf("save recordings: want %v got %v", cfg.SaveRecordings, loaded.SaveRecordings)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg := config.Load()
	if cfg.Theme == "" {
		t.Error("expected non-empty theme from defaults")
	}
}

func TestLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path := filepath.Join(dir, "dictation", "config.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not json {{{"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := config.Load()
	if cfg.Theme != "dark" {
		t.Errorf("expected default theme on corrupt file, got %q", cfg.Theme)
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if err := config.Save(config.Default()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	path := filepath.Join(dir, "dictation", "config.json")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file not created: %v", err)
	}
}
