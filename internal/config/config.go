// Package config manages persistent user preferences for the dictation
// client. Settings are stored as JSON at os.UserConfigDir()/dictation/config.json.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// RecordingMode selects how the hotkey is interpreted.
type RecordingMode string

const (
	ModeToggle RecordingMode = "toggle"
	ModePTT    RecordingMode = "push_to_talk"
)

// SilenceDetectionConfig mirrors internal/vad.Config for persistence; it is
// translated into a vad.Config at startup rather than importing vad
// directly, keeping config free of the inference stack.
type SilenceDetectionConfig struct {
	Enabled           bool    `json:"enabled"`
	Threshold         float64 `json:"threshold"`
	SilenceDurationMs int     `json:"silence_duration_ms"`
	NoSpeechTimeoutMs int     `json:"no_speech_timeout_ms"`
}

// Config holds all persistent user preferences.
type Config struct {
	Theme string `json:"theme"`

	InputDeviceID int     `json:"input_device_id"`
	Volume        float64 `json:"volume"`

	NoiseEnabled     bool `json:"noise_enabled"` // two-stage neural denoiser
	NoiseGateEnabled bool `json:"noise_gate_enabled"`
	AGCEnabled       bool `json:"agc_enabled"`

	RecordingMode     RecordingMode `json:"recording_mode"`
	HotkeyBinding     string        `json:"hotkey_binding"`
	DoubleTapWindowMs int           `json:"double_tap_window_ms"`
	DebounceMs        int           `json:"debounce_ms"`

	SilenceDetection SilenceDetectionConfig `json:"silence_detection"`

	MaxConcurrentTranscriptions int `json:"max_concurrent_transcriptions"`
	TranscriptionTimeoutSecs    int `json:"transcription_timeout_secs"`

	SaveRecordings bool `json:"save_recordings"`

	// Model file locations. Empty paths fall back to the default files
	// under the app's models directory; every model is loaded from disk.
	ASRModelDir        string `json:"asr_model_dir"`
	DenoiserStage1Path string `json:"denoiser_stage1_path"`
	DenoiserStage2Path string `json:"denoiser_stage2_path"`
	VADModelPath       string `json:"vad_model_path"`
}

// Default returns a Config populated with sensible defaults, matching the
// defaults named for each module's configuration surface.
func Default() Config {
	return Config{
		Theme:         "dark",
		Volume:        1.0,
		InputDeviceID: -1,

		NoiseEnabled:     true,
		NoiseGateEnabled: true,
		AGCEnabled:       true,

		RecordingMode:     ModeToggle,
		HotkeyBinding:     "F9",
		DoubleTapWindowMs: 300,
		DebounceMs:        200,

		SilenceDetection: SilenceDetectionConfig{
			Enabled:           true,
			Threshold:         0.5,
			SilenceDurationMs: 2000,
			NoSpeechTimeoutMs: 5000,
		},

		MaxConcurrentTranscriptions: 2,
		TranscriptionTimeoutSecs:    60,

		SaveRecordings: false,
	}
}

// Path returns the absolute path to the config file.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "dictation", "config.json"), nil
}

// Load reads the config file and returns it. If the file is missing or
// unreadable, the default config is returned — never an error.
func Load() Config {
	path, err := Path()
	if err != nil {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Default()
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default()
	}
	return cfg
}

// Save writes cfg to disk, creating the directory if needed.
func Save(cfg Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
