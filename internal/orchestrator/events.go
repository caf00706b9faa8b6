package orchestrator

import "dictation/internal/voicecmd"

// EventSink receives every event the pipeline emits. The orchestrator is
// the single point that maps internal state transitions and errors onto
// these events — no other component emits one directly. All payload field names below are written camelCase when the
// composition root marshals them for the IPC layer.
type EventSink interface {
	RecordingStarted(timestamp string)
	RecordingStopped(meta StoppedMetadata)
	RecordingCancelled(reason, timestamp string)
	RecordingError(message string)
	TranscriptionStarted(timestamp string)
	TranscriptionCompleted(text string, durationMs int64)
	TranscriptionError(errMsg string)
	CommandMatched(cmd voicecmd.Command)
	CommandExecuted(cmd voicecmd.Command, message string)
	CommandFailed(cmd voicecmd.Command, reason string)
	CommandAmbiguous(candidates []voicecmd.Candidate)
}

// StoppedMetadata is the recording_stopped payload.
type StoppedMetadata struct {
	DurationSecs float64
	SampleCount  uint64
	FilePath     string
	StopReason   string
}

// NopEventSink implements EventSink with no-ops, for tests and for any
// component constructed before a real sink is wired in.
type NopEventSink struct{}

func (NopEventSink) RecordingStarted(string)                      {}
func (NopEventSink) RecordingStopped(StoppedMetadata)              {}
func (NopEventSink) RecordingCancelled(string, string)             {}
func (NopEventSink) RecordingError(string)                         {}
func (NopEventSink) TranscriptionStarted(string)                   {}
func (NopEventSink) TranscriptionCompleted(string, int64)          {}
func (NopEventSink) TranscriptionError(string)                     {}
func (NopEventSink) CommandMatched(voicecmd.Command)               {}
func (NopEventSink) CommandExecuted(voicecmd.Command, string)      {}
func (NopEventSink) CommandFailed(voicecmd.Command, string)        {}
func (NopEventSink) CommandAmbiguous([]voicecmd.Candidate)         {}
