package main

import (
	"context"
	"strings"
	"testing"

	"dictation/internal/dictionary"
	"dictation/internal/voicecmd"
)

func TestGetBuildInfo(t *testing.T) {
	a := NewApp()
	info := a.GetBuildInfo()
	if info.Commit == "" {
		t.Error("expected non-empty commit")
	}
	if info.GoVersion == "" || info.GOOS == "" || info.GOARCH == "" {
		t.Errorf("expected runtime fields populated, got %+v", info)
	}
}

func TestRecordingStateBeforeStartup(t *testing.T) {
	a := NewApp()
	if got := a.GetRecordingState(); got != "" {
		t.Errorf("expected empty state before startup, got %q", got)
	}
}

func TestRecordingControlsBeforeStartup(t *testing.T) {
	a := NewApp()
	// None of these may panic before the orchestrator exists.
	a.StartRecording()
	a.StopRecording()
	a.CancelRecording()
	a.ClearLastRecording()
	if got := a.GetLastRecording(); got != (LastRecordingInfo{}) {
		t.Errorf("expected zero last-recording info, got %+v", got)
	}
}

func TestSetDictionaryEntriesDuplicateTrigger(t *testing.T) {
	a := NewApp()
	a.rtr = a.buildRouter()

	errStr := a.SetDictionaryEntries([]dictionary.Entry{
		{ID: "1", Trigger: "brb", Expansion: "be right back"},
		{ID: "2", Trigger: "BRB", Expansion: "something else"},
	})
	if errStr == "" {
		t.Fatal("expected duplicate-trigger error")
	}
	if !strings.Contains(strings.ToLower(errStr), "trigger") {
		t.Errorf("error should mention the trigger, got %q", errStr)
	}
}

func TestSetAndGetVoiceCommands(t *testing.T) {
	a := NewApp()
	a.rtr = a.buildRouter()

	cmds := []voicecmd.Command{
		{ID: "c1", Trigger: "open slack", Action: voicecmd.ActionOpenApp, Parameters: map[string]string{"app": "Slack"}, Enabled: true},
		{ID: "c2", Trigger: "lock it", Action: voicecmd.ActionSystemControl, Parameters: map[string]string{"control": "lock-screen"}, Enabled: false},
	}
	if errStr := a.SetVoiceCommands(cmds); errStr != "" {
		t.Fatalf("SetVoiceCommands: %s", errStr)
	}
	if got := a.GetVoiceCommands(); len(got) != 2 {
		t.Errorf("expected 2 commands back, got %d", len(got))
	}
}

func TestOpenAppActionRequiresName(t *testing.T) {
	_, err := openAppAction(context.Background(), map[string]string{})
	if err == nil {
		t.Fatal("expected error for missing app name")
	}
}

func TestSystemControlActionUnknownControl(t *testing.T) {
	_, err := systemControlAction(context.Background(), map[string]string{"control": "self-destruct"})
	if err == nil {
		t.Fatal("expected error for unknown control")
	}
	if !strings.Contains(err.Error(), "self-destruct") {
		t.Errorf("error should name the control, got %v", err)
	}
}

func TestCommandPayloadFields(t *testing.T) {
	p := commandPayload(voicecmd.Command{ID: "c1", Trigger: "open slack", Action: voicecmd.ActionOpenApp})
	if p["commandId"] != "c1" || p["trigger"] != "open slack" || p["action"] != "open-app" {
		t.Errorf("unexpected payload: %+v", p)
	}
}
