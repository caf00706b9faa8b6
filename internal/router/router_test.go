package router

import (
	"context"
	"testing"

	"dictation/internal/dictionary"
	"dictation/internal/shutdown"
	"dictation/internal/voicecmd"
)

type fakeSynth struct {
	pasted  []string
	entered int
}

func (f *fakeSynth) Paste(_ context.Context, text string) error {
	f.pasted = append(f.pasted, text)
	return nil
}

func (f *fakeSynth) PressEnter(_ context.Context) error {
	f.entered++
	return nil
}

func newTestRouter() (*Router, *fakeSynth) {
	r := New(shutdown.New())
	synth := &fakeSynth{}
	r.Output = synth
	return r, synth
}

func TestRoutePlainTextIsDelivered(t *testing.T) {
	r, synth := newTestRouter()

	out, err := r.Route(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if out.Kind != OutcomeDelivered {
		t.Fatalf("kind = %v, want Delivered", out.Kind)
	}
	if len(synth.pasted) != 1 || synth.pasted[0] != "hello world" {
		t.Errorf("pasted %v", synth.pasted)
	}
	if synth.entered != 0 {
		t.Error("no auto-enter entry matched, enter must not be pressed")
	}
}

func TestRouteExpandsDictionaryBeforeDelivery(t *testing.T) {
	r, synth := newTestRouter()
	if err := r.Dictionary.Set([]dictionary.Entry{
		{ID: "1", Trigger: "brb", Expansion: "be right back"},
	}); err != nil {
		t.Fatal(err)
	}

	out, err := r.Route(context.Background(), "ok brb now")
	if err != nil {
		t.Fatal(err)
	}
	if out.Text != "ok be right back now" {
		t.Errorf("expanded text = %q", out.Text)
	}
	if synth.pasted[0] != "ok be right back now" {
		t.Errorf("pasted %q", synth.pasted[0])
	}
}

func TestRouteAutoEnterPressesEnter(t *testing.T) {
	r, synth := newTestRouter()
	if err := r.Dictionary.Set([]dictionary.Entry{
		{ID: "1", Trigger: "send it", Expansion: "done", AutoEnter: true},
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := r.Route(context.Background(), "send it"); err != nil {
		t.Fatal(err)
	}
	if synth.entered != 1 {
		t.Errorf("enter pressed %d times, want 1", synth.entered)
	}
}

func TestRouteCommandWinsOverDelivery(t *testing.T) {
	r, synth := newTestRouter()
	if err := r.Commands.Set([]voicecmd.Command{
		{ID: "c1", Trigger: "open slack", Action: voicecmd.ActionOpenApp, Enabled: true},
	}); err != nil {
		t.Fatal(err)
	}
	r.Dispatcher.Register(voicecmd.ActionOpenApp, func(context.Context, map[string]string) (string, error) {
		return "opened", nil
	})

	out, err := r.Route(context.Background(), "open slack")
	if err != nil {
		t.Fatal(err)
	}
	if out.Kind != OutcomeCommandExecuted {
		t.Fatalf("kind = %v, want CommandExecuted", out.Kind)
	}
	if len(synth.pasted) != 0 {
		t.Error("command match must not paste text")
	}
}

func TestRouteCommandFailureReported(t *testing.T) {
	r, _ := newTestRouter()
	if err := r.Commands.Set([]voicecmd.Command{
		{ID: "c1", Trigger: "open slack", Action: voicecmd.ActionOpenApp, Enabled: true},
	}); err != nil {
		t.Fatal(err)
	}
	// No handler registered: dispatch fails with a taxonomized error.

	out, err := r.Route(context.Background(), "open slack")
	if err != nil {
		t.Fatal(err)
	}
	if out.Kind != OutcomeCommandFailed {
		t.Fatalf("kind = %v, want CommandFailed", out.Kind)
	}
	if out.Message == "" {
		t.Error("failure outcome must carry a reason")
	}
}

func TestRouteAmbiguousFiresNothing(t *testing.T) {
	r, synth := newTestRouter()
	if err := r.Commands.Set([]voicecmd.Command{
		{ID: "c1", Trigger: "open slick", Action: voicecmd.ActionOpenApp, Enabled: true},
		{ID: "c2", Trigger: "open slack", Action: voicecmd.ActionOpenApp, Enabled: true},
	}); err != nil {
		t.Fatal(err)
	}
	dispatched := false
	r.Dispatcher.Register(voicecmd.ActionOpenApp, func(context.Context, map[string]string) (string, error) {
		dispatched = true
		return "", nil
	})

	out, err := r.Route(context.Background(), "open slock")
	if err != nil {
		t.Fatal(err)
	}
	if out.Kind != OutcomeCommandAmbiguous {
		t.Fatalf("kind = %v, want CommandAmbiguous", out.Kind)
	}
	if len(out.Candidates) < 2 {
		t.Errorf("expected >= 2 candidates, got %d", len(out.Candidates))
	}
	if dispatched {
		t.Error("ambiguous match must not dispatch any action")
	}
	if len(synth.pasted) != 0 {
		t.Error("ambiguous match must not paste text")
	}
}

func TestRouteDeclinedAfterShutdown(t *testing.T) {
	r, synth := newTestRouter()
	r.Shutdown.Fire()

	out, err := r.Route(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if out.Kind != OutcomeDeclinedShutdown {
		t.Fatalf("kind = %v, want DeclinedShutdown", out.Kind)
	}
	if len(synth.pasted) != 0 {
		t.Error("delivery must be declined after shutdown")
	}
}
