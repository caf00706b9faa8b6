package router

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sync"

	"github.com/atotto/clipboard"
)

// Synthesizer is the output-dispatch capability boundary. Paste delivers
// text to the focused application; platforms differ in how a paste is
// triggered once the clipboard holds the text, which is why this is a
// capability set rather than one shared implementation.
type Synthesizer interface {
	Paste(ctx context.Context, text string) error
	// PressEnter sends a synthetic Enter keystroke, used when a dictionary
	// entry with auto_enter matched. Platforms without keystroke synthesis
	// return nil.
	PressEnter(ctx context.Context) error
}

// clipboardSynthesizer writes text to the system clipboard and, where a
// real trigger is available, simulates the platform paste shortcut.
type clipboardSynthesizer struct {
	trigger func(ctx context.Context) error
}

// NewSynthesizer returns the platform Synthesizer: clipboard write plus a
// simulated paste keystroke on macOS (via System Events), clipboard-only
// elsewhere.
func NewSynthesizer() Synthesizer {
	switch runtime.GOOS {
	case "darwin":
		return &clipboardSynthesizer{trigger: triggerPasteDarwin}
	default:
		return &clipboardSynthesizer{trigger: nil}
	}
}

func (s *clipboardSynthesizer) Paste(ctx context.Context, text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("router: write clipboard: %w", err)
	}
	if s.trigger == nil {
		return nil
	}
	return s.trigger(ctx)
}

func (s *clipboardSynthesizer) PressEnter(ctx context.Context) error {
	if s.trigger == nil {
		return nil
	}
	cmd := exec.CommandContext(ctx, "osascript", "-e",
		`tell application "System Events" to key code 36`)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("router: simulate enter keystroke: %w", err)
	}
	return nil
}

func triggerPasteDarwin(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "osascript", "-e",
		`tell application "System Events" to keystroke "v" using command down`)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("router: simulate paste keystroke: %w", err)
	}
	return nil
}

// deliveryLock serializes all output delivery process-wide so two
// overlapping recordings' text can never interleave keystrokes.
var deliveryLock sync.Mutex
