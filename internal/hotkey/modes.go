package hotkey

import "time"

// Mode selects how press/release events map onto start/stop actions.
type Mode int

const (
	ModeToggle Mode = iota
	ModePTT
)

// DefaultDebounce is the Toggle-mode debounce window.
const DefaultDebounce = 200 * time.Millisecond

// Action is what a Dispatcher decided a given key event should do.
type Action int

const (
	ActionNone Action = iota
	ActionStart
	ActionStop
)

// Dispatcher turns raw press/release events into Start/Stop actions
// according to the configured Mode, applying Toggle's debounce and PTT's
// press-while-recording / release-while-idle no-ops. It holds no knowledge
// of the recording state machine itself — callers feed in whether a
// recording is currently active.
type Dispatcher struct {
	mode      Mode
	debounce  time.Duration
	lastPress time.Time
	now       func() time.Time
}

// NewDispatcher returns a Dispatcher for mode. debounce is only consulted
// in ModeToggle; pass 0 to use DefaultDebounce.
func NewDispatcher(mode Mode, debounce time.Duration) *Dispatcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Dispatcher{mode: mode, debounce: debounce, now: time.Now}
}

// OnPress handles a key-down event. recording reports whether a recording
// is currently in progress.
func (d *Dispatcher) OnPress(recording bool) Action {
	switch d.mode {
	case ModePTT:
		if recording {
			return ActionNone // key-press while already recording is a no-op
		}
		return ActionStart
	default: // ModeToggle
		now := d.now()
		if !d.lastPress.IsZero() && now.Sub(d.lastPress) < d.debounce {
			return ActionNone // rapid re-press inside the debounce window is ignored
		}
		d.lastPress = now
		if recording {
			return ActionStop
		}
		return ActionStart
	}
}

// OnRelease handles a key-up event. Only meaningful in PTT mode; Toggle
// mode ignores releases entirely.
func (d *Dispatcher) OnRelease(recording bool) Action {
	if d.mode != ModePTT {
		return ActionNone
	}
	if !recording {
		return ActionNone // key-release while not recording is a no-op
	}
	return ActionStop
}
