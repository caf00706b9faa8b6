// Package hotkey implements the global record-hotkey and Escape-cancel
// event source: a low-level key tap running on its own OS
// thread, the double-tap cancel detector, and the Toggle/PTT mode
// dispatch logic that turns press/release events into start/stop actions.
package hotkey

import (
	"fmt"
	"log"

	gohotkey "golang.design/x/hotkey"
)

// eventQueueDepth bounds the channel the tap callback forwards onto. The
// tap callback itself never blocks: if the queue is full the event is
// dropped and logged, never silently swallowed.
const eventQueueDepth = 16

// Binding names the configured record hotkey as modifier+key.
type Binding struct {
	Modifiers []gohotkey.Modifier
	Key       gohotkey.Key
}

// Event is a press or release of either the record hotkey or Escape.
type Event struct {
	Kind EventKind
	Down bool // true = key-down, false = key-up
}

// EventKind distinguishes which logical key produced an Event.
type EventKind int

const (
	EventRecord EventKind = iota
	EventEscape
)

// Source owns the two low-level hotkey registrations (record binding and
// Escape) and forwards their press/release events onto a single bounded
// channel the orchestrator drains. Registration and the OS event pump run
// on the dedicated thread golang.design/x/hotkey requires; callers must
// invoke Register from that thread (typically via golang.design/x/mainthread).
type Source struct {
	binding Binding
	record  *gohotkey.Hotkey
	escape  *gohotkey.Hotkey

	events chan Event

	consumeEscape bool // orchestrator flips this on Recording entry/exit

	dropped uint64
}

// NewSource returns an unregistered Source for binding.
func NewSource(binding Binding) *Source {
	return &Source{binding: binding, events: make(chan Event, eventQueueDepth)}
}

// Events returns the channel of forwarded press/release events.
func (s *Source) Events() <-chan Event { return s.events }

// SetConsumeEscape sets the flag the orchestrator reads through
// ConsumingEscape to decide whether Escape presses count toward a cancel.
// The orchestrator enables it on Recording entry and disables it on exit.
// The flag does not change the OS registration: the Escape tap installed
// by Register stays in place until Unregister, whatever the flag says.
func (s *Source) SetConsumeEscape(consume bool) { s.consumeEscape = consume }

// ConsumingEscape reports the current consume-escape flag.
func (s *Source) ConsumingEscape() bool { return s.consumeEscape }

// Register installs the OS-level taps for both the record binding and
// Escape. Must run on the platform's required thread.
func (s *Source) Register() error {
	s.record = gohotkey.New(s.binding.Modifiers, s.binding.Key)
	if err := s.record.Register(); err != nil {
		return fmt.Errorf("hotkey: register record binding: %w", err)
	}

	s.escape = gohotkey.New(nil, gohotkey.KeyEscape)
	if err := s.escape.Register(); err != nil {
		s.record.Unregister()
		return fmt.Errorf("hotkey: register escape: %w", err)
	}

	go s.pump(s.record, EventRecord)
	go s.pump(s.escape, EventEscape)
	return nil
}

// Unregister tears down both taps. Safe to call multiple times.
func (s *Source) Unregister() {
	if s.record != nil {
		s.record.Unregister()
	}
	if s.escape != nil {
		s.escape.Unregister()
	}
}

// DroppedEvents returns the number of events dropped because the forwarding
// queue was full — the tap callback must never block waiting for a reader.
func (s *Source) DroppedEvents() uint64 { return s.dropped }

func (s *Source) pump(hk *gohotkey.Hotkey, kind EventKind) {
	down := hk.Keydown()
	up := hk.Keyup()
	for {
		select {
		case _, ok := <-down:
			if !ok {
				return
			}
			s.forward(Event{Kind: kind, Down: true})
		case _, ok := <-up:
			if !ok {
				return
			}
			s.forward(Event{Kind: kind, Down: false})
		}
	}
}

func (s *Source) forward(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.dropped++
		log.Printf("hotkey: event queue congested, dropping event (kind=%d down=%v, total dropped=%d)", ev.Kind, ev.Down, s.dropped)
	}
}
