package hotkey

import "time"

// tapState is the double-tap detector's sum type: either no prior tap is
// pending (NoTap) or exactly one tap is pending and waiting to see if a
// second arrives within the window (OneTap). Modeling it this way (rather
// than an "Option<Instant>" boolean pair) makes the three-taps-trigger-once
// property structural instead of something callers have to get right.
type tapState int

const (
	tapStateNone tapState = iota
	tapStateOne
)

// DefaultDoubleTapWindow is the default double-tap window.
const DefaultDoubleTapWindow = 300 * time.Millisecond

// DoubleTapDetector fires a callback only when two taps occur within the
// configured window. A third tap within the window does not fire again —
// the detector resets to tapStateNone as soon as it fires.
type DoubleTapDetector struct {
	window   time.Duration
	state    tapState
	lastTap  time.Time
	callback func()
	now      func() time.Time // seam for deterministic tests
}

// NewDoubleTapDetector returns a detector with the given window and
// callback, fired on every qualifying double-tap.
func NewDoubleTapDetector(window time.Duration, callback func()) *DoubleTapDetector {
	if window <= 0 {
		window = DefaultDoubleTapWindow
	}
	return &DoubleTapDetector{window: window, callback: callback, now: time.Now}
}

// OnTap handles one tap event. Returns true iff this tap completed a
// double-tap and fired the callback.
func (d *DoubleTapDetector) OnTap() bool {
	now := d.now()

	if d.state == tapStateOne && now.Sub(d.lastTap) <= d.window {
		d.state = tapStateNone
		if d.callback != nil {
			d.callback()
		}
		return true
	}

	d.state = tapStateOne
	d.lastTap = now
	return false
}

// Reset clears all history; call whenever the surrounding context changes
// (e.g. a recording just stopped) so a stale tap can't combine with a
// future one.
func (d *DoubleTapDetector) Reset() {
	d.state = tapStateNone
}
