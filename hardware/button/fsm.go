package button

import "time"

type action uint8

const (
	actNone action = iota
	actTap
	actLongPress
	actLongPressReady
	actFactoryReset
)

func (a action) String() string {
	switch a {
	case actNone:
		return "none"
	case actTap:
		return "tap"
	case actLongPress:
		return "long-press"
	case actLongPressReady:
		return "long-press-ready"
	case actFactoryReset:
		return "factory-reset"
	}
	return "unknown!"
}

// machine classifies one press session by hold duration. Not safe for
// concurrent use; the driver event loop is its only caller.
//
// Factory reset fires on crossing its threshold while still held, so the
// user gets feedback before committing to the release. Tap and long press
// are release-gated.
type machine struct {
	longPress    time.Duration
	factoryReset time.Duration

	pressed    bool
	pressStart time.Time
	firedReady bool
	firedReset bool
}

// edge consumes one falling (press) or rising (release) transition.
func (m *machine) edge(falling bool, now time.Time) action {
	if falling {
		if m.pressed {
			// spurious repeat, edges must alternate
			return actNone
		}
		m.pressed = true
		m.pressStart = now
		m.firedReady = false
		m.firedReset = false
		return actNone
	}

	if !m.pressed {
		return actNone
	}
	hold := now.Sub(m.pressStart)
	m.pressed = false
	switch {
	case m.firedReset:
		return actNone
	case hold >= m.longPress && hold < m.factoryReset:
		return actLongPress
	case m.firedReady:
		return actNone
	default:
		return actTap
	}
}

// tick runs the periodic threshold checks while held.
func (m *machine) tick(now time.Time) action {
	if !m.pressed {
		return actNone
	}
	held := now.Sub(m.pressStart)
	if held >= m.factoryReset && !m.firedReset {
		m.firedReset = true
		return actFactoryReset
	}
	if held >= m.longPress && !m.firedReady {
		m.firedReady = true
		return actLongPressReady
	}
	return actNone
}
