package filter

import (
	evdev "github.com/holoplot/go-evdev"
)

// Key event values as reported by the kernel for EV_KEY.
const (
	Released int32 = 0
	Pressed  int32 = 1
	Repeated int32 = 2
)

// ShiftState records which shift keys are currently held.
type ShiftState struct {
	LeftHeld  bool
	RightHeld bool
}

// Observe returns the state after ev. Only left and right shift key events
// cause a transition: any value other than Released marks the key held,
// Released clears it. Autorepeat re-asserts the held flag.
func (s ShiftState) Observe(ev *evdev.InputEvent) ShiftState {
	if ev.Type != evdev.EV_KEY {
		return s
	}
	switch ev.Code {
	case evdev.KEY_LEFTSHIFT:
		s.LeftHeld = ev.Value != Released
	case evdev.KEY_RIGHTSHIFT:
		s.RightHeld = ev.Value != Released
	}
	return s
}

// Idle reports whether no shift key is held.
func (s ShiftState) Idle() bool {
	return !s.LeftHeld && !s.RightHeld
}

// String names the state: idle, left-active, right-active or both-active.
func (s ShiftState) String() string {
	switch {
	case s.LeftHeld && s.RightHeld:
		return "both-active"
	case s.LeftHeld:
		return "left-active"
	case s.RightHeld:
		return "right-active"
	default:
		return "idle"
	}
}

