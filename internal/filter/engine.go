// Package filter decides, event by event, whether a keystroke reaches the
// virtual keyboard.
//
// A key in the left-hand zone is suppressed while left shift is held, and a
// key in the right-hand zone is suppressed while right shift is held.
// Opposite-hand combinations pass untouched. Only EV_KEY events are ever
// forwarded; every forwarded event is followed by exactly one SYN_REPORT.
package filter

import (
	"fmt"

	evdev "github.com/holoplot/go-evdev"

	"shifttutor/internal/keyzone"
)

// Decision is the outcome for a single event.
type Decision int

const (
	// Drop discards the event.
	Drop Decision = iota
	// Forward passes the event to the sink followed by a sync.
	Forward
)

func (d Decision) String() string {
	if d == Forward {
		return "forward"
	}
	return "drop"
}

// Kind classifies raw events.
type Kind int

const (
	KindKey Kind = iota
	KindSync
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindKey:
		return "key"
	case KindSync:
		return "sync"
	default:
		return "other"
	}
}

// KindOf returns the kind of ev.
func KindOf(ev *evdev.InputEvent) Kind {
	switch ev.Type {
	case evdev.EV_KEY:
		return KindKey
	case evdev.EV_SYN:
		return KindSync
	default:
		return KindOther
	}
}

// Process applies ev to prior and decides its fate. The shift state is
// updated before the decision is made, so a zone key arriving right after a
// shift transition sees the new state.
func Process(prior ShiftState, ev *evdev.InputEvent) (ShiftState, Decision) {
	if ev.Type != evdev.EV_KEY {
		return prior, Drop
	}

	next := prior.Observe(ev)
	switch {
	case next.LeftHeld && keyzone.Contains(keyzone.Left, ev.Code):
		return next, Drop
	case next.RightHeld && keyzone.Contains(keyzone.Right, ev.Code):
		return next, Drop
	}
	return next, Forward
}

// Sink receives forwarded events.
type Sink interface {
	// Accept writes one event.
	Accept(ev *evdev.InputEvent) error
	// Sync emits a synchronization marker.
	Sync() error
}

// Recorder observes decisions. Implementations must not block.
type Recorder interface {
	RecordForward()
	RecordDrop(zone keyzone.Zone)
	RecordDiscard(kind Kind)
}

// Stats counts decisions made by an Engine.
type Stats struct {
	Forwarded uint64
	Dropped   uint64
	Discarded uint64
}

// Engine owns the shift state of one filtering session. It is not safe for
// concurrent use; exactly one goroutine drives it.
type Engine struct {
	state    ShiftState
	stats    Stats
	recorder Recorder
}

// NewEngine returns an engine in the idle state. rec may be nil.
func NewEngine(rec Recorder) *Engine {
	return &Engine{recorder: rec}
}

// State returns the current shift state.
func (e *Engine) State() ShiftState {
	return e.state
}

// Stats returns decision counts so far.
func (e *Engine) Stats() Stats {
	return e.stats
}

// Handle processes ev and, when it is forwarded, writes it to sink followed
// by one sync. The state is advanced even if the sink fails.
func (e *Engine) Handle(ev *evdev.InputEvent, sink Sink) (Decision, error) {
	next, d := Process(e.state, ev)
	e.state = next

	if d == Drop {
		kind := KindOf(ev)
		if kind != KindKey {
			e.stats.Discarded++
			if e.recorder != nil {
				e.recorder.RecordDiscard(kind)
			}
			return d, nil
		}
		e.stats.Dropped++
		if e.recorder != nil {
			e.recorder.RecordDrop(keyzone.Classify(ev.Code))
		}
		return d, nil
	}

	if err := sink.Accept(ev); err != nil {
		return d, fmt.Errorf("write event: %w", err)
	}
	if err := sink.Sync(); err != nil {
		return d, fmt.Errorf("sync: %w", err)
	}
	e.stats.Forwarded++
	if e.recorder != nil {
		e.recorder.RecordForward()
	}
	return d, nil
}
