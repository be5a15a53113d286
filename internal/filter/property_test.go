package filter

import (
	"testing"

	evdev "github.com/holoplot/go-evdev"
	"pgregory.net/rapid"

	"shifttutor/internal/keyzone"
)

func drawState(t *rapid.T) ShiftState {
	return ShiftState{
		LeftHeld:  rapid.Bool().Draw(t, "left_held"),
		RightHeld: rapid.Bool().Draw(t, "right_held"),
	}
}

func drawValue(t *rapid.T) int32 {
	return rapid.SampledFrom([]int32{Released, Pressed, Repeated}).Draw(t, "value")
}

func drawZoneCode(t *rapid.T, z keyzone.Zone) evdev.EvCode {
	return rapid.SampledFrom(keyzone.Codes(z)).Draw(t, "code")
}

// drawEvent produces a mix of shift keys, zone keys, other keys and non-key
// events.
func drawEvent(t *rapid.T) *evdev.InputEvent {
	switch rapid.IntRange(0, 4).Draw(t, "shape") {
	case 0:
		code := rapid.SampledFrom([]evdev.EvCode{evdev.KEY_LEFTSHIFT, evdev.KEY_RIGHTSHIFT}).Draw(t, "shift")
		return &evdev.InputEvent{Type: evdev.EV_KEY, Code: code, Value: drawValue(t)}
	case 1:
		return &evdev.InputEvent{Type: evdev.EV_KEY, Code: drawZoneCode(t, keyzone.Left), Value: drawValue(t)}
	case 2:
		return &evdev.InputEvent{Type: evdev.EV_KEY, Code: drawZoneCode(t, keyzone.Right), Value: drawValue(t)}
	case 3:
		return &evdev.InputEvent{
			Type:  evdev.EV_KEY,
			Code:  evdev.EvCode(rapid.Uint16().Draw(t, "any_code")),
			Value: drawValue(t),
		}
	default:
		typ := rapid.SampledFrom([]evdev.EvType{evdev.EV_SYN, evdev.EV_MSC, evdev.EV_LED, evdev.EV_REP}).Draw(t, "type")
		return &evdev.InputEvent{
			Type:  typ,
			Code:  evdev.EvCode(rapid.Uint16().Draw(t, "code")),
			Value: rapid.Int32().Draw(t, "raw_value"),
		}
	}
}

func TestShiftKeysAlwaysForwarded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := drawState(t)
		code := rapid.SampledFrom([]evdev.EvCode{evdev.KEY_LEFTSHIFT, evdev.KEY_RIGHTSHIFT}).Draw(t, "shift")
		_, d := Process(s, &evdev.InputEvent{Type: evdev.EV_KEY, Code: code, Value: drawValue(t)})
		if d != Forward {
			t.Fatalf("shift key %d dropped in state %s", code, s)
		}
	})
}

func TestSameHandSuppressed(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := drawState(t)
		z := rapid.SampledFrom([]keyzone.Zone{keyzone.Left, keyzone.Right}).Draw(t, "zone")
		if z == keyzone.Left {
			s.LeftHeld = true
		} else {
			s.RightHeld = true
		}

		code := drawZoneCode(t, z)
		_, d := Process(s, &evdev.InputEvent{Type: evdev.EV_KEY, Code: code, Value: drawValue(t)})
		if d != Drop {
			t.Fatalf("%s zone code %d forwarded in state %s", z, code, s)
		}
	})
}

func TestOppositeHandTransparent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		left := rapid.Bool().Draw(t, "left_shift")
		s := ShiftState{LeftHeld: left, RightHeld: !left}
		z := keyzone.Right
		if !left {
			z = keyzone.Left
		}

		code := drawZoneCode(t, z)
		_, d := Process(s, &evdev.InputEvent{Type: evdev.EV_KEY, Code: code, Value: drawValue(t)})
		if d != Forward {
			t.Fatalf("%s zone code %d dropped in state %s", z, code, s)
		}
	})
}

func TestNonKeyEventsDiscarded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := drawState(t)
		typ := rapid.SampledFrom([]evdev.EvType{evdev.EV_SYN, evdev.EV_MSC, evdev.EV_LED, evdev.EV_REP, evdev.EV_REL}).Draw(t, "type")
		ev := &evdev.InputEvent{
			Type:  typ,
			Code:  evdev.EvCode(rapid.Uint16().Draw(t, "code")),
			Value: rapid.Int32().Draw(t, "value"),
		}

		next, d := Process(s, ev)
		if d != Drop {
			t.Fatalf("non-key event type %d forwarded", typ)
		}
		if next != s {
			t.Fatalf("non-key event changed state %s -> %s", s, next)
		}

		sink := &recordingSink{}
		e := &Engine{state: s}
		if _, err := e.Handle(ev, sink); err != nil {
			t.Fatal(err)
		}
		if len(sink.ops) != 0 {
			t.Fatalf("non-key event reached the sink: %v", sink.ops)
		}
	})
}

func TestSyncPairsWithForward(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		events := rapid.SliceOfN(rapid.Custom(drawEvent), 0, 64).Draw(t, "events")

		e := NewEngine(nil)
		sink := &recordingSink{}
		forwards := 0
		for _, ev := range events {
			d, err := e.Handle(ev, sink)
			if err != nil {
				t.Fatal(err)
			}
			if d == Forward {
				forwards++
				if ev.Type != evdev.EV_KEY {
					t.Fatalf("forwarded non-key event type %d", ev.Type)
				}
			}
		}

		if sink.syncs != forwards {
			t.Fatalf("syncs %d != forwards %d", sink.syncs, forwards)
		}
		if len(sink.ops) != 2*forwards {
			t.Fatalf("unexpected sink ops %v", sink.ops)
		}
		for i := 0; i < len(sink.ops); i += 2 {
			if sink.ops[i] != "accept" || sink.ops[i+1] != "sync" {
				t.Fatalf("op %d not an accept/sync pair: %v", i, sink.ops[i:i+2])
			}
		}
		if e.Stats().Forwarded != uint64(forwards) {
			t.Fatalf("stats forwarded %d != %d", e.Stats().Forwarded, forwards)
		}
	})
}
