// Package keyzone partitions the typing keys of a keyboard into the half
// struck by the left hand and the half struck by the right hand, following
// standard touch-typing finger assignment.
//
// The partition is fixed data. Modifier keys (including both shift keys)
// belong to neither zone.
package keyzone

import (
	"sort"

	evdev "github.com/holoplot/go-evdev"
)

// Zone identifies one half of the keyboard.
type Zone int

const (
	// None is reported for codes outside both zones (modifiers, function
	// keys, navigation, keypad, ...).
	None Zone = iota
	// Left is the left-hand typing zone.
	Left
	// Right is the right-hand typing zone.
	Right
)

// String returns the zone name as used in metric labels.
func (z Zone) String() string {
	switch z {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "none"
	}
}

var leftKeys = map[evdev.EvCode]struct{}{
	evdev.KEY_GRAVE: {},
	evdev.KEY_1:     {},
	evdev.KEY_2:     {},
	evdev.KEY_3:     {},
	evdev.KEY_4:     {},
	evdev.KEY_5:     {},
	evdev.KEY_Q:     {},
	evdev.KEY_W:     {},
	evdev.KEY_E:     {},
	evdev.KEY_R:     {},
	evdev.KEY_T:     {},
	evdev.KEY_A:     {},
	evdev.KEY_S:     {},
	evdev.KEY_D:     {},
	evdev.KEY_F:     {},
	evdev.KEY_G:     {},
	evdev.KEY_Z:     {},
	evdev.KEY_X:     {},
	evdev.KEY_C:     {},
	evdev.KEY_V:     {},
	evdev.KEY_B:     {},
}

var rightKeys = map[evdev.EvCode]struct{}{
	evdev.KEY_6:          {},
	evdev.KEY_7:          {},
	evdev.KEY_8:          {},
	evdev.KEY_9:          {},
	evdev.KEY_0:          {},
	evdev.KEY_MINUS:      {},
	evdev.KEY_EQUAL:      {},
	evdev.KEY_Y:          {},
	evdev.KEY_U:          {},
	evdev.KEY_I:          {},
	evdev.KEY_O:          {},
	evdev.KEY_P:          {},
	evdev.KEY_LEFTBRACE:  {},
	evdev.KEY_RIGHTBRACE: {},
	evdev.KEY_BACKSLASH:  {},
	evdev.KEY_H:          {},
	evdev.KEY_J:          {},
	evdev.KEY_K:          {},
	evdev.KEY_L:          {},
	evdev.KEY_SEMICOLON:  {},
	evdev.KEY_APOSTROPHE: {},
	evdev.KEY_N:          {},
	evdev.KEY_M:          {},
	evdev.KEY_COMMA:      {},
	evdev.KEY_DOT:        {},
	evdev.KEY_SLASH:      {},
}

// Contains reports whether code belongs to zone z. It is false for None.
func Contains(z Zone, code evdev.EvCode) bool {
	var ok bool
	switch z {
	case Left:
		_, ok = leftKeys[code]
	case Right:
		_, ok = rightKeys[code]
	}
	return ok
}

// Classify returns the zone holding code, or None.
func Classify(code evdev.EvCode) Zone {
	if Contains(Left, code) {
		return Left
	}
	if Contains(Right, code) {
		return Right
	}
	return None
}

// Codes returns the members of z in ascending order.
func Codes(z Zone) []evdev.EvCode {
	var set map[evdev.EvCode]struct{}
	switch z {
	case Left:
		set = leftKeys
	case Right:
		set = rightKeys
	default:
		return nil
	}

	codes := make([]evdev.EvCode, 0, len(set))
	for c := range set {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
