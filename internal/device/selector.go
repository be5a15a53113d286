// Package device finds the physical keyboard to filter and manages the
// exclusive grab on it together with the virtual keyboard that replaces it.
package device

import (
	"errors"
	"fmt"
)

// MinKeyCodes is the number of distinct key codes a device must advertise to
// be considered a keyboard. Mice, power buttons and lid switches fall below.
const MinKeyCodes = 100

// ErrNotFound is returned when no eligible device matches a selector.
var ErrNotFound = errors.New("could not find any device")

// Selector chooses a source device. It is one of ByPath, ByIDs or ByName.
type Selector interface {
	fmt.Stringer
	isSelector()
}

// ByPath selects an explicit event device node such as /dev/input/event3.
type ByPath struct {
	Path string
}

// ByIDs selects the first keyboard reporting the vendor and product IDs.
type ByIDs struct {
	Vendor  uint16
	Product uint16
}

// ByName selects the first keyboard whose name matches exactly.
type ByName struct {
	Name string
}

func (ByPath) isSelector() {}
func (ByIDs) isSelector()  {}
func (ByName) isSelector() {}

func (s ByPath) String() string { return "path " + s.Path }

func (s ByIDs) String() string {
	return fmt.Sprintf("vendor %#04x product %#04x", s.Vendor, s.Product)
}

func (s ByName) String() string { return fmt.Sprintf("name %q", s.Name) }
