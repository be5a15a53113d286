package device

import (
	"fmt"
	"io"

	evdev "github.com/holoplot/go-evdev"
)

// Info describes an eligible keyboard.
type Info struct {
	Path    string
	Vendor  uint16
	Product uint16
	Name    string
}

// candidate is the subset of *evdev.InputDevice used while probing.
type candidate interface {
	Name() (string, error)
	InputID() (evdev.InputID, error)
	CapableEvents(t evdev.EvType) []evdev.EvCode
	Close() error
}

// Scanner enumerates input devices once per call. It never retries.
type Scanner struct {
	listPaths func() ([]evdev.InputPath, error)
	open      func(path string) (candidate, error)
}

// NewScanner returns a Scanner over /dev/input.
func NewScanner() *Scanner {
	return &Scanner{
		listPaths: evdev.ListDevicePaths,
		open: func(path string) (candidate, error) {
			dev, err := evdev.Open(path)
			if err != nil {
				return nil, err
			}
			return dev, nil
		},
	}
}

// Keyboards returns every device advertising at least MinKeyCodes key codes.
// Devices that cannot be opened or queried are skipped.
func (s *Scanner) Keyboards() ([]Info, error) {
	paths, err := s.listPaths()
	if err != nil {
		return nil, fmt.Errorf("list input devices: %w", err)
	}

	var out []Info
	for _, p := range paths {
		if info, ok := s.probe(p.Path); ok {
			out = append(out, info)
		}
	}
	return out, nil
}

func (s *Scanner) probe(path string) (Info, bool) {
	dev, err := s.open(path)
	if err != nil {
		return Info{}, false
	}
	defer dev.Close()

	if len(dev.CapableEvents(evdev.EV_KEY)) < MinKeyCodes {
		return Info{}, false
	}

	id, err := dev.InputID()
	if err != nil {
		return Info{}, false
	}
	name, err := dev.Name()
	if err != nil {
		return Info{}, false
	}

	return Info{Path: path, Vendor: id.Vendor, Product: id.Product, Name: name}, true
}

// Resolve maps sel to a device path. ByPath is returned as is; the other
// selectors pick the first matching keyboard in enumeration order.
func (s *Scanner) Resolve(sel Selector) (string, error) {
	var match func(Info) bool
	switch sel := sel.(type) {
	case ByPath:
		return sel.Path, nil
	case ByIDs:
		match = func(i Info) bool { return i.Vendor == sel.Vendor && i.Product == sel.Product }
	case ByName:
		match = func(i Info) bool { return i.Name == sel.Name }
	default:
		return "", fmt.Errorf("unsupported device selector %T", sel)
	}

	keyboards, err := s.Keyboards()
	if err != nil {
		return "", err
	}
	for _, kb := range keyboards {
		if match(kb) {
			return kb.Path, nil
		}
	}
	return "", fmt.Errorf("%w (%s)", ErrNotFound, sel)
}

// WriteTable prints keyboards in the listing format:
//
//	device                vendor product   name
//	/dev/input/event3      0x46d  0xc52b   Logitech USB Receiver
func WriteTable(w io.Writer, keyboards []Info) error {
	if _, err := fmt.Fprintf(w, "%-20s %7s %7s   %s\n", "device", "vendor", "product", "name"); err != nil {
		return err
	}
	for _, kb := range keyboards {
		if _, err := fmt.Fprintf(w, "%-20s %#7x %#7x   %s\n", kb.Path, kb.Vendor, kb.Product, kb.Name); err != nil {
			return err
		}
	}
	return nil
}
