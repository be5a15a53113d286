package device

import (
	"errors"
	"fmt"
	"os"

	evdev "github.com/holoplot/go-evdev"
	"golang.org/x/sys/unix"

	"shifttutor/internal/filter"
)

// SinkName is the name under which the virtual keyboard is registered.
const SinkName = "virtual-keyboard"

// ErrPrivilege is wrapped into acquisition errors caused by missing
// permissions when not running as root.
var ErrPrivilege = errors.New("requires root privileges")

// EventReader yields raw events from the grabbed keyboard.
type EventReader interface {
	ReadOne() (*evdev.InputEvent, error)
}

// sourceDevice is the subset of *evdev.InputDevice used for the physical
// keyboard.
type sourceDevice interface {
	EventReader
	Grab() error
	Ungrab() error
	Close() error
}

// sinkDevice is the subset of *evdev.InputDevice used for the virtual
// keyboard.
type sinkDevice interface {
	WriteOne(ev *evdev.InputEvent) error
	Close() error
}

// backend opens source devices and clones them into virtual keyboards.
type backend struct {
	open  func(path string) (sourceDevice, error)
	clone func(name string, src sourceDevice) (sinkDevice, error)
}

var evdevBackend = backend{
	open: func(path string) (sourceDevice, error) {
		dev, err := evdev.Open(path)
		if err != nil {
			return nil, err
		}
		return dev, nil
	},
	clone: func(name string, src sourceDevice) (sinkDevice, error) {
		dev, ok := src.(*evdev.InputDevice)
		if !ok {
			return nil, fmt.Errorf("cannot clone %T", src)
		}
		sink, err := evdev.CloneDevice(name, dev)
		if err != nil {
			return nil, err
		}
		return sink, nil
	},
}

// Handle holds the grabbed physical keyboard and the virtual keyboard
// mirroring its capabilities. Close releases both.
type Handle struct {
	path    string
	source  sourceDevice
	sink    sinkDevice
	grabbed bool
}

// Acquire opens path, grabs it exclusively and creates a virtual keyboard
// cloned from it. On failure everything acquired so far is released.
func Acquire(path, sinkName string) (*Handle, error) {
	return evdevBackend.acquire(path, sinkName)
}

func (b backend) acquire(path, sinkName string) (h *Handle, err error) {
	src, err := b.open(path)
	if err != nil {
		return nil, privilegeHint(fmt.Errorf("open %s: %w", path, err))
	}

	h = &Handle{path: path, source: src}
	defer func() {
		if err != nil {
			_ = h.Close()
			h = nil
		}
	}()

	if err := src.Grab(); err != nil {
		return h, privilegeHint(fmt.Errorf("grab %s: %w", path, err))
	}
	h.grabbed = true

	sink, err := b.clone(sinkName, src)
	if err != nil {
		return h, privilegeHint(fmt.Errorf("create virtual keyboard: %w", err))
	}
	h.sink = sink

	return h, nil
}

// Path returns the source device path.
func (h *Handle) Path() string {
	return h.path
}

// Source returns the grabbed physical device. Its ReadOne blocks until an
// event arrives or the device is closed.
func (h *Handle) Source() EventReader {
	return h.source
}

// Sink returns the virtual keyboard as a filter.Sink.
func (h *Handle) Sink() filter.Sink {
	return uinputSink{dev: h.sink}
}

// Close destroys the virtual keyboard first, then releases the grab and
// closes the source. Every step is attempted; errors are joined.
func (h *Handle) Close() error {
	var errs []error

	if h.sink != nil {
		if err := h.sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close virtual keyboard: %w", err))
		}
		h.sink = nil
	}

	if h.source != nil {
		if h.grabbed {
			if err := h.source.Ungrab(); err != nil {
				errs = append(errs, fmt.Errorf("release grab on %s: %w", h.path, err))
			}
			h.grabbed = false
		}
		if err := h.source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", h.path, err))
		}
		h.source = nil
	}

	return errors.Join(errs...)
}

var synReport = evdev.InputEvent{Type: evdev.EV_SYN, Code: evdev.SYN_REPORT, Value: 0}

// uinputSink adapts a uinput device to filter.Sink.
type uinputSink struct {
	dev sinkDevice
}

func (s uinputSink) Accept(ev *evdev.InputEvent) error {
	return s.dev.WriteOne(ev)
}

func (s uinputSink) Sync() error {
	ev := synReport
	return s.dev.WriteOne(&ev)
}

func privilegeHint(err error) error {
	if errors.Is(err, os.ErrPermission) && unix.Geteuid() != 0 {
		return fmt.Errorf("%w (%w)", err, ErrPrivilege)
	}
	return err
}
