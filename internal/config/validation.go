package config

import (
	"errors"
	"fmt"
	"strings"

	"shifttutor/internal/logging"
)

// Selection errors. They are raised before any device is touched.
var (
	ErrNoSelection        = errors.New("no device selected: give a DEVICE path, --vendor/--product or --name")
	ErrAmbiguousSelection = errors.New("more than one device selection given: use only one of DEVICE, --vendor/--product or --name")
	ErrPartialIDs         = errors.New("specify both --vendor and --product")
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (e ValidationErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for i := range e {
		errs[i] = &e[i]
	}
	return errs
}

// ValidateConfig checks field formats. It does not require a device
// selection, so it also passes for listing.
func ValidateConfig(c *Config) error {
	var errs ValidationErrors

	if c.Device.Vendor != "" {
		if _, err := ParseID(c.Device.Vendor); err != nil {
			errs = append(errs, ValidationError{Field: "device.vendor", Message: err.Error(), Err: err})
		}
	}
	if c.Device.Product != "" {
		if _, err := ParseID(c.Device.Product); err != nil {
			errs = append(errs, ValidationError{Field: "device.product", Message: err.Error(), Err: err})
		}
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, ValidationError{Field: "logging.level", Message: err.Error(), Err: err})
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		errs = append(errs, ValidationError{Field: "logging.format", Message: err.Error(), Err: err})
	}
	switch c.Logging.Output {
	case "", "stdout", "stderr":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("unknown output %q (want stdout or stderr)", c.Logging.Output),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateSelection checks that exactly one device selection method is
// configured and that vendor and product come together.
func (c *Config) ValidateSelection() error {
	d := c.Device

	if (d.Vendor == "") != (d.Product == "") {
		return &ValidationError{Field: "device", Message: ErrPartialIDs.Error(), Err: ErrPartialIDs}
	}

	methods := 0
	if d.Path != "" {
		methods++
	}
	if d.Vendor != "" {
		methods++
	}
	if d.Name != "" {
		methods++
	}

	switch {
	case methods == 0:
		return &ValidationError{Field: "device", Message: ErrNoSelection.Error(), Err: ErrNoSelection}
	case methods > 1:
		return &ValidationError{Field: "device", Message: ErrAmbiguousSelection.Error(), Err: ErrAmbiguousSelection}
	}
	return nil
}

