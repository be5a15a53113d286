// shift-tutor grabs a physical keyboard and re-emits its events through a
// virtual keyboard, dropping keys typed with the shift key of the same hand.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"shifttutor/internal/device"
	"shifttutor/internal/filter"
	"shifttutor/internal/sdnotify"
	"shifttutor/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp().newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintf(os.Stderr, "shift-tutor: %v\n", err)
		}
		os.Exit(1)
	}
}

// reportedError marks an error that has already been logged.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// keyboardScanner lists and resolves keyboards.
type keyboardScanner interface {
	Keyboards() ([]device.Info, error)
	Resolve(sel device.Selector) (string, error)
}

// acquireFunc grabs the device at path and creates the virtual keyboard.
// Closing release undoes both.
type acquireFunc func(path string) (src session.Source, sink filter.Sink, release io.Closer, err error)

// app carries the process collaborators so tests can replace them.
type app struct {
	stdout  io.Writer
	stderr  io.Writer
	scanner keyboardScanner
	acquire acquireFunc
	notify  func(state string) (bool, error)
}

func newApp() *app {
	return &app{
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		scanner: device.NewScanner(),
		acquire: acquireDevice,
		notify:  sdnotify.Notify,
	}
}

func acquireDevice(path string) (session.Source, filter.Sink, io.Closer, error) {
	h, err := device.Acquire(path, device.SinkName)
	if err != nil {
		return nil, nil, nil, err
	}
	return h.Source(), h.Sink(), h, nil
}

// options holds the parsed command-line flags.
type options struct {
	configPath    string
	list          bool
	vendor        string
	product       string
	name          string
	systemd       bool
	logLevel      string
	logFormat     string
	metricsListen string
}

func (a *app) newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "shift-tutor [DEVICE]",
		Short: "Train opposite-hand shifting on a physical keyboard",
		Long: `shift-tutor takes exclusive hold of a keyboard and re-emits its events
through a virtual keyboard named "virtual-keyboard". A key is swallowed when
the shift key on the same hand is held, so capitals must be typed with the
shift key of the other hand.

Select the keyboard with exactly one of a DEVICE path, --vendor/--product or
--name. Use --list to see candidates. Grabbing devices requires root.

Example:
  shift-tutor --list
  shift-tutor --vendor 0x046d --product 0xc52b
  shift-tutor -D /dev/input/event3`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.list {
				return a.list(cmd, args)
			}
			return a.run(cmd, args, &opts)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&opts.list, "list", "l", false, "list keyboard devices and exit")
	f.StringVar(&opts.vendor, "vendor", "", "vendor ID of device (decimal, 0x hex or 0 octal)")
	f.StringVar(&opts.product, "product", "", "product ID of device (decimal, 0x hex or 0 octal)")
	f.StringVar(&opts.name, "name", "", "exact device name string")
	f.BoolVarP(&opts.systemd, "systemd", "D", false, "notify systemd when running as a service")
	f.StringVarP(&opts.configPath, "config", "c", "", "path to configuration file (TOML, YAML or JSON)")
	f.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.StringVar(&opts.logFormat, "log-format", "", "log format (text, json)")
	f.StringVar(&opts.metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address")

	return cmd
}

// errListWithSelection is returned when --list is combined with a selection.
var errListWithSelection = errors.New("--list cannot be combined with a device selection")

// cliSelection reports whether a device selection was given on the command line.
func cliSelection(cmd *cobra.Command, args []string) bool {
	f := cmd.Flags()
	return len(args) > 0 || f.Changed("vendor") || f.Changed("product") || f.Changed("name")
}

func (a *app) list(cmd *cobra.Command, args []string) error {
	if cliSelection(cmd, args) {
		return errListWithSelection
	}

	keyboards, err := a.scanner.Keyboards()
	if err != nil {
		return err
	}
	return device.WriteTable(a.stdout, keyboards)
}
