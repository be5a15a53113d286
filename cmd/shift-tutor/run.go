package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"shifttutor/internal/config"
	"shifttutor/internal/device"
	"shifttutor/internal/health"
	"shifttutor/internal/logging"
	"shifttutor/internal/metrics"
	"shifttutor/internal/sdnotify"
	"shifttutor/internal/session"
)

// loadConfig layers command-line flags over the file and environment. A
// selection given on the command line replaces any selection from lower
// layers as a whole.
func loadConfig(cmd *cobra.Command, args []string, opts *options) (*config.Loader, *config.Config, error) {
	loader := config.NewLoader(opts.configPath)
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}

	f := cmd.Flags()
	if cliSelection(cmd, args) {
		cfg.Device = config.DeviceConfig{
			Vendor:  opts.vendor,
			Product: opts.product,
			Name:    opts.name,
		}
		if len(args) > 0 {
			cfg.Device.Path = args[0]
		}
	}
	if f.Changed("systemd") {
		cfg.Systemd = opts.systemd
	}
	if f.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if f.Changed("log-format") {
		cfg.Logging.Format = opts.logFormat
	}
	if f.Changed("metrics-listen") {
		cfg.Metrics.Listen = opts.metricsListen
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return loader, cfg, nil
}

func (a *app) newLogger(cfg *config.Config) (*logging.Logger, error) {
	lc := cfg.LoggerConfig()
	switch lc.Output {
	case "stdout":
		lc.Writer = a.stdout
	default:
		lc.Writer = a.stderr
	}
	return logging.New(lc)
}

func (a *app) run(cmd *cobra.Command, args []string, opts *options) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	loader, cfg, err := loadConfig(cmd, args, opts)
	if err != nil {
		return err
	}
	defer loader.Close()

	sel, err := cfg.Selector()
	if err != nil {
		return err
	}

	logger, err := a.newLogger(cfg)
	if err != nil {
		return err
	}
	logging.SetDefault(logger)

	path, err := a.scanner.Resolve(sel)
	if err != nil {
		return err
	}

	m := metrics.New()
	checker := health.NewChecker()
	checker.RegisterFunc("device", true, health.DeviceCheck(path))

	if cfg.Metrics.Listen != "" {
		srv, err := metrics.Serve(cfg.Metrics.Listen, m, logger.WithComponent("metrics").Logger,
			metrics.Route{Pattern: "/livez", Handler: checker.LivenessHandler()},
			metrics.Route{Pattern: "/readyz", Handler: checker.ReadinessHandler()},
			metrics.Route{Pattern: "/healthz", Handler: checker.HealthHandler()},
		)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown", "error", err)
			}
		}()
	}

	if opts.configPath != "" {
		a.watchConfig(ctx, loader, logger, m, cmd.Flags().Changed("log-level"))
	}

	src, sink, release, err := a.acquire(path)
	if err != nil {
		return err
	}
	defer func() {
		if err := release.Close(); err != nil {
			logger.Error("release device", "device", path, "error", err)
		}
	}()

	if cfg.Systemd {
		a.sdNotify(logger.Logger, sdnotify.Ready)
		defer a.sdNotify(logger.Logger, sdnotify.Stopping)
	}

	checker.SetReady(true)
	defer checker.SetReady(false)
	m.SetSessionActive(true)
	defer m.SetSessionActive(false)

	s := session.New(
		session.WithLogger(logger.With("device", path, "sink", device.SinkName)),
		session.WithRecorder(m),
	)
	if err := s.Run(ctx, src, sink); err != nil {
		logger.Error("filtering aborted", "device", path, "session", s.ID, "error", err)
		return &reportedError{err: err}
	}
	return nil
}

// watchConfig applies log level changes from the configuration file while
// the session runs. A level pinned on the command line is left alone.
func (a *app) watchConfig(ctx context.Context, loader *config.Loader, logger *logging.Logger, m *metrics.Metrics, levelPinned bool) {
	log := logger.WithComponent("config")

	loader.OnChange(func(c *config.Config) {
		m.RecordConfigReload(nil)
		if levelPinned {
			return
		}
		level, _ := logging.ParseLevel(c.Logging.Level)
		logger.SetLevel(level)
		log.Info("configuration reloaded", "level", logging.LevelString(level))
	})

	if err := loader.Watch(); err != nil {
		log.Warn("configuration watch disabled", "path", loader.Path(), "error", err)
		return
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-loader.Errors():
				m.RecordConfigReload(err)
				log.Warn("configuration reload failed", "error", err)
			}
		}
	}()
}

func (a *app) sdNotify(logger *slog.Logger, state string) {
	sent, err := a.notify(state)
	switch {
	case err != nil:
		logger.Warn("service notification failed", "state", state, "error", err)
	case !sent:
		logger.Debug("no service manager socket", "state", state)
	}
}
