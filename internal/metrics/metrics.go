// Package metrics provides Prometheus metrics for shift-tutor.
//
// Counters accumulate whether or not the scrape endpoint is enabled.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shifttutor/internal/filter"
	"shifttutor/internal/keyzone"
)

const namespace = "shift_tutor"

// Metrics holds all shift-tutor metrics on a private registry.
type Metrics struct {
	eventsForwarded prometheus.Counter
	eventsDropped   *prometheus.CounterVec
	eventsDiscarded *prometheus.CounterVec
	configReloads   *prometheus.CounterVec
	sessionActive   prometheus.Gauge

	registry *prometheus.Registry
}

var _ filter.Recorder = (*Metrics)(nil)

// New creates and registers all metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		eventsForwarded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_forwarded_total",
				Help:      "Key events written to the virtual keyboard.",
			},
		),

		eventsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_dropped_total",
				Help:      "Key events suppressed because the shift key on the same hand was held.",
			},
			[]string{"zone"},
		),

		eventsDiscarded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_discarded_total",
				Help:      "Non-key events discarded from the source device.",
			},
			[]string{"kind"},
		),

		configReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Configuration reload attempts by status.",
			},
			[]string{"status"},
		),

		sessionActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "session_active",
				Help:      "1 while a filtering session holds the keyboard.",
			},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.eventsForwarded,
		m.eventsDropped,
		m.eventsDiscarded,
		m.configReloads,
		m.sessionActive,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Expose every label value from the first scrape.
	for _, z := range []keyzone.Zone{keyzone.Left, keyzone.Right} {
		m.eventsDropped.WithLabelValues(z.String())
	}
	for _, k := range []filter.Kind{filter.KindSync, filter.KindOther} {
		m.eventsDiscarded.WithLabelValues(k.String())
	}

	return m
}

// RecordForward counts a forwarded key event.
func (m *Metrics) RecordForward() {
	m.eventsForwarded.Inc()
}

// RecordDrop counts a suppressed key event in zone.
func (m *Metrics) RecordDrop(zone keyzone.Zone) {
	m.eventsDropped.WithLabelValues(zone.String()).Inc()
}

// RecordDiscard counts a discarded non-key event.
func (m *Metrics) RecordDiscard(kind filter.Kind) {
	m.eventsDiscarded.WithLabelValues(kind.String()).Inc()
}

// RecordConfigReload counts a configuration reload attempt.
func (m *Metrics) RecordConfigReload(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.configReloads.WithLabelValues(status).Inc()
}

// SetSessionActive flags whether a session is running.
func (m *Metrics) SetSessionActive(active bool) {
	v := 0.0
	if active {
		v = 1.0
	}
	m.sessionActive.Set(v)
}

// Handler returns the HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Server serves /metrics until Shutdown.
type Server struct {
	server   *http.Server
	listener net.Listener
	logger   *slog.Logger
	done     chan struct{}
}

// Route is an additional handler mounted next to /metrics.
type Route struct {
	Pattern string
	Handler http.Handler
}

// Serve starts an HTTP server on addr exposing m at /metrics plus routes.
func Serve(addr string, m *Metrics, logger *slog.Logger, routes ...Route) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	for _, r := range routes {
		mux.Handle(r.Pattern, r.Handler)
	}

	s := &Server{
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: listener,
		logger:   logger,
		done:     make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	logger.Info("metrics endpoint listening", "addr", listener.Addr().String())
	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Shutdown stops the server, waiting at most until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	<-s.done
	return err
}
