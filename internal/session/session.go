// Package session drives one filtering session: it pulls events from the
// grabbed keyboard, runs them through the filter engine and writes the
// survivors to the virtual keyboard until the context is cancelled.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	evdev "github.com/holoplot/go-evdev"

	"shifttutor/internal/filter"
)

// Source yields raw events, blocking until one is available.
type Source interface {
	ReadOne() (*evdev.InputEvent, error)
}

// Session runs the event loop. The engine, and with it the shift state, is
// touched only by the goroutine calling Run.
type Session struct {
	ID string

	engine *filter.Engine
	logger *slog.Logger
}

// Option configures a Session.
type Option func(*config)

type config struct {
	logger   *slog.Logger
	recorder filter.Recorder
}

// WithLogger sets the logger used for the start and stop lines.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithRecorder attaches a decision recorder (metrics).
func WithRecorder(r filter.Recorder) Option {
	return func(c *config) { c.recorder = r }
}

// New creates a session with a fresh idle shift state.
func New(opts ...Option) *Session {
	c := config{logger: slog.Default()}
	for _, opt := range opts {
		opt(&c)
	}

	id := uuid.NewString()
	return &Session{
		ID:     id,
		engine: filter.NewEngine(c.recorder),
		logger: c.logger.With("session", id),
	}
}

// Stats returns the decision counts of the session so far. Only call it
// after Run has returned or from the goroutine running it.
func (s *Session) Stats() filter.Stats {
	return s.engine.Stats()
}

// Run filters events from src into sink until ctx is cancelled, src fails
// or sink fails. Cancellation is not an error and yields nil.
//
// Reads happen on a helper goroutine so that cancellation does not have to
// wait for the next keystroke; events are handed over unbuffered and are
// processed strictly in arrival order. The helper stays blocked in
// src.ReadOne after Run returns until the caller closes the source.
func (s *Session) Run(ctx context.Context, src Source, sink filter.Sink) error {
	events := make(chan *evdev.InputEvent)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			ev, err := src.ReadOne()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	started := time.Now()
	s.logger.Info("filtering started")
	defer func() {
		st := s.engine.Stats()
		s.logger.Info("filtering stopped",
			"duration", time.Since(started).Round(time.Millisecond),
			"forwarded", st.Forwarded,
			"dropped", st.Dropped,
			"discarded", st.Discarded,
		)
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		case ev := <-events:
			if _, err := s.engine.Handle(ev, sink); err != nil {
				return err
			}
		}
	}
}
