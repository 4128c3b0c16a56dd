package logging

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Session identifies one coordinator run. Every record logged through a
// session-aware logger carries its id, the current frame and the number of
// bound marker views.
type Session struct {
	ID    string
	Start time.Time

	frame atomic.Uint64
	bound atomic.Int64
}

func NewSession(id string, start time.Time) *Session {
	return &Session{ID: id, Start: start}
}

// Observe records the coordinator state after a frame. Safe for concurrent use.
func (s *Session) Observe(frame uint64, bound int) {
	s.frame.Store(frame)
	s.bound.Store(int64(bound))
}

func (s *Session) Frame() uint64 { return s.frame.Load() }

func (s *Session) Bound() int { return int(s.bound.Load()) }

// Attrs returns the per-record attributes. Frame and bound count are left out
// until the first frame ran.
func (s *Session) Attrs() []slog.Attr {
	attrs := []slog.Attr{slog.String("session", s.ID)}
	if f := s.Frame(); f > 0 {
		attrs = append(attrs, slog.Uint64("frame", f), slog.Int("bound", s.Bound()))
	}
	return attrs
}

// Run implements zerolog.Hook.
func (s *Session) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	e.Str("session", s.ID)
	if f := s.Frame(); f > 0 {
		e.Uint64("frame", f).Int("bound", s.Bound())
	}
}

// sessionHandler stamps session attributes on every record before handing it
// to each output that accepts its level.
type sessionHandler struct {
	session *Session
	outputs []slog.Handler
}

func newSessionHandler(s *Session, outputs ...slog.Handler) *sessionHandler {
	valid := make([]slog.Handler, 0, len(outputs))
	for _, h := range outputs {
		if h != nil {
			valid = append(valid, h)
		}
	}
	return &sessionHandler{session: s, outputs: valid}
}

func (h *sessionHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, o := range h.outputs {
		if o.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers r to every output even when one of them fails and returns
// the joined errors.
func (h *sessionHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.session != nil {
		r.AddAttrs(h.session.Attrs()...)
	}
	var errs []error
	for _, o := range h.outputs {
		if !o.Enabled(ctx, r.Level) {
			continue
		}
		if err := o.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *sessionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(o slog.Handler) slog.Handler { return o.WithAttrs(attrs) })
}

func (h *sessionHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.derive(func(o slog.Handler) slog.Handler { return o.WithGroup(name) })
}

func (h *sessionHandler) derive(fn func(slog.Handler) slog.Handler) *sessionHandler {
	outputs := make([]slog.Handler, len(h.outputs))
	for i, o := range h.outputs {
		outputs[i] = fn(o)
	}
	return &sessionHandler{session: h.session, outputs: outputs}
}
