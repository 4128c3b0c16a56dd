package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession() *Session {
	return NewSession("run-1", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestSession_Attrs(t *testing.T) {
	s := newTestSession()
	assert.Equal(t, []slog.Attr{slog.String("session", "run-1")}, s.Attrs(), "no frame before the first tick")

	s.Observe(12, 3)
	assert.Equal(t, uint64(12), s.Frame())
	assert.Equal(t, 3, s.Bound())
	assert.Equal(t, []slog.Attr{
		slog.String("session", "run-1"),
		slog.Uint64("frame", 12),
		slog.Int("bound", 3),
	}, s.Attrs())
}

func TestSetup_SessionAttributes(t *testing.T) {
	s := newTestSession()
	var buf bytes.Buffer
	m := NewSlogManager()
	m.SetSession(s)
	m.Setup(&buf, "info", nil)

	s.Observe(7, 2)
	m.Logger().Info("tick")
	assert.Contains(t, buf.String(), "msg=tick session=run-1 frame=7 bound=2")
}

func TestSession_ZerologHook(t *testing.T) {
	s := newTestSession()
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Hook(s)

	logger.Info().Msg("before")
	s.Observe(4, 1)
	logger.Info().Msg("after")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var before, after map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &before))
	require.NoError(t, json.Unmarshal(lines[1], &after))
	assert.Equal(t, "run-1", before["session"])
	assert.NotContains(t, before, "frame")
	assert.Equal(t, float64(4), after["frame"])
	assert.Equal(t, float64(1), after["bound"])
}

func TestSessionHandler_FansOut(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h1 := slog.NewTextHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelInfo})
	h2 := slog.NewJSONHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(newSessionHandler(newTestSession(), nil, h1, nil, h2))
	logger.Info("bound", "marker", 3)

	assert.Contains(t, buf1.String(), "marker=3 session=run-1")
	assert.Contains(t, buf2.String(), `"session":"run-1"`)
}

func TestSessionHandler_Enabled(t *testing.T) {
	info := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})
	debug := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug})

	tests := []struct {
		name    string
		outputs []slog.Handler
		level   slog.Level
		want    bool
	}{
		{name: "no outputs", level: slog.LevelError, want: false},
		{name: "info output drops debug", outputs: []slog.Handler{info}, level: slog.LevelDebug, want: false},
		{name: "info output takes info", outputs: []slog.Handler{info}, level: slog.LevelInfo, want: true},
		{name: "any output enables", outputs: []slog.Handler{info, debug}, level: slog.LevelDebug, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newSessionHandler(nil, tt.outputs...)
			assert.Equal(t, tt.want, h.Enabled(context.Background(), tt.level))
		})
	}
}

func TestSessionHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	h := newSessionHandler(nil, slog.NewTextHandler(&buf, nil))

	slog.New(h.WithAttrs([]slog.Attr{slog.String("adapter", "pin")})).Info("created")
	assert.Contains(t, buf.String(), "adapter=pin")

	buf.Reset()
	slog.New(h.WithGroup("view")).Info("moved", "x", 10)
	assert.Contains(t, buf.String(), "view.x=10")

	assert.Same(t, h, h.WithGroup(""))
}

type failingHandler struct {
	slog.Handler
}

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("output closed")
}

func TestSessionHandler_KeepsDeliveringAfterError(t *testing.T) {
	var buf bytes.Buffer
	h := newSessionHandler(nil, failingHandler{}, slog.NewTextHandler(&buf, nil))

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "released", 0)
	err := h.Handle(context.Background(), r)

	assert.EqualError(t, err, "output closed")
	assert.Contains(t, buf.String(), "released")
}
