package markerview

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/OCAP2/markerview/internal/anim"
	"github.com/OCAP2/markerview/internal/registry"
	"github.com/OCAP2/markerview/internal/trace"
	"github.com/OCAP2/markerview/internal/view"
	"github.com/OCAP2/markerview/pkg/core"
)

const (
	typePin   core.AdapterType = "pin"
	typeLabel core.AdapterType = "label"
)

var (
	inside  = core.LatLng{Lat: 0.2, Lng: 0.5}
	outside = core.LatLng{Lat: 5, Lng: 5}
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) { l.add("DEBUG", msg, keysAndValues) }
func (l *testLogger) Info(msg string, keysAndValues ...any)  { l.add("INFO", msg, keysAndValues) }
func (l *testLogger) Error(msg string, keysAndValues ...any) { l.add("ERROR", msg, keysAndValues) }

func (l *testLogger) add(level, msg string, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("%s: %s %v", level, msg, kv))
}

type manualClock struct {
	t time.Time
}

func (c *manualClock) now() time.Time          { return c.t }
func (c *manualClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// fakeProjector maps one degree to 100 pixels, north up.
type fakeProjector struct {
	bounds core.Bounds
}

func (p *fakeProjector) ToScreenLocation(l core.LatLng) core.ScreenPoint {
	return core.ScreenPoint{X: l.Lng * 100, Y: -l.Lat * 100}
}

func (p *fakeProjector) VisibleBounds() core.Bounds {
	return p.bounds
}

type animCall struct {
	view     *view.View
	prop     view.Property
	to       float64
	duration time.Duration
}

// recordingAnimator records every Animate call and delegates to a real engine.
type recordingAnimator struct {
	*anim.Engine
	calls []animCall
}

func (r *recordingAnimator) Animate(v *view.View, p view.Property, to float64, d time.Duration, done func(bool)) {
	r.calls = append(r.calls, animCall{view: v, prop: p, to: to, duration: d})
	r.Engine.Animate(v, p, to, d, done)
}

func (r *recordingAnimator) callsFor(v *view.View, p view.Property) []animCall {
	var out []animCall
	for _, c := range r.calls {
		if c.view == v && c.prop == p {
			out = append(out, c)
		}
	}
	return out
}

type selectCall struct {
	id     core.MarkerID
	replay bool
}

// fakeAdapter renders a marker's title into a 40x20 view.
type fakeAdapter struct {
	typ         core.AdapterType
	created     int
	reused      int
	fail        map[core.MarkerID]bool
	consume     bool
	keepOnReuse bool
	// neverReuse makes the adapter ignore recycled views.
	neverReuse bool
	parents     []*view.Container

	selects   []selectCall
	deselects []core.MarkerID
	prepared  []core.MarkerID
}

func newFakeAdapter(t core.AdapterType) *fakeAdapter {
	return &fakeAdapter{typ: t, fail: make(map[core.MarkerID]bool)}
}

func (a *fakeAdapter) Type() core.AdapterType { return a.typ }

func (a *fakeAdapter) CreateOrReuseView(m *core.Marker, recycled *view.View, parent *view.Container) *view.View {
	a.parents = append(a.parents, parent)
	if a.fail[m.ID] {
		return nil
	}
	v := recycled
	if v == nil || a.neverReuse {
		v = view.New(40, 20)
		a.created++
	} else {
		a.reused++
	}
	v.Content = m.Title
	return v
}

func (a *fakeAdapter) PrepareForReuse(m *core.Marker, v *view.View) bool {
	a.prepared = append(a.prepared, m.ID)
	v.Scale = 1
	return !a.keepOnReuse
}

func (a *fakeAdapter) OnSelect(m *core.Marker, v *view.View, replay bool) bool {
	a.selects = append(a.selects, selectCall{id: m.ID, replay: replay})
	return a.consume && !replay
}

func (a *fakeAdapter) OnDeselect(m *core.Marker, v *view.View) {
	a.deselects = append(a.deselects, m.ID)
}

type harness struct {
	reg   *registry.Registry
	proj  *fakeProjector
	clock *manualClock
	anim  *recordingAnimator
	sink  *trace.Memory
	log   *testLogger
	c     *Coordinator
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		reg:   registry.New(),
		proj:  &fakeProjector{bounds: core.Bounds{South: -1, West: -1, North: 1, East: 1}},
		clock: &manualClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		sink:  trace.NewMemory(trace.MemoryConfig{}, "test"),
		log:   &testLogger{},
	}
	h.anim = &recordingAnimator{Engine: anim.NewEngine(h.clock.now)}

	base := []Option{
		WithClock(h.clock.now),
		WithAnimator(h.anim),
		WithTrace(h.sink),
		WithLogger(h.log),
		WithMeter(noop.Meter{}),
	}
	c, err := New(h.reg, h.proj, append(base, opts...)...)
	require.NoError(t, err)
	h.c = c
	return h
}

func (h *harness) insert(t *testing.T, typ core.AdapterType, title string, at core.LatLng) *core.Marker {
	t.Helper()
	m := core.NewMarkerOptions().Type(typ).Title(title).Position(at).Marker()
	_, err := h.c.Insert(m)
	require.NoError(t, err)
	return m
}

func (h *harness) count(kind trace.Kind) int {
	n := 0
	for _, e := range h.sink.Events() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (h *harness) boundView(t *testing.T, id core.MarkerID) *view.View {
	t.Helper()
	v, ok := h.c.BoundView(id)
	require.True(t, ok, "marker %d should be bound", id)
	return v
}
