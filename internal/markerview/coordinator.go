// Package markerview keeps a bounded set of pooled views bound to the markers
// currently inside the viewport.
//
// A Coordinator is owned by one goroutine, the one calling Tick. Every method
// except Post must be called from that goroutine. Work finishing elsewhere is
// handed back through Post and runs at the start of the next Tick.
package markerview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/OCAP2/markerview/internal/anim"
	"github.com/OCAP2/markerview/internal/geo"
	"github.com/OCAP2/markerview/internal/loop"
	"github.com/OCAP2/markerview/internal/pool"
	"github.com/OCAP2/markerview/internal/registry"
	"github.com/OCAP2/markerview/internal/trace"
	"github.com/OCAP2/markerview/internal/view"
	"github.com/OCAP2/markerview/pkg/core"
)

var (
	// ErrNoAdapter is returned when no adapter is registered for a type.
	ErrNoAdapter = errors.New("no adapter for marker type")
	// ErrAdapterExists is returned when registering a second adapter for a type.
	ErrAdapterExists = errors.New("adapter already registered for marker type")
	// ErrViewBound is returned when handing back a view that is still bound.
	ErrViewBound = errors.New("view is bound to a marker")
	// ErrNotBound is returned for view operations on a marker without a view.
	ErrNotBound = errors.New("marker has no view")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("coordinator closed")
)

// binding ties a marker to the view showing it.
type binding struct {
	// id is the marker id at bind time. A removed marker gets a new id when
	// inserted again, so the binding keeps its own.
	id      core.MarkerID
	marker  *core.Marker
	view    *view.View
	adapter Adapter
	// exiting is set while the view fades out after leaving the viewport.
	exiting bool
}

// Binding describes one marker view pair.
type Binding struct {
	MarkerID core.MarkerID
	Type     core.AdapterType
	View     *view.View
}

type stepper interface {
	Step()
}

// Coordinator reconciles marker views with the visible marker set.
type Coordinator struct {
	reg       *registry.Registry
	projector geo.Projector

	cfg       Config
	logger    Logger
	animator  anim.Animator
	now       func() time.Time
	meter     metric.Meter
	sink      trace.Sink
	container *view.Container
	exec      *loop.Executor
	limiter   *rate.Limiter
	metrics   *metrics

	adapters map[core.AdapterType]Adapter
	pools    map[core.AdapterType]*pool.Pool[*view.View]

	bindings map[core.MarkerID]*binding
	exiting  map[core.MarkerID]*binding
	owners   map[*view.View]core.MarkerID

	selected map[core.MarkerID]struct{}
	// pending holds selections an adapter took over and has not confirmed yet.
	pending map[core.MarkerID]struct{}

	onClick ClickListener
	added   map[core.MarkerID][]AddedListener

	tilt   float64
	frame  uint64
	dirty  bool
	closed bool
}

// New creates a coordinator for reg and starts listening to its mutations.
// Uses the global OTel meter for metrics unless WithMeter is given.
func New(reg *registry.Registry, projector geo.Projector, opts ...Option) (*Coordinator, error) {
	if reg == nil || projector == nil {
		return nil, errors.New("registry and projector are required")
	}

	c := &Coordinator{
		reg:       reg,
		projector: projector,
		cfg:       DefaultConfig(),
		logger:    slog.Default(),
		now:       time.Now,
		sink:      trace.Nop{},
		container: view.NewContainer(),
		exec:      loop.New(),
		adapters:  make(map[core.AdapterType]Adapter),
		pools:     make(map[core.AdapterType]*pool.Pool[*view.View]),
		bindings:  make(map[core.MarkerID]*binding),
		exiting:   make(map[core.MarkerID]*binding),
		owners:    make(map[*view.View]core.MarkerID),
		selected:  make(map[core.MarkerID]struct{}),
		pending:   make(map[core.MarkerID]struct{}),
		added:     make(map[core.MarkerID][]AddedListener),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.animator == nil {
		c.animator = anim.NewEngine(c.now)
	}
	if c.meter == nil {
		c.meter = meter()
	}

	ms, err := newMetrics(c.meter)
	if err != nil {
		return nil, err
	}
	c.metrics = ms

	if c.cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Every(c.cfg.RateLimit), 1)
	} else {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
	}

	for _, m := range reg.All() {
		if m.Flat {
			m.Tilt = c.tilt
		}
		if m.Selected {
			c.adoptSelection(m)
		}
	}
	c.dirty = reg.Len() > 0
	reg.SetListener(listener{c})

	return c, nil
}

// RegisterAdapter adds the adapter for a.Type() and reconciles right away so
// already visible markers of that type get their views.
func (c *Coordinator) RegisterAdapter(a Adapter) error {
	if c.closed {
		return ErrClosed
	}
	if a == nil {
		return fmt.Errorf("register nil adapter: %w", ErrNoAdapter)
	}
	t := a.Type()
	if _, ok := c.adapters[t]; ok {
		return fmt.Errorf("register adapter %q: %w", t, ErrAdapterExists)
	}

	c.adapters[t] = a
	c.pools[t] = pool.New[*view.View]()
	c.logger.Info("Adapter registered", "type", t)

	c.dirty = true
	c.reconcile()
	return nil
}

// UnregisterAdapter tears down every view of type t and drops its pool. The
// pooled views and the views the adapter manages itself are detached from
// the container, since ReleaseView no longer accepts them.
func (c *Coordinator) UnregisterAdapter(t core.AdapterType) error {
	if c.closed {
		return ErrClosed
	}
	a, ok := c.adapters[t]
	if !ok {
		return fmt.Errorf("unregister adapter %q: %w", t, ErrNoAdapter)
	}

	var managed []*view.View
	for _, id := range sortedIDs(c.bindings) {
		if b := c.bindings[id]; b.adapter == a {
			delete(c.bindings, id)
			if !c.recycle(b) {
				managed = append(managed, b.view)
			}
		}
	}
	for _, id := range sortedIDs(c.exiting) {
		if b := c.exiting[id]; b.adapter == a {
			delete(c.exiting, id)
			b.exiting = false
			if !c.recycle(b) {
				managed = append(managed, b.view)
			}
		}
	}
	for _, v := range managed {
		v.Hide()
		c.container.Remove(v)
	}

	views := c.pools[t].Drain()
	for _, v := range views {
		c.container.Remove(v)
	}
	delete(c.pools, t)
	delete(c.adapters, t)

	c.logger.Info("Adapter unregistered", "type", t, "views", len(views), "managed", len(managed))
	c.publishStats()
	return nil
}

// NotifyViewportChanged schedules a reconciliation and runs it now unless one
// ran within the rate limit window. A throttled request runs on a later Tick.
func (c *Coordinator) NotifyViewportChanged() {
	if c.closed {
		return
	}
	c.dirty = true
	c.reconcileIfDue()
}

// Reconcile runs a reconciliation pass regardless of the rate limit.
func (c *Coordinator) Reconcile() error {
	if c.closed {
		return ErrClosed
	}
	c.dirty = true
	c.reconcile()
	return nil
}

// Tick advances one frame: posted callbacks run, animations step, a pending
// reconciliation runs if the rate limit allows it, and every view is moved to
// its marker's current screen position.
func (c *Coordinator) Tick() {
	if c.closed {
		return
	}
	c.frame++

	c.exec.Drain()
	if s, ok := c.animator.(stepper); ok {
		s.Step()
	}
	c.reconcileIfDue()
	c.updatePositions()
	c.publishStats()
}

// Post schedules fn to run on the coordinating goroutine during the next
// Tick. Safe for concurrent use.
func (c *Coordinator) Post(fn func()) {
	c.exec.Post(fn)
}

// ReleaseView returns a view to the pool of type t. Adapters whose
// PrepareForReuse returned false call it once they are done with the view.
func (c *Coordinator) ReleaseView(t core.AdapterType, v *view.View) error {
	if c.closed {
		return ErrClosed
	}
	if v == nil {
		return errors.New("release nil view")
	}
	p, ok := c.pools[t]
	if !ok {
		return fmt.Errorf("release view %d: %w", v.ID(), ErrNoAdapter)
	}
	if id, ok := c.owners[v]; ok {
		return fmt.Errorf("release view %d of marker %d: %w", v.ID(), id, ErrViewBound)
	}

	v.Hide()
	if err := p.Release(v); err != nil {
		return fmt.Errorf("release view %d: %w", v.ID(), err)
	}
	return nil
}

// SetOnMarkerViewClick sets the listener offered every click first.
func (c *Coordinator) SetOnMarkerViewClick(l ClickListener) {
	c.onClick = l
}

// AddOnMarkerViewAdded calls l once marker id has a view. A marker that is
// bound already is reported immediately.
func (c *Coordinator) AddOnMarkerViewAdded(id core.MarkerID, l AddedListener) {
	if l == nil {
		return
	}
	if b, ok := c.bindings[id]; ok {
		l(b.marker, b.view)
		return
	}
	c.added[id] = append(c.added[id], l)
}

// BoundView returns the view currently bound to id.
func (c *Coordinator) BoundView(id core.MarkerID) (*view.View, bool) {
	b, ok := c.bindings[id]
	if !ok {
		return nil, false
	}
	return b.view, true
}

// Exiting reports whether the view of id is fading out.
func (c *Coordinator) Exiting(id core.MarkerID) bool {
	_, ok := c.exiting[id]
	return ok
}

// Bindings returns the active bindings ordered by marker id.
func (c *Coordinator) Bindings() []Binding {
	out := make([]Binding, 0, len(c.bindings))
	for _, id := range sortedIDs(c.bindings) {
		b := c.bindings[id]
		out = append(out, Binding{MarkerID: id, Type: b.adapter.Type(), View: b.view})
	}
	return out
}

// PoolSize returns the number of pooled views of type t.
func (c *Coordinator) PoolSize(t core.AdapterType) int {
	p, ok := c.pools[t]
	if !ok {
		return 0
	}
	return p.Len()
}

// Container returns the parent every created view was added to.
func (c *Coordinator) Container() *view.Container {
	return c.container
}

// Frame returns the number of ticks so far.
func (c *Coordinator) Frame() uint64 {
	return c.frame
}

// Close releases every view, stops listening to the registry and flushes
// the trace sink. The sink itself stays open.
func (c *Coordinator) Close() error {
	if c.closed {
		return nil
	}

	for _, id := range sortedIDs(c.bindings) {
		c.unbind(c.bindings[id], false)
	}
	for _, id := range sortedIDs(c.exiting) {
		c.finishExit(c.exiting[id])
	}
	c.reg.SetListener(nil)
	c.closed = true
	c.publishStats()

	var errs []error
	if err := c.sink.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("flush trace: %w", err))
	}
	if err := c.metrics.unregister(); err != nil {
		errs = append(errs, fmt.Errorf("unregister metrics: %w", err))
	}
	return errors.Join(errs...)
}

func (c *Coordinator) animate(v *view.View, p view.Property, to float64, d time.Duration, done func(bool)) {
	if d > 0 {
		c.metrics.animations.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("property", p.String())))
	}
	c.animator.Animate(v, p, to, d, done)
}

func (c *Coordinator) record(kind trace.Kind, m *core.Marker, detail map[string]any) {
	e := trace.Event{
		Frame:  c.frame,
		Time:   c.now(),
		Kind:   kind,
		Detail: detail,
	}
	if m != nil {
		e.MarkerID = m.ID
		e.Adapter = m.Type
	}
	if err := c.sink.Record(e); err != nil {
		c.logger.Error("Failed to record trace event", "kind", kind, "error", err)
	}
}

func (c *Coordinator) publishStats() {
	sizes := make(map[core.AdapterType]int, len(c.pools))
	for t, p := range c.pools {
		sizes[t] = p.Len()
	}
	c.metrics.publish(len(c.bindings), sizes)
}

func sortedIDs[V any](m map[core.MarkerID]V) []core.MarkerID {
	return slices.Sorted(maps.Keys(m))
}
