package markerview

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/OCAP2/markerview/internal/trace"
	"github.com/OCAP2/markerview/internal/view"
	"github.com/OCAP2/markerview/pkg/core"
)

func (c *Coordinator) reconcileIfDue() {
	if !c.dirty || len(c.adapters) == 0 {
		return
	}
	if !c.limiter.AllowN(c.now(), 1) {
		return
	}
	c.reconcile()
}

// reconcile binds the visible markers. Every stale view is released before
// the first acquisition so it can be reused within the same pass.
func (c *Coordinator) reconcile() {
	if len(c.adapters) == 0 {
		return
	}
	c.dirty = false

	visible := c.reg.QueryVisible(c.projector.VisibleBounds())
	inView := make(map[core.MarkerID]struct{}, len(visible))
	for _, m := range visible {
		inView[m.ID] = struct{}{}
	}

	released := 0
	for _, id := range sortedIDs(c.bindings) {
		if _, ok := inView[id]; !ok {
			c.unbind(c.bindings[id], true)
			released++
		}
	}

	bound := 0
	for _, m := range visible {
		if _, ok := c.bindings[m.ID]; ok {
			continue
		}
		if b, ok := c.exiting[m.ID]; ok {
			if c.resume(b) {
				bound++
			}
			continue
		}
		if c.bind(m) {
			bound++
		}
	}

	c.metrics.reconciliations.Add(context.Background(), 1)
	c.record(trace.KindReconcile, nil, map[string]any{
		"visible":  len(visible),
		"released": released,
		"bound":    bound,
		"active":   len(c.bindings),
	})
	c.logger.Debug("Reconciled marker views",
		"visible", len(visible), "released", released, "bound", bound, "active", len(c.bindings))
	c.publishStats()
}

// bind gives m a view. It reports false when m stays unbound.
func (c *Coordinator) bind(m *core.Marker) bool {
	a, ok := c.adapters[m.Type]
	if !ok {
		c.skip(m, skipNoAdapter)
		return false
	}
	p := c.pools[m.Type]

	recycled, _ := p.Acquire()
	v := a.CreateOrReuseView(m, recycled, c.container)
	if v != recycled && recycled != nil {
		if err := p.Release(recycled); err != nil {
			c.logger.Error("Failed to return unused view to pool", "view", recycled.ID(), "error", err)
		}
	}
	if v == nil {
		c.skip(m, skipViewCreationFailed)
		return false
	}
	if owner, ok := c.owners[v]; ok {
		c.logger.Error("Adapter returned a view bound to another marker",
			"marker", m.ID, "owner", owner, "view", v.ID())
		c.skip(m, skipViewAlreadyBound)
		return false
	}
	p.Take(v)

	created := c.container.Add(v)
	b := &binding{id: m.ID, marker: m, view: v, adapter: a}
	c.bindings[m.ID] = b
	c.owners[v] = m.ID
	c.applyState(m, v)
	c.positionView(m, v)

	c.metrics.created.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("adapter", string(m.Type))))
	c.record(trace.KindBind, m, map[string]any{
		"view":     uint64(v.ID()),
		"recycled": v == recycled,
		"created":  created,
	})

	if m.Selected {
		c.replaySelect(b)
	}

	listeners := c.added[m.ID]
	delete(c.added, m.ID)
	for _, l := range listeners {
		l(m, v)
	}
	return true
}

// unbind removes b from the active set. With fade and exit animation
// configured the view is pooled once the fade ends, otherwise right away.
func (c *Coordinator) unbind(b *binding, fade bool) {
	m, v := b.marker, b.view
	delete(c.bindings, b.id)

	if m.Selected {
		c.animator.Animate(v, view.Scale, 1, 0, nil)
	}

	if fade && c.cfg.ExitAnimation && c.cfg.ExitDuration > 0 {
		id := b.id
		b.exiting = true
		c.exiting[id] = b
		v.Interactive = false
		c.animate(v, view.Alpha, 0, c.cfg.ExitDuration, func(finished bool) {
			if !finished || c.exiting[id] != b {
				return
			}
			delete(c.exiting, id)
			c.recycle(b)
		})
		return
	}
	c.recycle(b)
}

// resume brings back a view that was fading out. The adapter rebinds it first
// since the marker may have changed during the fade. It reports false when
// the marker is left without a view.
func (c *Coordinator) resume(b *binding) bool {
	m, old := b.marker, b.view
	delete(c.exiting, b.id)
	b.exiting = false
	c.animator.Cancel(old)

	v := b.adapter.CreateOrReuseView(m, old, c.container)
	if v == nil {
		c.recycle(b)
		c.skip(m, skipViewCreationFailed)
		return false
	}
	if v != old {
		if owner, ok := c.owners[v]; ok {
			c.logger.Error("Adapter returned a view bound to another marker",
				"marker", m.ID, "owner", owner, "view", v.ID())
			c.recycle(b)
			c.skip(m, skipViewAlreadyBound)
			return false
		}
		c.recycle(&binding{id: b.id, marker: m, view: old, adapter: b.adapter})
		if p, ok := c.pools[b.adapter.Type()]; ok {
			p.Take(v)
		}
		b.view = v
		c.owners[v] = m.ID
		c.container.Add(v)
	}
	c.bindings[b.id] = b

	c.applyState(m, v)
	c.positionView(m, v)
	c.record(trace.KindBind, m, map[string]any{
		"view":    uint64(v.ID()),
		"resumed": true,
	})

	if m.Selected {
		c.replaySelect(b)
	}
	return true
}

// finishExit cuts a fade short and pools the view.
func (c *Coordinator) finishExit(b *binding) {
	delete(c.exiting, b.id)
	b.exiting = false
	c.recycle(b)
}

// recycle hides the view and returns it to its pool, unless the adapter keeps
// it to hand back later through ReleaseView. It reports whether the view was
// taken back by the coordinator.
func (c *Coordinator) recycle(b *binding) bool {
	m, v := b.marker, b.view
	c.animator.Cancel(v)
	delete(c.owners, v)

	auto := b.adapter.PrepareForReuse(m, v)

	c.metrics.released.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("adapter", string(b.adapter.Type()))))
	c.record(trace.KindRelease, m, map[string]any{
		"view":    uint64(v.ID()),
		"managed": !auto,
	})

	if !auto {
		return false
	}
	v.Hide()
	p, ok := c.pools[b.adapter.Type()]
	if !ok {
		return true
	}
	if err := p.Release(v); err != nil {
		c.logger.Error("Failed to pool view", "marker", m.ID, "view", v.ID(), "error", err)
	}
	return true
}

func (c *Coordinator) skip(m *core.Marker, reason string) {
	c.metrics.skip(reason, m.Type)
	c.record(trace.KindSkip, m, map[string]any{"reason": reason})
	c.logger.Debug("Marker left without view", "marker", m.ID, "type", m.Type, "reason", reason)
}

// applyState copies the marker's visual state onto a freshly bound view.
func (c *Coordinator) applyState(m *core.Marker, v *view.View) {
	v.Visible = m.Visible
	v.Interactive = m.Visible
	v.Rotation = m.Rotation
	v.Alpha = displayAlpha(m)
	v.Scale = 1
	v.TiltX = tiltOf(m)
}

func (c *Coordinator) updatePositions() {
	for _, id := range sortedIDs(c.bindings) {
		b := c.bindings[id]
		c.positionView(b.marker, b.view)
	}
	for _, id := range sortedIDs(c.exiting) {
		b := c.exiting[id]
		c.positionView(b.marker, b.view)
	}
}

// positionView places v so that the marker's anchor sits on its projected
// position and refreshes the marker's derived offsets.
func (c *Coordinator) positionView(m *core.Marker, v *view.View) {
	updateOffsets(m, v)
	pt := c.projector.ToScreenLocation(m.Position)
	v.X = pt.X + m.OffsetX
	v.Y = pt.Y + m.OffsetY
}

func updateOffsets(m *core.Marker, v *view.View) {
	m.OffsetX = -m.Anchor.U * v.Width
	m.OffsetY = -m.Anchor.V * v.Height
	m.InfoWindowOffsetTop = (m.Anchor.V - m.InfoWindowAnchor.V) * v.Height
	m.InfoWindowOffsetRight = (m.InfoWindowAnchor.U - m.Anchor.U) * v.Width
}

func displayAlpha(m *core.Marker) float64 {
	if !m.Visible {
		return 0
	}
	return m.Alpha
}

func tiltOf(m *core.Marker) float64 {
	if !m.Flat {
		return 0
	}
	return m.Tilt
}
