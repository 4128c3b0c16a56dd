package markerview

import (
	"fmt"
	"math"

	"github.com/OCAP2/markerview/internal/registry"
	"github.com/OCAP2/markerview/internal/trace"
	"github.com/OCAP2/markerview/internal/view"
	"github.com/OCAP2/markerview/pkg/core"
)

// listener receives registry mutations on behalf of the coordinator.
type listener struct {
	c *Coordinator
}

func (l listener) MarkerInserted(m *core.Marker) {
	if m.Flat {
		m.Tilt = l.c.tilt
	}
	if m.Selected {
		l.c.adoptSelection(m)
	}
	l.c.dirty = true
}

func (l listener) MarkerRemoved(m *core.Marker) {
	c := l.c
	if b, ok := c.bindings[m.ID]; ok {
		c.unbind(b, true)
	}
	m.Selected = false
	delete(c.selected, m.ID)
	delete(c.pending, m.ID)
	delete(c.added, m.ID)
	c.record(trace.KindRemove, m, nil)
}

func (l listener) PropertyChanged(m *core.Marker, p core.Property, _ any) {
	c := l.c
	if p == core.PropertyPosition {
		c.dirty = true
		return
	}
	if p == core.PropertyFlat && m.Flat {
		m.Tilt = c.tilt
	}

	b, ok := c.bindings[m.ID]
	if !ok {
		return
	}
	v := b.view

	switch p {
	case core.PropertyRotation:
		to := shortestRotation(v.Rotation, m.Rotation)
		c.animate(v, view.Rotation, to, c.cfg.AnimationDuration, func(finished bool) {
			if finished {
				v.Rotation = core.NormalizeRotation(v.Rotation)
			}
		})
	case core.PropertyAlpha:
		if m.Visible {
			c.animate(v, view.Alpha, m.Alpha, c.cfg.AnimationDuration, nil)
		}
	case core.PropertyVisible:
		c.applyVisibility(b)
	case core.PropertyFlat:
		v.TiltX = tiltOf(m)
	case core.PropertyAnchor, core.PropertyInfoWindowAnchor:
		c.positionView(m, v)
	case core.PropertyTitle, core.PropertySnippet:
		c.rebind(b)
	}
}

// applyVisibility fades a bound view in or out. A hidden view stops being
// interactive at once and becomes invisible when the fade completes.
func (c *Coordinator) applyVisibility(b *binding) {
	m, v := b.marker, b.view
	if m.Visible {
		v.Visible = true
		v.Interactive = true
		c.animate(v, view.Alpha, m.Alpha, c.cfg.AnimationDuration, nil)
		return
	}
	v.Interactive = false
	c.animate(v, view.Alpha, 0, c.cfg.AnimationDuration, func(finished bool) {
		if finished && c.bindings[b.id] == b && !m.Visible {
			v.Visible = false
		}
	})
}

// rebind asks the adapter to refresh the content of a bound view. When it
// returns another view, the old one is released and the new one bound.
func (c *Coordinator) rebind(b *binding) {
	m, old := b.marker, b.view
	v := b.adapter.CreateOrReuseView(m, old, c.container)
	if v == nil || v == old {
		return
	}
	if owner, ok := c.owners[v]; ok {
		c.logger.Error("Adapter returned a view bound to another marker",
			"marker", m.ID, "owner", owner, "view", v.ID())
		return
	}

	c.recycle(&binding{id: b.id, marker: m, view: old, adapter: b.adapter})
	if p, ok := c.pools[b.adapter.Type()]; ok {
		p.Take(v)
	}
	b.view = v
	c.owners[v] = m.ID
	c.container.Add(v)
	c.applyState(m, v)
	c.positionView(m, v)
	if m.Selected {
		c.replaySelect(b)
	}
}

// SetTilt applies the camera tilt to every flat marker. Bound views are
// updated at once without animation.
func (c *Coordinator) SetTilt(deg float64) {
	c.tilt = deg
	for _, m := range c.reg.All() {
		if !m.Flat {
			continue
		}
		m.Tilt = deg
		if b, ok := c.bindings[m.ID]; ok {
			b.view.TiltX = deg
		}
	}
}

// InfoWindowPosition returns the screen point an info window for id attaches
// to: the marker's info window anchor on its bound view.
func (c *Coordinator) InfoWindowPosition(id core.MarkerID) (core.ScreenPoint, error) {
	b, ok := c.bindings[id]
	if !ok {
		if _, exists := c.reg.Get(id); !exists {
			return core.ScreenPoint{}, fmt.Errorf("info window of marker %d: %w", id, registry.ErrNotFound)
		}
		return core.ScreenPoint{}, fmt.Errorf("info window of marker %d: %w", id, ErrNotBound)
	}
	m := b.marker
	updateOffsets(m, b.view)
	pt := c.projector.ToScreenLocation(m.Position)
	return core.ScreenPoint{
		X: pt.X + m.InfoWindowOffsetRight,
		Y: pt.Y - m.InfoWindowOffsetTop,
	}, nil
}

// Insert adds m to the registry. It gets a view on the next reconciliation.
func (c *Coordinator) Insert(m *core.Marker) (core.MarkerID, error) {
	if c.closed {
		return 0, ErrClosed
	}
	return c.reg.Insert(m)
}

// Remove drops a marker and releases its view.
func (c *Coordinator) Remove(id core.MarkerID) error {
	if c.closed {
		return ErrClosed
	}
	if err := c.reg.Remove(id); err != nil {
		return err
	}
	c.publishStats()
	return nil
}

// SetProperty mutates a marker through the registry. Bound views follow.
func (c *Coordinator) SetProperty(id core.MarkerID, p core.Property, value any) error {
	if c.closed {
		return ErrClosed
	}
	return c.reg.Set(id, p, value)
}

func (c *Coordinator) SetPosition(id core.MarkerID, p core.LatLng) error {
	return c.SetProperty(id, core.PropertyPosition, p)
}

func (c *Coordinator) SetRotation(id core.MarkerID, deg float64) error {
	return c.SetProperty(id, core.PropertyRotation, deg)
}

func (c *Coordinator) SetAlpha(id core.MarkerID, a float64) error {
	return c.SetProperty(id, core.PropertyAlpha, a)
}

func (c *Coordinator) SetVisible(id core.MarkerID, visible bool) error {
	return c.SetProperty(id, core.PropertyVisible, visible)
}

func (c *Coordinator) SetFlat(id core.MarkerID, flat bool) error {
	return c.SetProperty(id, core.PropertyFlat, flat)
}

func (c *Coordinator) SetAnchor(id core.MarkerID, a core.Anchor) error {
	return c.SetProperty(id, core.PropertyAnchor, a)
}

func (c *Coordinator) SetInfoWindowAnchor(id core.MarkerID, a core.Anchor) error {
	return c.SetProperty(id, core.PropertyInfoWindowAnchor, a)
}

func (c *Coordinator) SetTitle(id core.MarkerID, title string) error {
	return c.SetProperty(id, core.PropertyTitle, title)
}

func (c *Coordinator) SetSnippet(id core.MarkerID, snippet string) error {
	return c.SetProperty(id, core.PropertySnippet, snippet)
}

// shortestRotation returns the target for animating from toward to along the
// shorter arc. The result may leave [0, 360).
func shortestRotation(from, to float64) float64 {
	d := math.Mod(to-from, 360)
	switch {
	case d > 180:
		d -= 360
	case d < -180:
		d += 360
	}
	return from + d
}
