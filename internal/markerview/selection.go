package markerview

import (
	"fmt"
	"maps"
	"slices"

	"github.com/OCAP2/markerview/internal/registry"
	"github.com/OCAP2/markerview/internal/trace"
	"github.com/OCAP2/markerview/internal/view"
	"github.com/OCAP2/markerview/pkg/core"
)

// Select marks id selected. Unless multiple selection is allowed every other
// marker is deselected first. A bound marker plays the select animation and
// its adapter may take over confirming the selection.
func (c *Coordinator) Select(id core.MarkerID) error {
	if c.closed {
		return ErrClosed
	}
	m, ok := c.reg.Get(id)
	if !ok {
		return fmt.Errorf("select marker %d: %w", id, registry.ErrNotFound)
	}
	if _, pending := c.pending[id]; m.Selected || pending {
		return nil
	}

	if !c.cfg.AllowMultipleSelection {
		for _, other := range c.selectedIDs() {
			if om, ok := c.reg.Get(other); ok {
				c.deselect(om)
			}
		}
	}

	c.record(trace.KindSelect, m, nil)

	b, bound := c.bindings[id]
	if !bound {
		c.markSelected(m)
		return nil
	}

	consumed := b.adapter.OnSelect(m, b.view, false)
	c.animate(b.view, view.Scale, c.cfg.SelectScale, c.cfg.AnimationDuration, nil)
	if consumed {
		c.pending[id] = struct{}{}
		return nil
	}
	c.markSelected(m)
	return nil
}

// MarkSelected confirms a selection an adapter took over in OnSelect. It is a
// no-op when that selection was withdrawn in the meantime.
func (c *Coordinator) MarkSelected(id core.MarkerID) error {
	if c.closed {
		return ErrClosed
	}
	m, ok := c.reg.Get(id)
	if !ok {
		return fmt.Errorf("mark marker %d selected: %w", id, registry.ErrNotFound)
	}
	if _, pending := c.pending[id]; !pending {
		return nil
	}
	delete(c.pending, id)
	c.markSelected(m)
	return nil
}

// Deselect clears the selection of id.
func (c *Coordinator) Deselect(id core.MarkerID) error {
	if c.closed {
		return ErrClosed
	}
	m, ok := c.reg.Get(id)
	if !ok {
		return fmt.Errorf("deselect marker %d: %w", id, registry.ErrNotFound)
	}
	c.deselect(m)
	return nil
}

// DeselectAll clears every selection.
func (c *Coordinator) DeselectAll() {
	for _, id := range c.selectedIDs() {
		if m, ok := c.reg.Get(id); ok {
			c.deselect(m)
		}
	}
}

// Selected returns the selected marker ids in ascending order.
func (c *Coordinator) Selected() []core.MarkerID {
	return slices.Sorted(maps.Keys(c.selected))
}

// Click routes a click on the view of id. The click listener may consume it,
// otherwise the click toggles the selection.
func (c *Coordinator) Click(id core.MarkerID) error {
	if c.closed {
		return ErrClosed
	}
	m, ok := c.reg.Get(id)
	if !ok {
		return fmt.Errorf("click marker %d: %w", id, registry.ErrNotFound)
	}
	b, bound := c.bindings[id]
	if !bound {
		return fmt.Errorf("click marker %d: %w", id, ErrNotBound)
	}

	if c.onClick != nil && c.onClick(m, b.view, b.adapter) {
		return nil
	}
	if _, pending := c.pending[id]; m.Selected || pending {
		c.deselect(m)
		return nil
	}
	return c.Select(id)
}

func (c *Coordinator) deselect(m *core.Marker) {
	_, pending := c.pending[m.ID]
	if !m.Selected && !pending {
		return
	}
	delete(c.pending, m.ID)
	delete(c.selected, m.ID)
	m.Selected = false
	c.record(trace.KindDeselect, m, nil)

	if b, ok := c.bindings[m.ID]; ok {
		b.adapter.OnDeselect(m, b.view)
		c.animate(b.view, view.Scale, 1, c.cfg.AnimationDuration, nil)
	}
}

// adoptSelection records a marker that arrives already selected. Unless
// multiple selection is allowed it replaces the current selection.
func (c *Coordinator) adoptSelection(m *core.Marker) {
	if !c.cfg.AllowMultipleSelection {
		for _, other := range c.selectedIDs() {
			if other == m.ID {
				continue
			}
			if om, ok := c.reg.Get(other); ok {
				c.deselect(om)
			}
		}
	}
	c.markSelected(m)
}

func (c *Coordinator) markSelected(m *core.Marker) {
	m.Selected = true
	c.selected[m.ID] = struct{}{}
}

// replaySelect restores the selected look on a view without animating.
func (c *Coordinator) replaySelect(b *binding) {
	b.adapter.OnSelect(b.marker, b.view, true)
	c.animator.Animate(b.view, view.Scale, c.cfg.SelectScale, 0, nil)
}

func (c *Coordinator) selectedIDs() []core.MarkerID {
	ids := make([]core.MarkerID, 0, len(c.selected)+len(c.pending))
	for id := range c.selected {
		ids = append(ids, id)
	}
	for id := range c.pending {
		if _, ok := c.selected[id]; !ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}
